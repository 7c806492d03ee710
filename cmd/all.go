package cmd

import (
	_ "tempbot-keeper/cmd/clean"
	_ "tempbot-keeper/cmd/envfile"
	_ "tempbot-keeper/cmd/launch"
	_ "tempbot-keeper/cmd/root"
	_ "tempbot-keeper/cmd/status"
	_ "tempbot-keeper/cmd/tunnel"
)
