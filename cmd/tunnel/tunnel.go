package tunnel

import (
	"tempbot-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Tunnel operations (start/stop/url/list)",
	Long:  `Tunnel operations (start/stop/url/list)`,
}

const tunnelExample = `  # start the tunnel process
  tempbot-keeper tunnel start

  # print the public URL
  tempbot-keeper tunnel url`

func init() {
	root.RootCmd.AddCommand(tunnelCmd)

	tunnelCmd.Example = tunnelExample
}
