package tunnel

import (
	"fmt"
	"log"

	"tempbot-keeper/services"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the tunnel process",
	Run: func(cmd *cobra.Command, args []string) {
		if err := services.GetTunnelManager().StopTunnel(); err != nil {
			log.Fatalf("Failed to stop tunnel: %v", err)
		}
		fmt.Println("Tunnel stopped")
	},
}

func init() {
	tunnelCmd.AddCommand(stopCmd)
}
