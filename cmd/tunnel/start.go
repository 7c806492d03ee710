package tunnel

import (
	"context"
	"fmt"
	"log"

	"tempbot-keeper/services"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tunnel process",
	Run: func(cmd *cobra.Command, args []string) {
		tunnelSvc := services.GetTunnelManager()
		if err := tunnelSvc.StartTunnel(context.Background()); err != nil {
			log.Fatalf("Failed to start tunnel: %v", err)
		}
		state := tunnelSvc.State()
		fmt.Printf("Successfully started tunnel %s, local port: %d, PID: %d\n",
			state.Name, state.LocalPort, state.Pid)
	},
}

func init() {
	tunnelCmd.AddCommand(startCmd)
}
