package tunnel

import (
	"context"
	"fmt"
	"os"
	"time"

	"tempbot-keeper/internal/config"
	"tempbot-keeper/services"

	"github.com/spf13/cobra"
)

var urlTimeout time.Duration

var urlCmd = &cobra.Command{
	Use:   "url",
	Short: "Discover and print the tunnel's public URL",
	Run: func(cmd *cobra.Command, args []string) {
		if urlTimeout != 0 {
			config.Config.Discovery.Timeout = urlTimeout
		}
		url, err := services.GetTunnelManager().DiscoverPublicURL(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(url)
	},
}

func init() {
	urlCmd.Flags().SortFlags = false
	urlCmd.Flags().DurationVarP(&urlTimeout, "timeout", "t", 0, "Discovery timeout")

	tunnelCmd.AddCommand(urlCmd)
}
