package tunnel

import (
	"context"
	"fmt"

	"tempbot-keeper/internal/models"
	"tempbot-keeper/internal/utils"
	"tempbot-keeper/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var listJson bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tunnels reported by the control API",
	Run: func(cmd *cobra.Command, args []string) {
		if err := listTunnels(context.Background()); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 *	Fields displayed in list format
 */
type Tunnel_Columns struct {
	Name      string `json:"name"`
	Proto     string `json:"proto"`
	LocalAddr string `json:"local_addr"`
	PublicURL string `json:"public_url"`
}

/**
 * List tunnel records with formatted output
 * @param {context.Context} ctx - Context for request cancellation
 * @returns {error} Returns error if listing fails, nil on success
 * @description
 * - Queries the tunnel control API for all active tunnels
 * - Uses utils.PrintFormat for table output
 */
func listTunnels(ctx context.Context) error {
	tunnels, err := services.GetTunnelManager().ListTunnels(ctx)
	if err != nil {
		return err
	}
	if len(tunnels) == 0 {
		fmt.Println("No active tunnels")
		return nil
	}
	if listJson {
		utils.PrintJson(tunnels)
		return nil
	}
	return listAllTunnels(tunnels)
}

func listAllTunnels(tunnels []models.NgrokTunnel) error {
	var dataList []*orderedmap.OrderedMap
	for _, tunnel := range tunnels {
		row := Tunnel_Columns{
			Name:      tunnel.Name,
			Proto:     tunnel.Proto,
			LocalAddr: tunnel.Config.Addr,
			PublicURL: tunnel.PublicURL,
		}
		recordMap, _ := utils.StructToOrderedMap(row)
		dataList = append(dataList, recordMap)
	}

	utils.PrintFormat(dataList)
	return nil
}

func init() {
	listCmd.Flags().SortFlags = false
	listCmd.Flags().BoolVar(&listJson, "json", false, "Output as JSON")
	tunnelCmd.AddCommand(listCmd)
}
