package status

import (
	"fmt"
	"time"

	"tempbot-keeper/cmd/root"
	"tempbot-keeper/internal/config"
	"tempbot-keeper/internal/utils"
	"tempbot-keeper/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var statusJson bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the most recent launch",
	Run: func(cmd *cobra.Command, args []string) {
		if err := showStatus(); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 *	Fields displayed in status format
 */
type Status_Columns struct {
	LaunchId  string `json:"launch_id"`
	Status    string `json:"status"`
	PublicURL string `json:"public_url"`
	TunnelPid int    `json:"tunnel_pid"`
	BotPid    int    `json:"bot_pid"`
	TunnelOk  string `json:"tunnel_ok"`
	BotOk     string `json:"bot_ok"`
	PortOpen  string `json:"port_open"`
	StartTime string `json:"start_time"`
}

/**
 * Show persisted launch state with live process checks
 * @returns {error} Returns error if no launch state is recorded
 * @description
 * - Reads the launch state saved by the most recent run
 * - Probes the recorded PIDs to show whether they are still alive
 */
func showStatus() error {
	state, err := services.LoadLaunchState()
	if err != nil {
		return err
	}
	if statusJson {
		utils.PrintJson(state)
		return nil
	}

	row := Status_Columns{
		LaunchId:  state.LaunchId,
		Status:    string(state.Status),
		PublicURL: state.PublicURL,
		TunnelPid: state.TunnelPid,
		BotPid:    state.BotPid,
		StartTime: state.StartTime.Format(time.RFC3339),
	}
	row.TunnelOk = "N"
	if running, err := utils.IsProcessRunning(state.TunnelPid); err == nil && running {
		row.TunnelOk = "Y"
	}
	row.BotOk = "N"
	if running, err := utils.IsProcessRunning(state.BotPid); err == nil && running {
		row.BotOk = "Y"
	}
	// 本地端口有监听者说明隧道有东西可转发
	row.PortOpen = "N"
	if utils.IsPortOpen(config.Config.Tunnel.LocalPort) {
		row.PortOpen = "Y"
	}

	recordMap, _ := utils.StructToOrderedMap(row)
	utils.PrintFormat([]*orderedmap.OrderedMap{recordMap})
	return nil
}

func init() {
	statusCmd.Flags().SortFlags = false
	statusCmd.Flags().BoolVar(&statusJson, "json", false, "Output as JSON")

	root.RootCmd.AddCommand(statusCmd)

	statusCmd.Example = `  tempbot-keeper status`
}
