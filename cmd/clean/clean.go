package clean

import (
	"fmt"

	"tempbot-keeper/cmd/root"
	"tempbot-keeper/services"

	"github.com/spf13/cobra"
)

var force bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Terminate stale tunnel and bot processes",
	Run: func(cmd *cobra.Command, args []string) {
		// 清理是尽力而为：没有匹配进程不算失败
		launcher := services.NewLauncher()
		if force {
			launcher.ForceClean()
		} else {
			launcher.Cleanup()
		}
		fmt.Println("Cleanup finished")
	},
}

func init() {
	cleanCmd.Flags().SortFlags = false
	cleanCmd.Flags().BoolVar(&force, "force", false, "Also kill by process name, ignoring pidfiles")

	root.RootCmd.AddCommand(cleanCmd)

	cleanCmd.Example = `  tempbot-keeper clean

  # pidfiles lost or stale
  tempbot-keeper clean --force`
}
