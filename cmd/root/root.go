package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "tempbot-keeper",
	Short: "tempbot开发环境管理器",
	Long:  `tempbot-keeper管理tempbot开发环境的启动：清理残留进程、启动隧道、发现公网地址、更新配置文件、前台运行主程序`,
}
