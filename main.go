package main

import (
	_ "tempbot-keeper/cmd"
	"tempbot-keeper/cmd/root"
	"tempbot-keeper/internal/config"
	"tempbot-keeper/internal/logger"
	"os"
)

func main() {
	// launch是交互式长流程，日志同时镜像到控制台
	isLaunchMode := len(os.Args) > 1 && os.Args[1] == "launch"

	logger.InitLogger(&config.Config.Log, isLaunchMode)

	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
