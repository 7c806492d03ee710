package envfile

import (
	"path/filepath"

	"tempbot-keeper/cmd/root"
	"tempbot-keeper/internal/config"
	"tempbot-keeper/internal/env"

	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect and update the project env file",
	Long:  `Inspect and update the KEY=VALUE env file consumed by the bot at startup`,
}

// envFilePath 相对路径基于项目目录解析
func envFilePath() string {
	p := config.Config.Env.File
	if !filepath.IsAbs(p) {
		p = filepath.Join(env.GetProjectDir(), p)
	}
	return p
}

const envExample = `  # show the current public URL key
  tempbot-keeper env get

  # rewrite a key in place
  tempbot-keeper env set NGROK_URL https://abc123.ngrok.io`

func init() {
	root.RootCmd.AddCommand(envCmd)

	envCmd.Example = envExample
}
