package launch

import (
	"context"
	"fmt"
	"os"
	"time"

	"tempbot-keeper/cmd/root"
	"tempbot-keeper/internal/config"
	"tempbot-keeper/services"

	"github.com/spf13/cobra"
)

var (
	skipCleanup bool
	timeout     time.Duration
	envFile     string
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Bring up the development environment and run the bot",
	Long: `Terminates stale tunnel/bot processes, starts the tunnel, waits for its
public URL, writes the URL into the env file and runs the bot in the
foreground. The bot's exit code becomes the keeper's exit code.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runLaunch(context.Background()))
	},
}

/**
 * Run the launch sequence and translate the result into an exit code
 * @param {context.Context} ctx - Context for cancellation
 * @returns {int} Exit code: bot's own code on handoff, 1 on bring-up failure
 */
func runLaunch(ctx context.Context) int {
	if envFile != "" {
		config.Config.Env.File = envFile
	}
	if timeout != 0 {
		config.Config.Discovery.Timeout = timeout
	}

	launcher := services.NewLauncher()
	launcher.SkipCleanup = skipCleanup

	code, err := launcher.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return code
}

func init() {
	launchCmd.Flags().SortFlags = false
	launchCmd.Flags().BoolVar(&skipCleanup, "skip-cleanup", false, "Do not terminate stale processes first")
	launchCmd.Flags().DurationVar(&timeout, "timeout", 0, "Override the public URL discovery timeout")
	launchCmd.Flags().StringVar(&envFile, "env-file", "", "Override the env file path")

	root.RootCmd.AddCommand(launchCmd)

	launchCmd.Example = `  # bring everything up and run the bot
  tempbot-keeper launch

  # tunnel already running externally
  tempbot-keeper launch --skip-cleanup`
}
