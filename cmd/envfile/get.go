package envfile

import (
	"fmt"
	"os"

	"tempbot-keeper/internal/config"
	"tempbot-keeper/services"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the value of a key from the env file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := config.Config.Env.Key
		if len(args) > 0 {
			key = args[0]
		}
		value, err := services.NewEnvStore(envFilePath()).Get(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(value)
	},
}

func init() {
	envCmd.AddCommand(getCmd)
}
