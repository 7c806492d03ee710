package envfile

import (
	"fmt"
	"os"

	"tempbot-keeper/services"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Rewrite the line of a key in the env file",
	Long: `Rewrites the line of the given key in place. Every other line is left
byte-for-byte unchanged. A key that is not present in the file is an
error, no line is appended.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		store := services.NewEnvStore(envFilePath())
		if err := store.Set(args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated %s in %s\n", args[0], store.Path())
	},
}

func init() {
	envCmd.AddCommand(setCmd)
}
