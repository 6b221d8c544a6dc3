package commands

import (
	"github.com/spf13/cobra"
)

var planFlags exportFlags

var planCmd = &cobra.Command{
	Use:   "plan <path>",
	Short: "Validate an export without writing anything",
	Long: `Run the validation chain of the configured format against the given array
geometry and target path. Prints the sink that would be built, or why it cannot be.
A path without an extension gets the format's default extension.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{remoteCapable: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, &planFlags, args[0], false)
	},
}

func init() {
	planFlags.register(planCmd)
	rootCmd.AddCommand(planCmd)
}
