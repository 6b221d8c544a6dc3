package commands

import (
	"github.com/spf13/cobra"
)

var createFlags exportFlags

var createCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Build the sink and create the pyramid skeleton",
	Long: `Build the sink, write the DZI descriptor, create every level directory and
record an export job. In zip mode everything lands in a single .dzip archive.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{remoteCapable: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, &createFlags, args[0], true)
	},
}

func init() {
	createFlags.register(createCmd)
	rootCmd.AddCommand(createCmd)
}
