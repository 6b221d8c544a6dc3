package commands

import (
	"fmt"

	"tilesink/pkg/exporter"
	"tilesink/pkg/types"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Show the metadata and levels of an existing pyramid",
	Long:  `Accepts a .dzi/.xml descriptor, a .dzip archive or a level directory.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TS == nil {
			return fmt.Errorf("app not initialized")
		}
		ctx, cancel := withTimeout(cmd)
		defer cancel()

		return exporter.NewExporter(TS.Storage).Inspect(ctx, types.RootPath.Join(args[0]), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
