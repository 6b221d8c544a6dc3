package commands

import (
	"fmt"
	"path/filepath"

	"tilesink/pkg/catalog"
	"tilesink/pkg/exporter"
	"tilesink/pkg/storage/disk"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [dir]",
	Short: "List pyramids under the storage root",
	Long:  `Scan the local storage root (or a directory inside it) for .dzi/.xml descriptors and .dzip archives.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TS == nil {
			return fmt.Errorf("app not initialized")
		}
		if TS.Disk == nil {
			return fmt.Errorf("ls requires disk storage")
		}

		root := TS.Disk
		if len(args) > 0 {
			sub, err := disk.NewAdapter(filepath.Join(TS.Disk.Root(), filepath.FromSlash(args[0])))
			if err != nil {
				return err
			}
			root = sub
		}

		ctx, cancel := withTimeout(cmd)
		defer cancel()

		entries, err := catalog.Scan(ctx, root)
		if err != nil {
			return err
		}
		exporter.PrintCatalog(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
