package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default tilesink configuration",
	Long:  `Create ./.tilesink/config.yaml with the current settings (defaults, environment and flags).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}

		dir := filepath.Join(wd, ".tilesink")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		path := filepath.Join(dir, "config.yaml")
		err = viper.SafeWriteConfigAs(path)
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠️  tilesink config already exists in %s\n", path)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ Initialized tilesink config in %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
