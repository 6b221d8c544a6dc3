package commands

import (
	"tilesink/pkg/exporter"
	"tilesink/pkg/rpc"

	"github.com/spf13/cobra"
)

var (
	jobsStatus string
	jobsLimit  int
)

var jobsCmd = &cobra.Command{
	Use:         "jobs",
	Short:       "List recorded export jobs",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{remoteCapable: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, closeFn, err := newBackend()
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := withTimeout(cmd)
		defer cancel()

		resp, err := backend.ListJobs(ctx, &rpc.ListJobsRequest{Status: jobsStatus, Limit: jobsLimit})
		if err != nil {
			return err
		}
		exporter.PrintJobs(cmd.OutOrStdout(), resp.Jobs)
		return nil
	},
}

func init() {
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "only show jobs in this state (pending, running, completed, failed)")
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "maximum number of jobs to show (0 for all)")
	rootCmd.AddCommand(jobsCmd)
}
