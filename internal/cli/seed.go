package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"proceres/internal/auth"
	"proceres/internal/ingest"
	"proceres/internal/setup"
)

func newSeedCommand(deps func() *app, output *string) *cobra.Command {
	var datasetPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Ensure the admin account and load the subject dataset",
		Long: `Creates the admin account named by PROCERES_ADMIN_EMAIL when it is missing and
loads every subject of the dataset that is not stored yet. Running it again
is safe: records already present are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := deps()
			if datasetPath == "" {
				datasetPath = a.cfg.Ingest.DatasetPath
			}
			engine := ingest.NewEngine(a.store,
				ingest.WithBatchSize(a.cfg.Ingest.BatchSize),
				ingest.WithParallelism(a.cfg.Ingest.Parallelism),
				ingest.WithRetries(a.cfg.Ingest.Retries),
				ingest.WithRunTimeout(a.cfg.Ingest.Timeout),
				ingest.WithLogger(a.log),
				ingest.WithMetrics(ingest.NewMetrics(a.metrics)),
			)
			boot := setup.New(a.store, auth.NewBcrypt(), engine, a.log)
			res, err := boot.Run(cmd.Context(), setup.Options{
				AdminEmail:    a.cfg.Setup.AdminEmail,
				AdminPassword: a.cfg.Setup.AdminPassword,
				DatasetPath:   datasetPath,
			})
			if err != nil {
				return err
			}
			if *output == "json" {
				return writeJSON(cmd.OutOrStdout(), res.Report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "admin: %s\n", res.Admin.Email)
			fmt.Fprintf(out, "subjects: %s\n", res.Report)
			for _, f := range res.Report.Failures {
				fmt.Fprintf(out, "  #%d %s: %s\n", f.Index, f.ID, f.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset file (default PROCERES_DATASET_PATH)")
	return cmd
}
