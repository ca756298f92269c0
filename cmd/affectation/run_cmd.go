package main

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/internship-affectation/internal/dto"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		executions int
		seed       int64
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine and persist the cheapest solution",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer env.close()

			req := dto.GenerateAffectationRequest{Executions: executions, Workers: workers}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			result, err := env.service.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVar(&executions, "executions", 0, "Number of trials (default AFFECTATION_DEFAULT_EXECUTIONS)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Master seed (default AFFECTATION_SEED, 0 picks a time-based seed)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Trials built concurrently (default AFFECTATION_WORKERS)")
	return cmd
}
