package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/internship-affectation/internal/affectation"
	"github.com/noah-isme/internship-affectation/internal/dto"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var sortOrganization string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print statistics and occupancy of the persisted solution, or of a single fixture run",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer env.close()

			query := dto.StatisticsQuery{SortOrganization: sortOrganization}
			if root.fixture == "" {
				result, err := env.service.Statistics(cmd.Context(), query)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			}

			ds, err := env.source.Load(cmd.Context())
			if err != nil {
				return err
			}
			opts := env.engine.Options()
			opts.Executions = 1
			run, err := env.engine.RunWith(cmd.Context(), ds, nil, opts)
			if err != nil {
				return err
			}
			generatedAt := time.Now().UTC()
			records := run.Solution.Records(generatedAt)
			return writeJSON(cmd.OutOrStdout(), dto.StatisticsResponse{
				Statistics:  affectation.ComputeStatistics(records, ds, opts.ErrorOrganizationRef),
				Occupancy:   affectation.ComputeOccupancy(records, ds, sortOrganization),
				GeneratedAt: generatedAt,
			})
		},
	}

	cmd.Flags().StringVar(&sortOrganization, "sort", affectation.SortOccupancyByReference, "Occupancy order: ref or speciality")
	return cmd
}
