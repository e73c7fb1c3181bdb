package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"climate-server/internal/app"
)

func (c *cli) newLoadCmd() *cobra.Command {
	var stations, measurements string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Create the tables in an empty store and bulk-load the CSV dataset",
		Example: "  climate-server load --stations hawaii_stations.csv --measurements hawaii_measurements.csv\n" +
			"  DB_DRIVER=pgx DB_DSN=postgres://localhost/climate climate-server load --stations s.csv --measurements m.csv",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum, err := app.Load(cmd.Context(), c.cfg, stations, measurements)
			if err != nil {
				return err
			}
			slog.Info("load complete", "stations", sum.Stations, "measurements", sum.Measurements)
			return nil
		},
	}
	cmd.Flags().StringVar(&stations, "stations", "", "stations CSV file")
	cmd.Flags().StringVar(&measurements, "measurements", "", "measurements CSV file")
	_ = cmd.MarkFlagRequired("stations")
	_ = cmd.MarkFlagRequired("measurements")
	return cmd
}
