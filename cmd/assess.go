package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"engine-health-monitor/internal/diagnostics"
	"engine-health-monitor/internal/models"
	"engine-health-monitor/internal/parser"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// assessCmd evaluates readings from files, stdin or the store
func assessCmd() *cobra.Command {
	var format string
	var seed int64
	var workers int
	var outputFormat string
	var store bool
	var vehicleID string

	cmd := &cobra.Command{
		Use:   "assess [file...]",
		Short: "Evaluate engine health for sensor readings",
		Long: `Evaluate engine health for readings read from files ("-" for stdin),
or for the latest stored reading of a vehicle with --vehicle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if vehicleID == "" && len(args) == 0 {
				return fmt.Errorf("give at least one file or --vehicle")
			}
			ctx := cmd.Context()

			needDB := store || vehicleID != ""
			if needDB {
				if err := initDB(); err != nil {
					return fmt.Errorf("database error: %w", err)
				}
				defer database.Close()
			}

			var readings []models.SensorReading
			if vehicleID != "" {
				r, err := database.GetLatestReading(ctx, vehicleID)
				if err != nil {
					return fmt.Errorf("latest reading for %s: %w", vehicleID, err)
				}
				readings = append(readings, *r)
			}

			p := parser.NewParser(format)
			for _, file := range args {
				var records []models.SensorReading
				var err error
				if file == "-" {
					records, err = p.Parse(os.Stdin)
				} else {
					records, err = p.ParseFile(file)
				}
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				readings = append(readings, records...)
			}
			if len(readings) == 0 {
				fmt.Println("No readings to assess")
				return nil
			}

			start := time.Now()
			engine := diagnostics.NewEngine(nil, nil)
			results, err := assessReadings(ctx, engine, readings, seedFromConfig(seed), workers)
			if err != nil {
				return err
			}

			if store {
				for _, a := range results {
					if a.VehicleID == "" {
						continue
					}
					if err := database.InsertAssessment(ctx, a); err != nil {
						return fmt.Errorf("store assessment: %w", err)
					}
				}
			}

			if outputFormat == "json" {
				return writeJSON(results)
			}
			printAssessments(results)
			fmt.Printf("\n%d readings assessed in %v\n", len(results), time.Since(start))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Input format (csv, json, jsonl, log)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Jitter seed (0 uses config or clock)")
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Concurrent evaluations")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	cmd.Flags().BoolVar(&store, "store", false, "Store assessments for readings with a vehicle id")
	cmd.Flags().StringVar(&vehicleID, "vehicle", "", "Assess the latest stored reading of this vehicle")
	return cmd
}

// assessReadings evaluates readings concurrently. Reading i draws jitter from
// its own source seeded with seed+i, so results depend only on seed and order.
func assessReadings(ctx context.Context, engine *diagnostics.Engine, readings []models.SensorReading, seed int64, workers int) ([]*models.HealthAssessment, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]*models.HealthAssessment, len(readings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range readings {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := readings[i]
			a, err := engine.WithSource(diagnostics.NewSource(seed + int64(i))).Evaluate(r.SensorSnapshot)
			if err != nil {
				return fmt.Errorf("reading %d (%s): %w", i+1, r.VehicleID, err)
			}
			a.ID = uuid.NewString()
			a.VehicleID = r.VehicleID
			a.Timestamp = r.Timestamp.UTC()
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printAssessments(results []*models.HealthAssessment) {
	fmt.Printf("%-10s %-20s %-6s %-10s %-7s %-10s %s\n",
		"Vehicle", "Timestamp", "Score", "Status", "Risk", "Remaining", "Next service")
	fmt.Println(strings.Repeat("-", 84))
	for _, a := range results {
		vehicle := a.VehicleID
		if vehicle == "" {
			vehicle = "-"
		}
		fmt.Printf("%-10s %-20s %-6.2f %-10s %-7s %-10d %d %s\n",
			vehicle, a.Timestamp.Format("2006-01-02 15:04:05"),
			a.Health.OverallScore, a.Health.Status, a.Maintenance.RiskLevel,
			a.Health.RemainingDistance, a.Maintenance.NextServiceDistance, a.Health.DistanceUnit)
		for _, action := range a.Maintenance.UrgentActions {
			fmt.Printf("    ! %s\n", action)
		}
	}
}
