package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"engine-health-monitor/internal/config"
	"engine-health-monitor/internal/db"
	"engine-health-monitor/internal/generator"
	"engine-health-monitor/internal/models"
	"engine-health-monitor/internal/parser"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	logLevel   string

	cfg      *config.Config
	database *db.Database
	levelVar = new(slog.LevelVar)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "engine-monitor",
		Short: "Engine Health Monitor - engine sensor diagnostics and maintenance forecasting",
		Long: `A CLI tool and REST API for evaluating engine sensor snapshots.
Scores six engine readings, estimates remaining distance before service,
and stores readings and assessments in SQLite or PostgreSQL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath, "Database path (sqlite) or DSN (postgres)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(assessCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(vehicleCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file if given, applies flag overrides and
// installs the JSON logger
func loadConfig(cmd *cobra.Command) error {
	var err error
	if configPath != "" {
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	flags := cmd.Flags()
	if flags.Changed("db") || configPath == "" {
		cfg.Storage.DSN = dbPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	levelVar.Set(cfg.Log.SlogLevel())
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar})))
	return nil
}

// initDB initializes database connection
func initDB() error {
	var err error
	database, err = db.Open(cfg.Storage.Backend, cfg.Storage.DSN)
	return err
}

// seedFromConfig returns the configured engine seed, or a clock-based one
func seedFromConfig(override int64) int64 {
	if override != 0 {
		return override
	}
	if cfg != nil && cfg.Engine.Seed != 0 {
		return cfg.Engine.Seed
	}
	return time.Now().UnixNano()
}

// ingestCmd ingests sensor readings from files
func ingestCmd() *cobra.Command {
	var format string
	var validate bool

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest sensor readings from files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			ctx := cmd.Context()
			p := parser.NewParser(format)
			totalRecords := 0
			totalErrors := 0

			for _, file := range args {
				fmt.Printf("Processing %s...\n", file)
				start := time.Now()

				records, err := p.ParseFile(file)
				if err != nil {
					fmt.Printf("  Error: %v\n", err)
					totalErrors++
					continue
				}

				if validate {
					var valid []models.SensorReading
					for _, r := range records {
						if errs := parser.ValidateReading(&r); len(errs) == 0 {
							valid = append(valid, r)
						} else {
							slog.Debug("rejected reading", "file", file, "vehicle_id", r.VehicleID, "errors", errs)
							totalErrors++
						}
					}
					records = valid
				}
				if len(records) == 0 {
					fmt.Println("  No valid records")
					continue
				}

				count, err := database.InsertReadingBatch(ctx, records)
				if err != nil {
					fmt.Printf("  Database error: %v\n", err)
					continue
				}

				elapsed := time.Since(start)
				fmt.Printf("  Inserted %d records in %v (%.0f records/sec)\n",
					count, elapsed, float64(count)/elapsed.Seconds())
				totalRecords += int(count)
			}

			fmt.Printf("\nTotal: %d records ingested", totalRecords)
			if totalErrors > 0 {
				fmt.Printf(", %d errors", totalErrors)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "File format (csv, json, jsonl, log)")
	cmd.Flags().BoolVarP(&validate, "validate", "v", true, "Validate records before inserting")
	return cmd
}

// queryCmd queries stored sensor readings
func queryCmd() *cobra.Command {
	var vehicleID string
	var startTime string
	var endTime string
	var limit int
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query sensor readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			q := models.ReadingQuery{
				VehicleID: vehicleID,
				Limit:     limit,
			}

			if startTime != "" {
				t, err := time.Parse(time.RFC3339, startTime)
				if err != nil {
					return fmt.Errorf("invalid start_time format (use RFC3339): %w", err)
				}
				q.StartTime = t
			}

			if endTime != "" {
				t, err := time.Parse(time.RFC3339, endTime)
				if err != nil {
					return fmt.Errorf("invalid end_time format (use RFC3339): %w", err)
				}
				q.EndTime = t
			}

			start := time.Now()
			results, err := database.QueryReadings(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("query error: %w", err)
			}
			elapsed := time.Since(start)

			if outputFormat == "json" {
				return writeJSON(results)
			}
			fmt.Printf("Found %d records (query time: %v)\n\n", len(results), elapsed)
			printReadings(results)
			return nil
		},
	}

	cmd.Flags().StringVarP(&vehicleID, "vehicle", "V", "", "Filter by vehicle ID")
	cmd.Flags().StringVarP(&startTime, "start", "s", "", "Start time (RFC3339)")
	cmd.Flags().StringVarP(&endTime, "end", "e", "", "End time (RFC3339)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "Maximum records to return")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	return cmd
}

// historyCmd pages through a vehicle's readings
func historyCmd() *cobra.Command {
	var page int
	var pageSize int
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "history [vehicle_id]",
		Short: "Show paginated reading history for a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pageSize > 100 {
				pageSize = 100
			}
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			result, err := database.History(cmd.Context(), args[0], page, pageSize)
			if err != nil {
				return fmt.Errorf("history error: %w", err)
			}

			if outputFormat == "json" {
				return writeJSON(result)
			}
			pages := (result.Total + result.PageSize - 1) / result.PageSize
			fmt.Printf("History for %s: page %d of %d (%d records)\n\n", args[0], result.Page, max(pages, 1), result.Total)
			printReadings(result.Results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "Records per page (max 100)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	return cmd
}

// statsCmd shows database statistics
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			stats, err := database.GetStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("error getting stats: %w", err)
			}

			fmt.Println("Engine Health Monitor Statistics")
			fmt.Println("================================")
			fmt.Printf("  Vehicles:             %d\n", stats.TotalVehicles)
			fmt.Printf("  Sensor Readings:      %d\n", stats.TotalReadings)
			fmt.Printf("  Assessments:          %d\n", stats.TotalAssessments)
			fmt.Printf("  High Risk:            %d\n", stats.HighRiskAssessments)
			fmt.Printf("  Average Score:        %.2f\n", stats.AverageScore)
			fmt.Printf("  Storage:              %s\n", stats.Backend)

			return nil
		},
	}
}

// generateCmd generates sample sensor readings
func generateCmd() *cobra.Command {
	var count int
	var vehicleCount int
	var seed int64
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample sensor readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			gen := generator.New(seedFromConfig(seed))
			records := gen.Fleet(vehicleCount, count, time.Now().Add(-24*time.Hour))

			// Insert in batches of 1000
			start := time.Now()
			batchSize := 1000
			inserted := 0

			for i := 0; i < len(records); i += batchSize {
				end := min(i+batchSize, len(records))
				n, err := database.InsertReadingBatch(cmd.Context(), records[i:end])
				if err != nil {
					return fmt.Errorf("insert batch: %w", err)
				}
				inserted += int(n)
				fmt.Printf("\rInserted %d/%d records...", inserted, len(records))
			}

			elapsed := time.Since(start)
			fmt.Printf("\nGenerated %d readings for %d vehicles in %v (%.0f records/sec)\n",
				inserted, vehicleCount, elapsed, float64(inserted)/elapsed.Seconds())

			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("error creating output file: %w", err)
				}
				defer file.Close()

				enc := json.NewEncoder(file)
				enc.SetIndent("", "  ")
				if err := enc.Encode(records); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				fmt.Printf("Data exported to %s\n", output)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "c", 10000, "Number of readings to generate")
	cmd.Flags().IntVarP(&vehicleCount, "vehicles", "n", 10, "Number of vehicles")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 uses config or clock)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Export generated data to JSON file")
	return cmd
}

// vehicleCmd groups per-vehicle lookups
func vehicleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicle",
		Short: "Vehicle lookup commands",
	}

	latestCmd := &cobra.Command{
		Use:   "latest [vehicle_id]",
		Short: "Show the most recent stored reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			r, err := database.GetLatestReading(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("latest reading for %s: %w", args[0], err)
			}
			printReadings([]models.SensorReading{*r})
			return nil
		},
	}

	var limit int
	assessmentsCmd := &cobra.Command{
		Use:   "assessments [vehicle_id]",
		Short: "List stored assessments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			list, err := database.ListAssessments(cmd.Context(), args[0], limit)
			if err != nil {
				return fmt.Errorf("error listing assessments: %w", err)
			}
			if len(list) == 0 {
				fmt.Printf("No assessments for %s. Use 'engine-monitor assess --vehicle %s --store' to create one.\n", args[0], args[0])
				return nil
			}

			fmt.Printf("%-36s %-20s %-6s %-10s %-7s %s\n", "ID", "Created", "Score", "Status", "Risk", "Remaining")
			for _, a := range list {
				fmt.Printf("%-36s %-20s %-6.2f %-10s %-7s %d\n",
					a.ID, a.CreatedAt.Format("2006-01-02 15:04:05"), a.OverallScore, a.Status, a.RiskLevel, a.RemainingDistance)
			}
			return nil
		},
	}
	assessmentsCmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum assessments to list")

	cmd.AddCommand(latestCmd, assessmentsCmd)
	return cmd
}

func printReadings(results []models.SensorReading) {
	for _, r := range results {
		fmt.Printf("[%s] #%d Vehicle: %s | RPM: %.0f | Oil: %.2f kPa %.1f°C | Fuel: %.2f kPa | Coolant: %.2f kPa %.1f°C",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.ID, r.VehicleID, r.EngineRPM,
			r.LubOilPressure, r.LubOilTemp, r.FuelPressure, r.CoolantPressure, r.CoolantTemp)
		if r.PredictionResult != "" {
			fmt.Printf(" | %s", r.PredictionResult.Display())
		}
		fmt.Println()
	}
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
