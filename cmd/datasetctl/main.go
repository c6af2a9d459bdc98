package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"accord-ai/config"
	"accord-ai/models"
	"accord-ai/services"
)

var (
	mongoURI string
	dbName   string
	timeout  time.Duration
)

func main() {
	godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	cfg := config.LoadConfig()

	rootCmd := &cobra.Command{
		Use:          "datasetctl",
		Short:        "Manage the curated response dataset",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", cfg.MongoURI, "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&dbName, "db", cfg.DatabaseName, "database name")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall operation timeout")

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withService connects to MongoDB, runs fn and disconnects
func withService(fn func(ctx context.Context, svc *services.DatasetService) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := services.InitMongoDB(ctx, mongoURI)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer client.Disconnect(context.Background())

	store, err := services.InitServices(client, dbName)
	if err != nil {
		return err
	}
	return fn(ctx, services.NewDatasetService(store))
}

func importCmd() *cobra.Command {
	var createdBy string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import entries from a JSON, YAML or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readImportFile(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Read %d entries from %s\n", len(rows), args[0])

			return withService(func(ctx context.Context, svc *services.DatasetService) error {
				var added, skipped, failed int
				for _, row := range rows {
					err := svc.AddResponse(ctx, row.Category, row.Key, row.Response, nil, createdBy)
					switch {
					case err == nil:
						added++
					case errors.Is(err, services.ErrDuplicateEntry):
						skipped++
					default:
						failed++
						fmt.Printf("  error %s/%s: %v\n", row.Category, row.Key, err)
					}
				}
				fmt.Printf("Import completed: %d added, %d already present, %d failed\n", added, skipped, failed)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&createdBy, "created-by", "datasetctl", "value recorded as the entry creator")
	return cmd
}

func addCmd() *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "add [category] [key] [response]",
		Short: "Add a new entry",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			response := strings.Join(args[2:], " ")
			return withService(func(ctx context.Context, svc *services.DatasetService) error {
				if err := svc.AddResponse(ctx, args[0], args[1], response, tags, "datasetctl"); err != nil {
					return err
				}
				fmt.Printf("Added %s/%s\n", args[0], args[1])
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags, e.g. hindi,greeting")
	return cmd
}

func updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [category] [key] [response]",
		Short: "Replace the response of an active entry",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			response := strings.Join(args[2:], " ")
			return withService(func(ctx context.Context, svc *services.DatasetService) error {
				if err := svc.UpdateResponse(ctx, args[0], args[1], response); err != nil {
					return err
				}
				fmt.Printf("Updated %s/%s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [category] [key]",
		Short: "Deactivate an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *services.DatasetService) error {
				if err := svc.DeleteResponse(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Printf("Deactivated %s/%s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dataset statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *services.DatasetService) error {
				stats, err := svc.Stats(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Responses:  %d\n", stats.TotalResponses)
				fmt.Printf("Categories: %d\n", stats.TotalCategories)
				fmt.Printf("Usage:      %d\n", stats.TotalUsage)

				categories := make([]string, 0, len(stats.CategoryStats))
				for c := range stats.CategoryStats {
					categories = append(categories, c)
				}
				sort.Strings(categories)
				for _, c := range categories {
					fmt.Printf("  %-28s %d\n", c, stats.CategoryStats[c])
				}
				return nil
			})
		},
	}
}

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search keys and responses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.Join(args, " ")
			return withService(func(ctx context.Context, svc *services.DatasetService) error {
				results, err := svc.Search(ctx, term, limit)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Println("No matching entries")
					return nil
				}
				for _, e := range results {
					fmt.Printf("%s/%s  (used %d)\n  %s\n", e.Category, e.Key, e.Usage.Count, truncate(e.Response, 100))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	return cmd
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List active categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *services.DatasetService) error {
				categories, err := svc.Categories(ctx)
				if err != nil {
					return err
				}
				for _, c := range categories {
					fmt.Println(c)
				}
				return nil
			})
		},
	}
}

func createAdminCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			if name == "" {
				name = strings.Split(email, "@")[0]
			}
			return withService(func(ctx context.Context, _ *services.DatasetService) error {
				user, err := services.CreateUser(ctx, name, email, password, models.RoleAdmin)
				if err != nil {
					return err
				}
				fmt.Printf("Created admin %s (%s)\n", user.Email, user.ID.Hex())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the email user part)")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
