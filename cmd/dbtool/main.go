package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"pickup-dispatch-service/internal/adapters/repositories"
	"pickup-dispatch-service/internal/api/authn"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/platform/db"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	seedPath string
	tokenTTL time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "dbtool",
	Short:        "Schema, seed and development token helper",
	SilenceUsage: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or upgrade the postgres schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, d *db.DB) error {
			log.Println("Initializing database schema...")
			if err := repositories.InitSchema(ctx, d.DB); err != nil {
				return fmt.Errorf("schema initialization failed: %w", err)
			}
			log.Println("Schema ready.")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema and load centers, collectors and residents from JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, d *db.DB) error {
			if err := repositories.InitSchema(ctx, d.DB); err != nil {
				return fmt.Errorf("schema initialization failed: %w", err)
			}
			log.Printf("Seeding database from %s...", seedPath)
			if err := repositories.SeedFromJSON(ctx, repositories.NewPostgresStore(d.DB), seedPath); err != nil {
				return fmt.Errorf("seeding failed: %w", err)
			}
			log.Println("Seeding complete.")
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id> <role>",
	Short: "Mint a bearer token for local testing",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("user id: %w", err)
		}
		role, err := domain.ParseRole(args[1])
		if err != nil {
			return err
		}
		secret := viper.GetString("JWT_SECRET")
		if strings.TrimSpace(secret) == "" {
			return fmt.Errorf("JWT_SECRET is required")
		}
		tok, err := authn.New(secret).NewToken(domain.Principal{SubjectID: id, Role: role}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	viper.AutomaticEnv()
	viper.SetDefault("SEED_PATH", "data/seeds/demo.json")
	viper.SetDefault("DB_MAX_CONNS", 4)

	seedCmd.Flags().StringVar(&seedPath, "file", "", "seed file (default SEED_PATH)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 72*time.Hour, "token lifetime")
	rootCmd.AddCommand(initCmd, seedCmd, tokenCmd)
}

func withDB(ctx context.Context, fn func(ctx context.Context, d *db.DB) error) error {
	databaseURL := viper.GetString("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if seedPath == "" {
		seedPath = viper.GetString("SEED_PATH")
	}

	d, err := db.Open(ctx, databaseURL, viper.GetInt32("DB_MAX_CONNS"))
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(ctx, d)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
