package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/evocart/internal/catalog"
	"github.com/Skotchmaster/evocart/internal/events"
	"github.com/Skotchmaster/evocart/internal/models"
	"github.com/Skotchmaster/evocart/internal/order"
	"github.com/Skotchmaster/evocart/internal/search"
	"github.com/Skotchmaster/evocart/internal/user"
	"github.com/Skotchmaster/evocart/pkg/logging"
)

func newMigrateCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, open, func(_ context.Context, env *Env) error {
				if err := models.AutoMigrate(env.DB); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func newSeedAdminCommand(open Opener) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the bootstrap admin account if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, open, func(ctx context.Context, env *Env) error {
				if email == "" {
					email = env.Config.AdminEmail
				}
				if password == "" {
					password = env.Config.AdminPassword
				}
				if email == "" || password == "" {
					return errors.New("admin email and password are required (flags or ADMIN_EMAIL/ADMIN_PASSWORD)")
				}

				svc := &user.Service{Repo: &user.GormRepo{DB: env.DB}}
				created, err := svc.SeedAdmin(logging.IntoContext(ctx, env.Log), email, password)
				if err != nil {
					return fmt.Errorf("seed admin: %w", err)
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", email)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "admin %s already exists\n", email)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email (default ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "admin password (default ADMIN_PASSWORD)")
	return cmd
}

func newReindexCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Push every product into the search index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, open, func(ctx context.Context, env *Env) error {
				cfg := env.Config
				if cfg.ESURL == "" {
					return errors.New("ES_URL is not set")
				}
				sc, err := search.NewClient(search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword, Index: cfg.ESIndex})
				if err != nil {
					return err
				}

				svc := &catalog.Service{Repo: &catalog.GormRepo{DB: env.DB}, Index: sc}
				n, err := svc.Reindex(logging.IntoContext(ctx, env.Log))
				if err != nil {
					return fmt.Errorf("reindex stopped after %d products: %w", n, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d products\n", n)
				return nil
			})
		},
	}
}

func newSweepCommand(open Opener) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Cancel pending orders older than the TTL once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, open, func(ctx context.Context, env *Env) error {
				if ttl <= 0 {
					ttl = env.Config.PendingOrderTTL
				}
				if ttl <= 0 {
					return errors.New("ttl must be positive")
				}

				svc := &order.Service{Repo: &order.GormRepo{DB: env.DB}}
				if brokers := env.Config.KafkaBrokers; len(brokers) > 0 {
					pub := events.NewKafkaPublisher(brokers...)
					defer pub.Close()
					svc.Events = pub
				}
				n, err := svc.ExpireStale(logging.IntoContext(ctx, env.Log), ttl)
				if err != nil {
					return fmt.Errorf("sweep: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cancelled %d orders\n", n)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "age after which pending orders are cancelled (default PENDING_ORDER_TTL)")
	return cmd
}
