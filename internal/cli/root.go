// Package cli holds the evocartctl operator commands.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Skotchmaster/evocart/internal/config"
)

// Env is what every command runs against.
type Env struct {
	DB     *gorm.DB
	Log    *slog.Logger
	Config config.ServiceConfig
}

// Opener builds an Env; the returned func releases it.
type Opener func(ctx context.Context) (*Env, func(), error)

// NewRootCommand creates the evocartctl root command.
func NewRootCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "evocartctl",
		Short:         "Operator tasks for the evocart store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCommand(open))
	cmd.AddCommand(newSeedAdminCommand(open))
	cmd.AddCommand(newReindexCommand(open))
	cmd.AddCommand(newSweepCommand(open))

	return cmd
}

func withEnv(cmd *cobra.Command, open Opener, fn func(ctx context.Context, env *Env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, release, err := open(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, env)
}
