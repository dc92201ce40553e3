// Command reset-password sets a new password for an existing account.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go-inventory-sales/internal/config"
	"go-inventory-sales/internal/repository"
	"go-inventory-sales/internal/service"
	"go-inventory-sales/pkg/database"
	"go-inventory-sales/pkg/jwt"
	"go-inventory-sales/pkg/logger"
)

const (
	emailFlag    = "email"
	passwordFlag = "password"
)

var resetFlags = map[string]cobraflags.Flag{
	emailFlag: &cobraflags.StringFlag{
		Name:  emailFlag,
		Value: "",
		Usage: "Email of the account to reset (required)",
	},
	passwordFlag: &cobraflags.StringFlag{
		Name:  passwordFlag,
		Value: "",
		Usage: "New password, at least 6 characters (required)",
	},
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "reset-password",
		Short:        "Reset the password of a user account",
		SilenceUsage: true,
		RunE:         runReset,
	}
	cobraflags.RegisterMap(cmd, resetFlags)
	return cmd
}

func runReset(cmd *cobra.Command, _ []string) error {
	email := strings.TrimSpace(resetFlags[emailFlag].GetString())
	password := resetFlags[passwordFlag].GetString()
	if email == "" || password == "" {
		return errors.New("both --email and --password are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	log, err := logger.New(logger.Options{Mode: cfg.Env, Level: cfg.LogLevel})
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Database.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Database.AcquireTimeout)
		defer cancel()
	}

	auth := service.NewAuthService(repository.NewUserRepo(db), jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn, cfg.JWT.Issuer))
	if err := auth.ResetPassword(ctx, email, password); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Password for %s has been reset\n", email)
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
