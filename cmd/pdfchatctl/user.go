package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pdfchat/internal/config"
	"pdfchat/internal/identity"
	"pdfchat/internal/platform/sqldb"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts in the SQL identity store",
	}
	cmd.AddCommand(newUserAddCmd(), newUserPasswdCmd())
	return cmd
}

type dbFlags struct {
	dialect string
	dsn     string
}

func (f *dbFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dialect, "dialect", "", "mysql, postgres or sqlite (default: identity.dialect from config)")
	cmd.Flags().StringVar(&f.dsn, "dsn", "", "database DSN (default: identity.dsn from config)")
}

// open resolves the connection from flags, falling back to the loaded config.
func (f *dbFlags) open(ctx context.Context) (*identity.SQLProvider, func(), error) {
	dialect, dsn := f.dialect, f.dsn
	if dialect == "" || dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		if dialect == "" {
			dialect = cfg.Identity.Dialect
		}
		if dsn == "" {
			dsn = cfg.Identity.DSN
		}
	}
	if dsn == "" {
		return nil, nil, fmt.Errorf("no DSN: pass --dsn or set IDENTITY_DSN")
	}

	db, err := sqldb.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	provider := identity.NewSQLProvider(db)
	if err := provider.AutoMigrate(); err != nil {
		closeDB()
		return nil, nil, err
	}
	return provider, closeDB, nil
}

func newUserAddCmd() *cobra.Command {
	var (
		db       dbFlags
		email    string
		password string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			provider, closeDB, err := db.open(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			user, err := provider.CreateUser(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d <%s>\n", user.ID, user.Email)
			return nil
		},
	}
	db.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (min 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserPasswdCmd() *cobra.Command {
	var (
		db       dbFlags
		email    string
		password string
	)
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Set an account password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			provider, closeDB, err := db.open(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := provider.UpdatePassword(ctx, email, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for <%s>\n", email)
			return nil
		},
	}
	db.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "new password (min 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
