// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/account"
)

// newAccountsCmd creates the read-only accounts inspection commands.
func newAccountsCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect stored accounts",
		Long:  `Inspect the stored accounts without starting an interactive session.`,
	}

	var roleName, pattern string
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Long: `List stored accounts. Passwords are never shown.
--match filters usernames with a glob pattern such as "user0*".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roles := account.Roles
			if roleName != "" {
				role, err := account.ParseRole(roleName)
				if err != nil {
					return err //nolint:wrapcheck // carries its own code
				}
				roles = []account.Role{role}
			}
			return withDirectory(cmd, deps, func(dir *account.Directory) error {
				return printAccounts(cmd, dir, roles, pattern)
			})
		},
	}
	list.Flags().StringVar(&roleName, "role", "", "only list this role (user or admin)")
	list.Flags().StringVar(&pattern, "match", "", "glob pattern for usernames")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show account counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDirectory(cmd, deps, func(dir *account.Directory) error {
				s := dir.Stats()
				cmd.Printf("Admins: %d (%d pending password change)\n", s.Admins, s.AdminsPendingReset)
				cmd.Printf("Users:  %d (%d pending password change)\n", s.Users, s.UsersPendingReset)
				return nil
			})
		},
	})

	return cmd
}

// withDirectory loads the stored accounts into a Directory. Inspection
// never migrates the schema, whatever storage.auto_migrate says.
func withDirectory(cmd *cobra.Command, deps *Deps, fn func(*account.Directory) error) error {
	deps = withDefaults(deps)
	loaded, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := *loaded
	cfg.Storage.AutoMigrate = false
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repo, err := deps.RepositoryFactory(ctx, &cfg, deps.MigratorFactory, slog.Default())
	if err != nil {
		return oops.With("operation", "open account store").Wrap(err)
	}
	defer func() { _ = repo.Close() }() //nolint:errcheck // read-only use

	snap, err := repo.Load(ctx)
	if err != nil {
		return oops.With("operation", "load accounts").Wrap(err)
	}
	return fn(account.NewDirectory(snap.Users, snap.Admins))
}

func printAccounts(cmd *cobra.Command, dir *account.Directory, roles []account.Role, pattern string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROLE\tUSERNAME\tRESET PENDING\tCREATED")
	for _, role := range roles {
		matched, err := dir.Match(role, pattern)
		if err != nil {
			return err //nolint:wrapcheck // carries its own code
		}
		for _, a := range matched {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
				a.Role, a.Username, a.PasswordResetPending, a.CreatedAt.Format(time.RFC3339))
		}
	}
	if err := w.Flush(); err != nil {
		return oops.With("operation", "write output").Wrap(err)
	}
	return nil
}
