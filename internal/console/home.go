// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package console

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/session"
)

// Home menu entries.
const (
	MenuProfile = "Show profile"
	MenuLogout  = "Logout"
)

// usersDir holds one directory of feature data per user.
const usersDir = "users"

// Home is the workspace a user enters after logging in. Each user owns a
// directory under root that is deleted when the user is removed.
type Home struct {
	ui     session.UI
	root   string
	logger *slog.Logger
}

var _ session.Workspace = (*Home)(nil)

// NewHome creates a Home that keeps user data under root.
func NewHome(ui session.UI, root string, logger *slog.Logger) (*Home, error) {
	if ui == nil {
		return nil, oops.Code("WORKSPACE_INVALID_CONFIG").Errorf("ui is required")
	}
	if root == "" {
		return nil, oops.Code("WORKSPACE_INVALID_CONFIG").Errorf("data directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Home{ui: ui, root: root, logger: logger}, nil
}

// UserDir returns the data directory of username.
func (h *Home) UserDir(username string) (string, error) {
	if username == "" || username == "." || username == ".." ||
		strings.ContainsAny(username, `/\`) || filepath.Base(username) != username {
		return "", oops.Code("WORKSPACE_INVALID_USERNAME").
			With("username", username).
			Errorf("username cannot be used as a directory name")
	}
	return filepath.Join(h.root, usersDir, username), nil
}

// Enter creates the user's directory and shows the home menu until logout.
func (h *Home) Enter(ctx context.Context, user account.View) error {
	dir, err := h.UserDir(user.Username)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return oops.Code("WORKSPACE_PREPARE_FAILED").With("path", dir).Wrap(err)
	}
	h.logger.DebugContext(ctx, "workspace entered", "username", user.Username)

	items := []string{MenuProfile, MenuLogout}
	for ctx.Err() == nil {
		choice, ok := h.ui.SelectFromList(fmt.Sprintf("Welcome, %s", user.Username), items)
		if !ok || choice == MenuLogout {
			return nil
		}
		if choice == MenuProfile {
			h.ui.Notify(profile(user, dir))
		}
	}
	return nil
}

// Purge deletes the user's directory. A missing directory is not an error.
func (h *Home) Purge(ctx context.Context, username string) error {
	dir, err := h.UserDir(username)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return oops.Code("WORKSPACE_PURGE_FAILED").With("path", dir).Wrap(err)
	}
	h.logger.InfoContext(ctx, "user data purged", "username", username)
	return nil
}

func profile(user account.View, dir string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Username: %s\n", user.Username)
	fmt.Fprintf(&sb, "Account ID: %s\n", user.ID)
	fmt.Fprintf(&sb, "Data directory: %s", dir)
	return sb.String()
}
