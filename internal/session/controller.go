// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/credential"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

const tracerName = "github.com/gatehouse/gatehouse/internal/session"

// Role selection choices.
const (
	ChoiceAdmin = "Admin"
	ChoiceUser  = "User"
	ChoiceExit  = "Exit"
)

// Options configures a Controller.
type Options struct {
	Repository store.Repository
	UI         UI
	// Workspace is optional. Without one, an authenticated user is greeted
	// and returned to role selection.
	Workspace Workspace
	Metrics   *observability.Metrics
	Logger    *slog.Logger
	Tracer    trace.Tracer
}

// Controller runs the login state machine over a loaded account set.
type Controller struct {
	repo      store.Repository
	ui        UI
	workspace Workspace
	metrics   *observability.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	accounts  *account.Directory
	generator *credential.Generator
	auth      *auth.Service
	manager   *auth.AccountManager

	saveMu sync.Mutex
	state  atomic.Int32
}

// NewController loads the stored accounts and prepares a session.
// A load failure is returned unchanged in code so callers can report it;
// the session must not start over an unreadable store.
func NewController(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Repository == nil {
		return nil, oops.Code("SESSION_INVALID_CONFIG").Errorf("repository is required")
	}
	if opts.UI == nil {
		return nil, oops.Code("SESSION_INVALID_CONFIG").Errorf("ui is required")
	}

	c := &Controller{
		repo:      opts.Repository,
		ui:        opts.UI,
		workspace: opts.Workspace,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}

	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	c.accounts = account.NewDirectory(snap.Users, snap.Admins)
	c.generator, err = credential.NewGenerator(snap.Counter)
	if err != nil {
		return nil, oops.With("operation", "restore generator").Wrap(err)
	}

	authOpts := []auth.Option{auth.WithMetrics(c.metrics), auth.WithLogger(c.logger)}
	if c.auth, err = auth.NewService(c.accounts, authOpts...); err != nil {
		return nil, err
	}
	if c.manager, err = auth.NewAccountManager(c.accounts, c.generator, authOpts...); err != nil {
		return nil, err
	}

	admin, created, err := c.manager.EnsureDefaultAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if created {
		c.logger.InfoContext(ctx, "no admin accounts found, created default admin",
			"username", admin.Username)
	}

	c.logger.InfoContext(ctx, "session ready",
		"users", c.accounts.Count(account.RoleUser),
		"admins", c.accounts.Count(account.RoleAdmin),
		"counter", c.generator.Counter())
	return c, nil
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s {
		c.logger.Debug("session state", "from", prev.String(), "to", s.String())
	}
}

// Accounts returns the live account directory.
func (c *Controller) Accounts() *account.Directory {
	return c.accounts
}

// Run drives the session until the user exits or ctx is cancelled, then
// saves once more. A failed final save is returned.
func (c *Controller) Run(ctx context.Context) error {
	c.setState(StateRoleSelection)

	for ctx.Err() == nil {
		choice, ok := c.ui.SelectFromList("Select role", []string{ChoiceAdmin, ChoiceUser, ChoiceExit})
		if !ok || choice == ChoiceExit {
			break
		}
		switch choice {
		case ChoiceAdmin:
			c.login(ctx, account.RoleAdmin)
		case ChoiceUser:
			c.login(ctx, account.RoleUser)
		default:
			c.ui.Notify(fmt.Sprintf("Unknown choice %q.", choice))
		}
	}

	c.setState(StateExiting)
	// The final save must happen even when ctx was cancelled.
	if err := c.Save(context.WithoutCancel(ctx)); err != nil {
		errutil.LogError(ctx, c.logger, "final save failed", err)
		c.ui.Notify("Could not save accounts on exit: " + err.Error())
		return oops.With("operation", "save on exit").Wrap(err)
	}
	c.logger.InfoContext(ctx, "session ended")
	return nil
}

// login handles one pass through LoggingIn and everything after it.
// It returns when the caller should be back at role selection.
func (c *Controller) login(ctx context.Context, role account.Role) {
	defer c.setState(StateRoleSelection)

	for ctx.Err() == nil {
		c.setState(StateLoggingIn)

		creds, ok := c.ui.PromptCredentials(role)
		if !ok {
			c.metrics.RecordLogin(role.String(), observability.OutcomeCanceled)
			return
		}
		if creds.Username == "" || creds.Password == "" {
			c.ui.Notify(MsgCredentialsRequired)
			continue
		}

		acct, err := c.authenticate(ctx, creds, role)
		if err != nil {
			c.ui.Notify(MsgInvalidCredentials)
			continue
		}

		if acct.PasswordResetPending && !c.requirePasswordChange(ctx, acct) {
			return
		}

		c.setState(StateAuthenticated)
		if role == account.RoleAdmin {
			c.adminMenu(ctx, acct)
		} else {
			c.enterWorkspace(ctx, acct)
		}
		return
	}
}

func (c *Controller) authenticate(ctx context.Context, creds Credentials, role account.Role) (*account.Account, error) {
	ctx, span := c.tracer.Start(ctx, "session.authenticate",
		trace.WithAttributes(attribute.String("role", role.String())))
	defer span.End()

	acct, err := c.auth.Authenticate(ctx, creds.Username, creds.Password, role)
	if err != nil {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("reset_pending", acct.PasswordResetPending))
	return acct, nil
}

// requirePasswordChange runs PasswordResetRequired. It reports whether the
// account may proceed.
func (c *Controller) requirePasswordChange(ctx context.Context, acct *account.Account) bool {
	c.setState(StatePasswordResetRequired)
	c.ui.Notify(MsgPasswordChangeRequired)

	change, ok := c.ui.PromptNewPassword(acct.Username)
	if !ok {
		c.metrics.RecordPasswordChange(observability.OutcomeCanceled)
		c.ui.Notify(MsgPasswordChangeCancelled)
		return false
	}

	if err := c.auth.ChangePassword(ctx, acct, change.New, change.Confirm); err != nil {
		c.ui.Notify(passwordRejection(err))
		return false
	}

	c.ui.Notify(MsgPasswordChanged)
	c.persist(ctx)
	return true
}

func (c *Controller) enterWorkspace(ctx context.Context, user *account.Account) {
	if c.workspace == nil {
		c.ui.Notify(fmt.Sprintf("Welcome, %s.", user.Username))
		return
	}
	if err := c.workspace.Enter(ctx, user.View()); err != nil {
		errutil.LogError(ctx, c.logger, "workspace failed", err)
		c.ui.Notify("Workspace error: " + err.Error())
	}
}

// Save writes the current accounts and counter. Concurrent calls are
// serialized.
func (c *Controller) Save(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	ctx, span := c.tracer.Start(ctx, "session.save")
	defer span.End()

	snap := store.SnapshotOf(c.accounts, c.generator.Counter())
	span.SetAttributes(
		attribute.Int("users", len(snap.Users)),
		attribute.Int("admins", len(snap.Admins)),
		attribute.Int("counter", snap.Counter),
	)

	if err := c.repo.Save(ctx, snap); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		c.metrics.RecordSave(observability.OutcomeFailure)
		return err
	}
	c.metrics.RecordSave(observability.OutcomeSuccess)
	return nil
}

// persist saves after a mutation. A failure is reported and the session
// continues.
func (c *Controller) persist(ctx context.Context) bool {
	if err := c.Save(ctx); err != nil {
		errutil.LogError(ctx, c.logger, "save after mutation failed", err)
		c.ui.Notify(MsgSaveFailed + err.Error())
		return false
	}
	return true
}

func (c *Controller) load(ctx context.Context) (*store.Snapshot, error) {
	ctx, span := c.tracer.Start(ctx, "session.load")
	defer span.End()

	snap, err := c.repo.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, oops.With("operation", "load accounts").Wrap(err)
	}
	return snap, nil
}
