// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/credential"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Admin menu items, in display order.
const (
	MenuCreateUser         = "Create new user"
	MenuListUsers          = "List users"
	MenuRemoveUser         = "Remove user"
	MenuCreateAdmin        = "New admin"
	MenuListAdmins         = "List admins"
	MenuRemoveAdmin        = "Remove admin"
	MenuResetAdminPassword = "Reset admin password"
	MenuLogout             = "Logout"
)

// AdminMenuItems lists the admin menu.
var AdminMenuItems = []string{
	MenuCreateUser,
	MenuListUsers,
	MenuRemoveUser,
	MenuCreateAdmin,
	MenuListAdmins,
	MenuRemoveAdmin,
	MenuResetAdminPassword,
	MenuLogout,
}

// adminMenu runs AdminMenu for admin until logout.
func (c *Controller) adminMenu(ctx context.Context, admin *account.Account) {
	title := fmt.Sprintf("Admin menu (%s)", admin.Username)

	for ctx.Err() == nil {
		c.setState(StateAdminMenu)

		choice, ok := c.ui.SelectFromList(title, AdminMenuItems)
		if !ok || choice == MenuLogout {
			return
		}

		switch choice {
		case MenuCreateUser:
			c.createUser(ctx)
		case MenuListUsers:
			c.listAccounts(account.RoleUser)
		case MenuRemoveUser:
			c.removeUser(ctx)
		case MenuCreateAdmin:
			c.createAdmin(ctx)
		case MenuListAdmins:
			c.listAccounts(account.RoleAdmin)
		case MenuRemoveAdmin:
			c.removeAdmin(ctx, admin)
		case MenuResetAdminPassword:
			c.resetAdminPassword(ctx, admin)
		default:
			c.ui.Notify(fmt.Sprintf("Unknown choice %q.", choice))
		}
	}
}

func (c *Controller) createUser(ctx context.Context) {
	user, err := c.manager.CreateUser(ctx)
	if err != nil {
		errutil.LogError(ctx, c.logger, "create user failed", err)
		c.ui.Notify("Could not create user: " + err.Error())
		return
	}
	c.ui.Notify(fmt.Sprintf(
		"User created.\nUsername: %s\nPassword: %s\nThe password must be changed at first login.",
		user.Username, user.Password))
	c.persist(ctx)
}

func (c *Controller) createAdmin(ctx context.Context) {
	admin, err := c.manager.CreateAdmin(ctx)
	if err != nil {
		errutil.LogError(ctx, c.logger, "create admin failed", err)
		c.ui.Notify("Could not create admin: " + err.Error())
		return
	}
	c.ui.Notify(fmt.Sprintf(
		"Admin created.\nUsername: %s\nPassword: %s\nThe password must be changed at first login.",
		admin.Username, admin.Password))
	c.persist(ctx)
}

func (c *Controller) listAccounts(role account.Role) {
	accounts := c.accounts.Accounts(role)
	if len(accounts) == 0 {
		c.ui.Notify(MsgNoUsers)
		return
	}

	var sb strings.Builder
	if role == account.RoleAdmin {
		sb.WriteString("Admins:")
	} else {
		sb.WriteString("Users:")
	}
	for _, a := range accounts {
		sb.WriteString("\n  ")
		sb.WriteString(a.Username)
		if a.PasswordResetPending {
			sb.WriteString(" (password change pending)")
		}
	}
	c.ui.Notify(sb.String())
}

func (c *Controller) removeUser(ctx context.Context) {
	names := c.accounts.Usernames(account.RoleUser)
	if len(names) == 0 {
		c.ui.Notify(MsgNoUsers)
		return
	}

	username, ok := c.ui.SelectFromList("Select a user to remove", names)
	if !ok {
		return
	}
	if !c.ui.Confirm(fmt.Sprintf("Remove user %s and all of their data?", username)) {
		return
	}

	if _, err := c.manager.RemoveUser(ctx, username); err != nil {
		c.ui.Notify("Could not remove user: " + err.Error())
		return
	}
	c.ui.Notify(fmt.Sprintf("User %s removed.", username))

	// Feature data is only purged once the removal is durable.
	if !c.persist(ctx) || c.workspace == nil {
		return
	}
	if err := c.workspace.Purge(ctx, username); err != nil {
		errutil.LogError(ctx, c.logger, "purge user data failed", err)
		c.ui.Notify(fmt.Sprintf("User %s was removed but their data could not be deleted: %v", username, err))
	}
}

// otherAdmins lists admin usernames excluding self.
func (c *Controller) otherAdmins(self *account.Account) []string {
	all := c.accounts.Usernames(account.RoleAdmin)
	others := make([]string, 0, len(all))
	for _, name := range all {
		if name != self.Username {
			others = append(others, name)
		}
	}
	return others
}

func (c *Controller) removeAdmin(ctx context.Context, self *account.Account) {
	if c.accounts.Count(account.RoleAdmin) <= 1 {
		c.ui.Notify(MsgLastAdmin)
		return
	}
	names := c.otherAdmins(self)
	if len(names) == 0 {
		c.ui.Notify(MsgNoAdminsToManage)
		return
	}

	username, ok := c.ui.SelectFromList("Select an admin to remove", names)
	if !ok {
		return
	}
	if !c.ui.Confirm(fmt.Sprintf("Remove admin %s?", username)) {
		return
	}

	if _, err := c.manager.RemoveAdmin(ctx, username); err != nil {
		if errors.Is(err, account.ErrLastAdmin) {
			c.ui.Notify(MsgLastAdmin)
			return
		}
		c.ui.Notify("Could not remove admin: " + err.Error())
		return
	}
	c.ui.Notify(fmt.Sprintf("Admin %s removed.", username))
	c.persist(ctx)
}

func (c *Controller) resetAdminPassword(ctx context.Context, self *account.Account) {
	names := c.otherAdmins(self)
	if len(names) == 0 {
		c.ui.Notify(MsgNoAdminsToManage)
		return
	}

	username, ok := c.ui.SelectFromList("Select an admin to reset", names)
	if !ok {
		return
	}
	if !c.ui.Confirm(fmt.Sprintf("Reset the password of %s?", username)) {
		return
	}

	if _, err := c.manager.ResetAdminPassword(ctx, username); err != nil {
		c.ui.Notify("Could not reset password: " + err.Error())
		return
	}
	c.ui.Notify(fmt.Sprintf(
		"Password of %s reset to %s. It must be changed at next login.",
		username, credential.ProvisionalAdminPassword))
	c.persist(ctx)
}
