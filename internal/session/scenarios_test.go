// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package session_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/internal/store"
)

var _ = Describe("identity lifecycle across restarts", func() {
	var (
		ctx  context.Context
		repo *store.FileRepository
	)

	// runSession starts a fresh controller over the same file, as a new
	// process would, and drives it with ui.
	runSession := func(ui *scriptedUI) *session.Controller {
		c, err := session.NewController(ctx, session.Options{Repository: repo, UI: ui})
		Expect(err).NotTo(HaveOccurred())
		ui.state = c.State
		Expect(c.Run(ctx)).To(Succeed())
		return c
	}

	stored := func(role account.Role, username string) *account.Account {
		snap, err := repo.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		list := snap.Users
		if role == account.RoleAdmin {
			list = snap.Admins
		}
		for _, a := range list {
			if a.Username == username {
				return a
			}
		}
		return nil
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		repo, err = store.NewFileRepository(filepath.Join(GinkgoT().TempDir(), store.DefaultFileName))
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with no saved state", func() {
		It("bootstraps admin/admin123 and forces a password change before the admin menu", func() {
			ui := (&scriptedUI{}).
				choose(session.ChoiceAdmin).
				login("admin", "admin123").
				newPassword("r00tpass", "r00tpass").
				choose(session.MenuLogout, session.ChoiceExit)
			runSession(ui)

			Expect(ui.states).To(ContainElement(session.StatePasswordResetRequired))
			Expect(ui.states).To(ContainElement(session.StateAdminMenu))
			Expect(ui.Notices()).To(ContainElement(session.MsgPasswordChanged))

			admin := stored(account.RoleAdmin, "admin")
			Expect(admin).NotTo(BeNil())
			Expect(admin.PasswordResetPending).To(BeFalse())
			Expect(admin.Password).To(Equal("r00tpass"))
		})

		It("never reaches the admin menu when the change is abandoned", func() {
			ui := (&scriptedUI{}).
				choose(session.ChoiceAdmin).
				login("admin", "admin123").
				cancelPassword().
				choose(session.ChoiceExit)
			runSession(ui)

			Expect(ui.states).NotTo(ContainElement(session.StateAdminMenu))
			Expect(stored(account.RoleAdmin, "admin").PasswordResetPending).To(BeTrue())

			// The next session routes the same account through the change again.
			again := (&scriptedUI{}).
				choose(session.ChoiceAdmin).
				login("admin", "admin123").
				cancelPassword()
			runSession(again)
			Expect(again.states).To(ContainElement(session.StatePasswordResetRequired))
		})
	})

	Context("with an admin who has set a password", func() {
		BeforeEach(func() {
			Expect(repo.Save(ctx, seededSnapshot("r00tpass"))).To(Succeed())
		})

		It("provisions a user who must reset before the old password stops working", func() {
			runSession((&scriptedUI{}).
				choose(session.ChoiceAdmin).
				login("admin", "r00tpass").
				choose(session.MenuCreateUser, session.MenuLogout, session.ChoiceExit))

			user := stored(account.RoleUser, "user001")
			Expect(user).NotTo(BeNil())
			Expect(user.Password).To(MatchRegexp(`^[A-Za-z0-9]{8}$`))
			Expect(user.PasswordResetPending).To(BeTrue())
			generated := user.Password

			ws := &recordingWorkspace{}
			ui := (&scriptedUI{}).
				choose(session.ChoiceUser).
				login("user001", generated).
				newPassword("newpass1", "newpass1").
				choose(session.ChoiceUser).
				login("user001", generated).
				login("user001", "newpass1").
				choose(session.ChoiceExit)
			c, err := session.NewController(ctx, session.Options{Repository: repo, UI: ui, Workspace: ws})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Run(ctx)).To(Succeed())

			Expect(ws.entered).To(HaveLen(2))
			Expect(ui.Notices()).To(ContainElement(session.MsgInvalidCredentials))
			Expect(stored(account.RoleUser, "user001").Password).To(Equal("newpass1"))
			Expect(stored(account.RoleUser, "user001").PasswordResetPending).To(BeFalse())
		})

		It("keeps the username counter across restarts and removals", func() {
			runSession((&scriptedUI{}).
				choose(session.ChoiceAdmin).
				login("admin", "r00tpass").
				choose(session.MenuCreateUser, session.MenuCreateUser, session.MenuRemoveUser, "user002").
				confirm(true))

			runSession((&scriptedUI{}).
				choose(session.ChoiceAdmin).
				login("admin", "r00tpass").
				choose(session.MenuCreateUser))

			snap, err := repo.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			names := make([]string, 0, len(snap.Users))
			for _, u := range snap.Users {
				names = append(names, u.Username)
			}
			Expect(names).To(Equal([]string{"user001", "user003"}))
			Expect(snap.Counter).To(Equal(4))
		})

		It("refuses to remove the sole admin", func() {
			ui := (&scriptedUI{}).
				choose(session.ChoiceAdmin).
				login("admin", "r00tpass").
				choose(session.MenuRemoveAdmin)
			runSession(ui)

			Expect(ui.Notices()).To(ContainElement(session.MsgLastAdmin))
			Expect(stored(account.RoleAdmin, "admin")).NotTo(BeNil())
		})

		It("removes a second admin and persists the removal", func() {
			runSession((&scriptedUI{}).
				choose(session.ChoiceAdmin).
				login("admin", "r00tpass").
				choose(session.MenuCreateAdmin))
			Expect(stored(account.RoleAdmin, "admin2")).NotTo(BeNil())

			runSession((&scriptedUI{}).
				choose(session.ChoiceAdmin).
				login("admin", "r00tpass").
				choose(session.MenuRemoveAdmin, "admin2").
				confirm(true))
			Expect(stored(account.RoleAdmin, "admin2")).To(BeNil())
			Expect(stored(account.RoleAdmin, "admin")).NotTo(BeNil())
		})
	})
})
