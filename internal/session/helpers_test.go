// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package session_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/internal/store"
)

type selectReply struct {
	item string
	ok   bool
}

type credReply struct {
	creds session.Credentials
	ok    bool
}

type passwordReply struct {
	change session.PasswordChange
	ok     bool
}

// scriptedUI answers prompts from queues. An exhausted queue answers as if
// the user cancelled, so every script eventually reaches Exit.
type scriptedUI struct {
	mu          sync.Mutex
	selects     []selectReply
	credentials []credReply
	passwords   []passwordReply
	confirms    []bool

	notices []string
	titles  []string
	lists   [][]string
	roles   []account.Role

	// state, when set, is sampled at every prompt.
	state  func() session.State
	states []session.State
}

func (u *scriptedUI) choose(items ...string) *scriptedUI {
	for _, item := range items {
		u.selects = append(u.selects, selectReply{item: item, ok: true})
	}
	return u
}

func (u *scriptedUI) cancelSelect() *scriptedUI {
	u.selects = append(u.selects, selectReply{})
	return u
}

func (u *scriptedUI) login(username, password string) *scriptedUI {
	u.credentials = append(u.credentials, credReply{creds: session.Credentials{Username: username, Password: password}, ok: true})
	return u
}

func (u *scriptedUI) cancelLogin() *scriptedUI {
	u.credentials = append(u.credentials, credReply{})
	return u
}

func (u *scriptedUI) newPassword(pw, confirm string) *scriptedUI {
	u.passwords = append(u.passwords, passwordReply{change: session.PasswordChange{New: pw, Confirm: confirm}, ok: true})
	return u
}

func (u *scriptedUI) cancelPassword() *scriptedUI {
	u.passwords = append(u.passwords, passwordReply{})
	return u
}

func (u *scriptedUI) confirm(answers ...bool) *scriptedUI {
	u.confirms = append(u.confirms, answers...)
	return u
}

func (u *scriptedUI) sample() {
	if u.state != nil {
		u.states = append(u.states, u.state())
	}
}

func (u *scriptedUI) PromptCredentials(role account.Role) (session.Credentials, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sample()
	u.roles = append(u.roles, role)
	if len(u.credentials) == 0 {
		return session.Credentials{}, false
	}
	r := u.credentials[0]
	u.credentials = u.credentials[1:]
	return r.creds, r.ok
}

func (u *scriptedUI) PromptNewPassword(_ string) (session.PasswordChange, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sample()
	if len(u.passwords) == 0 {
		return session.PasswordChange{}, false
	}
	r := u.passwords[0]
	u.passwords = u.passwords[1:]
	return r.change, r.ok
}

func (u *scriptedUI) Notify(message string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.notices = append(u.notices, message)
}

func (u *scriptedUI) Confirm(_ string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.confirms) == 0 {
		return false
	}
	answer := u.confirms[0]
	u.confirms = u.confirms[1:]
	return answer
}

func (u *scriptedUI) SelectFromList(title string, items []string) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sample()
	u.titles = append(u.titles, title)
	u.lists = append(u.lists, append([]string(nil), items...))
	if len(u.selects) == 0 {
		return "", false
	}
	r := u.selects[0]
	u.selects = u.selects[1:]
	return r.item, r.ok
}

func (u *scriptedUI) Notices() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.notices...)
}

// memoryRepository keeps saved snapshots in memory.
type memoryRepository struct {
	mu      sync.Mutex
	current *store.Snapshot
	saves   int
	saveErr error
}

func newMemoryRepository(snap *store.Snapshot) *memoryRepository {
	if snap == nil {
		snap = store.DefaultSnapshot()
	}
	return &memoryRepository{current: snap}
}

func (r *memoryRepository) Load(_ context.Context) (*store.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return store.NewSnapshot(r.current.Users, r.current.Admins, r.current.Counter), nil
}

func (r *memoryRepository) Save(_ context.Context, snap *store.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.current = store.NewSnapshot(snap.Users, snap.Admins, snap.Counter)
	return nil
}

func (r *memoryRepository) Close() error { return nil }

func (r *memoryRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *memoryRepository) Snapshot() *store.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return store.NewSnapshot(r.current.Users, r.current.Admins, r.current.Counter)
}

func (r *memoryRepository) find(role account.Role, username string) *account.Account {
	snap := r.Snapshot()
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

// mockRepository is a testify mock of store.Repository.
type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Load(ctx context.Context) (*store.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*store.Snapshot)
	return snap, args.Error(1)
}

func (m *mockRepository) Save(ctx context.Context, snap *store.Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *mockRepository) Close() error {
	return m.Called().Error(0)
}

// recordingWorkspace records Enter and Purge calls.
type recordingWorkspace struct {
	mu       sync.Mutex
	entered  []account.View
	purged   []string
	enterErr error
	purgeErr error
}

func (w *recordingWorkspace) Enter(_ context.Context, user account.View) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entered = append(w.entered, user)
	return w.enterErr
}

func (w *recordingWorkspace) Purge(_ context.Context, username string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.purged = append(w.purged, username)
	return w.purgeErr
}

// seededSnapshot has one admin whose password is already changed.
func seededSnapshot(adminPassword string) *store.Snapshot {
	admin, err := account.New(account.RoleAdmin, "admin", adminPassword)
	if err != nil {
		panic(err)
	}
	admin.ClearResetPending()
	return store.NewSnapshot(nil, []*account.Account{admin}, store.InitialCounter)
}
