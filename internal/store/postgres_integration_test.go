// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

var _ = Describe("PostgresRepository", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		repo      *store.PostgresRepository
	)

	newAccount := func(role account.Role, username, password string) *account.Account {
		a, err := account.New(role, username, password)
		Expect(err).NotTo(HaveOccurred())
		return a
	}

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("gatehouse_test"),
			postgres.WithUsername("gatehouse"),
			postgres.WithPassword("gatehouse"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))
		Expect(dirty).To(BeFalse())
		Expect(migrator.Close()).To(Succeed())

		repo, err = store.OpenPostgres(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if repo != nil {
			Expect(repo.Close()).To(Succeed())
		}
		if container != nil {
			Expect(container.Terminate(ctx)).To(Succeed())
		}
	})

	It("loads the default snapshot from an empty database", func() {
		snap, err := repo.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Users).To(BeEmpty())
		Expect(snap.Admins).To(BeEmpty())
		Expect(snap.Counter).To(Equal(store.InitialCounter))
	})

	It("round-trips accounts in order with the counter", func() {
		u1 := newAccount(account.RoleUser, "user001", "Ab3dEf7h")
		u2 := newAccount(account.RoleUser, "user002", "Zx9Yw8Vu")
		u2.ClearResetPending()
		admin := newAccount(account.RoleAdmin, "admin", "admin123")
		shared := newAccount(account.RoleAdmin, "user001", "different")
		want := store.NewSnapshot([]*account.Account{u2, u1}, []*account.Account{admin, shared}, 3)

		Expect(repo.Save(ctx, want)).To(Succeed())

		got, err := repo.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Counter).To(Equal(3))
		Expect(got.Users).To(HaveLen(2))
		Expect(got.Users[0].Username).To(Equal("user002"))
		Expect(got.Users[0].PasswordResetPending).To(BeFalse())
		Expect(got.Users[1].Username).To(Equal("user001"))
		Expect(got.Users[1].ID).To(Equal(u1.ID))
		Expect(got.Admins).To(HaveLen(2))
		Expect(got.Admins[1].Password).To(Equal("different"))
	})

	It("replaces the previous snapshot entirely", func() {
		admin := newAccount(account.RoleAdmin, "admin", "admin123")
		Expect(repo.Save(ctx, store.NewSnapshot(nil, []*account.Account{admin}, 9))).To(Succeed())

		got, err := repo.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Users).To(BeEmpty())
		Expect(got.Admins).To(HaveLen(1))
		Expect(got.Counter).To(Equal(9))
	})

	It("keeps the previous snapshot when a save fails", func() {
		a := newAccount(account.RoleUser, "user001", "x1y2z3w4")
		b := newAccount(account.RoleUser, "user002", "x1y2z3w4")
		// Same ID twice violates the primary key inside the transaction.
		b.ID = a.ID
		err := repo.Save(ctx, store.NewSnapshot([]*account.Account{a, b}, nil, 20))
		Expect(err).To(HaveOccurred())
		Expect(errutil.Code(err)).To(Equal("STORE_DUPLICATE_USERNAME"))

		got, err := repo.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Counter).To(Equal(9))
		Expect(got.Admins).To(HaveLen(1))
	})
})
