// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package credential generates usernames and passwords for newly
// provisioned accounts.
package credential

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Generator defaults.
const (
	// FirstCounter is the counter value of a fresh installation.
	FirstCounter = 1

	// DefaultPasswordLength is the length of generated user passwords.
	DefaultPasswordLength = 8

	// Alphabet is the symbol set for generated passwords.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultAdminUsername is the bootstrap admin created when none exist.
	DefaultAdminUsername = "admin"

	// ProvisionalAdminPassword is assigned to every new or reset admin.
	// It is public by construction; the reset flag forces an immediate change.
	ProvisionalAdminPassword = "admin123" //nolint:gosec // G101: provisional, always paired with a forced reset

	userPrefix  = "user"
	adminPrefix = "admin"
)

// Generator issues sequential usernames (user001, user002, ...) and random
// passwords. The counter never decreases during the generator's lifetime;
// persisting it is the caller's job.
type Generator struct {
	mu      sync.Mutex
	counter int
	random  io.Reader
}

// NewGenerator creates a Generator that will issue counter as its next number.
func NewGenerator(counter int) (*Generator, error) {
	if counter < FirstCounter {
		return nil, oops.Code("CREDENTIAL_INVALID_COUNTER").
			With("counter", counter).
			Errorf("counter must be at least %d", FirstCounter)
	}
	return &Generator{counter: counter, random: rand.Reader}, nil
}

// Counter returns the number the next GenerateUsername call will use.
func (g *Generator) Counter() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}

// GenerateUsername returns "user" plus the counter zero-padded to three
// digits, then advances the counter.
func (g *Generator) GenerateUsername() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	name := fmt.Sprintf("%s%03d", userPrefix, g.counter)
	g.counter++
	return name
}

// GeneratePassword returns a DefaultPasswordLength password drawn uniformly
// from Alphabet.
func (g *Generator) GeneratePassword() (string, error) {
	return g.GeneratePasswordLength(DefaultPasswordLength)
}

// GeneratePasswordLength returns a password of n symbols drawn uniformly from Alphabet.
func (g *Generator) GeneratePasswordLength(n int) (string, error) {
	if n <= 0 {
		return "", oops.Code("CREDENTIAL_INVALID_LENGTH").
			With("length", n).
			Errorf("password length must be positive")
	}

	limit := big.NewInt(int64(len(Alphabet)))
	var sb strings.Builder
	sb.Grow(n)
	for range n {
		idx, err := rand.Int(g.random, limit)
		if err != nil {
			return "", oops.Code("CREDENTIAL_RANDOM_FAILED").Wrap(err)
		}
		sb.WriteByte(Alphabet[idx.Int64()])
	}
	return sb.String(), nil
}

// AdminUsername returns "admin<count+1>". When that name is already taken
// the suffix advances until taken reports a free name.
func AdminUsername(count int, taken func(string) bool) string {
	n := count + 1
	for {
		name := adminPrefix + strconv.Itoa(n)
		if taken == nil || !taken(name) {
			return name
		}
		n++
	}
}
