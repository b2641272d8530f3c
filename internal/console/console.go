// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/session"
)

// BackChoice is the list entry that cancels a selection.
const BackChoice = "0"

// Console is a session.UI over a reader and a writer. End of input cancels
// whatever prompt is open.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	// fd is the terminal to read hidden passwords from, or -1.
	fd int
}

var _ session.UI = (*Console)(nil)

// New creates a Console. When in is a terminal, passwords are read without
// echo.
func New(in io.Reader, out io.Writer) *Console {
	c := &Console{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: fd fits in int
		c.fd = int(f.Fd()) //nolint:gosec // G115: fd fits in int
	}
	return c
}

// Stdio returns a Console on the process's standard streams.
func Stdio() *Console {
	return New(os.Stdin, os.Stdout)
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// readLine returns the next line without its terminator. ok is false at end
// of input.
func (c *Console) readLine() (string, bool) {
	line, err := c.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

func (c *Console) readPassword() (string, bool) {
	if c.fd < 0 {
		return c.readLine()
	}
	pw, err := term.ReadPassword(c.fd)
	c.printf("\n")
	if err != nil {
		return "", false
	}
	return string(pw), true
}

func (c *Console) prompt(label string) (string, bool) {
	c.printf("%s: ", label)
	line, ok := c.readLine()
	return strings.TrimSpace(line), ok
}

func (c *Console) promptSecret(label string) (string, bool) {
	c.printf("%s: ", label)
	return c.readPassword()
}

// PromptCredentials asks for a username and password.
func (c *Console) PromptCredentials(role account.Role) (session.Credentials, bool) {
	c.printf("\n%s login\n", displayRole(role))
	username, ok := c.prompt("Username")
	if !ok {
		return session.Credentials{}, false
	}
	password, ok := c.promptSecret("Password")
	if !ok {
		return session.Credentials{}, false
	}
	return session.Credentials{Username: username, Password: password}, true
}

// PromptNewPassword asks for a new password twice.
func (c *Console) PromptNewPassword(username string) (session.PasswordChange, bool) {
	c.printf("Choose a new password for %s.\n", username)
	pw, ok := c.promptSecret("New password")
	if !ok {
		return session.PasswordChange{}, false
	}
	confirm, ok := c.promptSecret("Confirm password")
	if !ok {
		return session.PasswordChange{}, false
	}
	return session.PasswordChange{New: pw, Confirm: confirm}, true
}

// Notify prints message on its own line.
func (c *Console) Notify(message string) {
	c.printf("%s\n", message)
}

// Confirm asks a yes/no question. Anything but y or yes is no.
func (c *Console) Confirm(message string) bool {
	answer, ok := c.prompt(message + " [y/N]")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// SelectFromList prints a numbered menu and reads a choice by number or by
// name. 0 goes back.
func (c *Console) SelectFromList(title string, items []string) (string, bool) {
	for {
		c.printf("\n%s\n", title)
		for i, item := range items {
			c.printf("  %d) %s\n", i+1, item)
		}
		c.printf("  %s) Back\n", BackChoice)

		answer, ok := c.prompt(">")
		if !ok || answer == BackChoice {
			return "", false
		}
		if item, found := pick(items, answer); found {
			return item, true
		}
		c.printf("Please choose 1-%d or %s.\n", len(items), BackChoice)
	}
}

func pick(items []string, answer string) (string, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(items) {
			return items[n-1], true
		}
		return "", false
	}
	for _, item := range items {
		if strings.EqualFold(item, answer) {
			return item, true
		}
	}
	return "", false
}

func displayRole(role account.Role) string {
	switch role {
	case account.RoleAdmin:
		return "Admin"
	case account.RoleUser:
		return "User"
	default:
		return string(role)
	}
}
