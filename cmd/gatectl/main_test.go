package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitegate/auth"
	"sitegate/crypto"
	"sitegate/logging"
	"sitegate/models"
)

const salt = "cli-salt"

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	hasher := crypto.NewEngine()
	uh, err := crypto.SaltedDigest(hasher, "alice", salt)
	require.NoError(t, err)
	ph, err := crypto.SaltedDigest(hasher, "pw1", salt)
	require.NoError(t, err)

	records := []models.AccountRecord{{UsernameHash: uh, PasswordHash: ph, Role: "admin"}}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	file := filepath.Join(dir, "hashedAccounts.json")
	require.NoError(t, os.WriteFile(file, data, 0o600))

	var out bytes.Buffer
	return &app{
		opt: options{
			Salt: salt,
			DB:   filepath.Join(dir, "gatectl.db"),
			File: file,
			Role: "user",
		},
		out:    &out,
		errOut: &out,
		log:    logging.Nop(),
		hasher: hasher,
		readPassword: func(string) (string, error) {
			return "", errors.New("no terminal in tests")
		},
	}, &out
}

func TestDigest(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, a.run(context.Background(), "digest", []string{"alice", "pw1"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	want, _ := crypto.SaltedDigest(crypto.NewEngine(), "alice", salt)
	assert.Equal(t, want, lines[0])
	assert.Len(t, lines[1], crypto.DigestSize)

	assert.Error(t, a.run(context.Background(), "digest", nil))
}

func TestEntry(t *testing.T) {
	a, out := newTestApp(t)
	a.opt.Role = "editor"
	a.readPassword = func(string) (string, error) { return "s3cret", nil }

	require.NoError(t, a.run(context.Background(), "entry", []string{"carol"}))

	var rec models.AccountRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	uh, _ := crypto.SaltedDigest(crypto.NewEngine(), "carol", salt)
	ph, _ := crypto.SaltedDigest(crypto.NewEngine(), "s3cret", salt)
	assert.Equal(t, models.AccountRecord{UsernameHash: uh, PasswordHash: ph, Role: "editor"}, rec)
}

func TestEntry_EmptyPasswordRejected(t *testing.T) {
	a, _ := newTestApp(t)
	a.readPassword = func(string) (string, error) { return "", nil }

	err := a.run(context.Background(), "entry", []string{"carol"})
	require.Error(t, err)
	assert.Equal(t, auth.MsgMissingCredentials, err.Error())
}

func TestLoginWhoamiCheckLogout(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, "whoami", nil))
	assert.Contains(t, out.String(), "not logged in")

	out.Reset()
	require.NoError(t, a.run(ctx, "check", []string{"/index.html"}))
	assert.Equal(t, "redirect-login -> login.html\n", out.String())

	out.Reset()
	a.opt.Password = "pw1"
	require.NoError(t, a.run(ctx, "login", []string{"alice"}))
	assert.Contains(t, out.String(), "logged in")

	out.Reset()
	require.NoError(t, a.run(ctx, "whoami", nil))
	uh, _ := crypto.SaltedDigest(crypto.NewEngine(), "alice", salt)
	assert.Equal(t, fmt.Sprintf("user %s\nrole admin\nadmin true\n", uh), out.String())

	out.Reset()
	require.NoError(t, a.run(ctx, "check", []string{"login.html"}))
	assert.Equal(t, "redirect-home -> index.html\n", out.String())

	out.Reset()
	require.NoError(t, a.run(ctx, "check", []string{"index.html"}))
	assert.Equal(t, "allowed\n", out.String())

	out.Reset()
	require.NoError(t, a.run(ctx, "logout", nil))
	require.NoError(t, a.run(ctx, "whoami", nil))
	assert.Contains(t, out.String(), "not logged in")
}

func TestLogin_Failures(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	a.opt.Password = "wrong"
	err := a.run(ctx, "login", []string{"alice"})
	require.Error(t, err)
	assert.Equal(t, auth.MsgInvalidCredentials, err.Error())

	// a missing directory degrades to a mismatch, not an environment fault
	a.opt.File = filepath.Join(t.TempDir(), "hashedAccounts.json")
	a.opt.Password = "pw1"
	err = a.run(ctx, "login", []string{"alice"})
	require.Error(t, err)
	assert.Equal(t, auth.MsgInvalidCredentials, err.Error())
}

func TestRun_UnknownCommandAndArity(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	assert.Error(t, a.run(ctx, "frobnicate", nil))
	assert.Error(t, a.run(ctx, "entry", nil))
	assert.Error(t, a.run(ctx, "login", []string{"a", "b"}))
	assert.Error(t, a.run(ctx, "check", nil))
}
