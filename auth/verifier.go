// Package auth checks credentials against the account directory and exposes
// the operations the site calls: Login, Logout, CurrentUser, IsAdmin and
// CheckAuth.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"sitegate/crypto"
	"sitegate/logging"
	"sitegate/models"
	"sitegate/session"
)

const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgHashingUnsupported = "Secure hashing not supported in this context"
	MsgMissingCredentials = "Please enter both username and password"
	MsgLoginFailed        = "Login failed"
)

var (
	// ErrCredentialMismatch means no directory record has both hashes.
	ErrCredentialMismatch = errors.New("credential mismatch")
	// ErrEnvironmentFault means hashing or session storage failed.
	ErrEnvironmentFault = errors.New("environment fault")
)

// AccountSource supplies the account directory. *directory.Directory is the
// production implementation.
type AccountSource interface {
	Load(ctx context.Context) []models.AccountRecord
}

// Result is the outcome of a login attempt. Message is safe to show to the
// user; Err classifies failures for logs and status codes.
type Result struct {
	Success bool
	Message string
	Role    string
	Err     error
}

func failure(msg string, err error) Result {
	return Result{Message: msg, Err: err}
}

// Verifier matches a username and password against the directory. Calls to
// Verify are serialized.
type Verifier struct {
	accounts AccountSource
	hasher   crypto.Hasher
	salt     string
	log      logging.Logger

	mu sync.Mutex
}

func NewVerifier(accounts AccountSource, hasher crypto.Hasher, salt string, log logging.Logger) *Verifier {
	if log == nil {
		log = logging.Nop()
	}
	return &Verifier{accounts: accounts, hasher: hasher, salt: salt, log: log}
}

// Verify checks the credentials and, on a match, writes the session into
// store. The first record whose hashes both match wins. A mismatch on either
// field yields the same message.
func (v *Verifier) Verify(ctx context.Context, store *session.Store, username, password string) Result {
	v.mu.Lock()
	defer v.mu.Unlock()

	accounts := v.accounts.Load(ctx)

	userHash, err := crypto.SaltedDigest(v.hasher, username, v.salt)
	if err != nil {
		v.log.Error(ctx, "hashing username failed", "error", err)
		return failure(MsgHashingUnsupported, fmt.Errorf("%w: %w", ErrEnvironmentFault, err))
	}
	passHash, err := crypto.SaltedDigest(v.hasher, password, v.salt)
	if err != nil {
		v.log.Error(ctx, "hashing password failed", "error", err)
		return failure(MsgHashingUnsupported, fmt.Errorf("%w: %w", ErrEnvironmentFault, err))
	}

	match, ok := findAccount(accounts, userHash, passHash)
	if !ok {
		v.log.Warn(ctx, "login rejected", "user", shortHash(userHash), "directory_size", len(accounts))
		return failure(MsgInvalidCredentials, ErrCredentialMismatch)
	}

	sess := models.Session{LoggedIn: true, UserHash: userHash, Role: match.Role}
	if err := store.Set(ctx, sess); err != nil {
		v.log.Error(ctx, "storing session failed", "user", shortHash(userHash), "error", err)
		if cerr := store.Clear(ctx); cerr != nil {
			v.log.Error(ctx, "clearing partial session failed", "error", cerr)
		}
		return failure(MsgHashingUnsupported, fmt.Errorf("%w: %w", ErrEnvironmentFault, err))
	}

	v.log.Info(ctx, "login accepted", "user", shortHash(userHash), "role", match.Role)
	return Result{Success: true, Role: match.Role}
}

func findAccount(accounts []models.AccountRecord, userHash, passHash string) (models.AccountRecord, bool) {
	for _, acc := range accounts {
		userOK := subtle.ConstantTimeCompare([]byte(acc.UsernameHash), []byte(userHash))
		passOK := subtle.ConstantTimeCompare([]byte(acc.PasswordHash), []byte(passHash))
		if userOK&passOK == 1 {
			return acc, true
		}
	}
	return models.AccountRecord{}, false
}

// shortHash keeps log lines correlatable without printing the full hash.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
