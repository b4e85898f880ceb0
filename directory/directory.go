// Package directory holds the account directory: an externally supplied,
// read-only list of salted credential hashes, loaded once per process.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"sitegate/logging"
	"sitegate/models"
)

var (
	ErrDirectoryUnavailable = errors.New("account directory unavailable")
	ErrMalformedDirectory   = errors.New("account directory is not a list of records")
)

// Directory caches the account list after the first successful fetch.
// A failed fetch leaves it unloaded so the next Load tries again.
type Directory struct {
	fetcher Fetcher
	name    string
	log     logging.Logger

	mu       sync.Mutex
	accounts []models.AccountRecord
	loaded   bool
}

func New(fetcher Fetcher, name string, log logging.Logger) *Directory {
	if log == nil {
		log = logging.Nop()
	}
	return &Directory{
		fetcher: fetcher,
		name:    name,
		log:     log.With("directory", name),
	}
}

// Load returns the account list, fetching it on first use. Failures are
// logged and the last known list (possibly empty) is returned.
func (d *Directory) Load(ctx context.Context) []models.AccountRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded {
		return d.accounts
	}

	accounts, err := d.fetch(ctx)
	if err != nil {
		d.log.Error(ctx, "failed to load account directory", "error", err)
		return d.accounts
	}

	d.accounts = accounts
	d.loaded = true
	d.log.Info(ctx, "account directory loaded", "records", len(accounts))
	return d.accounts
}

// Loaded reports whether a fetch has succeeded since start or the last Reset.
func (d *Directory) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// Reset forgets the cached list so the next Load fetches again.
func (d *Directory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts = nil
	d.loaded = false
}

func (d *Directory) fetch(ctx context.Context) ([]models.AccountRecord, error) {
	data, err := d.fetcher.Fetch(ctx, d.name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}
	return Parse(data)
}

// Parse decodes a directory payload. Anything other than a JSON array of
// objects is ErrMalformedDirectory.
func Parse(data []byte) ([]models.AccountRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrMalformedDirectory
	}

	accounts := []models.AccountRecord{}
	if err := json.Unmarshal(trimmed, &accounts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDirectory, err)
	}
	return accounts, nil
}
