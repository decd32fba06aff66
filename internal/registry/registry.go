// Package registry owns the persisted account list and the active-account
// slot. Every mutation is serialized through one process-wide lock and
// flushed to disk as a whole before the lock is released, so a reader
// never observes a half-applied mutation.
//
// The registry assumes a single foreground gitsock process at a time; the
// state files carry no cross-process lock.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/gitsock/cli/internal/config"
)

var (
	// ErrNotFound is returned when no account answers to a username or alias.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is returned when adding an account whose username is taken.
	ErrDuplicate = errors.New("account already exists")
)

// IdentityMirror propagates the active identity into the host's global
// git configuration. It is injected so tests can observe the mirroring
// post-condition without touching ~/.gitconfig.
type IdentityMirror interface {
	SetGlobalIdentity(name, email string) error
}

// Registry holds the in-memory account state and its file locations.
// Construct it once at process start with New.
type Registry struct {
	mu           sync.Mutex
	accountsPath string
	activePath   string
	mirror       IdentityMirror

	accounts []Account
	active   ActiveAccount
}

// New loads the registry state from the paths in cfg, materializing an
// empty account list and a default active-account record on first run.
func New(cfg *config.Config, mirror IdentityMirror) (*Registry, error) {
	r := &Registry{
		accountsPath: cfg.Accounts,
		activePath:   cfg.ActiveAccount,
		mirror:       mirror,
	}
	if err := r.loadAccounts(); err != nil {
		return nil, err
	}
	if err := r.loadActive(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) loadAccounts() error {
	data, err := os.ReadFile(r.accountsPath)
	if os.IsNotExist(err) {
		r.accounts = []Account{}
		return writeFileAtomic(r.accountsPath, []byte("[]"))
	}
	if err != nil {
		return fmt.Errorf("failed to read accounts file %s: %w", r.accountsPath, err)
	}

	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return fmt.Errorf("failed to parse accounts file %s: %w", r.accountsPath, err)
	}
	r.accounts = accounts
	return nil
}

func (r *Registry) loadActive() error {
	data, err := os.ReadFile(r.activePath)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		r.active = ActiveAccount{}
		return r.persistActive(r.active)
	}
	if err != nil {
		return fmt.Errorf("failed to read active account file %s: %w", r.activePath, err)
	}

	var active ActiveAccount
	if err := json.Unmarshal(data, &active); err != nil {
		return fmt.Errorf("failed to parse active account file %s: %w", r.activePath, err)
	}
	r.active = active
	return nil
}

// Accounts returns a snapshot copy of the account list.
func (r *Registry) Accounts() []Account {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Account, len(r.accounts))
	for i, a := range r.accounts {
		out[i] = a.clone()
	}
	return out
}

// ActiveAccount returns a snapshot copy of the active-account record.
func (r *Registry) ActiveAccount() ActiveAccount {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active.clone()
}

// Lookup finds an account by username or alias.
func (r *Registry) Lookup(usernameOrAlias string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.accounts {
		if r.accounts[i].Matches(usernameOrAlias) {
			return r.accounts[i].clone(), nil
		}
	}
	return Account{}, fmt.Errorf("%w: %s", ErrNotFound, usernameOrAlias)
}

// UpdateAccounts applies mutate to a working copy of the account list and
// persists the whole list before the change becomes visible. On any
// persistence failure the in-memory state keeps its previous value.
func (r *Registry) UpdateAccounts(mutate func(accounts *[]Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	working := make([]Account, len(r.accounts))
	for i, a := range r.accounts {
		working[i] = a.clone()
	}

	mutate(&working)

	if err := r.persistAccounts(working); err != nil {
		return err
	}
	r.accounts = working
	return nil
}

// UpdateAccount applies mutate to the account with the given username and
// persists the list. Returns the updated snapshot.
func (r *Registry) UpdateAccount(username string, mutate func(a *Account)) (Account, error) {
	var updated Account
	found := false

	err := r.UpdateAccounts(func(accounts *[]Account) {
		for i := range *accounts {
			if (*accounts)[i].Username == username {
				mutate(&(*accounts)[i])
				updated = (*accounts)[i].clone()
				found = true
				return
			}
		}
	})
	if err != nil {
		return Account{}, err
	}
	if !found {
		return Account{}, fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	return updated, nil
}

// AddAccount appends a new account. A username collision is rejected
// without touching the stored list.
func (r *Registry) AddAccount(account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.accounts {
		if r.accounts[i].Username == account.Username {
			return fmt.Errorf("%w: %s", ErrDuplicate, account.Username)
		}
	}

	working := make([]Account, len(r.accounts), len(r.accounts)+1)
	for i, a := range r.accounts {
		working[i] = a.clone()
	}
	working = append(working, account.clone())

	if err := r.persistAccounts(working); err != nil {
		return err
	}
	r.accounts = working
	return nil
}

// RemoveAccount drops the account with the given username.
func (r *Registry) RemoveAccount(username string) error {
	removed := false
	err := r.UpdateAccounts(func(accounts *[]Account) {
		kept := (*accounts)[:0]
		for _, a := range *accounts {
			if a.Username == username {
				removed = true
				continue
			}
			kept = append(kept, a)
		}
		*accounts = kept
	})
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	return nil
}

// UpdateActiveAccount applies mutate to the active-account record, mirrors
// the resulting username/email into the host's global git identity,
// persists the record, and returns the new snapshot. The active account
// and the ambient git identity never diverge on a successful return.
func (r *Registry) UpdateActiveAccount(mutate func(a *ActiveAccount)) (ActiveAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	working := r.active.clone()
	mutate(&working)

	if err := r.mirror.SetGlobalIdentity(working.Username, working.Email); err != nil {
		return ActiveAccount{}, fmt.Errorf("failed to mirror git identity: %w", err)
	}
	if err := r.persistActive(working); err != nil {
		return ActiveAccount{}, err
	}
	r.active = working
	return working.clone(), nil
}

func (r *Registry) persistAccounts(accounts []Account) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	return writeFileAtomic(r.accountsPath, data)
}

func (r *Registry) persistActive(active ActiveAccount) error {
	data, err := json.MarshalIndent(&active, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal active account: %w", err)
	}
	return writeFileAtomic(r.activePath, data)
}

// writeFileAtomic writes via a uniquely named temp file in the target
// directory and renames it into place, so a hard interrupt leaves either
// the old file or the new one, never a torn write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
