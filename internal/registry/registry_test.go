package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsock/cli/internal/config"
)

// fakeMirror records identity mirroring calls instead of touching the
// host's git configuration.
type fakeMirror struct {
	names  []string
	emails []string
	err    error
}

func (m *fakeMirror) SetGlobalIdentity(name, email string) error {
	if m.err != nil {
		return m.err
	}
	m.names = append(m.names, name)
	m.emails = append(m.emails, email)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Accounts:      filepath.Join(dir, "accounts.json"),
		ActiveAccount: filepath.Join(dir, "active.json"),
		Secret:        filepath.Join(dir, "secret.bin"),
		SSHPath:       filepath.Join(dir, "ssh"),
	}
}

func newTestRegistry(t *testing.T) (*Registry, *fakeMirror, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	mirror := &fakeMirror{}
	r, err := New(cfg, mirror)
	require.NoError(t, err)
	return r, mirror, cfg
}

func TestNewInitializesStateFiles(t *testing.T) {
	r, _, cfg := newTestRegistry(t)

	assert.Empty(t, r.Accounts())

	active := r.ActiveAccount()
	assert.False(t, active.IsSet())
	assert.Empty(t, active.Username)
	assert.Empty(t, active.Email)

	data, err := os.ReadFile(cfg.Accounts)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	data, err = os.ReadFile(cfg.ActiveAccount)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"","email":""}`, string(data))
}

func TestNewReloadsExistingState(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(cfg, &fakeMirror{})
	require.NoError(t, err)
	require.NoError(t, first.AddAccount(Account{Username: "dev1", Name: "Dev One", Email: "d@e.com"}))

	second, err := New(cfg, &fakeMirror{})
	require.NoError(t, err)

	accounts := second.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "dev1", accounts[0].Username)
	assert.Equal(t, "d@e.com", accounts[0].Email)
}

func TestAddAccountRejectsDuplicateUsername(t *testing.T) {
	r, _, cfg := newTestRegistry(t)

	require.NoError(t, r.AddAccount(Account{Username: "dev1", Email: "d@e.com"}))

	before, err := os.ReadFile(cfg.Accounts)
	require.NoError(t, err)

	err = r.AddAccount(Account{Username: "dev1", Email: "other@e.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Len(t, r.Accounts(), 1)

	after, err := os.ReadFile(cfg.Accounts)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected add must not rewrite the accounts file")
}

func TestUpdateAccountsNoopKeepsSemanticValue(t *testing.T) {
	r, _, cfg := newTestRegistry(t)
	require.NoError(t, r.AddAccount(Account{Username: "dev1", Email: "d@e.com", Token: TokenBlob{1, 2, 3}}))

	before, err := os.ReadFile(cfg.Accounts)
	require.NoError(t, err)

	require.NoError(t, r.UpdateAccounts(func(accounts *[]Account) {}))

	after, err := os.ReadFile(cfg.Accounts)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestAccountsReturnsSnapshotCopies(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	require.NoError(t, r.AddAccount(Account{Username: "dev1", Email: "d@e.com", Token: TokenBlob{9}}))

	snapshot := r.Accounts()
	snapshot[0].Username = "mutated"
	snapshot[0].Token[0] = 0

	fresh := r.Accounts()
	assert.Equal(t, "dev1", fresh[0].Username)
	assert.Equal(t, TokenBlob{9}, fresh[0].Token)
}

func TestLookupByUsernameAndAlias(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	require.NoError(t, r.AddAccount(Account{Username: "dev1", Alias: "work", Email: "d@e.com"}))

	byName, err := r.Lookup("dev1")
	require.NoError(t, err)
	assert.Equal(t, "dev1", byName.Username)

	byAlias, err := r.Lookup("work")
	require.NoError(t, err)
	assert.Equal(t, "dev1", byAlias.Username)

	_, err = r.Lookup("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAccountNotFound(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, err := r.UpdateAccount("ghost", func(a *Account) { a.Email = "x@y.z" })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveAccount(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	require.NoError(t, r.AddAccount(Account{Username: "dev1", Email: "d@e.com"}))
	require.NoError(t, r.AddAccount(Account{Username: "dev2", Email: "e@f.com"}))

	require.NoError(t, r.RemoveAccount("dev1"))
	accounts := r.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "dev2", accounts[0].Username)

	assert.ErrorIs(t, r.RemoveAccount("dev1"), ErrNotFound)
}

func TestUpdateActiveAccountMirrorsGitIdentity(t *testing.T) {
	r, mirror, cfg := newTestRegistry(t)

	active, err := r.UpdateActiveAccount(func(a *ActiveAccount) {
		a.Username = "dev1"
		a.Email = "d@e.com"
		a.Token = TokenBlob{4, 5}
	})
	require.NoError(t, err)

	assert.Equal(t, "dev1", active.Username)
	assert.Equal(t, []string{"dev1"}, mirror.names)
	assert.Equal(t, []string{"d@e.com"}, mirror.emails)

	data, err := os.ReadFile(cfg.ActiveAccount)
	require.NoError(t, err)

	var persisted ActiveAccount
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, "dev1", persisted.Username)
	assert.Equal(t, TokenBlob{4, 5}, persisted.Token)
}

func TestUpdateActiveAccountMirrorFailureLeavesStateAlone(t *testing.T) {
	r, mirror, cfg := newTestRegistry(t)
	mirror.err = assert.AnError

	before, err := os.ReadFile(cfg.ActiveAccount)
	require.NoError(t, err)

	_, err = r.UpdateActiveAccount(func(a *ActiveAccount) {
		a.Username = "dev1"
		a.Email = "d@e.com"
	})
	require.Error(t, err)

	assert.False(t, r.ActiveAccount().IsSet())

	after, err := os.ReadFile(cfg.ActiveAccount)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPersistenceFailurePropagates(t *testing.T) {
	cfg := testConfig(t)
	r, err := New(cfg, &fakeMirror{})
	require.NoError(t, err)

	// Replace the accounts file's parent with a regular file so the
	// atomic write cannot land.
	require.NoError(t, os.RemoveAll(filepath.Dir(cfg.Accounts)))
	require.NoError(t, os.WriteFile(filepath.Dir(cfg.Accounts), []byte{}, 0600))

	err = r.UpdateAccounts(func(accounts *[]Account) {
		*accounts = append(*accounts, Account{Username: "dev1"})
	})
	require.Error(t, err)
	assert.Empty(t, r.Accounts(), "failed persist must not commit the mutation in memory")
}

func TestTokenBlobJSONRoundTrip(t *testing.T) {
	acc := Account{Username: "dev1", Email: "d@e.com", Token: TokenBlob{0, 127, 255}}

	data, err := json.Marshal(&acc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"token":[0,127,255]`, "token must serialize as a raw byte array")

	var back Account
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, acc.Token, back.Token)
}
