package sshkey

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsock/cli/internal/config"
	"github.com/gitsock/cli/internal/registry"
)

type noopMirror struct{}

func (noopMirror) SetGlobalIdentity(name, email string) error { return nil }

// scriptedRunner answers ssh probes from a queue of canned transcripts.
type scriptedRunner struct {
	responses []string
	calls     [][]string
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil
}

func (r *scriptedRunner) Output(ctx context.Context, name string, args ...string) (string, string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if len(r.responses) == 0 {
		return "", "", nil
	}
	out := r.responses[0]
	r.responses = r.responses[1:]
	return "", out, nil
}

func newTestProvisioner(t *testing.T, runner *scriptedRunner, input string) (*Provisioner, *registry.Registry) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Accounts:      filepath.Join(dir, "accounts.json"),
		ActiveAccount: filepath.Join(dir, "active.json"),
		Secret:        filepath.Join(dir, "secret.bin"),
		SSHPath:       filepath.Join(dir, "ssh"),
	}
	reg, err := registry.New(cfg, noopMirror{})
	require.NoError(t, err)

	p := &Provisioner{
		Registry: reg,
		SSHDir:   cfg.SSHPath,
		KeyBits:  1024, // small keys keep the test fast
		Runner:   runner,
		In:       strings.NewReader(input),
		Out:      &bytes.Buffer{},
	}
	return p, reg
}

const sshSuccess = "Hi dev1! You've successfully authenticated, but GitHub does not provide shell access."

func TestProvisionHappyPath(t *testing.T) {
	runner := &scriptedRunner{responses: []string{sshSuccess}}
	p, reg := newTestProvisioner(t, runner, "\n")

	require.NoError(t, reg.AddAccount(registry.Account{Username: "dev1", Alias: "work", Email: "d@e.com"}))

	require.NoError(t, p.Provision(context.Background(), "work", false))

	privatePath := KeyPath(p.SSHDir, "work")
	assert.FileExists(t, privatePath)
	assert.FileExists(t, privatePath+".pub")

	configData, err := os.ReadFile(ConfigPath(p.SSHDir))
	require.NoError(t, err)
	assert.Contains(t, string(configData), "Host work\n")

	account, err := reg.Lookup("dev1")
	require.NoError(t, err)
	assert.Equal(t, privatePath, account.SSHPath)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"ssh", "-T", "git@work"}, runner.calls[0])
}

func TestProvisionDefaultUsesBareHost(t *testing.T) {
	runner := &scriptedRunner{responses: []string{sshSuccess}}
	p, reg := newTestProvisioner(t, runner, "\n")

	require.NoError(t, reg.AddAccount(registry.Account{Username: "dev1", Alias: "work", Email: "d@e.com"}))

	require.NoError(t, p.Provision(context.Background(), "dev1", true))

	configData, err := os.ReadFile(ConfigPath(p.SSHDir))
	require.NoError(t, err)
	assert.Contains(t, string(configData), "Host github.com\n")

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"ssh", "-T", "git@github.com"}, runner.calls[0])
}

func TestProvisionRetriesUntilRemoteConfirms(t *testing.T) {
	runner := &scriptedRunner{responses: []string{"Permission denied (publickey).", sshSuccess}}
	// One ENTER to start, one ENTER after the failed probe.
	p, reg := newTestProvisioner(t, runner, "\n\n")

	require.NoError(t, reg.AddAccount(registry.Account{Username: "dev1", Alias: "work", Email: "d@e.com"}))

	require.NoError(t, p.Provision(context.Background(), "work", false))
	assert.Len(t, runner.calls, 2)
}

func TestProvisionIsIdempotent(t *testing.T) {
	runner := &scriptedRunner{responses: []string{sshSuccess}}
	p, reg := newTestProvisioner(t, runner, "\n")

	require.NoError(t, reg.AddAccount(registry.Account{Username: "dev1", Alias: "work", Email: "d@e.com"}))
	require.NoError(t, p.Provision(context.Background(), "work", false))

	privatePath := KeyPath(p.SSHDir, "work")
	keyBefore, err := os.ReadFile(privatePath)
	require.NoError(t, err)
	configBefore, err := os.ReadFile(ConfigPath(p.SSHDir))
	require.NoError(t, err)
	callsBefore := len(runner.calls)

	out := &bytes.Buffer{}
	p.Out = out
	require.NoError(t, p.Provision(context.Background(), "work", false))

	keyAfter, err := os.ReadFile(privatePath)
	require.NoError(t, err)
	configAfter, err := os.ReadFile(ConfigPath(p.SSHDir))
	require.NoError(t, err)

	assert.Equal(t, keyBefore, keyAfter, "re-provisioning must never overwrite an existing key")
	assert.Equal(t, configBefore, configAfter)
	assert.Len(t, runner.calls, callsBefore, "no remote probes on the no-op path")
	assert.Contains(t, out.String(), "already exists")
}

func TestProvisionUnknownAccount(t *testing.T) {
	p, _ := newTestProvisioner(t, &scriptedRunner{}, "")

	err := p.Provision(context.Background(), "ghost", false)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestProvisionRequiresAlias(t *testing.T) {
	p, reg := newTestProvisioner(t, &scriptedRunner{}, "")
	require.NoError(t, reg.AddAccount(registry.Account{Username: "dev1", Email: "d@e.com"}))

	err := p.Provision(context.Background(), "dev1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no alias")
}
