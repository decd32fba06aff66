package sshkey

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gitsock/cli/internal/gitx"
	"github.com/gitsock/cli/internal/registry"
)

// DefaultHost is the unaliased remote used when an account is provisioned
// as the default identity.
const DefaultHost = "github.com"

// Provisioner generates and attaches SSH identities to accounts. The
// runner and I/O streams are injected so tests can drive the operator
// confirmation loop.
type Provisioner struct {
	Registry *registry.Registry
	SSHDir   string
	KeyBits  int
	Runner   gitx.Runner
	In       io.Reader
	Out      io.Writer
}

// NewProvisioner wires a provisioner to the real terminal and ssh binary.
func NewProvisioner(reg *registry.Registry, sshDir string) *Provisioner {
	return &Provisioner{
		Registry: reg,
		SSHDir:   sshDir,
		KeyBits:  DefaultKeyBits,
		Runner:   gitx.NewExecRunner(),
		In:       os.Stdin,
		Out:      os.Stdout,
	}
}

// Provision resolves the target account, generates a key pair at the
// derived path unless one already exists (re-provisioning never
// overwrites keys), appends the ssh config stanza, walks the operator
// through uploading the public key until the remote confirms
// authentication, and records the private-key path on the account.
func (p *Provisioner) Provision(ctx context.Context, usernameOrAlias string, makeDefault bool) error {
	account, err := p.Registry.Lookup(usernameOrAlias)
	if err != nil {
		return err
	}
	if account.Alias == "" {
		return fmt.Errorf("account %q has no alias; set one before adding SSH", account.Username)
	}

	privatePath := KeyPath(p.SSHDir, account.Alias)
	if _, err := os.Stat(privatePath); err == nil {
		fmt.Fprintf(p.Out, "SSH already exists for this account: %s\n", account.Alias)
		return nil
	}

	fmt.Fprintln(p.Out, "Generating SSH keys...")
	privatePEM, publicOpenSSH, err := GenerateKeyPair(p.KeyBits)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.SSHDir, 0700); err != nil {
		return fmt.Errorf("failed to create ssh directory %s: %w", p.SSHDir, err)
	}
	if err := os.WriteFile(privatePath, []byte(privatePEM), 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(privatePath+".pub", []byte(publicOpenSSH+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	host := account.Alias
	if makeDefault {
		host = DefaultHost
	}

	added, err := EnsureConfigStanza(ConfigPath(p.SSHDir), host, privatePath, account.Username, account.Alias)
	if err != nil {
		return err
	}
	if added {
		fmt.Fprintf(p.Out, "Added SSH config entry for host %q\n", host)
	} else {
		fmt.Fprintf(p.Out, "SSH config entry for host %q already exists\n", host)
	}

	if err := p.confirmUpload(ctx, publicOpenSSH, host); err != nil {
		return err
	}

	_, err = p.Registry.UpdateAccount(account.Username, func(a *registry.Account) {
		a.SSHPath = privatePath
	})
	return err
}

// confirmUpload shows the public key for manual upload and probes the
// remote until it confirms authentication. The loop is operator-paced by
// design: it only ends on remote success or a cancelled context.
func (p *Provisioner) confirmUpload(ctx context.Context, publicKey, host string) error {
	fmt.Fprintln(p.Out, "\n==== Public key (add this at https://github.com/settings/keys) ====")
	fmt.Fprintln(p.Out, publicKey)
	fmt.Fprintln(p.Out, "===================================================================")
	fmt.Fprintln(p.Out, "After adding the key, press ENTER to continue...")

	reader := bufio.NewReader(p.In)
	if err := p.waitForEnter(ctx, reader); err != nil {
		return err
	}

	for {
		fmt.Fprintf(p.Out, "Testing SSH connection for host %q\n", host)
		transcript, ok := gitx.TestSSHAuth(ctx, p.Runner, host)
		if ok {
			fmt.Fprintf(p.Out, "Successfully authenticated with GitHub using host %q\n", host)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintln(p.Out, "Authentication failed.")
		if transcript != "" {
			fmt.Fprintln(p.Out, transcript)
		}
		fmt.Fprintln(p.Out, "Make sure the public key above was added, then press ENTER to retry...")
		if err := p.waitForEnter(ctx, reader); err != nil {
			return err
		}
	}
}

func (p *Provisioner) waitForEnter(ctx context.Context, reader *bufio.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := reader.ReadString('\n'); err != nil {
		return fmt.Errorf("failed to read operator input: %w", err)
	}
	return nil
}
