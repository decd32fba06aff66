package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitsock/cli/internal/gitx"
	"github.com/gitsock/cli/internal/registry"
)

var cloneAccount string

var cloneCmd = &cobra.Command{
	Use:   "clone <url>",
	Short: "Clone a repository as a stored account",
	Long: `Clone a repository. With --account the SSH URL is rewritten to that
account's host alias and the cloned repository gets a matching local
identity; otherwise the active account's global identity applies.

Examples:
  gitsock clone git@github.com:org/repo.git
  gitsock clone git@github.com:org/repo.git --account work-dev`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClone(cmd, args[0])
	},
}

func runClone(cmd *cobra.Command, url string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if cloneAccount == "" {
		active := a.registry.ActiveAccount()
		if active.IsSet() {
			fmt.Printf("Cloning as %s <%s>\n", active.Username, active.Email)
		}
		return gitx.Clone(ctx, a.runner, url)
	}

	account, err := a.registry.Lookup(cloneAccount)
	if err != nil {
		return err
	}

	rewritten, err := rewriteCloneURL(url, account)
	if err != nil {
		return err
	}

	fmt.Printf("Cloning as %s <%s>\n", account.Username, account.Email)
	if err := gitx.Clone(ctx, a.runner, rewritten); err != nil {
		return err
	}

	dir := cloneTarget(url)
	if err := gitx.SetLocalIdentity(dir, account.Username, account.Email); err != nil {
		return err
	}
	fmt.Printf("%s Repository %q configured for %s\n", okMark(), dir, account.Username)
	return nil
}

// rewriteCloneURL points an SSH clone URL at the account's host alias so
// ssh picks the key provisioned for that account. Only SSH URLs can carry
// a per-account identity.
func rewriteCloneURL(url string, account registry.Account) (string, error) {
	if strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://") {
		return "", fmt.Errorf("cannot clone %s as %q: per-account clones need an SSH URL (git@github.com:...)", url, account.Username)
	}

	const sshPrefix = "git@github.com:"
	if !strings.HasPrefix(url, sshPrefix) {
		return "", fmt.Errorf("unsupported clone URL %q: expected %s<owner>/<repo>", url, sshPrefix)
	}

	host := account.Alias
	if host == "" {
		host = account.Username
	}
	return "git@" + host + ":" + strings.TrimPrefix(url, sshPrefix), nil
}

// cloneTarget mirrors git's default directory naming for a clone URL.
func cloneTarget(url string) string {
	base := url
	if i := strings.LastIndexAny(base, "/:"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".git")
	return filepath.Clean(base)
}

func init() {
	cloneCmd.Flags().StringVar(&cloneAccount, "account", "", "clone as this stored account (username or alias)")

	rootCmd.AddCommand(cloneCmd)
}
