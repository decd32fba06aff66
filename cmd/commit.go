package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gitsock/cli/internal/gitx"
	"github.com/gitsock/cli/internal/identity"
	"github.com/gitsock/cli/internal/registry"
)

var (
	commitMessage string
	commitAccount string
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit staged changes as the right identity",
	Long: `Commit staged changes. The committing identity is resolved in order:
an explicit --account, the repository's local git config, or a scan of
recent commit history for a stored username. When history names several
accounts equally you pick one; with no signal the active account is used.

Examples:
  gitsock commit -m "fix parser"
  gitsock commit -m "fix parser" --account work-dev`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommit(cmd)
	},
}

func runCommit(cmd *cobra.Command) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}
	if !gitx.IsWorkTree(dir) {
		return fmt.Errorf("not inside a git repository")
	}

	if err := resolveCommitIdentity(a, dir); err != nil {
		return err
	}

	message := commitMessage
	if message == "" {
		if !isInteractive() {
			return fmt.Errorf("no commit message; pass one with -m")
		}
		message, err = promptLine("Commit message: ")
		if err != nil {
			return err
		}
		if message == "" {
			return fmt.Errorf("commit message cannot be empty")
		}
	}

	return gitx.Commit(ctx, a.runner, message)
}

// resolveCommitIdentity decides which identity the commit is made under:
// an explicit --account, then the repository's local config, then the
// history heuristic.
func resolveCommitIdentity(a *app, dir string) error {
	if commitAccount != "" {
		account, err := a.registry.Lookup(commitAccount)
		if err != nil {
			return err
		}
		return useLocalIdentity(dir, account)
	}

	if name, email, ok := gitx.LocalIdentity(dir); ok {
		fmt.Printf("Committing as %s <%s> (repository config)\n", name, email)
		return nil
	}

	history, err := gitx.HistoryText(dir)
	if err != nil {
		return err
	}

	accounts := a.registry.Accounts()
	candidates := make([]string, 0, len(accounts))
	for _, account := range accounts {
		candidates = append(candidates, account.Username)
	}

	matches := identity.Match(history, candidates)
	switch len(matches) {
	case 0:
		active := a.registry.ActiveAccount()
		if !active.IsSet() {
			return fmt.Errorf("no account is active; run `gitsock account add` or `gitsock switch`")
		}
		if err := gitx.SetLocalIdentity(dir, active.Username, active.Email); err != nil {
			return err
		}
		fmt.Printf("Committing as %s <%s> (active account)\n", active.Username, active.Email)
		return nil
	case 1:
		account, err := a.registry.Lookup(matches[0])
		if err != nil {
			return err
		}
		return useLocalIdentity(dir, account)
	default:
		account, err := selectAccount(a, matches)
		if err != nil {
			return err
		}
		return useLocalIdentity(dir, account)
	}
}

// selectAccount asks the operator to pick among equally likely usernames.
// An out-of-range or non-numeric answer is a hard error, not a fallback.
func selectAccount(a *app, usernames []string) (registry.Account, error) {
	fmt.Println("Several accounts match this repository's history:")
	for i, username := range usernames {
		fmt.Printf("  [%d] %s\n", i+1, username)
	}

	answer, err := promptLine("Select an account by number: ")
	if err != nil {
		return registry.Account{}, err
	}
	choice, err := strconv.Atoi(answer)
	if err != nil {
		return registry.Account{}, fmt.Errorf("invalid selection %q: expected a number", answer)
	}
	if choice < 1 || choice > len(usernames) {
		return registry.Account{}, fmt.Errorf("invalid selection %d: expected 1-%d", choice, len(usernames))
	}

	return a.registry.Lookup(usernames[choice-1])
}

func useLocalIdentity(dir string, account registry.Account) error {
	if err := gitx.SetLocalIdentity(dir, account.Username, account.Email); err != nil {
		return err
	}
	fmt.Printf("Committing as %s <%s>\n", account.Username, account.Email)
	return nil
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message")
	commitCmd.Flags().StringVar(&commitAccount, "account", "", "commit as this stored account (username or alias)")

	rootCmd.AddCommand(commitCmd)
}
