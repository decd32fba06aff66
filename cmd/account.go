package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitsock/cli/internal/github"
	"github.com/gitsock/cli/internal/registry"
)

var addAlias string

// accountCmd represents the account command group
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage stored GitHub accounts",
}

var accountAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Connect a GitHub account via the device flow",
	Long: `Connect a new GitHub account. gitsock requests a device code, you approve
it in the browser, and the resulting OAuth token is stored encrypted.
The new account becomes the active identity.

Examples:
  gitsock account add
  gitsock account add --alias work`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountAdd(cmd)
	},
}

var accountRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove a stored account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountRemove(args[0])
	},
}

var accountListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountList()
	},
}

var accountAliasCmd = &cobra.Command{
	Use:   "alias <username> <alias>",
	Short: "Set the SSH host alias for an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccountAlias(args[0], args[1])
	},
}

func runAccountAdd(cmd *cobra.Command) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return addAccount(cmd.Context(), a, github.NewClient(), addAlias)
}

// addAccount runs the onboarding flow against the given client: device
// authorization, token encryption, registry insert, and convergence of
// the active account onto the new identity.
func addAccount(ctx context.Context, a *app, client *github.Client, alias string) error {
	code, err := client.RequestDeviceCode(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("🔑 Complete authentication in your browser using this code: %s\n", code.UserCode)
	fmt.Printf("Open %s and enter the code to proceed.\n", code.VerificationURI)

	token, err := client.PollToken(ctx, code)
	if err != nil {
		return err
	}

	encrypted, err := a.vault.Encrypt([]byte(token))
	if err != nil {
		return err
	}

	user, err := client.FetchUser(ctx, token)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return fmt.Errorf("github profile for %q has no public email; gitsock needs one to key the git identity", user.Login)
	}

	err = a.registry.AddAccount(registry.Account{
		Username: user.Login,
		Name:     user.Name,
		Email:    user.Email,
		Alias:    alias,
		Token:    encrypted,
	})
	switch {
	case errors.Is(err, registry.ErrDuplicate):
		fmt.Printf("%s Account %q already exists. Run `gitsock account list` to see all accounts.\n", warnMark(), user.Login)
	case err != nil:
		return err
	default:
		fmt.Printf("%s Connected to gitsock! Welcome %q\n", okMark(), user.Login)
	}

	if a.registry.ActiveAccount().Username != user.Login {
		_, err = a.registry.UpdateActiveAccount(func(active *registry.ActiveAccount) {
			active.Username = user.Login
			active.Email = user.Email
			active.Alias = alias
			active.Token = encrypted
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func runAccountRemove(username string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	account, err := a.registry.Lookup(username)
	if err != nil {
		return err
	}
	isActive := a.registry.ActiveAccount().Username == account.Username

	// Decrypting the stored token proves the vault still opens this
	// record before anything is dropped.
	if account.Token != nil {
		if _, err := a.vault.Decrypt(account.Token); err != nil {
			return err
		}
	}

	if err := a.registry.RemoveAccount(account.Username); err != nil {
		return err
	}
	if isActive {
		_, err = a.registry.UpdateActiveAccount(func(active *registry.ActiveAccount) {
			*active = registry.ActiveAccount{}
		})
		if err != nil {
			return err
		}
	}

	fmt.Printf("%s Account %q removed.\n", okMark(), account.Username)
	return nil
}

func runAccountList() error {
	a, err := newApp()
	if err != nil {
		return err
	}

	accounts := a.registry.Accounts()
	if len(accounts) == 0 {
		fmt.Println("You don't have any GitHub accounts connected yet.")
		fmt.Println("Run `gitsock account add` to connect one.")
		return nil
	}

	active := a.registry.ActiveAccount()
	fmt.Println("Connected accounts:")
	for i, account := range accounts {
		marker := " "
		if account.Username == active.Username {
			marker = okMark()
		}
		fmt.Printf("%s [%d] %s <%s>", marker, i+1, account.Username, account.Email)
		if account.Alias != "" {
			fmt.Printf(" (alias: %s)", account.Alias)
		}
		fmt.Println()
	}
	return nil
}

func runAccountAlias(username, alias string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	for _, existing := range a.registry.Accounts() {
		if existing.Username != username && existing.Alias == alias {
			return fmt.Errorf("alias %q is already used by %q", alias, existing.Username)
		}
	}

	account, err := a.registry.UpdateAccount(username, func(acc *registry.Account) {
		acc.Alias = alias
	})
	if err != nil {
		return err
	}

	if a.registry.ActiveAccount().Username == username {
		_, err = a.registry.UpdateActiveAccount(func(active *registry.ActiveAccount) {
			active.Alias = alias
		})
		if err != nil {
			return err
		}
	}

	fmt.Printf("%s Alias %q set for %q.\n", okMark(), account.Alias, account.Username)
	return nil
}

func init() {
	accountAddCmd.Flags().StringVar(&addAlias, "alias", "", "SSH host alias to assign to the new account")

	accountCmd.AddCommand(accountAddCmd, accountRemoveCmd, accountListCmd, accountAliasCmd)
	rootCmd.AddCommand(accountCmd)
}
