package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitsock/cli/internal/registry"
)

var switchCmd = &cobra.Command{
	Use:   "switch <username|alias>",
	Short: "Make another stored account the active identity",
	Long: `Switch the active account. The new identity is mirrored into your
global git config, so subsequent commits and clones use it by default.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwitch(args[0])
	},
}

func runSwitch(usernameOrAlias string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	current := a.registry.ActiveAccount()
	if current.IsSet() && (current.Username == usernameOrAlias || (current.Alias != "" && current.Alias == usernameOrAlias)) {
		fmt.Printf("Account %q is already active.\n", current.Username)
		return nil
	}

	account, err := a.registry.Lookup(usernameOrAlias)
	if err != nil {
		return err
	}

	_, err = a.registry.UpdateActiveAccount(func(active *registry.ActiveAccount) {
		active.Username = account.Username
		active.Email = account.Email
		active.Alias = account.Alias
		active.Token = account.Token
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s Switched to account %q <%s>\n", okMark(), account.Username, account.Email)
	return nil
}

func init() {
	rootCmd.AddCommand(switchCmd)
}
