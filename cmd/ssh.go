package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitsock/cli/internal/sshkey"
)

var sshDefault bool

var sshCmd = &cobra.Command{
	Use:   "ssh",
	Short: "Manage per-account SSH identities",
}

var sshAddCmd = &cobra.Command{
	Use:   "add <username|alias>",
	Short: "Generate and register an SSH key for an account",
	Long: `Generate an SSH key pair for the account, add a Host stanza to your
ssh config, and walk through uploading the public key to GitHub. With
--default the stanza answers for github.com itself instead of the alias.

Examples:
  gitsock ssh add work-dev
  gitsock ssh add work-dev --default`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSSHAdd(cmd, args[0])
	},
}

var sshListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List accounts with a provisioned SSH key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSSHList()
	},
}

func runSSHAdd(cmd *cobra.Command, usernameOrAlias string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	p := sshkey.NewProvisioner(a.registry, a.cfg.SSHPath)
	return p.Provision(cmd.Context(), usernameOrAlias, sshDefault)
}

func runSSHList() error {
	a, err := newApp()
	if err != nil {
		return err
	}

	provisioned := 0
	for _, account := range a.registry.Accounts() {
		if account.SSHPath == "" {
			continue
		}
		provisioned++
		fmt.Printf("%s %s", okMark(), account.Username)
		if account.Alias != "" {
			fmt.Printf(" (alias: %s)", account.Alias)
		}
		fmt.Printf(" -> %s\n", account.SSHPath)
	}
	if provisioned == 0 {
		fmt.Println("No accounts have an SSH key yet. Run `gitsock ssh add <username>` to provision one.")
	}
	return nil
}

func init() {
	sshAddCmd.Flags().BoolVar(&sshDefault, "default", false, "register the key for github.com instead of the alias host")

	sshCmd.AddCommand(sshAddCmd, sshListCmd)
	rootCmd.AddCommand(sshCmd)
}
