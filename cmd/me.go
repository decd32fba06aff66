package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the active account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMe()
	},
}

func runMe() error {
	a, err := newApp()
	if err != nil {
		return err
	}

	active := a.registry.ActiveAccount()
	if !active.IsSet() {
		fmt.Println("No account is active right now.")
		fmt.Println("Run `gitsock account add` to connect one, or `gitsock switch <username>` to activate a stored account.")
		return nil
	}

	fmt.Printf("Active account: %s <%s>\n", active.Username, active.Email)
	if active.Alias != "" {
		fmt.Printf("SSH alias: %s\n", active.Alias)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(meCmd)
}
