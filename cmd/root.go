// Package cmd wires the gitsock command tree. Commands parse arguments,
// prompt, and format output; every state or protocol operation lives in
// the internal packages.
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gitsock/cli/internal/config"
	"github.com/gitsock/cli/internal/gitx"
	"github.com/gitsock/cli/internal/registry"
	"github.com/gitsock/cli/internal/vault"
)

var version = "1.0.0" // set during build

// app bundles the services every command needs. It is constructed once
// per invocation so state ownership stays with the process entry point
// instead of package-level singletons.
type app struct {
	cfg      *config.Config
	vault    *vault.Vault
	registry *registry.Registry
	runner   gitx.Runner
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	v, err := vault.Open(cfg.Secret)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(cfg, gitx.GlobalIdentity{})
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		vault:    v,
		registry: reg,
		runner:   gitx.NewExecRunner(),
	}, nil
}

var output = termenv.NewOutput(os.Stdout)

func okMark() string {
	return output.String("✓").Foreground(output.Color("2")).String()
}

func warnMark() string {
	return output.String("!").Foreground(output.Color("3")).String()
}

// isInteractive reports whether stdin is a terminal; prompts are only
// offered interactively.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptLine prints prompt and reads one trimmed line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gitsock",
	Short: "Manage multiple GitHub accounts on one machine",
	Long: `gitsock keeps several GitHub identities on a single machine and switches
which one is active for git operations: global config, commits, clones,
and SSH. OAuth tokens are stored encrypted; the active account is always
mirrored into your global git identity.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gitsock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gitsock v%s\n", version)
		},
	}

	rootCmd.AddCommand(versionCmd)
}
