package sshkey

import (
	"fmt"
	"os"
	"strings"
)

// EnsureConfigStanza appends a Host block mapping host to the given
// identity file, unless a stanza for that host already exists. The config
// file is append-only; existing content is never rewritten. Returns true
// when a stanza was added.
func EnsureConfigStanza(configPath, host, identityFile, username, alias string) (bool, error) {
	existing, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read ssh config %s: %w", configPath, err)
	}

	if hasHostStanza(string(existing), host) {
		return false, nil
	}

	stanza := fmt.Sprintf(
		"\n# GitHub account: %s (%s)\nHost %s\n    HostName github.com\n    User git\n    IdentityFile %s\n    IdentitiesOnly yes\n",
		username, alias, host, identityFile,
	)

	f, err := os.OpenFile(configPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return false, fmt.Errorf("failed to open ssh config %s: %w", configPath, err)
	}
	defer f.Close()

	if _, err := f.WriteString(stanza); err != nil {
		return false, fmt.Errorf("failed to append to ssh config %s: %w", configPath, err)
	}
	return true, nil
}

func hasHostStanza(config, host string) bool {
	for _, line := range strings.Split(config, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "Host" && fields[1] == host {
			return true
		}
	}
	return false
}
