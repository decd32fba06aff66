// Package sshkey provisions per-account SSH identities: key generation,
// OpenSSH public encoding, host-alias config stanzas, and the operator
// confirmation loop against the remote.
package sshkey

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// DefaultKeyBits is the RSA modulus size for provisioned keys.
const DefaultKeyBits = 4096

// GenerateKeyPair produces an RSA key pair: the private key in PKCS#1 PEM
// and the public key in the OpenSSH authorized_keys form
// ("ssh-rsa <base64>", with length-prefixed, sign-padded mpint components
// inside the blob).
func GenerateKeyPair(bits int) (privatePEM, publicOpenSSH string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate RSA key: %w", err)
	}

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	privatePEM = string(pem.EncodeToMemory(block))

	pub, err := ssh.NewPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode public key: %w", err)
	}
	publicOpenSSH = strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))

	return privatePEM, publicOpenSSH, nil
}

// KeyPath derives the private-key location for an alias inside sshDir,
// replacing characters that are hostile to filesystems with "_".
func KeyPath(sshDir, alias string) string {
	return filepath.Join(sshDir, "github_"+sanitizeAlias(alias))
}

// ConfigPath is the SSH client config inside sshDir.
func ConfigPath(sshDir string) string {
	return filepath.Join(sshDir, "config")
}

func sanitizeAlias(alias string) string {
	clean := strings.TrimSpace(alias)
	var sb strings.Builder
	for _, c := range clean {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, c), c < 0x20:
			sb.WriteRune('_')
		default:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
