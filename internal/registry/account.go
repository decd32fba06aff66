package registry

import (
	"encoding/json"
	"fmt"
)

// TokenBlob is a vault-encrypted token. It serializes as a plain JSON
// array of byte values (not base64) to stay interoperable with state
// files written by earlier releases.
type TokenBlob []byte

func (t TokenBlob) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	ints := make([]int, len(t))
	for i, b := range t {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

func (t *TokenBlob) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	if ints == nil {
		*t = nil
		return nil
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("token byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*t = out
	return nil
}

// Account is a stored GitHub identity. Username is the unique key;
// Token, when present, is always the vault-encrypted form.
type Account struct {
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	SSHPath  string    `json:"ssh_path,omitempty"`
	Alias    string    `json:"alias,omitempty"`
	Token    TokenBlob `json:"token,omitempty"`
	Default  bool      `json:"default"`
}

// Matches reports whether the account answers to the given username or
// alias.
func (a *Account) Matches(usernameOrAlias string) bool {
	return a.Username == usernameOrAlias || (a.Alias != "" && a.Alias == usernameOrAlias)
}

func (a Account) clone() Account {
	c := a
	c.Token = append(TokenBlob(nil), a.Token...)
	return c
}

// ActiveAccount is the single identity currently mirrored into the
// host's global git configuration. Empty username and email mean no
// account has been activated yet.
type ActiveAccount struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Alias    string    `json:"alias,omitempty"`
	Token    TokenBlob `json:"token,omitempty"`
}

// IsSet reports whether the record names a real identity. Callers must
// treat the zero value as "no active account", never as a valid one.
func (a ActiveAccount) IsSet() bool {
	return a.Username != "" || a.Email != ""
}

func (a ActiveAccount) clone() ActiveAccount {
	c := a
	c.Token = append(TokenBlob(nil), a.Token...)
	return c
}
