package gitx

import (
	"fmt"

	"github.com/gopasspw/gitconfig"
)

// SetGlobalIdentity writes user.name/user.email into the user-level git
// config, so every repository without a local override commits as the
// given identity.
func SetGlobalIdentity(name, email string) error {
	cfg := gitconfig.New()
	cfg.LoadAll("")

	if err := cfg.SetGlobal("user.name", name); err != nil {
		return fmt.Errorf("failed to set global user.name: %w", err)
	}
	if err := cfg.SetGlobal("user.email", email); err != nil {
		return fmt.Errorf("failed to set global user.email: %w", err)
	}
	return nil
}

// SetLocalIdentity writes user.name/user.email into the repository-level
// config of the work tree containing dir, overriding the global identity
// for that repository only. The local scope lives at the work-tree root
// (gitconfig does not walk up), so dir may be any directory inside it.
func SetLocalIdentity(dir, name, email string) error {
	root, err := WorkTreeRoot(dir)
	if err != nil {
		return err
	}

	cfg := gitconfig.New()
	cfg.LoadAll(root)

	if err := cfg.SetLocal("user.name", name); err != nil {
		return fmt.Errorf("failed to set local user.name: %w", err)
	}
	if err := cfg.SetLocal("user.email", email); err != nil {
		return fmt.Errorf("failed to set local user.email: %w", err)
	}
	return nil
}

// LocalIdentity reports the repository-level identity of the work tree
// containing dir. ok is false when either field is unset locally or dir
// is not inside a work tree.
func LocalIdentity(dir string) (name, email string, ok bool) {
	root, err := WorkTreeRoot(dir)
	if err != nil {
		return "", "", false
	}

	cfg := gitconfig.New()
	cfg.LoadAll(root)

	name = cfg.GetLocal("user.name")
	email = cfg.GetLocal("user.email")
	return name, email, name != "" && email != ""
}

// GlobalIdentity adapts SetGlobalIdentity to the registry's mirror
// interface.
type GlobalIdentity struct{}

func (GlobalIdentity) SetGlobalIdentity(name, email string) error {
	return SetGlobalIdentity(name, email)
}
