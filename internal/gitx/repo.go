package gitx

import (
	"errors"
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// historyLimit caps how much history feeds the identity heuristic; older
// commits say little about who owns the current line of work.
const historyLimit = 200

// IsWorkTree reports whether dir is inside a git work tree.
func IsWorkTree(dir string) bool {
	_, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	return err == nil
}

// WorkTreeRoot resolves the top-level work-tree directory containing dir.
func WorkTreeRoot(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to resolve work tree for %s: %w", dir, err)
	}
	return wt.Filesystem.Root(), nil
}

// HistoryText returns a text excerpt of the recent commit history of the
// repository containing dir: author name, author email, and message per
// commit. An empty repository yields an empty excerpt, not an error.
func HistoryText(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}

	iter, err := repo.Log(&git.LogOptions{})
	if err != nil {
		// No HEAD yet means no commits to scan.
		return "", nil
	}
	defer iter.Close()

	var sb strings.Builder
	count := 0
	err = iter.ForEach(func(c *object.Commit) error {
		fmt.Fprintf(&sb, "Author: %s <%s>\n%s\n", c.Author.Name, c.Author.Email, c.Message)
		count++
		if count >= historyLimit {
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return "", fmt.Errorf("failed to walk commit history: %w", err)
	}

	return sb.String(), nil
}

var errStopIteration = errors.New("stop iteration")
