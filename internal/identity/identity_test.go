package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchSingleWinner(t *testing.T) {
	got := Match("alice alice bob", []string{"alice", "bob"})
	assert.Equal(t, []string{"alice"}, got)
}

func TestMatchTiePreservesOrder(t *testing.T) {
	got := Match("alice bob", []string{"alice", "bob"})
	assert.Equal(t, []string{"alice", "bob"}, got)

	got = Match("bob alice", []string{"bob", "alice"})
	assert.Equal(t, []string{"bob", "alice"}, got)
}

func TestMatchEmptyText(t *testing.T) {
	assert.Nil(t, Match("", []string{"alice", "bob"}))
}

func TestMatchEmptyCandidates(t *testing.T) {
	assert.Nil(t, Match("alice bob", nil))
}

func TestMatchNoOccurrences(t *testing.T) {
	assert.Nil(t, Match("carol commits here", []string{"alice", "bob"}))
}

func TestMatchDropsZeroCountCandidates(t *testing.T) {
	got := Match("alice wrote this", []string{"alice", "bob"})
	assert.Equal(t, []string{"alice"}, got)
}

func TestMatchIgnoresEmptyCandidate(t *testing.T) {
	got := Match("alice wrote this", []string{"", "alice"})
	assert.Equal(t, []string{"alice"}, got)
}

func TestMatchIsCaseSensitive(t *testing.T) {
	assert.Nil(t, Match("Alice wrote this", []string{"alice"}))
}

func TestMatchCountsNonOverlapping(t *testing.T) {
	// "aa" appears twice (non-overlapping) in "aaaa", "b" once.
	got := Match("aaaa b", []string{"aa", "b"})
	assert.Equal(t, []string{"aa"}, got)
}

func TestMatchSubstringSemantics(t *testing.T) {
	// "dev" is a substring of "dev-one": both count.
	got := Match("dev-one pushed", []string{"dev", "dev-one"})
	assert.Equal(t, []string{"dev", "dev-one"}, got)
}
