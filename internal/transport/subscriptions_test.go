package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubscriptionSetAddRemove(t *testing.T) {
	s := NewSubscriptionSet()
	ch := Scope{Kind: ScopeChannel, ID: "c1"}

	s.Add(ch)
	s.Add(ch) // duplicate is a no-op
	require.Equal(t, 1, s.Len())
	require.True(t, s.Contains(ch))

	s.Remove(ch)
	require.Equal(t, 0, s.Len())
	require.False(t, s.Contains(ch))

	// removing an absent scope is fine
	s.Remove(Scope{Kind: ScopeCall, ID: "k1"})
	require.Equal(t, 0, s.Len())
}

func TestSubscriptionSetSnapshotOrder(t *testing.T) {
	s := NewSubscriptionSet()
	s.Add(Scope{Kind: ScopeCall, ID: "k2"})
	s.Add(Scope{Kind: ScopeChannel, ID: "c2"})
	s.Add(Scope{Kind: ScopeCall, ID: "k1"})
	s.Add(Scope{Kind: ScopeChannel, ID: "c1"})

	want := []Scope{
		{Kind: ScopeChannel, ID: "c1"},
		{Kind: ScopeChannel, ID: "c2"},
		{Kind: ScopeCall, ID: "k1"},
		{Kind: ScopeCall, ID: "k2"},
	}
	require.Equal(t, want, s.Snapshot())
	// snapshot does not consume the set
	require.Equal(t, want, s.Snapshot())
}
