package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
)

func TestStoreNotifiesSubscribers(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()

	s.SetConnection("authenticated")
	evt := <-ch
	require.Equal(t, "connection", evt.Type)

	call := &domain.Call{ID: "call-1", Kind: domain.CallKindAudio}
	s.SetCall(call)
	evt = <-ch
	require.Equal(t, "call", evt.Type)
	require.Equal(t, domain.CallID("call-1"), evt.CallID)

	view := s.Snapshot()
	require.Equal(t, "authenticated", view.Connection)
	require.NotNil(t, view.Call)
	require.Equal(t, domain.CallID("call-1"), view.Call.ID)
}

func TestStoreClearCallResetsCallScopedState(t *testing.T) {
	s := NewStore()
	s.SetCall(&domain.Call{ID: "call-1"})
	s.SetLocalFlags(true, true)
	s.SetRemoteStream("alice", nil)
	s.SetPresence("alice", "online")

	s.ClearCall()
	view := s.Snapshot()
	require.Nil(t, view.Call)
	require.False(t, view.Muted)
	require.False(t, view.VideoOff)
	require.Empty(t, view.Streams)
	// presence outlives any single call
	require.Equal(t, "online", view.Presence["alice"])
}

func TestStoreRemoveRemoteStreamOnlyNotifiesWhenPresent(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()

	s.RemoveRemoteStream("nobody")
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %q", evt.Type)
	default:
	}

	s.SetRemoteStream("alice", nil)
	<-ch
	s.RemoveRemoteStream("alice")
	evt := <-ch
	require.Equal(t, "stream_removed", evt.Type)
	require.Equal(t, domain.UserID("alice"), evt.UserID)
}

func TestStoreSlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewStore()
	_ = s.Subscribe() // never drained

	for i := 0; i < 64; i++ {
		s.SetPresence("alice", "online")
	}
	// reaching here means notify dropped events instead of blocking
}

func TestStoreUnsubscribeClosesChannel(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()
	s.Unsubscribe(ch)

	_, ok := <-ch
	require.False(t, ok)

	s.SetConnection("open") // no panic on send to removed listener
}
