package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallParticipants(t *testing.T) {
	alice := &User{ID: "alice", Username: "alice"}
	bob := &User{ID: "bob", Username: "bob"}

	call := &Call{ID: "call-1", Kind: CallKindVideo}
	call.AddParticipant(NewParticipant(alice, call.Kind))
	call.AddParticipant(NewParticipant(bob, call.Kind))
	call.AddParticipant(NewParticipant(alice, call.Kind)) // duplicate ignored
	require.Len(t, call.Participants, 2)

	// join order is preserved
	require.Equal(t, UserID("alice"), call.Participants[0].User.ID)
	require.Equal(t, UserID("bob"), call.Participants[1].User.ID)

	p, ok := call.Participant("bob")
	require.True(t, ok)
	require.True(t, p.VideoEnabled)
	require.False(t, p.Muted)

	call.RemoveParticipant("alice")
	require.Len(t, call.Participants, 1)
	_, ok = call.Participant("alice")
	require.False(t, ok)

	call.RemoveParticipant("nobody") // no-op
	require.Len(t, call.Participants, 1)
}

func TestNewParticipantAudioCall(t *testing.T) {
	p := NewParticipant(&User{ID: "alice"}, CallKindAudio)
	require.False(t, p.VideoEnabled)
}

func TestNewUserValidation(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	_, err = NewUser("")
	require.ErrorIs(t, err, ErrUsernameEmpty)

	_, err = NewUser(strings.Repeat("x", MaxUsernameLen+1))
	require.ErrorIs(t, err, ErrUsernameTooLong)

	require.ErrorIs(t, u.SetUsername(""), ErrUsernameEmpty)
	require.NoError(t, u.SetUsername("bob"))
	require.Equal(t, "bob", u.Username)
}
