package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
	"github.com/jesus-bazan-entel/apoloteams/internal/state"
	"github.com/jesus-bazan-entel/apoloteams/internal/transport"
)

func dispatch(t *testing.T, r *transport.Router, kind string, payload any) {
	t.Helper()
	data, err := json.Marshal(transport.NewMessage(kind, payload))
	require.NoError(t, err)
	r.Dispatch(data)
}

func TestEventsPresence(t *testing.T) {
	store := state.NewStore()
	r := transport.NewRouter()
	NewEvents(store).Bind(r)

	dispatch(t, r, transport.MsgPresenceChange, transport.PresencePayload{UserID: "alice", Status: "away"})
	require.Equal(t, "away", store.Snapshot().Presence[domain.UserID("alice")])
}

func TestEventsChatActivityPublished(t *testing.T) {
	store := state.NewStore()
	r := transport.NewRouter()
	NewEvents(store).Bind(r)
	ch := store.Subscribe()

	dispatch(t, r, transport.MsgMessageNew, transport.PostPayload{ChannelID: "chan-1", UserID: "alice", Body: "hi"})
	evt := <-ch
	require.Equal(t, transport.MsgMessageNew, evt.Type)
	require.Equal(t, "chan-1", evt.ChannelID)
	require.Equal(t, domain.UserID("alice"), evt.UserID)

	dispatch(t, r, transport.MsgTypingStart, transport.TypingPayload{ChannelID: "chan-1", UserID: "bob"})
	evt = <-ch
	require.Equal(t, transport.MsgTypingStart, evt.Type)
	require.Equal(t, domain.UserID("bob"), evt.UserID)
}

func TestEventsMalformedPayloadDropped(t *testing.T) {
	store := state.NewStore()
	r := transport.NewRouter()
	NewEvents(store).Bind(r)
	ch := store.Subscribe()

	r.Dispatch([]byte(`{"type":"presence_change","payload":"not-an-object"}`))
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %q", evt.Type)
	default:
	}
}
