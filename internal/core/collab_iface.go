package core

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
)

// CallAPI is the request/response backend for call management.
type CallAPI interface {
	CreateCall(ctx context.Context, channelID domain.ChannelID, kind domain.CallKind) (*domain.Call, error)
	CreateDirectCall(ctx context.Context, peer domain.UserID, kind domain.CallKind) (*domain.Call, error)
	JoinCall(ctx context.Context, id domain.CallID) (*domain.Call, error)
	LeaveCall(ctx context.Context, id domain.CallID) error
	EndCall(ctx context.Context, id domain.CallID) error
	// ICEServers fetches a fresh server list. Fetched per call, never cached.
	ICEServers(ctx context.Context) ([]webrtc.ICEServer, error)
}

// Identity resolves the authenticated user.
type Identity interface {
	Me(ctx context.Context) (*domain.User, error)
}

// LocalMedia is one acquired capture session. Enable toggles flip tracks in
// place without renegotiation; Stop releases the devices.
type LocalMedia interface {
	Kind() domain.CallKind
	Tracks() []webrtc.TrackLocal
	SetAudioEnabled(enabled bool)
	SetVideoEnabled(enabled bool)
	Stop()
}

// Devices acquires local capture for a call of the given kind.
type Devices interface {
	Acquire(kind domain.CallKind) (LocalMedia, error)
}

// TokenSource supplies the bearer token for backend requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to a TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return TokenFunc(func(context.Context) (string, error) { return token, nil })
}
