package core

import "github.com/pion/webrtc/v4"

// MediaLink is the negotiation backend for one remote participant.
// Implementations wrap a single peer connection; callbacks must be set
// before the first negotiation step.
type MediaLink interface {
	// CreateOffer creates a local offer and applies it as the local description.
	CreateOffer() (webrtc.SessionDescription, error)
	// CreateAnswer creates a local answer and applies it as the local description.
	CreateAnswer() (webrtc.SessionDescription, error)
	// SetRemoteDescription applies the remote offer or answer.
	SetRemoteDescription(webrtc.SessionDescription) error
	// AddICECandidate applies a remote ICE candidate. Callers must ensure a
	// remote description is already applied.
	AddICECandidate(webrtc.ICECandidateInit) error
	// AddTrack attaches a local capture track to the underlying connection.
	AddTrack(webrtc.TrackLocal) error
	// OnICECandidate sets a callback for newly gathered local ICE candidates.
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnTrack sets a callback that fires when a remote media track arrives.
	OnTrack(func(*webrtc.TrackRemote))
	// OnDisconnected sets a callback for terminal failure/disconnection.
	OnDisconnected(func())
	// Close releases the underlying connection.
	Close()
}

// LinkFactory builds a MediaLink against the given ICE configuration.
type LinkFactory func(cfg webrtc.Configuration) (MediaLink, error)
