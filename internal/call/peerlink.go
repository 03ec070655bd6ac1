package call

import (
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/jesus-bazan-entel/apoloteams/internal/core"
	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
)

var ErrLinkClosed = errors.New("peer link closed")

type linkPhase int

const (
	phaseNew linkPhase = iota
	phaseOfferSent
	phaseOfferReceived
	phaseHasRemote
	phaseStable
	phaseClosed
)

// PeerLink is one media negotiation unit toward a remote participant,
// scoped to the life of a call. Candidates that race ahead of the
// offer/answer establishing the remote description are buffered FIFO and
// flushed once it applies. The mutex keeps negotiation steps for this
// remote serialized; links for different remotes proceed independently.
type PeerLink struct {
	remote domain.UserID
	media  core.MediaLink

	mu      sync.Mutex
	phase   linkPhase
	pending []webrtc.ICECandidateInit
}

func newPeerLink(remote domain.UserID, media core.MediaLink) *PeerLink {
	return &PeerLink{remote: remote, media: media}
}

func (l *PeerLink) Remote() domain.UserID { return l.remote }

// SendOffer creates and applies the local offer. The caller transmits it.
func (l *PeerLink) SendOffer() (webrtc.SessionDescription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == phaseClosed {
		return webrtc.SessionDescription{}, ErrLinkClosed
	}
	offer, err := l.media.CreateOffer()
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	l.phase = phaseOfferSent
	return offer, nil
}

// HandleOffer applies the remote offer, flushes buffered candidates in
// arrival order, then creates and applies the local answer for the caller
// to transmit.
func (l *PeerLink) HandleOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == phaseClosed {
		return webrtc.SessionDescription{}, ErrLinkClosed
	}
	l.phase = phaseOfferReceived
	if err := l.media.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	l.phase = phaseHasRemote
	l.flushLocked()

	answer, err := l.media.CreateAnswer()
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	l.phase = phaseStable
	return answer, nil
}

// HandleAnswer applies the remote answer and flushes buffered candidates.
func (l *PeerLink) HandleAnswer(answer webrtc.SessionDescription) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == phaseClosed {
		return ErrLinkClosed
	}
	if err := l.media.SetRemoteDescription(answer); err != nil {
		return err
	}
	l.phase = phaseHasRemote
	l.flushLocked()
	l.phase = phaseStable
	return nil
}

// AddCandidate applies ci immediately once a remote description exists;
// before that it is buffered for the flush.
func (l *PeerLink) AddCandidate(ci webrtc.ICECandidateInit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == phaseClosed {
		return ErrLinkClosed
	}
	if l.phase < phaseHasRemote {
		l.pending = append(l.pending, ci)
		return nil
	}
	return l.media.AddICECandidate(ci)
}

func (l *PeerLink) flushLocked() {
	for _, ci := range l.pending {
		if err := l.media.AddICECandidate(ci); err != nil {
			log.Error().Err(err).Str("module", "call").Str("remote", string(l.remote)).Msg("flush candidate")
		}
	}
	l.pending = nil
}

// Close discards the link. Idempotent.
func (l *PeerLink) Close() {
	l.mu.Lock()
	if l.phase == phaseClosed {
		l.mu.Unlock()
		return
	}
	l.phase = phaseClosed
	l.pending = nil
	l.mu.Unlock()

	l.media.Close()
	log.Info().Str("module", "call").Str("remote", string(l.remote)).Msg("peer link closed")
}

func (l *PeerLink) closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase == phaseClosed
}

func (l *PeerLink) buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
