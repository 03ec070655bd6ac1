package call

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/jesus-bazan-entel/apoloteams/internal/core"
	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
	"github.com/jesus-bazan-entel/apoloteams/internal/rtc"
	"github.com/jesus-bazan-entel/apoloteams/internal/state"
	"github.com/jesus-bazan-entel/apoloteams/internal/transport"
)

var (
	ErrCallInProgress = errors.New("call already in progress")
	ErrNoCall         = errors.New("no active call")
	ErrNoRingingCall  = errors.New("no ringing call")
)

// Signaler is the outbound signaling surface the controller needs from the
// transport.
type Signaler interface {
	Send(msg transport.Message) error
}

type phase int

const (
	phaseIdle phase = iota
	phaseStarting
	phaseActive
	phaseEnding
)

// Controller drives the call lifecycle: start/join/accept/decline/leave/end,
// local media, and the signaling reactions that feed the peer link registry.
// Ringing is orthogonal to the main phase: an invite can arrive while idle.
type Controller struct {
	self    *domain.User
	api     core.CallAPI
	devices core.Devices
	sig     Signaler
	store   *state.Store
	factory core.LinkFactory
	links   *Registry

	fallbackICE []webrtc.ICEServer

	mu      sync.Mutex
	phase   phase
	call    *domain.Call
	ringing *domain.Call
	media   core.LocalMedia
	iceCfg  webrtc.Configuration
	muted   bool
	noVideo bool
}

func NewController(
	self *domain.User,
	api core.CallAPI,
	devices core.Devices,
	sig Signaler,
	store *state.Store,
	factory core.LinkFactory,
) *Controller {
	return &Controller{
		self:        self,
		api:         api,
		devices:     devices,
		sig:         sig,
		store:       store,
		factory:     factory,
		links:       NewRegistry(),
		fallbackICE: rtc.DefaultConfiguration().ICEServers,
	}
}

// Bind registers the controller's signaling handlers on the router.
func (c *Controller) Bind(r *transport.Router) {
	r.Register(transport.MsgCallStarted, c.handleCallStarted)
	r.Register(transport.MsgCallEnded, c.handleCallEnded)
	r.Register(transport.MsgParticipantJoined, c.handleParticipantJoined)
	r.Register(transport.MsgParticipantLeft, c.handleParticipantLeft)
	r.Register(transport.MsgOffer, c.handleOffer)
	r.Register(transport.MsgAnswer, c.handleAnswer)
	r.Register(transport.MsgCandidate, c.handleCandidate)
}

// Links exposes the peer link registry.
func (c *Controller) Links() *Registry { return c.links }

// Current returns a copy of the active call, if any. Callers never see the
// live struct the signal handlers mutate.
func (c *Controller) Current() *domain.Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.call == nil {
		return nil
	}
	return c.call.Clone()
}

// StartCall creates a channel call and activates it locally. Media
// acquisition failure aborts the attempt with no partial state.
func (c *Controller) StartCall(ctx context.Context, channelID domain.ChannelID, kind domain.CallKind) (*domain.Call, error) {
	return c.start(ctx, kind, func() (*domain.Call, error) {
		return c.api.CreateCall(ctx, channelID, kind)
	})
}

// StartDirectCall creates a one-on-one call toward peer.
func (c *Controller) StartDirectCall(ctx context.Context, peer domain.UserID, kind domain.CallKind) (*domain.Call, error) {
	return c.start(ctx, kind, func() (*domain.Call, error) {
		return c.api.CreateDirectCall(ctx, peer, kind)
	})
}

func (c *Controller) start(ctx context.Context, kind domain.CallKind, create func() (*domain.Call, error)) (*domain.Call, error) {
	if err := c.beginStarting(); err != nil {
		return nil, err
	}

	iceCfg := c.fetchICE(ctx)

	media, err := c.devices.Acquire(kind)
	if err != nil {
		c.abortStarting()
		return nil, fmt.Errorf("acquire media: %w", err)
	}

	call, err := create()
	if err != nil {
		media.Stop()
		c.abortStarting()
		return nil, fmt.Errorf("create call: %w", err)
	}

	snap := c.activate(call, media, iceCfg)
	if err := c.sig.Send(transport.NewMessage(transport.MsgJoinCall, transport.CallRefPayload{CallID: string(call.ID)})); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("subscribe call scope")
	}

	log.Info().Str("module", "call").Str("call_id", string(call.ID)).Str("kind", string(kind)).Msg("call started")
	return snap, nil
}

// JoinCall joins an existing call and, per the late-joiner rule, sends an
// offer to every participant already present. Each link exists before its
// offer goes out.
func (c *Controller) JoinCall(ctx context.Context, target *domain.Call) (*domain.Call, error) {
	if err := c.beginStarting(); err != nil {
		return nil, err
	}

	iceCfg := c.fetchICE(ctx)

	media, err := c.devices.Acquire(target.Kind)
	if err != nil {
		c.abortStarting()
		return nil, fmt.Errorf("acquire media: %w", err)
	}

	call, err := c.api.JoinCall(ctx, target.ID)
	if err != nil {
		media.Stop()
		c.abortStarting()
		return nil, fmt.Errorf("join call: %w", err)
	}

	snap := c.activate(call, media, iceCfg)
	if err := c.sig.Send(transport.NewMessage(transport.MsgJoinCall, transport.CallRefPayload{CallID: string(call.ID)})); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("subscribe call scope")
	}

	for _, p := range snap.Participants {
		if p.User.ID == c.self.ID {
			continue
		}
		c.offerTo(snap, p.User.ID)
	}

	log.Info().Str("module", "call").Str("call_id", string(call.ID)).Int("participants", len(snap.Participants)).Msg("joined call")
	return snap, nil
}

// Accept answers the ringing call through the same path as JoinCall.
func (c *Controller) Accept(ctx context.Context) (*domain.Call, error) {
	c.mu.Lock()
	ringing := c.ringing
	c.ringing = nil
	c.mu.Unlock()
	if ringing == nil {
		return nil, ErrNoRingingCall
	}
	c.store.SetRinging(nil)
	return c.JoinCall(ctx, ringing)
}

// Decline clears the ringing call locally. No signal goes to the initiator
// or other participants; the relay converges on its own.
func (c *Controller) Decline() {
	c.mu.Lock()
	had := c.ringing != nil
	c.ringing = nil
	c.mu.Unlock()
	if had {
		c.store.SetRinging(nil)
		log.Info().Str("module", "call").Msg("call declined")
	}
}

// LeaveCall notifies the backend, unsubscribes from the signaling scope and
// tears everything down. Teardown is unconditional even when the notify
// fails.
func (c *Controller) LeaveCall(ctx context.Context) error {
	return c.finish(ctx, false)
}

// EndCall ends the call for every participant.
func (c *Controller) EndCall(ctx context.Context) error {
	return c.finish(ctx, true)
}

func (c *Controller) finish(ctx context.Context, end bool) error {
	c.mu.Lock()
	if c.phase != phaseActive || c.call == nil {
		c.mu.Unlock()
		return ErrNoCall
	}
	c.phase = phaseEnding
	call := c.call
	c.mu.Unlock()

	var apiErr error
	if end {
		apiErr = c.api.EndCall(ctx, call.ID)
	} else {
		apiErr = c.api.LeaveCall(ctx, call.ID)
	}
	if apiErr != nil {
		log.Error().Err(apiErr).Str("module", "call").Str("call_id", string(call.ID)).Msg("notify backend")
	}

	if err := c.sig.Send(transport.NewMessage(transport.MsgLeaveCall, transport.CallRefPayload{CallID: string(call.ID)})); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("unsubscribe call scope")
	}

	c.cleanup()
	log.Info().Str("module", "call").Str("call_id", string(call.ID)).Bool("ended", end).Msg("left call")
	return apiErr
}

// ToggleAudio flips the local audio track in place. Returns the new muted
// state (true = muted). Never renegotiates.
func (c *Controller) ToggleAudio() bool {
	c.mu.Lock()
	if c.media == nil {
		c.mu.Unlock()
		return false
	}
	c.muted = !c.muted
	muted, noVideo := c.muted, c.noVideo
	c.media.SetAudioEnabled(!muted)
	if p, ok := c.participantLocked(c.self.ID); ok {
		p.Muted = muted
	}
	c.mu.Unlock()

	c.store.SetLocalFlags(muted, noVideo)
	return muted
}

// ToggleVideo flips the local video track in place. Returns the new
// disabled state (true = video off).
func (c *Controller) ToggleVideo() bool {
	c.mu.Lock()
	if c.media == nil {
		c.mu.Unlock()
		return false
	}
	c.noVideo = !c.noVideo
	muted, noVideo := c.muted, c.noVideo
	c.media.SetVideoEnabled(!noVideo)
	if p, ok := c.participantLocked(c.self.ID); ok {
		p.VideoEnabled = !noVideo
	}
	c.mu.Unlock()

	c.store.SetLocalFlags(muted, noVideo)
	return noVideo
}

// ---- lifecycle helpers ----

func (c *Controller) beginStarting() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != phaseIdle {
		return ErrCallInProgress
	}
	c.phase = phaseStarting
	return nil
}

func (c *Controller) abortStarting() {
	c.mu.Lock()
	c.phase = phaseIdle
	c.mu.Unlock()
}

// activate installs the call and publishes a clone; the live struct stays
// behind the controller mutex.
func (c *Controller) activate(call *domain.Call, media core.LocalMedia, iceCfg webrtc.Configuration) *domain.Call {
	call.Status = domain.CallStatusActive
	call.AddParticipant(domain.NewParticipant(c.self, call.Kind))
	c.mu.Lock()
	c.phase = phaseActive
	c.call = call
	c.media = media
	c.iceCfg = iceCfg
	c.muted = false
	c.noVideo = call.Kind != domain.CallKindVideo
	snap := call.Clone()
	c.mu.Unlock()
	c.store.SetCall(snap)
	return snap
}

func (c *Controller) cleanup() {
	c.mu.Lock()
	media := c.media
	c.media = nil
	c.call = nil
	c.phase = phaseIdle
	c.muted = false
	c.noVideo = false
	c.mu.Unlock()

	if media != nil {
		media.Stop()
	}
	c.links.CloseAll()
	c.store.ClearCall()
}

// fetchICE asks the backend for the server list, falling back to the fixed
// defaults. A fetch failure never blocks call start.
func (c *Controller) fetchICE(ctx context.Context) webrtc.Configuration {
	servers, err := c.api.ICEServers(ctx)
	if err != nil || len(servers) == 0 {
		if err != nil {
			log.Warn().Err(err).Str("module", "call").Msg("ice fetch failed, using defaults")
		}
		return webrtc.Configuration{ICEServers: c.fallbackICE}
	}
	return webrtc.Configuration{ICEServers: servers}
}

func (c *Controller) participantLocked(id domain.UserID) (*domain.Participant, bool) {
	if c.call == nil {
		return nil, false
	}
	return c.call.Participant(id)
}

// ensureLink returns the peer link for remote, creating and wiring it when
// missing. Local capture tracks are attached before any negotiation step.
func (c *Controller) ensureLink(remote domain.UserID) (*PeerLink, error) {
	c.mu.Lock()
	iceCfg := c.iceCfg
	media := c.media
	callID := ""
	if c.call != nil {
		callID = string(c.call.ID)
	}
	c.mu.Unlock()

	link, created, err := c.links.GetOrCreate(remote, func() (core.MediaLink, error) {
		return c.factory(iceCfg)
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return link, nil
	}

	// the call id is fixed for the life of the link; gathering can outlive
	// cleanup and the frame must still name its call
	link.media.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		c.sendSignal(transport.MsgCandidate, transport.SignalPayload{
			CallID:    callID,
			SenderID:  string(c.self.ID),
			Candidate: &ci,
		})
	})
	link.media.OnTrack(func(track *webrtc.TrackRemote) {
		c.store.SetRemoteStream(remote, track)
	})
	link.media.OnDisconnected(func() {
		c.dropPeer(remote)
	})

	if media != nil {
		for _, t := range media.Tracks() {
			if err := link.media.AddTrack(t); err != nil {
				log.Error().Err(err).Str("module", "call").Str("remote", string(remote)).Msg("add local track")
			}
		}
	}
	return link, nil
}

// dropPeer handles a terminal link failure: the stream and link go away,
// the rest of the call continues. No renegotiation retry.
func (c *Controller) dropPeer(remote domain.UserID) {
	c.store.RemoveRemoteStream(remote)
	c.links.Close(remote)
	log.Warn().Str("module", "call").Str("remote", string(remote)).Msg("peer link dropped")
}

func (c *Controller) offerTo(call *domain.Call, remote domain.UserID) {
	link, err := c.ensureLink(remote)
	if err != nil {
		log.Error().Err(err).Str("module", "call").Str("remote", string(remote)).Msg("create peer link")
		return
	}
	offer, err := link.SendOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "call").Str("remote", string(remote)).Msg("create offer")
		return
	}
	c.sendSignal(transport.MsgOffer, transport.SignalPayload{
		CallID:   string(call.ID),
		SenderID: string(c.self.ID),
		SDP:      offer.SDP,
	})
}

func (c *Controller) sendSignal(kind string, payload transport.SignalPayload) {
	if err := c.sig.Send(transport.NewMessage(kind, payload)); err != nil {
		log.Error().Err(err).Str("module", "call").Str("kind", kind).Msg("send signal")
	}
}
