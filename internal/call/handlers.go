package call

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
	"github.com/jesus-bazan-entel/apoloteams/internal/transport"
)

// CallEventPayload is the call_started / call_ended notification body.
type CallEventPayload struct {
	Call domain.Call `json:"call"`
}

// ParticipantEventPayload is the participant joined/left notification body.
type ParticipantEventPayload struct {
	CallID string      `json:"call_id"`
	User   domain.User `json:"user"`
}

func (c *Controller) handleCallStarted(data []byte) {
	var p CallEventPayload
	if err := transport.DecodePayload(data, &p); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("bad call_started payload")
		return
	}
	if p.Call.Initiator == c.self.ID {
		return
	}

	incoming := p.Call
	incoming.Status = domain.CallStatusRinging
	c.mu.Lock()
	c.ringing = &incoming
	c.mu.Unlock()
	c.store.SetRinging(incoming.Clone())
	log.Info().Str("module", "call").Str("call_id", string(incoming.ID)).Str("initiator", string(incoming.Initiator)).Msg("incoming call")
}

func (c *Controller) handleCallEnded(data []byte) {
	var p CallEventPayload
	if err := transport.DecodePayload(data, &p); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("bad call_ended payload")
		return
	}

	c.mu.Lock()
	ringingMatch := c.ringing != nil && c.ringing.ID == p.Call.ID
	if ringingMatch {
		c.ringing = nil
	}
	activeMatch := c.phase == phaseActive && c.call != nil && c.call.ID == p.Call.ID
	c.mu.Unlock()

	if ringingMatch {
		c.store.SetRinging(nil)
	}
	if activeMatch {
		log.Info().Str("module", "call").Str("call_id", string(p.Call.ID)).Msg("call ended remotely")
		c.cleanup()
	}
}

// handleParticipantJoined pre-creates the peer link without sending an
// offer: the late joiner is the offer sender, this side only waits.
func (c *Controller) handleParticipantJoined(data []byte) {
	var p ParticipantEventPayload
	if err := transport.DecodePayload(data, &p); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("bad participant_joined payload")
		return
	}
	if p.User.ID == c.self.ID {
		return
	}

	c.mu.Lock()
	call := c.call
	active := c.phase == phaseActive && call != nil && string(call.ID) == p.CallID
	var snap *domain.Call
	if active {
		user := p.User
		call.AddParticipant(domain.NewParticipant(&user, call.Kind))
		snap = call.Clone()
	}
	c.mu.Unlock()
	if !active {
		return
	}

	if _, err := c.ensureLink(p.User.ID); err != nil {
		log.Error().Err(err).Str("module", "call").Str("remote", string(p.User.ID)).Msg("pre-create peer link")
		return
	}
	c.store.SetCall(snap)
	log.Info().Str("module", "call").Str("remote", string(p.User.ID)).Msg("participant joined, awaiting offer")
}

func (c *Controller) handleParticipantLeft(data []byte) {
	var p ParticipantEventPayload
	if err := transport.DecodePayload(data, &p); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("bad participant_left payload")
		return
	}

	c.mu.Lock()
	call := c.call
	active := c.phase == phaseActive && call != nil && string(call.ID) == p.CallID
	var snap *domain.Call
	if active {
		call.RemoveParticipant(p.User.ID)
		snap = call.Clone()
	}
	c.mu.Unlock()
	if !active {
		return
	}

	c.store.RemoveRemoteStream(p.User.ID)
	c.links.Close(p.User.ID)
	c.store.SetCall(snap)
	log.Info().Str("module", "call").Str("remote", string(p.User.ID)).Msg("participant left")
}

func (c *Controller) handleOffer(data []byte) {
	p, ok := c.decodeSignal(data, "offer")
	if !ok {
		return
	}

	link, err := c.ensureLink(domain.UserID(p.SenderID))
	if err != nil {
		log.Error().Err(err).Str("module", "call").Str("remote", p.SenderID).Msg("peer link for offer")
		return
	}
	answer, err := link.HandleOffer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: p.SDP})
	if err != nil {
		log.Error().Err(err).Str("module", "call").Str("remote", p.SenderID).Msg("apply offer")
		return
	}
	c.sendSignal(transport.MsgAnswer, transport.SignalPayload{
		CallID:   p.CallID,
		SenderID: string(c.self.ID),
		SDP:      answer.SDP,
	})
}

func (c *Controller) handleAnswer(data []byte) {
	p, ok := c.decodeSignal(data, "answer")
	if !ok {
		return
	}

	link, found := c.links.Get(domain.UserID(p.SenderID))
	if !found {
		log.Warn().Str("module", "call").Str("remote", p.SenderID).Msg("answer without peer link")
		return
	}
	if err := link.HandleAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP}); err != nil {
		log.Error().Err(err).Str("module", "call").Str("remote", p.SenderID).Msg("apply answer")
	}
}

// handleCandidate buffers or applies a candidate depending on whether the
// sender's remote description is in place. A candidate can legitimately
// arrive before the offer that owns it.
func (c *Controller) handleCandidate(data []byte) {
	p, ok := c.decodeSignal(data, "candidate")
	if !ok || p.Candidate == nil {
		return
	}

	link, err := c.ensureLink(domain.UserID(p.SenderID))
	if err != nil {
		log.Error().Err(err).Str("module", "call").Str("remote", p.SenderID).Msg("peer link for candidate")
		return
	}
	if err := link.AddCandidate(*p.Candidate); err != nil {
		log.Error().Err(err).Str("module", "call").Str("remote", p.SenderID).Msg("add candidate")
	}
}

// decodeSignal parses a signaling payload and filters out frames that do
// not belong to the active call or that echo back from self.
func (c *Controller) decodeSignal(data []byte, kind string) (transport.SignalPayload, bool) {
	var p transport.SignalPayload
	if err := transport.DecodePayload(data, &p); err != nil {
		log.Error().Err(err).Str("module", "call").Str("kind", kind).Msg("bad signal payload")
		return p, false
	}
	if p.SenderID == string(c.self.ID) {
		return p, false
	}
	c.mu.Lock()
	active := c.phase == phaseActive && c.call != nil && string(c.call.ID) == p.CallID
	c.mu.Unlock()
	if !active {
		log.Warn().Str("module", "call").Str("kind", kind).Str("call_id", p.CallID).Msg("signal for inactive call")
		return p, false
	}
	return p, true
}
