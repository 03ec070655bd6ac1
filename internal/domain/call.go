package domain

type CallID string

type CallKind string

const (
	CallKindAudio CallKind = "audio"
	CallKindVideo CallKind = "video"
)

type CallStatus string

const (
	CallStatusRinging CallStatus = "ringing"
	CallStatusActive  CallStatus = "active"
	CallStatusEnded   CallStatus = "ended"
)

// Participant represents a user's membership in a call with its media flags.
// No transport or negotiation state here.
type Participant struct {
	User         *User `json:"user"`
	Muted        bool  `json:"muted"`
	VideoEnabled bool  `json:"video_enabled"`
}

func NewParticipant(user *User, kind CallKind) *Participant {
	return &Participant{User: user, VideoEnabled: kind == CallKindVideo}
}

// Call identifies one multi-party media session. Participants keep join
// order: index 0 joined first.
type Call struct {
	ID           CallID         `json:"id"`
	ChannelID    ChannelID      `json:"channel_id,omitempty"`
	Kind         CallKind       `json:"kind"`
	Initiator    UserID         `json:"initiator"`
	Status       CallStatus     `json:"status"`
	Participants []*Participant `json:"participants"`
}

// Clone returns a deep copy, participants included. Publishers hand clones
// to readers so the live struct is never shared across goroutines.
func (c *Call) Clone() *Call {
	out := *c
	if c.Participants != nil {
		out.Participants = make([]*Participant, len(c.Participants))
		for i, p := range c.Participants {
			cp := *p
			out.Participants[i] = &cp
		}
	}
	return &out
}

func (c *Call) AddParticipant(p *Participant) {
	for _, existing := range c.Participants {
		if existing.User.ID == p.User.ID {
			return
		}
	}
	c.Participants = append(c.Participants, p)
}

func (c *Call) RemoveParticipant(id UserID) {
	for i, p := range c.Participants {
		if p.User.ID == id {
			c.Participants = append(c.Participants[:i], c.Participants[i+1:]...)
			return
		}
	}
}

func (c *Call) Participant(id UserID) (*Participant, bool) {
	for _, p := range c.Participants {
		if p.User.ID == id {
			return p, true
		}
	}
	return nil, false
}
