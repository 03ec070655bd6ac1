package transport

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Message kinds carried over the persistent connection. Outbound kinds are
// what this client writes; inbound kinds are routed by the Router.
const (
	// outbound
	MsgAuthenticate = "authenticate"
	MsgJoinChannel  = "join_channel"
	MsgLeaveChannel = "leave_channel"
	MsgSendMessage  = "send_message"
	MsgJoinCall     = "join_call"
	MsgLeaveCall    = "leave_call"

	// both directions
	MsgOffer     = "webrtc_offer"
	MsgAnswer    = "webrtc_answer"
	MsgCandidate = "webrtc_candidate"

	// inbound
	MsgAuthSuccess       = "auth_success"
	MsgMessageNew        = "message_new"
	MsgMessageUpdated    = "message_updated"
	MsgMessageDeleted    = "message_deleted"
	MsgTypingStart       = "typing_start"
	MsgTypingStop        = "typing_stop"
	MsgPresenceChange    = "presence_change"
	MsgChannelMembership = "channel_membership"
	MsgCallStarted       = "call_started"
	MsgCallEnded         = "call_ended"
	MsgParticipantJoined = "call_participant_joined"
	MsgParticipantLeft   = "call_participant_left"
	MsgMeetingInvite     = "meeting_invite"
	MsgMeetingUpdate     = "meeting_update"
	MsgMeetingCancel     = "meeting_cancel"
	MsgNotification      = "notification"
	MsgError             = "error"
)

// Message is the tagged envelope every frame on the wire uses.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds an envelope around payload. A payload that fails to
// marshal is a programming error; it is logged and the envelope goes out
// empty, mirroring how unparseable inbound frames are dropped.
func NewMessage(kind string, payload any) Message {
	if payload == nil {
		return Message{Type: kind}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("module", "transport").Str("kind", kind).Msg("marshal payload")
		return Message{Type: kind}
	}
	return Message{Type: kind, Payload: raw}
}

// DecodePayload unmarshals the payload of a raw inbound frame into v.
func DecodePayload(data []byte, v any) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	return json.Unmarshal(msg.Payload, v)
}

type AuthPayload struct {
	Token string `json:"token"`
}

type ChannelPayload struct {
	ChannelID string `json:"channel_id"`
}

type CallRefPayload struct {
	CallID string `json:"call_id"`
}

type PostPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Body      string `json:"body,omitempty"`
	CreateAt  int64  `json:"create_at,omitempty"`
}

type TypingPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

type PresencePayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type MembershipPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Action    string `json:"action"` // added | removed
}

type MeetingPayload struct {
	MeetingID string `json:"meeting_id"`
	ChannelID string `json:"channel_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	StartAt   int64  `json:"start_at,omitempty"`
}

type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// SignalPayload carries WebRTC negotiation data. There is no recipient id:
// the relay fans the message out to every other call member and receivers
// match on SenderID.
type SignalPayload struct {
	CallID    string                   `json:"call_id"`
	SenderID  string                   `json:"sender_id"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}
