// Package app binds the non-call inbound kinds to the shared state store.
package app

import (
	"github.com/rs/zerolog/log"

	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
	"github.com/jesus-bazan-entel/apoloteams/internal/state"
	"github.com/jesus-bazan-entel/apoloteams/internal/transport"
)

// Events surfaces chat, presence and notification traffic to the UI. The
// store is the only thing it writes; message CRUD itself lives behind the
// REST collaborator.
type Events struct {
	store *state.Store
}

func NewEvents(store *state.Store) *Events {
	return &Events{store: store}
}

func (e *Events) Bind(r *transport.Router) {
	r.Register(transport.MsgMessageNew, e.postHandler(transport.MsgMessageNew))
	r.Register(transport.MsgMessageUpdated, e.postHandler(transport.MsgMessageUpdated))
	r.Register(transport.MsgMessageDeleted, e.postHandler(transport.MsgMessageDeleted))
	r.Register(transport.MsgTypingStart, e.typingHandler(transport.MsgTypingStart))
	r.Register(transport.MsgTypingStop, e.typingHandler(transport.MsgTypingStop))
	r.Register(transport.MsgPresenceChange, e.handlePresence)
	r.Register(transport.MsgChannelMembership, e.handleMembership)
	r.Register(transport.MsgMeetingInvite, e.meetingHandler(transport.MsgMeetingInvite))
	r.Register(transport.MsgMeetingUpdate, e.meetingHandler(transport.MsgMeetingUpdate))
	r.Register(transport.MsgMeetingCancel, e.meetingHandler(transport.MsgMeetingCancel))
	r.Register(transport.MsgNotification, e.handleNotification)
	r.Register(transport.MsgError, e.handleError)
}

func (e *Events) postHandler(kind string) transport.Handler {
	return func(data []byte) {
		var p transport.PostPayload
		if err := transport.DecodePayload(data, &p); err != nil {
			log.Error().Err(err).Str("module", "app").Str("kind", kind).Msg("bad message payload")
			return
		}
		e.store.Publish(state.Event{Type: kind, UserID: domain.UserID(p.UserID), ChannelID: p.ChannelID})
	}
}

func (e *Events) typingHandler(kind string) transport.Handler {
	return func(data []byte) {
		var p transport.TypingPayload
		if err := transport.DecodePayload(data, &p); err != nil {
			log.Error().Err(err).Str("module", "app").Str("kind", kind).Msg("bad typing payload")
			return
		}
		e.store.Publish(state.Event{Type: kind, UserID: domain.UserID(p.UserID), ChannelID: p.ChannelID})
	}
}

func (e *Events) handlePresence(data []byte) {
	var p transport.PresencePayload
	if err := transport.DecodePayload(data, &p); err != nil {
		log.Error().Err(err).Str("module", "app").Msg("bad presence payload")
		return
	}
	e.store.SetPresence(domain.UserID(p.UserID), p.Status)
}

func (e *Events) handleMembership(data []byte) {
	var p transport.MembershipPayload
	if err := transport.DecodePayload(data, &p); err != nil {
		log.Error().Err(err).Str("module", "app").Msg("bad membership payload")
		return
	}
	log.Info().Str("module", "app").Str("channel", p.ChannelID).Str("user", p.UserID).Str("action", p.Action).Msg("membership change")
	e.store.Publish(state.Event{Type: transport.MsgChannelMembership, UserID: domain.UserID(p.UserID), ChannelID: p.ChannelID})
}

func (e *Events) meetingHandler(kind string) transport.Handler {
	return func(data []byte) {
		var p transport.MeetingPayload
		if err := transport.DecodePayload(data, &p); err != nil {
			log.Error().Err(err).Str("module", "app").Str("kind", kind).Msg("bad meeting payload")
			return
		}
		e.store.Publish(state.Event{Type: kind, ChannelID: p.ChannelID})
	}
}

func (e *Events) handleNotification(data []byte) {
	var p transport.NotificationPayload
	if err := transport.DecodePayload(data, &p); err != nil {
		log.Error().Err(err).Str("module", "app").Msg("bad notification payload")
		return
	}
	log.Info().Str("module", "app").Str("title", p.Title).Msg("notification")
	e.store.Publish(state.Event{Type: transport.MsgNotification})
}

func (e *Events) handleError(data []byte) {
	var p transport.ErrorPayload
	if err := transport.DecodePayload(data, &p); err != nil {
		log.Error().Err(err).Str("module", "app").Msg("bad error payload")
		return
	}
	log.Error().Str("module", "app").Str("code", p.Code).Str("message", p.Message).Msg("server error")
}
