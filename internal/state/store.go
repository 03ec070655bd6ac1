package state

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
)

// Event is pushed to UI listeners whenever observable state changes.
// Payload-free beyond identifiers; the UI pulls the snapshot it needs.
type Event struct {
	Type      string        `json:"type"`
	UserID    domain.UserID `json:"user_id,omitempty"`
	ChannelID string        `json:"channel_id,omitempty"`
	CallID    domain.CallID `json:"call_id,omitempty"`
}

// View is a JSON-safe snapshot of everything the UI renders.
type View struct {
	Connection string                   `json:"connection"`
	Call       *domain.Call             `json:"call,omitempty"`
	Ringing    *domain.Call             `json:"ringing,omitempty"`
	Muted      bool                     `json:"muted"`
	VideoOff   bool                     `json:"video_off"`
	Streams    []domain.UserID          `json:"streams"`
	Presence   map[domain.UserID]string `json:"presence"`
}

// Store is the shared observable state the core publishes into. Only the
// Connection Manager and Call Session Controller write here; the UI surface
// reads snapshots and listens for events.
type Store struct {
	mu         sync.Mutex
	connection string
	call       *domain.Call
	ringing    *domain.Call
	muted      bool
	videoOff   bool
	streams    map[domain.UserID]*webrtc.TrackRemote
	presence   map[domain.UserID]string
	listeners  []chan Event
}

func NewStore() *Store {
	return &Store{
		connection: "closed",
		streams:    make(map[domain.UserID]*webrtc.TrackRemote),
		presence:   make(map[domain.UserID]string),
	}
}

func (s *Store) SetConnection(state string) {
	s.mu.Lock()
	s.connection = state
	s.mu.Unlock()
	s.notify(Event{Type: "connection"})
}

// SetCall publishes a call snapshot. Callers hand over ownership: they pass
// a clone (domain.Call.Clone) and never touch it again, so the store can
// serve the pointer to readers without copying.
func (s *Store) SetCall(call *domain.Call) {
	s.mu.Lock()
	s.call = call
	s.mu.Unlock()
	if call != nil {
		s.notify(Event{Type: "call", CallID: call.ID})
	} else {
		s.notify(Event{Type: "call"})
	}
}

func (s *Store) ClearCall() {
	s.mu.Lock()
	s.call = nil
	s.muted = false
	s.videoOff = false
	s.streams = make(map[domain.UserID]*webrtc.TrackRemote)
	s.mu.Unlock()
	s.notify(Event{Type: "call"})
}

// SetRinging publishes the ringing call. Same ownership rule as SetCall.
func (s *Store) SetRinging(call *domain.Call) {
	s.mu.Lock()
	s.ringing = call
	s.mu.Unlock()
	if call != nil {
		s.notify(Event{Type: "ringing", CallID: call.ID})
	} else {
		s.notify(Event{Type: "ringing"})
	}
}

func (s *Store) Ringing() *domain.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ringing
}

func (s *Store) SetLocalFlags(muted, videoOff bool) {
	s.mu.Lock()
	s.muted = muted
	s.videoOff = videoOff
	s.mu.Unlock()
	s.notify(Event{Type: "local_media"})
}

func (s *Store) SetRemoteStream(id domain.UserID, track *webrtc.TrackRemote) {
	s.mu.Lock()
	s.streams[id] = track
	s.mu.Unlock()
	s.notify(Event{Type: "stream_added", UserID: id})
}

func (s *Store) RemoveRemoteStream(id domain.UserID) {
	s.mu.Lock()
	_, ok := s.streams[id]
	delete(s.streams, id)
	s.mu.Unlock()
	if ok {
		s.notify(Event{Type: "stream_removed", UserID: id})
	}
}

func (s *Store) RemoteStream(id domain.UserID) (*webrtc.TrackRemote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, ok := s.streams[id]
	return track, ok
}

func (s *Store) SetPresence(id domain.UserID, status string) {
	s.mu.Lock()
	s.presence[id] = status
	s.mu.Unlock()
	s.notify(Event{Type: "presence", UserID: id})
}

// Publish pushes an event without mutating stored state; chat and
// notification handlers use it to surface transient activity.
func (s *Store) Publish(evt Event) {
	s.notify(evt)
}

func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := View{
		Connection: s.connection,
		Muted:      s.muted,
		VideoOff:   s.videoOff,
		Streams:    make([]domain.UserID, 0, len(s.streams)),
		Presence:   make(map[domain.UserID]string, len(s.presence)),
	}
	// call and ringing are snapshots owned by the store; nothing mutates
	// them after SetCall/SetRinging
	view.Call = s.call
	view.Ringing = s.ringing
	for id := range s.streams {
		view.Streams = append(view.Streams, id)
	}
	for id, st := range s.presence {
		view.Presence[id] = st
	}
	return view
}

func (s *Store) Subscribe() chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, 16)
	s.listeners = append(s.listeners, ch)
	return ch
}

func (s *Store) Unsubscribe(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, listener := range s.listeners {
		if listener == ch {
			close(listener)
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Store) notify(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
}
