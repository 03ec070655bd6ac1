package call

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/jesus-bazan-entel/apoloteams/internal/core"
	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
	"github.com/jesus-bazan-entel/apoloteams/internal/transport"
)

// fakeMediaLink records negotiation steps instead of touching the network.
type fakeMediaLink struct {
	mu          sync.Mutex
	offers      int
	answers     int
	remoteDescs []webrtc.SessionDescription
	candidates  []webrtc.ICECandidateInit
	tracks      int
	closeCalls  int

	offerErr error

	onICE          func(webrtc.ICECandidateInit)
	onTrack        func(*webrtc.TrackRemote)
	onDisconnected func()
}

func (f *fakeMediaLink) CreateOffer() (webrtc.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offerErr != nil {
		return webrtc.SessionDescription{}, f.offerErr
	}
	f.offers++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "local-offer"}, nil
}

func (f *fakeMediaLink) CreateAnswer() (webrtc.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "local-answer"}, nil
}

func (f *fakeMediaLink) SetRemoteDescription(desc webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteDescs = append(f.remoteDescs, desc)
	return nil
}

func (f *fakeMediaLink) AddICECandidate(ci webrtc.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, ci)
	return nil
}

func (f *fakeMediaLink) AddTrack(webrtc.TrackLocal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks++
	return nil
}

func (f *fakeMediaLink) OnICECandidate(fn func(webrtc.ICECandidateInit)) { f.onICE = fn }
func (f *fakeMediaLink) OnTrack(fn func(*webrtc.TrackRemote))           { f.onTrack = fn }
func (f *fakeMediaLink) OnDisconnected(fn func())                       { f.onDisconnected = fn }

func (f *fakeMediaLink) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
}

func (f *fakeMediaLink) appliedCandidates() []webrtc.ICECandidateInit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), f.candidates...)
}

func (f *fakeMediaLink) offerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offers
}

// fakeFactory builds fakeMediaLinks and remembers the configurations used.
type fakeFactory struct {
	mu    sync.Mutex
	cfgs  []webrtc.Configuration
	links []*fakeMediaLink
	err   error
}

func (f *fakeFactory) build(cfg webrtc.Configuration) (core.MediaLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.cfgs = append(f.cfgs, cfg)
	link := &fakeMediaLink{}
	f.links = append(f.links, link)
	return link, nil
}

func (f *fakeFactory) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.links)
}

func (f *fakeFactory) lastCfg() webrtc.Configuration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.cfgs) == 0 {
		return webrtc.Configuration{}
	}
	return f.cfgs[len(f.cfgs)-1]
}

type fakeLocalMedia struct {
	kind domain.CallKind

	mu       sync.Mutex
	audioOn  bool
	videoOn  bool
	stopped  bool
	stopCnt  int
	trackSet []webrtc.TrackLocal
}

func (m *fakeLocalMedia) Kind() domain.CallKind       { return m.kind }
func (m *fakeLocalMedia) Tracks() []webrtc.TrackLocal { return m.trackSet }

func (m *fakeLocalMedia) SetAudioEnabled(enabled bool) {
	m.mu.Lock()
	m.audioOn = enabled
	m.mu.Unlock()
}

func (m *fakeLocalMedia) SetVideoEnabled(enabled bool) {
	m.mu.Lock()
	m.videoOn = enabled
	m.mu.Unlock()
}

func (m *fakeLocalMedia) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.stopCnt++
	m.mu.Unlock()
}

type fakeDevices struct {
	err      error
	acquired []*fakeLocalMedia
}

func (d *fakeDevices) Acquire(kind domain.CallKind) (core.LocalMedia, error) {
	if d.err != nil {
		return nil, d.err
	}
	m := &fakeLocalMedia{kind: kind, audioOn: true, videoOn: kind == domain.CallKindVideo}
	d.acquired = append(d.acquired, m)
	return m, nil
}

// fakeBackend cans the call-management responses.
type fakeBackend struct {
	call    *domain.Call
	created *domain.Call

	createErr error
	joinErr   error

	ice    []webrtc.ICEServer
	iceErr error

	createCalls int
	joinCalls   int
	leaveCalls  int
	endCalls    int
}

func (b *fakeBackend) CreateCall(_ context.Context, channelID domain.ChannelID, kind domain.CallKind) (*domain.Call, error) {
	b.createCalls++
	if b.createErr != nil {
		return nil, b.createErr
	}
	call := *b.call
	call.ChannelID = channelID
	call.Kind = kind
	b.created = &call
	return &call, nil
}

func (b *fakeBackend) CreateDirectCall(_ context.Context, _ domain.UserID, kind domain.CallKind) (*domain.Call, error) {
	b.createCalls++
	if b.createErr != nil {
		return nil, b.createErr
	}
	call := *b.call
	call.Kind = kind
	b.created = &call
	return &call, nil
}

func (b *fakeBackend) JoinCall(_ context.Context, id domain.CallID) (*domain.Call, error) {
	b.joinCalls++
	if b.joinErr != nil {
		return nil, b.joinErr
	}
	call := *b.call
	call.ID = id
	call.Participants = append([]*domain.Participant(nil), b.call.Participants...)
	return &call, nil
}

func (b *fakeBackend) LeaveCall(context.Context, domain.CallID) error {
	b.leaveCalls++
	return nil
}

func (b *fakeBackend) EndCall(context.Context, domain.CallID) error {
	b.endCalls++
	return nil
}

func (b *fakeBackend) ICEServers(context.Context) ([]webrtc.ICEServer, error) {
	if b.iceErr != nil {
		return nil, b.iceErr
	}
	return b.ice, nil
}

// fakeSignaler records every outbound frame.
type fakeSignaler struct {
	mu   sync.Mutex
	sent []transport.Message
	err  error
}

func (s *fakeSignaler) Send(msg transport.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSignaler) byKind(kind string) []transport.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []transport.Message
	for _, msg := range s.sent {
		if msg.Type == kind {
			out = append(out, msg)
		}
	}
	return out
}

func (s *fakeSignaler) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, msg := range s.sent {
		out = append(out, msg.Type)
	}
	return out
}

// signalEnvelope re-frames an outbound Message so payloads can be decoded
// with the same helper the handlers use.
func signalEnvelope(t *testing.T, msg transport.Message) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}

func signalFrame(t *testing.T, kind string, p transport.SignalPayload) []byte {
	t.Helper()
	data, err := json.Marshal(transport.NewMessage(kind, p))
	if err != nil {
		t.Fatalf("marshal signal frame: %v", err)
	}
	return data
}

func eventFrame(t *testing.T, kind string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(transport.NewMessage(kind, payload))
	if err != nil {
		t.Fatalf("marshal event frame: %v", err)
	}
	return data
}
