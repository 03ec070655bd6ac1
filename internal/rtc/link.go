package rtc

import (
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/jesus-bazan-entel/apoloteams/internal/core"
)

// DefaultConfiguration is the fixed fallback when the ICE-server fetch fails.
func DefaultConfiguration() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// NewFactory returns a LinkFactory whose links share one webrtc.API.
// populate registers the capture codecs on the media engine; when nil the
// default codecs are used.
func NewFactory(populate func(*webrtc.MediaEngine)) (core.LinkFactory, error) {
	engine := &webrtc.MediaEngine{}
	if populate != nil {
		populate(engine)
	} else if err := engine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(engine, registry); err != nil {
		return nil, err
	}
	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(engine),
		webrtc.WithInterceptorRegistry(registry),
	)

	return func(cfg webrtc.Configuration) (core.MediaLink, error) {
		return newLink(api, cfg)
	}, nil
}

// Link implements core.MediaLink over a pion PeerConnection with trickle ICE.
type Link struct {
	pc *webrtc.PeerConnection

	onICE          func(webrtc.ICECandidateInit)
	onTrack        func(*webrtc.TrackRemote)
	onDisconnected func()
}

func newLink(api *webrtc.API, cfg webrtc.Configuration) (*Link, error) {
	pc, err := api.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	l := &Link{pc: pc}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && l.onICE != nil {
			l.onICE(cand.ToJSON())
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("remote track")
		if l.onTrack != nil {
			l.onTrack(track)
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("peer_connection_state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateDisconnected {
			if l.onDisconnected != nil {
				l.onDisconnected()
			}
		}
	})

	return l, nil
}

func (l *Link) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return offer, nil
}

func (l *Link) CreateAnswer() (webrtc.SessionDescription, error) {
	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return answer, nil
}

func (l *Link) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return l.pc.SetRemoteDescription(desc)
}

func (l *Link) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return l.pc.AddICECandidate(ci)
}

func (l *Link) AddTrack(track webrtc.TrackLocal) error {
	_, err := l.pc.AddTrack(track)
	return err
}

func (l *Link) OnICECandidate(fn func(webrtc.ICECandidateInit)) { l.onICE = fn }

func (l *Link) OnTrack(fn func(*webrtc.TrackRemote)) { l.onTrack = fn }

func (l *Link) OnDisconnected(fn func()) { l.onDisconnected = fn }

func (l *Link) Close() {
	if err := l.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Msg("close error")
	}
}
