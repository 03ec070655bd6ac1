// Package media acquires local camera/microphone capture via pion/mediadevices.
package media

import (
	"fmt"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/jesus-bazan-entel/apoloteams/internal/core"
	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
)

// Devices implements core.Devices with VP8 video and Opus audio.
type Devices struct {
	codec *mediadevices.CodecSelector
}

func NewDevices() (*Devices, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("vp8 params: %w", err)
	}
	vpxParams.BitRate = 1_500_000

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("opus params: %w", err)
	}

	selector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)
	return &Devices{codec: selector}, nil
}

// Populate registers the capture codecs on a media engine so peer
// connections negotiate what the encoders produce.
func (d *Devices) Populate(engine *webrtc.MediaEngine) {
	d.codec.Populate(engine)
}

// Acquire opens microphone capture, plus camera capture for video calls.
// Errors are returned as-is; the caller decides whether to abort.
func (d *Devices) Acquire(kind domain.CallKind) (core.LocalMedia, error) {
	constraints := mediadevices.MediaStreamConstraints{
		Codec: d.codec,
		Audio: func(c *mediadevices.MediaTrackConstraints) {},
	}
	if kind == domain.CallKindVideo {
		constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
			c.FrameFormat = prop.FrameFormat(frame.FormatI420)
			c.Width = prop.Int(640)
			c.Height = prop.Int(480)
		}
	}

	stream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		return nil, fmt.Errorf("get user media: %w", err)
	}
	log.Info().Str("module", "media").Str("kind", string(kind)).Int("tracks", len(stream.GetTracks())).Msg("local media acquired")
	return &localMedia{kind: kind, stream: stream}, nil
}

type localMedia struct {
	kind   domain.CallKind
	stream mediadevices.MediaStream

	mu       sync.Mutex
	audioOff bool
	videoOff bool
	stopped  bool
}

func (m *localMedia) Kind() domain.CallKind { return m.kind }

func (m *localMedia) Tracks() []webrtc.TrackLocal {
	tracks := m.stream.GetTracks()
	out := make([]webrtc.TrackLocal, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t)
	}
	return out
}

// SetAudioEnabled toggles the capture flag. The encoder keeps running; the
// flag is what the call state mirrors to the UI.
func (m *localMedia) SetAudioEnabled(enabled bool) {
	m.mu.Lock()
	m.audioOff = !enabled
	m.mu.Unlock()
	log.Info().Str("module", "media").Bool("enabled", enabled).Msg("audio toggled")
}

func (m *localMedia) SetVideoEnabled(enabled bool) {
	m.mu.Lock()
	m.videoOff = !enabled
	m.mu.Unlock()
	log.Info().Str("module", "media").Bool("enabled", enabled).Msg("video toggled")
}

// Stop closes every capture track. Idempotent.
func (m *localMedia) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	for _, t := range m.stream.GetTracks() {
		if err := t.Close(); err != nil {
			log.Error().Err(err).Str("module", "media").Str("track", t.ID()).Msg("close track")
		}
	}
	log.Info().Str("module", "media").Msg("local media stopped")
}
