package call

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

func cand(id string) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{Candidate: id}
}

func TestPeerLinkBuffersCandidatesUntilRemoteDescription(t *testing.T) {
	media := &fakeMediaLink{}
	link := newPeerLink("peer", media)

	require.NoError(t, link.AddCandidate(cand("a")))
	require.NoError(t, link.AddCandidate(cand("b")))
	require.NoError(t, link.AddCandidate(cand("c")))
	require.Equal(t, 3, link.buffered())
	require.Empty(t, media.appliedCandidates())

	answer, err := link.HandleOffer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "remote-offer"})
	require.NoError(t, err)
	require.Equal(t, "local-answer", answer.SDP)

	// flushed in arrival order
	require.Equal(t, []webrtc.ICECandidateInit{cand("a"), cand("b"), cand("c")}, media.appliedCandidates())
	require.Equal(t, 0, link.buffered())

	// later candidates apply immediately
	require.NoError(t, link.AddCandidate(cand("d")))
	require.Equal(t, 4, len(media.appliedCandidates()))
	require.Equal(t, 0, link.buffered())
}

func TestPeerLinkOfferAnswerRound(t *testing.T) {
	media := &fakeMediaLink{}
	link := newPeerLink("peer", media)

	offer, err := link.SendOffer()
	require.NoError(t, err)
	require.Equal(t, "local-offer", offer.SDP)

	// candidates gathered while the answer is in flight still buffer
	require.NoError(t, link.AddCandidate(cand("early")))
	require.Equal(t, 1, link.buffered())

	require.NoError(t, link.HandleAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "remote-answer"}))
	require.Equal(t, []webrtc.ICECandidateInit{cand("early")}, media.appliedCandidates())
	require.Len(t, media.remoteDescs, 1)
	require.Equal(t, "remote-answer", media.remoteDescs[0].SDP)
}

func TestPeerLinkClose(t *testing.T) {
	media := &fakeMediaLink{}
	link := newPeerLink("peer", media)
	require.NoError(t, link.AddCandidate(cand("a")))

	link.Close()
	link.Close() // idempotent
	require.True(t, link.closed())
	require.Equal(t, 1, media.closeCalls)

	_, err := link.SendOffer()
	require.ErrorIs(t, err, ErrLinkClosed)
	_, err = link.HandleOffer(webrtc.SessionDescription{})
	require.ErrorIs(t, err, ErrLinkClosed)
	require.ErrorIs(t, link.HandleAnswer(webrtc.SessionDescription{}), ErrLinkClosed)
	require.ErrorIs(t, link.AddCandidate(cand("b")), ErrLinkClosed)
}
