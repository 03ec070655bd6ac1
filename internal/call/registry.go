package call

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jesus-bazan-entel/apoloteams/internal/core"
	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
)

// Registry owns the peer links of the current call: at most one link per
// remote participant. Creation is idempotent; a second request for the same
// remote returns the existing link.
type Registry struct {
	mu    sync.Mutex
	links map[domain.UserID]*PeerLink
}

func NewRegistry() *Registry {
	return &Registry{links: make(map[domain.UserID]*PeerLink)}
}

// GetOrCreate returns the link for remote, building one through create when
// none exists yet. The second return reports whether a new link was made.
func (r *Registry) GetOrCreate(remote domain.UserID, create func() (core.MediaLink, error)) (*PeerLink, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if link, ok := r.links[remote]; ok {
		return link, false, nil
	}
	media, err := create()
	if err != nil {
		return nil, false, err
	}
	link := newPeerLink(remote, media)
	r.links[remote] = link
	log.Info().Str("module", "call").Str("remote", string(remote)).Msg("peer link created")
	return link, true, nil
}

func (r *Registry) Get(remote domain.UserID) (*PeerLink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[remote]
	return link, ok
}

// Close discards the link for remote, if any.
func (r *Registry) Close(remote domain.UserID) {
	r.mu.Lock()
	link, ok := r.links[remote]
	delete(r.links, remote)
	r.mu.Unlock()
	if ok {
		link.Close()
	}
}

// CloseAll tears down every link regardless of negotiation phase.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	links := r.links
	r.links = make(map[domain.UserID]*PeerLink)
	r.mu.Unlock()
	for _, link := range links {
		link.Close()
	}
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}
