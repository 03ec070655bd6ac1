package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultReconnectDelay    = 3 * time.Second
	DefaultReconnectAttempts = 5
)

var ErrNotConnected = errors.New("transport not connected")

// State is the connection lifecycle state.
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen // transport open, not yet authenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

// Socket is one open transport connection. Owned by the Manager; the
// Manager must Close() it.
type Socket interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a Socket against url.
type Dialer func(ctx context.Context, url string) (Socket, error)

type ManagerConfig struct {
	URL               string
	ReconnectDelay    time.Duration
	ReconnectAttempts int
	Dialer            Dialer
}

// Manager owns the single persistent connection: connect, authenticate,
// reconnect, outbound queuing and subscription replay. Inbound frames are
// handed to the Router one at a time, in arrival order.
type Manager struct {
	router *Router
	dialer Dialer
	url    string

	reconnectDelay time.Duration
	maxAttempts    int

	mu       sync.Mutex
	state    State
	sock     Socket
	token    string
	attempts int
	gen      uint64 // bumped on every close; read loops with a stale gen are ignored
	queue    pendingQueue
	subs     *SubscriptionSet

	wmu sync.Mutex // serializes socket writes

	onState func(State)
}

func NewManager(cfg ManagerConfig, router *Router) *Manager {
	m := &Manager{
		router:         router,
		dialer:         cfg.Dialer,
		url:            cfg.URL,
		reconnectDelay: cfg.ReconnectDelay,
		maxAttempts:    cfg.ReconnectAttempts,
		subs:           NewSubscriptionSet(),
	}
	if m.dialer == nil {
		m.dialer = DialWebSocket
	}
	if m.reconnectDelay <= 0 {
		m.reconnectDelay = DefaultReconnectDelay
	}
	if m.maxAttempts <= 0 {
		m.maxAttempts = DefaultReconnectAttempts
	}
	router.Register(MsgAuthSuccess, m.handleAuthSuccess)
	return m
}

// OnStateChange sets a listener mirrored into shared UI state. Must be set
// before Connect.
func (m *Manager) OnStateChange(fn func(State)) { m.onState = fn }

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscriptions exposes the desired-state scope set.
func (m *Manager) Subscriptions() *SubscriptionSet { return m.subs }

func (m *Manager) setState(s State) {
	m.state = s
	if m.onState != nil {
		m.onState(s)
	}
}

// Connect opens the transport and authenticates with token. A no-op when a
// connection is already open or in progress. The token is kept for
// reconnection.
func (m *Manager) Connect(token string) error {
	m.mu.Lock()
	if m.state != StateClosed {
		m.mu.Unlock()
		return nil
	}
	m.token = token
	m.attempts = 0
	m.setState(StateConnecting)
	gen := m.gen
	m.mu.Unlock()

	return m.dial(gen)
}

func (m *Manager) dial(gen uint64) error {
	sock, err := m.dialer(context.Background(), m.url)
	if err != nil {
		log.Error().Err(err).Str("module", "transport").Msg("dial failed")
		m.mu.Lock()
		if gen != m.gen {
			m.mu.Unlock()
			return err
		}
		m.setState(StateClosed)
		m.mu.Unlock()
		m.scheduleReconnect()
		return err
	}

	m.mu.Lock()
	if gen != m.gen {
		// Disconnected while dialing.
		m.mu.Unlock()
		_ = sock.Close()
		return ErrNotConnected
	}
	m.sock = sock
	m.attempts = 0
	m.setState(StateOpen)
	token := m.token
	m.mu.Unlock()

	log.Info().Str("module", "transport").Msg("transport open")

	// The authentication request bypasses the pending queue.
	if err := m.write(sock, NewMessage(MsgAuthenticate, AuthPayload{Token: token})); err != nil {
		m.transportClosed(gen, err)
		return err
	}

	go m.readLoop(sock, gen)
	return nil
}

func (m *Manager) readLoop(sock Socket, gen uint64) {
	for {
		data, err := sock.ReadMessage()
		if err != nil {
			m.transportClosed(gen, err)
			return
		}
		m.router.Dispatch(data)
	}
}

// handleAuthSuccess replays the subscription set, then drains the pending
// queue. Queued join/leave requests are suppressed during the flush: the
// subscription set, not the queue, is authoritative for what the client
// is in, and replaying a stale entry could race the replay in step one.
func (m *Manager) handleAuthSuccess(_ []byte) {
	m.mu.Lock()
	if m.state != StateOpen {
		m.mu.Unlock()
		log.Warn().Str("module", "transport").Msg("auth success in unexpected state")
		return
	}
	m.setState(StateAuthenticated)
	sock := m.sock
	pending := m.queue.drain()
	m.mu.Unlock()

	log.Info().Str("module", "transport").Msg("authenticated")

	for _, sc := range m.subs.Snapshot() {
		if err := m.write(sock, joinMessage(sc)); err != nil {
			return
		}
	}
	for _, msg := range pending {
		if _, isSub := scopeOf(msg); isSub {
			continue
		}
		if err := m.write(sock, msg); err != nil {
			return
		}
	}
}

// Send transmits msg when authenticated and queues it otherwise. Join/leave
// requests always update the subscription set first, even while
// disconnected: the set reflects desired end-state regardless of transport
// state.
func (m *Manager) Send(msg Message) error {
	if sc, ok := scopeOf(msg); ok {
		switch msg.Type {
		case MsgJoinChannel, MsgJoinCall:
			m.subs.Add(sc)
		case MsgLeaveChannel, MsgLeaveCall:
			m.subs.Remove(sc)
		}
	}

	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.queue.append(msg)
		m.mu.Unlock()
		return nil
	}
	sock := m.sock
	m.mu.Unlock()

	return m.write(sock, msg)
}

// Disconnect is the explicit, user-initiated close. It drops the pending
// queue but keeps the subscription set so the next Connect restores prior
// channels. No reconnect is scheduled.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	m.setState(StateClosed)
	m.token = ""
	m.queue.clear()
	sock := m.sock
	m.sock = nil
	m.mu.Unlock()

	if sock != nil {
		_ = sock.Close()
	}
	log.Info().Str("module", "transport").Msg("disconnected")
}

// transportClosed handles a close or error from the peer side.
func (m *Manager) transportClosed(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.setState(StateClosed)
	sock := m.sock
	m.sock = nil
	m.mu.Unlock()

	if sock != nil {
		_ = sock.Close()
	}
	log.Warn().Err(err).Str("module", "transport").Msg("transport closed")
	m.scheduleReconnect()
}

func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.token == "" || m.state != StateClosed {
		m.mu.Unlock()
		return
	}
	if m.attempts >= m.maxAttempts {
		m.mu.Unlock()
		log.Error().Int("attempts", m.maxAttempts).Str("module", "transport").Msg("reconnect attempts exhausted")
		return
	}
	m.attempts++
	attempt := m.attempts
	m.mu.Unlock()

	log.Info().Int("attempt", attempt).Str("module", "transport").Msg("reconnect scheduled")
	time.AfterFunc(m.reconnectDelay, m.reconnect)
}

func (m *Manager) reconnect() {
	m.mu.Lock()
	if m.state != StateClosed || m.token == "" {
		m.mu.Unlock()
		return
	}
	m.setState(StateConnecting)
	gen := m.gen
	m.mu.Unlock()

	_ = m.dial(gen)
}

func (m *Manager) write(sock Socket, msg Message) error {
	if sock == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "transport").Str("kind", msg.Type).Msg("marshal frame")
		return err
	}
	m.wmu.Lock()
	err = sock.WriteMessage(data)
	m.wmu.Unlock()
	if err != nil {
		log.Error().Err(err).Str("module", "transport").Str("kind", msg.Type).Msg("write frame")
	}
	return err
}

// scopeOf extracts the subscription scope of a join/leave request.
func scopeOf(msg Message) (Scope, bool) {
	switch msg.Type {
	case MsgJoinChannel, MsgLeaveChannel:
		var p ChannelPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.ChannelID == "" {
			return Scope{}, false
		}
		return Scope{Kind: ScopeChannel, ID: p.ChannelID}, true
	case MsgJoinCall, MsgLeaveCall:
		var p CallRefPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.CallID == "" {
			return Scope{}, false
		}
		return Scope{Kind: ScopeCall, ID: p.CallID}, true
	}
	return Scope{}, false
}

func joinMessage(sc Scope) Message {
	if sc.Kind == ScopeCall {
		return NewMessage(MsgJoinCall, CallRefPayload{CallID: sc.ID})
	}
	return NewMessage(MsgJoinChannel, ChannelPayload{ChannelID: sc.ID})
}
