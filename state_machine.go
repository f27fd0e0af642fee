package session

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Listener receives a session snapshot after every state change.
type Listener func(Session)

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithLogger overrides the default logger.
func WithLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithCodec swaps the token codec. The default is LegacyCodec; pass a
// SignedCodec to opt into verified, expiring tokens.
func WithCodec(codec TokenCodec) ManagerOption {
	return func(m *Manager) {
		if codec != nil {
			m.codec = codec
		}
	}
}

// WithTokenValidity overrides the validity window stamped into new tokens.
func WithTokenValidity(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.validity = d
		}
	}
}

// WithActivitySink sets the ActivitySink used to publish lifecycle events.
func WithActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.sink = normalizeActivitySink(sink)
	}
}

// WithRestoreDelay enforces a minimum time spent in StateRestoring so a
// fast restore does not flash the waiting state. UX smoothing only, off by
// default; Restore still terminates when ctx is done.
func WithRestoreDelay(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.restoreDelay = d
		}
	}
}

// Manager is the session state machine: the single source of truth for
// identity state and the only component allowed to mutate the Session or
// write to the Store. Consumers read snapshots via Current or Subscribe.
type Manager struct {
	mu           sync.Mutex
	current      Session
	store        Store
	client       IdentityClient
	codec        TokenCodec
	logger       Logger
	sink         ActivitySink
	now          func() time.Time
	validity     time.Duration
	restoreDelay time.Duration
	restored     bool
	loginSeq     uint64
	listeners    map[int]Listener
	nextListener int
	transitions  map[State]map[State]struct{}
}

// NewManager returns a Manager in StateRestoring backed by the given store
// and identity client.
func NewManager(store Store, client IdentityClient, opts ...ManagerOption) *Manager {
	m := &Manager{
		current:   Session{State: StateRestoring},
		store:     store,
		client:    client,
		codec:     LegacyCodec{},
		logger:    defLogger{},
		sink:      noopActivitySink{},
		now:       time.Now,
		validity:  DefaultTokenValidity,
		listeners: map[int]Listener{},
		transitions: map[State]map[State]struct{}{
			StateRestoring: {
				StateAuthenticated: {},
				StateAnonymous:     {},
			},
			StateAnonymous: {
				StateAuthenticating: {},
				StateAnonymous:      {},
				StateAuthFailed:     {},
			},
			StateAuthFailed: {
				StateAuthenticating: {},
				StateAnonymous:      {},
				StateAuthFailed:     {},
			},
			StateAuthenticating: {
				StateAuthenticated:  {},
				StateAuthFailed:     {},
				StateAuthenticating: {},
				StateAnonymous:      {},
			},
			StateAuthenticated: {
				StateAuthenticating: {},
				StateAnonymous:      {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Current returns a point-in-time copy of the session. The embedded user
// record is cloned so readers cannot mutate the live value.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers a listener notified after every state change. The
// returned function unsubscribes it.
func (m *Manager) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextListener
	m.nextListener++
	m.listeners[id] = l

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Restore reads the Store once to decide the initial state. A decodable
// record moves the machine to StateAuthenticated without consulting the
// identity service: the stored token is trusted as-is and its expiry is not
// checked, matching the behavior the dashboard client has always had. Any
// read or parse failure wipes the store and lands in StateAnonymous.
// Calling Restore again is a no-op returning the current snapshot.
func (m *Manager) Restore(ctx context.Context) Session {
	m.mu.Lock()
	if m.restored {
		defer m.mu.Unlock()
		return m.snapshotLocked()
	}
	m.restored = true
	m.mu.Unlock()

	start := m.now()

	user, token, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("Restore could not read persisted session: %v", err)
	}

	valid := err == nil && user != nil && token != ""
	if valid {
		if _, derr := m.codec.Decode(token); derr != nil {
			m.logger.Warn("Restore found undecodable token, discarding session: %v", derr)
			m.record(ctx, ActivityEventStoreCorruption, user.ID, map[string]any{
				"error": derr.Error(),
			})
			valid = false
		}
	}

	if !valid {
		// wipe any partial record so the failure does not repeat on
		// the next boot
		if cerr := m.store.Clear(ctx); cerr != nil {
			m.logger.Warn("Restore store wipe failed: %v", cerr)
		}
	}

	m.waitRestoreDelay(ctx, start)

	if valid {
		snapshot, aerr := m.apply(StateAuthenticated, func(s *Session) {
			s.User = user
			s.Token = token
			s.Err = ""
		})
		if aerr == nil {
			m.record(ctx, ActivityEventRestored, user.ID, nil)
		}
		return snapshot
	}

	snapshot, _ := m.apply(StateAnonymous, func(s *Session) {
		s.User = nil
		s.Token = ""
		s.Err = ""
	})
	m.record(ctx, ActivityEventRestoreEmpty, 0, nil)
	return snapshot
}

// Login authenticates against the identity service. Empty or malformed
// credentials fail immediately without a network call. A later Login
// supersedes an earlier in-flight one: the stale attempt's result is
// discarded and it returns ErrLoginSuperseded. Failures resolve into the
// session's Err field and the returned error; nothing panics through this
// boundary.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Session, error) {
	if err := creds.Validate(); err != nil {
		return m.rejectInvalidLogin(ctx, err)
	}

	m.mu.Lock()
	m.loginSeq++
	attempt := m.loginSeq
	snapshot, err := m.applyLocked(StateAuthenticating, func(s *Session) {
		s.Err = ""
	})
	m.mu.Unlock()
	if err != nil {
		return snapshot, err
	}
	m.notify(snapshot)

	user, authErr := m.client.Authenticate(ctx, creds)

	m.mu.Lock()
	if attempt != m.loginSeq {
		current := m.snapshotLocked()
		m.mu.Unlock()
		m.logger.Debug("Login attempt %d superseded by a later attempt", attempt)
		m.record(ctx, ActivityEventLoginSuperseded, 0, map[string]any{
			"email": creds.Email,
		})
		return current, ErrLoginSuperseded
	}

	if authErr != nil {
		snapshot, _ = m.applyLocked(StateAuthFailed, func(s *Session) {
			s.User = nil
			s.Token = ""
			s.Err = UserMessage(authErr)
		})
		m.mu.Unlock()
		m.notify(snapshot)
		m.record(ctx, ActivityEventLoginFailure, 0, map[string]any{
			"email": creds.Email,
			"error": authErr.Error(),
		})
		return snapshot, authErr
	}

	token, tokenErr := m.codec.Encode(NewTokenClaims(user, m.now(), m.validity))
	if tokenErr != nil {
		snapshot, _ = m.applyLocked(StateAuthFailed, func(s *Session) {
			s.User = nil
			s.Token = ""
			s.Err = UserMessage(tokenErr)
		})
		m.mu.Unlock()
		m.notify(snapshot)
		m.logger.Error("Login token encode failed: %v", tokenErr)
		return snapshot, tokenErr
	}

	if serr := m.store.Save(ctx, user, token); serr != nil {
		// the session still lives in memory; it just won't survive
		// a restart
		m.logger.Error("Login could not persist session: %v", serr)
	}

	snapshot, _ = m.applyLocked(StateAuthenticated, func(s *Session) {
		s.User = user
		s.Token = token
		s.Err = ""
	})
	m.mu.Unlock()
	m.notify(snapshot)
	m.record(ctx, ActivityEventLoginSuccess, user.ID, map[string]any{
		"email": creds.Email,
	})
	return snapshot, nil
}

// Register creates an account through the identity service. Registration
// deliberately does not establish a session; callers log in afterwards.
func (m *Manager) Register(ctx context.Context, reg Registration) (*User, error) {
	if err := reg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithCode(goerrors.CodeBadRequest)
	}

	user, err := m.client.Register(ctx, reg)
	if err != nil {
		m.record(ctx, ActivityEventRegisterFailure, 0, map[string]any{
			"email": reg.Email,
			"error": err.Error(),
		})
		return nil, err
	}

	m.record(ctx, ActivityEventRegisterSuccess, user.ID, map[string]any{
		"email": reg.Email,
	})
	return user, nil
}

// Logout erases the persisted session and lands in StateAnonymous. It is
// idempotent and also invalidates any login attempt still in flight.
func (m *Manager) Logout(ctx context.Context) Session {
	m.mu.Lock()
	m.loginSeq++
	wasAuthenticated := m.current.IsAuthenticated()
	var userID int64
	if m.current.User != nil {
		userID = m.current.User.ID
	}
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("Logout store clear failed: %v", err)
	}

	m.mu.Lock()
	snapshot, _ := m.applyLocked(StateAnonymous, func(s *Session) {
		s.User = nil
		s.Token = ""
		s.Err = ""
	})
	m.mu.Unlock()
	m.notify(snapshot)

	if wasAuthenticated {
		m.record(ctx, ActivityEventLogout, userID, nil)
	}

	return snapshot
}

// ClearError resets the error message without other side effects.
func (m *Manager) ClearError() Session {
	m.mu.Lock()
	m.current.Err = ""
	snapshot := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snapshot)
	return snapshot
}

func (m *Manager) rejectInvalidLogin(ctx context.Context, err error) (Session, error) {
	loginErr := ErrEmptyCredentials
	msg := UserMessage(loginErr)

	m.mu.Lock()
	var snapshot Session
	if m.current.IsAuthenticated() {
		// do not tear down a live session over a bad resubmission
		m.current.Err = msg
		snapshot = m.snapshotLocked()
	} else {
		snapshot, _ = m.applyLocked(StateAuthFailed, func(s *Session) {
			s.User = nil
			s.Token = ""
			s.Err = msg
		})
	}
	m.mu.Unlock()
	m.notify(snapshot)

	m.logger.Debug("Login rejected before network call: %v", err)
	return snapshot, loginErr
}

// apply locks, transitions, and notifies.
func (m *Manager) apply(to State, mutate func(*Session)) (Session, error) {
	m.mu.Lock()
	snapshot, err := m.applyLocked(to, mutate)
	m.mu.Unlock()
	if err == nil {
		m.notify(snapshot)
	}
	return snapshot, err
}

func (m *Manager) applyLocked(to State, mutate func(*Session)) (Session, error) {
	from := m.current.State
	if !m.canTransition(from, to) {
		m.logger.Error("invalid session transition from %s to %s", from, to)
		return m.snapshotLocked(), ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   to,
		})
	}

	m.current.State = to
	if mutate != nil {
		mutate(&m.current)
	}
	return m.snapshotLocked(), nil
}

func (m *Manager) canTransition(from, to State) bool {
	if allowed, ok := m.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (m *Manager) snapshotLocked() Session {
	snapshot := m.current
	if snapshot.User != nil {
		clone := *snapshot.User
		snapshot.User = &clone
	}
	return snapshot
}

func (m *Manager) notify(snapshot Session) {
	m.mu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		if l != nil {
			listeners = append(listeners, l)
		}
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func (m *Manager) waitRestoreDelay(ctx context.Context, start time.Time) {
	if m.restoreDelay <= 0 {
		return
	}

	remaining := m.restoreDelay - m.now().Sub(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (m *Manager) record(ctx context.Context, eventType ActivityEventType, userID int64, metadata map[string]any) {
	event := ActivityEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: m.now(),
	}

	sink := normalizeActivitySink(m.sink)
	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}
