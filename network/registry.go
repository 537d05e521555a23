package network

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"trench_war_server/logic"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionFull        = errors.New("session is full")
	ErrCodeSpaceExhausted = errors.New("no unused session code found")
)

const (
	codeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength = 5
)

// Registry is the process-wide table of active sessions keyed by code.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // insertion order, scanned first-fit by FindOrCreate

	ctx      context.Context
	cfg      *logic.GameConfig
	dir      *Directory
	newCode  func() (string, error)
	clock    func() time.Time
	loopCfgs []logic.LoopCfg
	onRemove func(*Session)
}

// RegistryCfg configures a Registry.
type RegistryCfg func(*Registry) error

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func() (string, error)) RegistryCfg {
	return func(r *Registry) error {
		if gen == nil {
			return errors.New("nil code generator")
		}
		r.newCode = gen
		return nil
	}
}

// WithRegistryClock overrides the clock used for session ages.
func WithRegistryClock(clock func() time.Time) RegistryCfg {
	return func(r *Registry) error {
		if clock == nil {
			return errors.New("nil clock")
		}
		r.clock = clock
		return nil
	}
}

// WithLoopCfgs passes options to every session's GameLoop.
func WithLoopCfgs(cfgs ...logic.LoopCfg) RegistryCfg {
	return func(r *Registry) error {
		r.loopCfgs = append(r.loopCfgs, cfgs...)
		return nil
	}
}

// WithRemoveHook is called, outside any registry lock, for every session
// after it has been stopped and removed.
func WithRemoveHook(fn func(*Session)) RegistryCfg {
	return func(r *Registry) error {
		r.onRemove = fn
		return nil
	}
}

// NewRegistry creates an empty registry. Session loops run until ctx is
// cancelled or their session is removed.
func NewRegistry(ctx context.Context, cfg *logic.GameConfig, dir *Directory, cfgs ...RegistryCfg) (*Registry, error) {
	if cfg == nil {
		cfg = logic.DefaultGameConfig()
	}
	r := &Registry{
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cfg:      cfg,
		dir:      dir,
		newCode:  generateCode,
		clock:    time.Now,
		onRemove: func(*Session) {},
	}
	for _, c := range cfgs {
		if err := c(r); err != nil {
			return nil, errors.Wrap(err, "apply Registry cfg failed")
		}
	}
	return r, nil
}

// Create registers a new session with owner seeded as allies.
func (r *Registry) Create(owner string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.unusedCode()
	if err != nil {
		return nil, err
	}
	s, err := newSession(r.ctx, code, r.clock(), r.cfg, r.dir, r.loopCfgs...)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.admit(owner, logic.SideAllies); err != nil {
		s.Stop()
		return nil, err
	}
	r.sessions[code] = s
	r.order = append(r.order, code)

	logger.WithFields(logrus.Fields{"code": code, "token": shortToken(owner)}).Info("session created")
	return s, nil
}

func (r *Registry) unusedCode() (string, error) {
	for i := 0; i < r.cfg.Server.CodeAttempts; i++ {
		code, err := r.newCode()
		if err != nil {
			return "", errors.Wrap(err, "generate session code failed")
		}
		if _, taken := r.sessions[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// JoinResult describes a successful Join.
type JoinResult struct {
	Session *Session
	Side    logic.Side
	// Rejoined is set when token was already a participant; nothing changed.
	Rejoined bool
}

// Join adds token to the session as axis. A token that is already a
// participant gets its existing side back. The caller starts the session
// after notifying the participants; Session.Start is idempotent.
func (r *Registry) Join(code, token string) (JoinResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[code]
	if !ok {
		return JoinResult{}, ErrSessionNotFound
	}

	side, existing, err := s.admit(token, logic.SideAxis)
	if err != nil {
		return JoinResult{}, err
	}
	if !existing {
		logger.WithFields(logrus.Fields{"code": code, "token": shortToken(token)}).Info("session joined")
	}
	return JoinResult{Session: s, Side: side, Rejoined: existing}, nil
}

// FindOrCreate returns the first waiting session, in creation order, with
// matched set. Otherwise token gets a new waiting session of its own.
func (r *Registry) FindOrCreate(token string) (*Session, bool, error) {
	r.mu.RLock()
	for _, code := range r.order {
		if s := r.sessions[code]; s.waiting() {
			r.mu.RUnlock()
			return s, true, nil
		}
	}
	r.mu.RUnlock()

	s, err := r.Create(token)
	return s, false, err
}

// Get looks a session up by code.
func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[code]
	return s, ok
}

// List returns the active sessions in creation order.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.sessions[code])
	}
	return out
}

// Len is the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Remove stops and unregisters a session.
func (r *Registry) Remove(code string) bool {
	r.mu.Lock()
	s, ok := r.sessions[code]
	if ok {
		r.drop(s)
	}
	r.mu.Unlock()

	if ok {
		r.onRemove(s)
	}
	return ok
}

// RemoveIfEmpty stops and unregisters the session only if it has no
// participants left.
func (r *Registry) RemoveIfEmpty(code string) bool {
	r.mu.Lock()
	s, ok := r.sessions[code]
	if ok && len(s.Members()) == 0 {
		r.drop(s)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		r.onRemove(s)
	}
	return ok
}

// drop stops s before it leaves the table. Caller holds r.mu.
func (r *Registry) drop(s *Session) {
	s.Stop()
	delete(r.sessions, s.Code)
	for i, code := range r.order {
		if code == s.Code {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	logger.WithField("code", s.Code).Info("session removed")
}

// Reap removes sessions that have no participants, and sessions older than
// the abandonment threshold none of whose members has a live connection.
// The removed sessions are returned.
func (r *Registry) Reap(isLive func(token string) bool) []*Session {
	now := r.clock()
	abandonAfter := time.Duration(r.cfg.Server.AbandonAfterSec) * time.Second

	r.mu.Lock()
	var reaped []*Session
	for _, code := range append([]string(nil), r.order...) {
		s := r.sessions[code]
		members := s.Members()
		if len(members) > 0 && (s.Age(now) <= abandonAfter || anyLive(members, isLive)) {
			continue
		}
		r.drop(s)
		reaped = append(reaped, s)
	}
	r.mu.Unlock()

	for _, s := range reaped {
		r.onRemove(s)
	}
	return reaped
}

func anyLive(tokens []string, isLive func(string) bool) bool {
	for _, t := range tokens {
		if isLive(t) {
			return true
		}
	}
	return false
}

// Close stops every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.order))
	for _, code := range append([]string(nil), r.order...) {
		s := r.sessions[code]
		r.drop(s)
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		r.onRemove(s)
	}
}

func generateCode() (string, error) {
	b := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeChars[idx.Int64()]
	}
	return string(b), nil
}
