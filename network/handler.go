package network

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"trench_war_server/logic"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// ResultSink receives a participant's tally when it leaves a session or the
// session is removed.
type ResultSink interface {
	Record(p logic.Player)
}

// RecordOnRemove makes the registry hand every remaining player of a removed
// session to sink.
func RecordOnRemove(sink ResultSink) RegistryCfg {
	return WithRemoveHook(func(s *Session) {
		for _, p := range s.Players() {
			sink.Record(p)
		}
	})
}

// Handler applies client messages to the registry and directory. It is safe
// for concurrent use by every connection.
type Handler struct {
	registry *Registry
	dir      *Directory
	sink     ResultSink
	clock    func() time.Time
	closed   atomic.Bool
}

// HandlerCfg configures a Handler.
type HandlerCfg func(*Handler) error

// WithResultSink records the tally of players who leave their session.
func WithResultSink(sink ResultSink) HandlerCfg {
	return func(h *Handler) error {
		h.sink = sink
		return nil
	}
}

// WithHandlerClock overrides the clock used for diagnostics.
func WithHandlerClock(clock func() time.Time) HandlerCfg {
	return func(h *Handler) error {
		if clock == nil {
			return errors.New("nil clock")
		}
		h.clock = clock
		return nil
	}
}

func NewHandler(registry *Registry, dir *Directory, cfgs ...HandlerCfg) (*Handler, error) {
	h := &Handler{
		registry: registry,
		dir:      dir,
		clock:    time.Now,
	}
	for _, c := range cfgs {
		if err := c(h); err != nil {
			return nil, errors.Wrap(err, "apply Handler cfg failed")
		}
	}
	return h, nil
}

// HandleMessage decodes and applies one raw client message received on t.
// Malformed messages are dropped. It returns the token the message carried.
func (h *Handler) HandleMessage(t Transport, raw []byte) string {
	if h.closed.Load() {
		return ""
	}
	req, err := DecodeRequest(raw)
	if err != nil {
		logger.WithError(err).Debug("dropping client message")
		return ""
	}
	h.Handle(t, req)
	return req.ClientToken()
}

// Handle applies a decoded request. Every request bearing a token makes t
// that token's live transport.
func (h *Handler) Handle(t Transport, req Request) {
	if _, ok := req.(PingRequest); ok {
		if err := t.Send(pong()); err != nil {
			logger.WithError(err).Debug("pong dropped")
		}
		return
	}

	token := req.ClientToken()
	h.dir.Bind(token, t)
	if req.Kind() != KindInput {
		logger.WithFields(logrus.Fields{"token": shortToken(token), "type": req.Kind()}).Debug("message")
	}

	switch req := req.(type) {
	case CreateSessionRequest:
		h.create(req.Token)
	case JoinSessionRequest:
		h.join(req.Token, req.Code)
	case FindMatchRequest:
		h.findMatch(req.Token)
	case RejoinRequest:
		h.rejoin(req.Token)
	case InputRequest:
		h.input(req.Token, req.Input)
	}
}

func (h *Handler) create(token string) {
	h.leaveCurrent(token, "")
	s, err := h.registry.Create(token)
	if err != nil {
		logger.WithError(err).WithField("token", shortToken(token)).Error("create session failed")
		h.dir.Send(token, errorMsg("Could not create session"))
		return
	}
	h.dir.Assign(token, s.Code, logic.SideAllies)
	h.dir.Send(token, sessionCreated(s.Code, token, logic.SideAllies))
}

func (h *Handler) join(token, code string) {
	res, err := h.registry.Join(code, token)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		logger.WithFields(logrus.Fields{"token": shortToken(token), "code": code}).Info("join: session not found")
		h.dir.Send(token, errorMsg("Session not found"))
		return
	case errors.Is(err, ErrSessionFull):
		h.dir.Send(token, errorMsg("Session is full"))
		return
	case err != nil:
		logger.WithError(err).WithField("code", code).Error("join session failed")
		return
	}

	s := res.Session
	if res.Rejoined {
		h.dir.Assign(token, s.Code, res.Side)
		h.resume(token, s, res.Side)
		return
	}
	h.leaveCurrent(token, s.Code)
	h.dir.Assign(token, s.Code, res.Side)

	snapshot, err := s.Snapshot()
	if err != nil {
		logger.WithError(err).WithField("code", s.Code).Error("snapshot failed")
		return
	}
	for _, member := range s.Members() {
		side, _ := s.Side(member)
		h.dir.Send(member, gameStart(snapshot, member, side))
	}
	if s.Start() {
		logger.WithField("code", s.Code).Info("session started")
	}
}

func (h *Handler) findMatch(token string) {
	s, matched, err := h.registry.FindOrCreate(token)
	if err != nil {
		logger.WithError(err).WithField("token", shortToken(token)).Error("find match failed")
		h.dir.Send(token, errorMsg("Could not create session"))
		return
	}
	if matched {
		h.dir.Send(token, matchFound(s.Code))
		return
	}
	h.leaveCurrent(token, s.Code)
	h.dir.Assign(token, s.Code, logic.SideAllies)
	h.dir.Send(token, waitingMatch(s.Code, token, logic.SideAllies))
}

func (h *Handler) rejoin(token string) {
	if code, _, ok := h.dir.Lookup(token); ok {
		if s, ok := h.registry.Get(code); ok {
			if side, ok := s.Side(token); ok {
				h.resume(token, s, side)
				logger.WithFields(logrus.Fields{"token": shortToken(token), "code": code}).Info("rejoined")
				return
			}
		}
	}
	h.dir.Send(token, rejoinFailed())
}

// resume re-sends where token stands: the running match or the waiting room.
func (h *Handler) resume(token string, s *Session, side logic.Side) {
	if !s.Started() {
		h.dir.Send(token, sessionCreated(s.Code, token, side))
		return
	}
	snapshot, err := s.Snapshot()
	if err != nil {
		logger.WithError(err).WithField("code", s.Code).Error("snapshot failed")
		return
	}
	h.dir.Send(token, gameStart(snapshot, token, side))
}

func (h *Handler) input(token string, in logic.Input) {
	code, _, ok := h.dir.Lookup(token)
	if !ok {
		return
	}
	if s, ok := h.registry.Get(code); ok {
		s.ApplyInput(token, in)
	}
}

// leaveCurrent tears down token's membership of any session other than keep.
// An emptied session is removed; otherwise the remaining member is told.
func (h *Handler) leaveCurrent(token, keep string) {
	code, _, ok := h.dir.Lookup(token)
	if !ok || code == keep {
		return
	}
	h.dir.Release(token, code)

	s, ok := h.registry.Get(code)
	if !ok {
		return
	}
	p, left := s.removeMember(token)
	if p != nil && h.sink != nil {
		h.sink.Record(*p)
	}
	if left == 0 && h.registry.RemoveIfEmpty(code) {
		return
	}
	h.dir.Broadcast(s.Members(), playerLeft(token))
	logger.WithFields(logrus.Fields{"token": shortToken(token), "code": code}).Info("left session")
}

// Close makes the handler drop every further message.
func (h *Handler) Close() {
	h.closed.Store(true)
}

// Disconnect detaches t from token. Session membership and the player are
// kept so the client can rejoin.
func (h *Handler) Disconnect(token string, t Transport) {
	if token == "" {
		return
	}
	if h.dir.Unbind(token, t) {
		logger.WithField("token", shortToken(token)).Info("disconnected")
	}
}

// Reap runs one reclamation pass and forgets the members of every removed
// session.
func (h *Handler) Reap() int {
	reaped := h.registry.Reap(h.dir.IsLive)
	for _, s := range reaped {
		for _, p := range s.Players() {
			if code, _, ok := h.dir.Lookup(p.ID); ok && code == s.Code {
				h.dir.Forget(p.ID)
			}
		}
	}
	return len(reaped)
}

// RunReaper calls Reap every interval until ctx is done.
func (h *Handler) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.Reap(); n > 0 {
				logger.WithField("sessions", n).Info("reaped abandoned sessions")
			}
		}
	}
}

// SessionInfo is the diagnostic view of one session.
type SessionInfo struct {
	Clients      int      `json:"clients"`
	Connected    []string `json:"connected"`
	Disconnected []string `json:"disconnected"`
	Started      bool     `json:"started"`
	Age          int      `json:"age"`
}

// Diagnostics is a read-only summary of the registry and directory.
type Diagnostics struct {
	Status   string                 `json:"status"`
	Sessions int                    `json:"sessions"`
	Details  map[string]SessionInfo `json:"details"`
}

func (h *Handler) Diagnostics() Diagnostics {
	now := h.clock()
	d := Diagnostics{Status: "ok", Details: make(map[string]SessionInfo)}
	for _, s := range h.registry.List() {
		members := s.Members()
		info := SessionInfo{
			Clients:      len(members),
			Connected:    []string{},
			Disconnected: []string{},
			Started:      s.Started(),
			Age:          int(s.Age(now).Seconds()),
		}
		for _, token := range members {
			if h.dir.IsLive(token) {
				info.Connected = append(info.Connected, shortToken(token))
			} else {
				info.Disconnected = append(info.Disconnected, shortToken(token))
			}
		}
		d.Details[s.Code] = info
	}
	d.Sessions = len(d.Details)
	return d
}
