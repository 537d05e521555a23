package network

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"trench_war_server/logic"
)

// MaxMembers is the capacity of a session.
const MaxMembers = 2

// Session is one match: its simulation loop plus the ordered tokens of its
// participants. Members are guarded by the loop's lock so membership and the
// player table always change together.
type Session struct {
	Code      string
	CreatedAt time.Time

	loop    *logic.GameLoop
	members []string
	dir     *Directory
	cancel  context.CancelFunc
}

func newSession(ctx context.Context, code string, now time.Time, cfg *logic.GameConfig, dir *Directory, loopCfgs ...logic.LoopCfg) (*Session, error) {
	s := &Session{
		Code:      code,
		CreatedAt: now,
		dir:       dir,
	}
	cfgs := append([]logic.LoopCfg{logic.WithPublisher(s.publish)}, loopCfgs...)
	loop, err := logic.NewGameLoop(cfg, cfgs...)
	if err != nil {
		return nil, errors.Wrapf(err, "create loop for session %s failed", code)
	}
	s.loop = loop

	ctx, s.cancel = context.WithCancel(ctx)
	go loop.Run(ctx)
	return s, nil
}

// publish fans a finished tick out to every member: explosions first, then
// the snapshot.
func (s *Session) publish(f logic.Frame) {
	members := s.Members()
	for _, e := range f.Explosions {
		s.dir.Broadcast(members, explosion(e))
	}
	if f.Snapshot != nil {
		s.dir.Broadcast(members, stateMsg(f.Snapshot))
	}
}

// Members returns the participant tokens in join order.
func (s *Session) Members() []string {
	var out []string
	s.loop.Do(func(*logic.GameState) {
		out = append(out, s.members...)
	})
	return out
}

// Side returns the side token plays on, if it is a member.
func (s *Session) Side(token string) (logic.Side, bool) {
	var side logic.Side
	var ok bool
	s.loop.Do(func(gs *logic.GameState) {
		if p, found := gs.Players[token]; found {
			side, ok = p.Side, true
		}
	})
	return side, ok
}

// Started mirrors the game state's started flag.
func (s *Session) Started() bool {
	var started bool
	s.loop.Do(func(gs *logic.GameState) { started = gs.Started })
	return started
}

// Player returns a copy of token's soldier.
func (s *Session) Player(token string) (logic.Player, bool) {
	var p logic.Player
	var ok bool
	s.loop.Do(func(gs *logic.GameState) {
		if found, exists := gs.Players[token]; exists {
			p, ok = *found, true
		}
	})
	return p, ok
}

// Players returns copies of every soldier in join order.
func (s *Session) Players() []logic.Player {
	var out []logic.Player
	s.loop.Do(func(gs *logic.GameState) {
		for _, p := range gs.OrderedPlayers() {
			out = append(out, *p)
		}
	})
	return out
}

func (s *Session) Snapshot() (json.RawMessage, error) {
	return s.loop.Snapshot()
}

func (s *Session) ApplyInput(token string, in logic.Input) bool {
	return s.loop.ApplyInput(token, in)
}

// Start releases the parked loop. Only the first call does anything.
func (s *Session) Start() bool {
	return s.loop.Start()
}

// Stop cancels the loop and waits for it to finish its current tick.
func (s *Session) Stop() {
	s.cancel()
	<-s.loop.Done()
}

func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// admit adds token on side, or on the other side when a remaining member
// already holds it. It reports whether token was already a member and fails
// with ErrSessionFull when a newcomer finds no room. Filling the last seat
// marks the state started; the loop itself is released by Start.
func (s *Session) admit(token string, side logic.Side) (logic.Side, bool, error) {
	var (
		got      logic.Side
		existing bool
		err      error
	)
	s.loop.Do(func(gs *logic.GameState) {
		for _, m := range s.members {
			if m != token {
				continue
			}
			existing = true
			if p, ok := gs.Players[token]; ok {
				got = p.Side
			}
			return
		}
		if len(s.members) >= MaxMembers {
			err = ErrSessionFull
			return
		}
		for _, p := range gs.Players {
			if p.Side == side {
				side = otherSide(side)
				break
			}
		}
		s.members = append(s.members, token)
		got = gs.AddPlayer(token, side).Side
		if len(s.members) == MaxMembers {
			gs.Started = true
		}
	})
	return got, existing, err
}

// removeMember drops token from the participant list and the game state. It
// returns the soldier as it was and how many members remain.
func (s *Session) removeMember(token string) (*logic.Player, int) {
	var (
		p    *logic.Player
		left int
	)
	s.loop.Do(func(gs *logic.GameState) {
		for i, m := range s.members {
			if m == token {
				s.members = append(s.members[:i], s.members[i+1:]...)
				break
			}
		}
		p, _ = gs.RemovePlayer(token)
		left = len(s.members)
	})
	return p, left
}

// waiting reports whether the session has exactly one member and has not
// started.
func (s *Session) waiting() bool {
	var ok bool
	s.loop.Do(func(gs *logic.GameState) {
		ok = len(s.members) == 1 && !gs.Started
	})
	return ok
}

func otherSide(side logic.Side) logic.Side {
	if side == logic.SideAllies {
		return logic.SideAxis
	}
	return logic.SideAllies
}
