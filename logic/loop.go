package logic

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Frame is what a tick publishes: explosions that happened during the tick
// and the encoded snapshot taken after it was fully applied.
type Frame struct {
	Tick       int
	Explosions []Explosion
	Snapshot   json.RawMessage
}

// GameLoop drives one session's GameState. Its mutex is the single writer
// domain: ticks, client intents (via Do) and delayed respawns all run under it.
type GameLoop struct {
	mu    sync.Mutex
	state *GameState

	interval     time.Duration
	respawnDelay time.Duration
	clock        func() time.Time
	rng          *rand.Rand
	publish      func(Frame)

	started   chan struct{}
	startOnce sync.Once
	respawns  chan string
	done      chan struct{}
}

// LoopCfg configures a GameLoop.
type LoopCfg func(*GameLoop) error

// WithClock overrides the wall clock used for reload and fire-rate timing.
func WithClock(clock func() time.Time) LoopCfg {
	return func(gl *GameLoop) error {
		if clock == nil {
			return errors.New("nil clock")
		}
		gl.clock = clock
		return nil
	}
}

// WithRand sets the random source used for weapon spread.
func WithRand(rng *rand.Rand) LoopCfg {
	return func(gl *GameLoop) error {
		gl.rng = rng
		return nil
	}
}

// WithPublisher sets the callback receiving every tick's Frame.
func WithPublisher(publish func(Frame)) LoopCfg {
	return func(gl *GameLoop) error {
		gl.publish = publish
		return nil
	}
}

func NewGameLoop(cfg *GameConfig, cfgs ...LoopCfg) (*GameLoop, error) {
	if cfg == nil {
		cfg = DefaultGameConfig()
	}
	gl := &GameLoop{
		state:        NewGameState(),
		interval:     time.Second / time.Duration(cfg.Server.TickRate),
		respawnDelay: time.Duration(cfg.Gameplay.RespawnDelayMs) * time.Millisecond,
		clock:        time.Now,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		publish:      func(Frame) {},
		started:      make(chan struct{}),
		respawns:     make(chan string, 4),
		done:         make(chan struct{}),
	}
	for _, c := range cfgs {
		if err := c(gl); err != nil {
			return nil, errors.Wrap(err, "apply GameLoop cfg failed")
		}
	}
	return gl, nil
}

// Do runs fn with exclusive access to the state.
func (gl *GameLoop) Do(fn func(gs *GameState)) {
	gl.mu.Lock()
	defer gl.mu.Unlock()
	fn(gl.state)
}

// ApplyInput applies a client intent under the loop's lock.
func (gl *GameLoop) ApplyInput(id string, in Input) bool {
	gl.mu.Lock()
	defer gl.mu.Unlock()
	return gl.state.ApplyInput(id, in, gl.clock(), gl.rng)
}

func (gl *GameLoop) Snapshot() (json.RawMessage, error) {
	gl.mu.Lock()
	defer gl.mu.Unlock()
	b, err := json.Marshal(gl.state)
	if err != nil {
		return nil, errors.Wrap(err, "marshal game state failed")
	}
	return b, nil
}

// Start marks the state started and releases the parked loop. Only the first
// call has any effect.
func (gl *GameLoop) Start() bool {
	first := false
	gl.startOnce.Do(func() {
		gl.Do(func(gs *GameState) { gs.Started = true })
		close(gl.started)
		first = true
	})
	return first
}

// Done is closed once Run has returned.
func (gl *GameLoop) Done() <-chan struct{} {
	return gl.done
}

// Run parks until Start is called, then ticks at the fixed cadence until ctx
// is cancelled. Cancellation is observed between ticks only.
func (gl *GameLoop) Run(ctx context.Context) {
	defer close(gl.done)

	select {
	case <-ctx.Done():
		return
	case <-gl.started:
	}

	ticker := time.NewTicker(gl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-gl.respawns:
			gl.Do(func(gs *GameState) { gs.Respawn(id) })
		case <-ticker.C:
			gl.publish(gl.tick(ctx))
		}
	}
}

func (gl *GameLoop) tick(ctx context.Context) Frame {
	gl.mu.Lock()
	res := gl.state.UpdateTick(gl.clock())
	snapshot, err := json.Marshal(gl.state)
	tick := gl.state.Tick
	gl.mu.Unlock()

	if err != nil {
		logger.WithError(err).Error("marshal game state failed")
	}
	for _, id := range res.Killed {
		gl.scheduleRespawn(ctx, id)
	}
	return Frame{Tick: tick, Explosions: res.Explosions, Snapshot: snapshot}
}

// scheduleRespawn queues id onto the loop's respawn channel after the delay.
func (gl *GameLoop) scheduleRespawn(ctx context.Context, id string) {
	time.AfterFunc(gl.respawnDelay, func() {
		select {
		case gl.respawns <- id:
		case <-ctx.Done():
		}
	})
}
