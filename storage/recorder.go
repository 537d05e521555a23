package storage

import (
	"context"
	"time"

	"trench_war_server/logic"
)

const saveTimeout = 5 * time.Second

// Recorder queues results and writes them to the store from Run.
type Recorder struct {
	store *Store
	queue chan logic.Player
	clock func() time.Time
}

func NewRecorder(store *Store, buffer int) *Recorder {
	return &Recorder{
		store: store,
		queue: make(chan logic.Player, buffer),
		clock: time.Now,
	}
}

// Record queues p's tally. It drops the write when the queue is full.
func (r *Recorder) Record(p logic.Player) {
	select {
	case r.queue <- p:
	default:
		logger.WithField("token", shortToken(p.ID)).Warn("profile queue full, dropping result")
	}
}

// Run drains the queue until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case p := <-r.queue:
			r.save(p)
		case <-ctx.Done():
			r.flush()
			return
		}
	}
}

func (r *Recorder) flush() {
	for {
		select {
		case p := <-r.queue:
			r.save(p)
		default:
			return
		}
	}
}

func (r *Recorder) save(p logic.Player) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := r.store.RecordResult(ctx, p.ID, p.Side, p.Kills, p.Deaths, r.clock()); err != nil {
		logger.WithError(err).Error("record profile failed")
	}
}
