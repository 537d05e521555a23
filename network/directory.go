package network

import (
	"sync"

	"trench_war_server/logic"
)

// Transport is a live, per-connection outbound channel. Send must not block
// on the network.
type Transport interface {
	ID() string
	Send(msg []byte) error
}

// Record is what the directory remembers about a durable client token. It
// outlives any single transport: Transport is nil while the client is away.
type Record struct {
	Transport Transport
	Code      string
	Side      logic.Side
}

// Directory maps durable client tokens to their current transport and their
// current session membership.
type Directory struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewDirectory() *Directory {
	return &Directory{records: make(map[string]*Record)}
}

func (d *Directory) record(token string) *Record {
	r, ok := d.records[token]
	if !ok {
		r = &Record{}
		d.records[token] = r
	}
	return r
}

// Bind attaches t as the live transport for token, replacing any stale one.
func (d *Directory) Bind(token string, t Transport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(token).Transport = t
}

// Unbind clears the transport for token only if it is still t. It reports
// whether anything was cleared.
func (d *Directory) Unbind(token string, t Transport) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.records[token]
	if !ok || r.Transport == nil || t == nil || r.Transport.ID() != t.ID() {
		return false
	}
	r.Transport = nil
	return true
}

// Send delivers msg to token's live transport, if any. Delivery failures are
// logged and dropped.
func (d *Directory) Send(token string, msg []byte) {
	d.mu.RLock()
	var t Transport
	if r, ok := d.records[token]; ok {
		t = r.Transport
	}
	d.mu.RUnlock()

	if t == nil {
		return
	}
	if err := t.Send(msg); err != nil {
		logger.WithError(err).WithField("token", shortToken(token)).Debug("send dropped")
	}
}

// Broadcast sends msg to each token in turn.
func (d *Directory) Broadcast(tokens []string, msg []byte) {
	for _, token := range tokens {
		d.Send(token, msg)
	}
}

// Assign records token's current session and side.
func (d *Directory) Assign(token, code string, side logic.Side) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.record(token)
	r.Code = code
	r.Side = side
}

// Release clears token's membership if it still points at code.
func (d *Directory) Release(token, code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.records[token]; ok && r.Code == code {
		r.Code = ""
		r.Side = ""
	}
}

// Lookup returns token's last known session code and side.
func (d *Directory) Lookup(token string) (string, logic.Side, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.records[token]
	if !ok || r.Code == "" {
		return "", "", false
	}
	return r.Code, r.Side, true
}

// Forget drops everything known about token.
func (d *Directory) Forget(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.records, token)
}

// IsLive reports whether token currently has a transport.
func (d *Directory) IsLive(token string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.records[token]
	return ok && r.Transport != nil
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

func shortToken(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
