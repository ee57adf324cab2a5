// Package publish holds the in-memory cache of the ICS bodies this service
// serves back out at /ics/{path}. A source's cycle writes the latest body
// here; the API layer only ever reads from it, so a slow or failing CalDAV
// server never blocks or breaks a GET against the published feed.
package publish

import (
	"sync"
	"time"
)

// Body is one published calendar: the exact bytes to serve, its content
// type, and when it was produced.
type Body struct {
	ContentType string
	Data        []byte
	LastMod     time.Time
}

// Publisher is a map guarded by a sync.RWMutex. Set and Remove hold the
// write lock only for the map assignment, and Get copies the Body value out
// under the read lock, so no lock is held while a response is written.
type Publisher struct {
	mu     sync.RWMutex
	bodies map[string]Body
}

func NewPublisher() *Publisher {
	return &Publisher{bodies: make(map[string]Body)}
}

// Set publishes body under icsPath, replacing whatever was there.
func (p *Publisher) Set(icsPath string, body Body) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies[icsPath] = body
}

// Get returns the currently published body for icsPath, if any.
func (p *Publisher) Get(icsPath string) (Body, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b, ok := p.bodies[icsPath]
	return b, ok
}

// Remove drops icsPath from the published set, e.g. when its source is
// deleted.
func (p *Publisher) Remove(icsPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.bodies, icsPath)
}
