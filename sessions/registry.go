// Package sessions keeps the server-side record of signed-in sessions.
// An access token is only honoured while its session is in the registry,
// so logging out revokes the token before it expires.
package sessions

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	uuid "github.com/twinj/uuid"
)

var ErrSessionNotFound = errors.New("the session isn't registered")

type Session struct {
	ID        string
	UserID    uint
	Email     string
	ExpiresAt time.Time
}

type Registry struct {
	stop     chan struct{}
	stopOnce sync.Once

	wg       sync.WaitGroup
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewRegistry Create a new registry that drops expired sessions every
// cleanupInterval
func NewRegistry(cleanupInterval time.Duration) *Registry {
	log.Info("Creating session registry with cleanup interval ", cleanupInterval)
	r := &Registry{
		sessions: make(map[string]Session),
		stop:     make(chan struct{}),
	}

	r.wg.Add(1)
	go func(cleanupInterval time.Duration) {
		defer r.wg.Done()
		r.cleanupLoop(cleanupInterval)
	}(cleanupInterval)

	return r
}

// NewID Generate a fresh session id
func NewID() string {
	return uuid.NewV4().String()
}

func (r *Registry) cleanupLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-t.C:
			r.expire(now)
		}
	}
}

// expire Drop every session that expired before now
func (r *Registry) expire(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			log.Debug("Session expired: ", id)
			delete(r.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Stop Stop the cleanup goroutine. Safe to call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}

// Add Register a session
func (r *Registry) Add(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	log.Debug(fmt.Sprintf("There are now %d sessions", len(r.sessions)))
}

// Read Look up a live session
func (r *Registry) Read(id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

// Revoke Remove a session, e.g. on logout
func (r *Registry) Revoke(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len Number of registered sessions, expired ones included until cleanup
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
