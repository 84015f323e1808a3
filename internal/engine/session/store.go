// Package session holds per-conversation mutable state and the
// concurrency-safe store that owns it.
package session

import (
	"sync"
	"time"
)

// intentLogLimit bounds the intent log as a recent-window ring. Repetition
// detection only ever inspects the last three entries, so trimming older
// ones does not change observable behavior.
const intentLogLimit = 10

// UserProfile carries caller-supplied hints, copied in at context creation.
type UserProfile struct {
	UserID        string `json:"userId,omitempty"`
	Segment       string `json:"segment,omitempty"`
	Authenticated bool   `json:"authenticated,omitempty"`
}

// IntentLogEntry records one classification for repetition detection.
type IntentLogEntry struct {
	Intent     string    `json:"intent"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// Context is the mutable state of one conversation. Callers must serialize
// messages per session key; the store only guarantees atomic
// fetch-or-create. Cross-session access is fully concurrent.
type Context struct {
	SessionKey     string                 `json:"sessionKey"`
	StartedAt      time.Time              `json:"startedAt"`
	MessageCount   int                    `json:"messageCount"`
	IntentLog      []IntentLogEntry       `json:"intentLog"`
	CurrentIntent  string                 `json:"currentIntent,omitempty"`
	PreviousIntent string                 `json:"previousIntent,omitempty"`
	Entities       map[string]interface{} `json:"entities,omitempty"`
	Variables      map[string]interface{} `json:"variables,omitempty"`
	LastActivityAt time.Time              `json:"lastActivityAt"`
	Profile        UserProfile            `json:"profile"`
}

// RecordIntent shifts current→previous, appends to the bounded intent log
// and refreshes activity. Call once per processed message.
func (c *Context) RecordIntent(name string, confidence float64, now time.Time) {
	c.MessageCount++
	c.PreviousIntent = c.CurrentIntent
	c.CurrentIntent = name
	c.IntentLog = append(c.IntentLog, IntentLogEntry{
		Intent:     name,
		Timestamp:  now,
		Confidence: confidence,
	})
	if len(c.IntentLog) > intentLogLimit {
		c.IntentLog = c.IntentLog[len(c.IntentLog)-intentLogLimit:]
	}
	c.LastActivityAt = now
}

// MergeEntities merges extracted entities last-writer-wins per key.
func (c *Context) MergeEntities(entities map[string]interface{}) {
	if len(entities) == 0 {
		return
	}
	if c.Entities == nil {
		c.Entities = make(map[string]interface{}, len(entities))
	}
	for k, v := range entities {
		c.Entities[k] = v
	}
}

// RecentIntents returns up to n most recent log entries, newest last.
func (c *Context) RecentIntents(n int) []IntentLogEntry {
	if n <= 0 || len(c.IntentLog) == 0 {
		return nil
	}
	if len(c.IntentLog) < n {
		n = len(c.IntentLog)
	}
	return c.IntentLog[len(c.IntentLog)-n:]
}

// Snapshot returns a deep copy suitable for a handoff payload, detached
// from further mutation of the live context.
func (c *Context) Snapshot() *Context {
	cp := *c
	cp.IntentLog = append([]IntentLogEntry(nil), c.IntentLog...)
	cp.Entities = copyMap(c.Entities)
	cp.Variables = copyMap(c.Variables)
	return &cp
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store is a mutex-guarded keyed map of live conversation contexts. It is
// owned by the orchestrator, never a process-wide singleton. There is no
// automatic idle sweep: idle policy is the caller's, via LastActivityAt.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Context
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Context)}
}

// FetchOrCreate returns the live context for key, creating and seeding it
// with the profile hints if absent. Hints are only applied at creation.
func (s *Store) FetchOrCreate(key string, profile UserProfile, now time.Time) *Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx, ok := s.sessions[key]; ok {
		return ctx
	}

	ctx := &Context{
		SessionKey:     key,
		StartedAt:      now,
		LastActivityAt: now,
		Entities:       make(map[string]interface{}),
		Variables:      make(map[string]interface{}),
		Profile:        profile,
	}
	s.sessions[key] = ctx
	return ctx
}

// Get returns the live context if present.
func (s *Store) Get(key string) (*Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, ok := s.sessions[key]
	return ctx, ok
}

// Clear removes a session's state, reporting whether it existed.
func (s *Store) Clear(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; !ok {
		return false
	}
	delete(s.sessions, key)
	return true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
