// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"log/slog"
	"sync"

	"github.com/echodrift/server/services/session/observability"
)

// SessionFactory builds a fresh Session for a session id. The manager
// calls it at most once per id.
type SessionFactory func(id string) *Session

// Manager is the session registry. Connections presenting the same
// session id share one narrative; a fresh id gets an isolated state.
// Sessions live for the process lifetime and are not persisted.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  SessionFactory
}

// NewManager creates a registry around a session factory.
func NewManager(factory SessionFactory) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// GetOrCreate returns the session for id, creating it on first use.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := m.factory(id)
	m.sessions[id] = s
	observability.ActiveSessions.Inc()
	slog.Info("New narrative session started", "session_id", id)
	return s
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll stops every session worker. Used on shutdown and in tests.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
		observability.ActiveSessions.Dec()
	}
}
