package server

import "sync"

// session is the per-connection state a Server tracks for its one peer:
// the minimum log level it asked for via logging/setLevel, and which
// resource URIs it subscribed to. Unlike
// the teacher's SessionManager, which indexed many concurrent client
// sessions by SessionID, a Server here owns exactly one peer connection
// (spec §1's point-to-point model), so this collapses to one struct
// rather than a map.
type session struct {
	mu sync.RWMutex

	minLogLevel logLevel
	subscribed  map[string]struct{}
}

// logLevel holds an mcp.LoggingLevel as a plain string without importing
// mcp here, so session stays a small leaf type; Server converts it back
// and compares ordinals at its boundary.
type logLevel = string

func newSession() *session {
	return &session{
		minLogLevel: "info",
		subscribed:  make(map[string]struct{}),
	}
}

func (s *session) SetMinLogLevel(level string) {
	s.mu.Lock()
	s.minLogLevel = level
	s.mu.Unlock()
}

func (s *session) MinLogLevel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minLogLevel
}

func (s *session) Subscribe(uri string) {
	s.mu.Lock()
	s.subscribed[uri] = struct{}{}
	s.mu.Unlock()
}

func (s *session) Unsubscribe(uri string) {
	s.mu.Lock()
	delete(s.subscribed, uri)
	s.mu.Unlock()
}

func (s *session) IsSubscribed(uri string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subscribed[uri]
	return ok
}
