package memory

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

const (
	defaultCodeMin = 1000
	defaultCodeMax = 9999

	// randomAttempts before falling back to a linear probe keeps allocation
	// uniform when the space is mostly free and bounded when it is nearly full.
	randomAttempts = 32
)

// SessionStore is an in-memory implementation of app.SessionRegistry. It owns
// the code-to-session map and join code allocation; the sessions themselves
// carry their own locks, so this guard covers only the map.
type SessionStore struct {
	codeMin int
	codeMax int
	clock   func() time.Time

	mu       sync.Mutex
	rnd      *rand.Rand
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithRange(defaultCodeMin, defaultCodeMax)
}

// NewSessionStoreWithRange constrains the code space; tests use tiny ranges
// to exercise exhaustion and reuse.
func NewSessionStoreWithRange(codeMin, codeMax int) *SessionStore {
	return &SessionStore{
		codeMin:  codeMin,
		codeMax:  codeMax,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: make(map[string]*app.Session),
	}
}

// Create allocates an unused join code and registers an empty session for it.
func (s *SessionStore) Create() (string, *app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.freeCodeLocked()
	if err != nil {
		return "", nil, err
	}
	session := app.NewSessionWithClock(code, s.clock)
	s.sessions[code] = session
	return code, session, nil
}

func (s *SessionStore) Get(code string) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[code]
	return session, ok
}

// Remove deletes the session and frees its code for reuse.
func (s *SessionStore) Remove(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, code)
}

// Sweep removes sessions idle longer than maxIdle and returns their codes.
func (s *SessionStore) Sweep(maxIdle time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock().Add(-maxIdle)
	var removed []string
	for code, session := range s.sessions {
		if session.LastActivity().Before(cutoff) {
			delete(s.sessions, code)
			removed = append(removed, code)
		}
	}
	return removed
}

func (s *SessionStore) freeCodeLocked() (string, error) {
	size := s.codeMax - s.codeMin + 1
	if len(s.sessions) >= size {
		return "", domain.ErrCodesExhausted
	}

	for i := 0; i < randomAttempts; i++ {
		code := strconv.Itoa(s.codeMin + s.rnd.Intn(size))
		if _, taken := s.sessions[code]; !taken {
			return code, nil
		}
	}

	// Dense occupancy: probe linearly from a random offset so allocation
	// stays finite right up to exhaustion.
	start := s.rnd.Intn(size)
	for i := 0; i < size; i++ {
		code := strconv.Itoa(s.codeMin + (start+i)%size)
		if _, taken := s.sessions[code]; !taken {
			return code, nil
		}
	}
	return "", domain.ErrCodesExhausted
}
