package assessment

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// FlowFactory builds the flow for a new session.
type FlowFactory func(sessionID string) *Flow

// Session is the state of one page visitor: the form being filled in, the
// submission flow and the last accepted upload.
type Session struct {
	ID   string
	flow *Flow

	mu       sync.Mutex
	form     Form
	upload   *UploadReference
	lastSeen time.Time
}

func (s *Session) Flow() *Flow {
	return s.flow
}

// UpdateForm applies fn to the form under the session lock and returns a copy.
func (s *Session) UpdateForm(fn func(*Form)) Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.form)
	return s.form
}

func (s *Session) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

func (s *Session) SetUpload(ref UploadReference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upload = &ref
}

func (s *Session) Upload() *UploadReference {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upload == nil {
		return nil
	}
	ref := *s.upload
	return &ref
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Store struct {
	newFlow FlowFactory
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(newFlow FlowFactory) *Store {
	return &Store{
		newFlow:  newFlow,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.touch(st.now())
	}
	return s, ok
}

// GetOrCreate returns the session for id, creating a fresh one when id is
// unknown. created reports whether a new session was made.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := st.Get(id); ok {
			return s, false
		}
	}

	id = uuid.NewString()
	s = &Session{
		ID:       id,
		form:     *NewForm(),
		lastSeen: st.now(),
	}
	s.flow = st.newFlow(id)

	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	return s, true
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed. Sessions with a request in flight are kept.
func (st *Store) Sweep(maxIdle time.Duration) int {
	cutoff := st.now().Add(-maxIdle)

	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) && !s.flow.Snapshot().Busy {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
