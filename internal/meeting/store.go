// Package meeting owns the lifecycle of deliberation runs: the in-memory
// meeting store and the coordinator that starts, cancels, and finalizes them.
package meeting

import (
	"errors"
	"sort"
	"sync"

	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

var ErrNotFound = errors.New("meeting not found")

// Store holds all meetings in memory. Mutations go through Update, which
// clones, applies, and swaps under the lock; readers always receive their
// own clone. The pipeline goroutine and any number of API readers can
// therefore never observe a half-applied mutation.
type Store struct {
	mu       sync.RWMutex
	meetings map[string]*model.Meeting
}

func NewStore() *Store {
	return &Store{meetings: make(map[string]*model.Meeting)}
}

func (s *Store) Put(m *model.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.MeetingID] = m.Clone()
}

func (s *Store) Get(meetingID string) (*model.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return nil, ErrNotFound
	}
	return m.Clone(), nil
}

// Update applies fn to a clone of the meeting and swaps it in. If fn returns
// an error the stored meeting is left untouched.
func (s *Store) Update(meetingID string, fn func(*model.Meeting) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return ErrNotFound
	}
	c := m.Clone()
	if err := fn(c); err != nil {
		return err
	}
	s.meetings[meetingID] = c
	return nil
}

func (s *Store) Delete(meetingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meetings, meetingID)
}

// ListByConversation returns summaries of the conversation's meetings in
// creation order.
func (s *Store) ListByConversation(convID string) []model.MeetingSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.MeetingSummary
	for _, m := range s.meetings {
		if m.ConvID == convID {
			out = append(out, m.Summary())
		}
	}
	sortSummaries(out)
	return out
}

// List returns summaries of every meeting in creation order.
func (s *Store) List() []model.MeetingSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MeetingSummary, 0, len(s.meetings))
	for _, m := range s.meetings {
		out = append(out, m.Summary())
	}
	sortSummaries(out)
	return out
}

func sortSummaries(s []model.MeetingSummary) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].CreatedAt != s[j].CreatedAt {
			return s[i].CreatedAt < s[j].CreatedAt
		}
		return s[i].MeetingID < s[j].MeetingID
	})
}
