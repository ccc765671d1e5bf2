package meeting

import (
	"errors"
	"testing"

	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

func storedMeeting(id, convID, createdAt string) *model.Meeting {
	return &model.Meeting{
		MeetingID: id,
		ConvID:    convID,
		Status:    model.StatusPending,
		Progress:  model.Progress{ModelStatuses: map[string]model.ModelStatus{}},
		CreatedAt: createdAt,
	}
}

func TestStore_GetReturnsClone(t *testing.T) {
	s := NewStore()
	s.Put(storedMeeting("m1", "c1", "2026-08-30T10:00:00Z"))

	a, err := s.Get("m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	a.Status = model.StatusFailed
	a.Progress.ModelStatuses["x/p"] = model.ModelStatus{Phase: "failed"}

	b, _ := s.Get("m1")
	if b.Status != model.StatusPending {
		t.Error("mutating a read snapshot must not affect the store")
	}
	if len(b.Progress.ModelStatuses) != 0 {
		t.Error("read snapshot shares ModelStatuses map with the store")
	}
}

func TestStore_GetUnknown(t *testing.T) {
	s := NewStore()
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_UpdateAppliesAtomically(t *testing.T) {
	s := NewStore()
	s.Put(storedMeeting("m1", "c1", "2026-08-30T10:00:00Z"))

	err := s.Update("m1", func(m *model.Meeting) error {
		m.Status = model.StatusStage1
		m.Progress.Stage1Results = append(m.Progress.Stage1Results, model.Stage1Result{Model: "a/p"})
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	m, _ := s.Get("m1")
	if m.Status != model.StatusStage1 || len(m.Progress.Stage1Results) != 1 {
		t.Errorf("update not applied: %+v", m)
	}
}

func TestStore_UpdateErrorLeavesStateUntouched(t *testing.T) {
	s := NewStore()
	s.Put(storedMeeting("m1", "c1", "2026-08-30T10:00:00Z"))

	err := s.Update("m1", func(m *model.Meeting) error {
		m.Status = model.StatusFailed
		return errors.New("rejected")
	})
	if err == nil {
		t.Fatal("expected error from update fn")
	}
	m, _ := s.Get("m1")
	if m.Status != model.StatusPending {
		t.Error("failed update must not change stored state")
	}
}

func TestStore_ListByConversation(t *testing.T) {
	s := NewStore()
	s.Put(storedMeeting("m2", "c1", "2026-08-30T10:02:00Z"))
	s.Put(storedMeeting("m1", "c1", "2026-08-30T10:01:00Z"))
	s.Put(storedMeeting("m3", "c2", "2026-08-30T10:03:00Z"))

	got := s.ListByConversation("c1")
	if len(got) != 2 {
		t.Fatalf("expected 2 meetings, got %d", len(got))
	}
	if got[0].MeetingID != "m1" || got[1].MeetingID != "m2" {
		t.Errorf("wrong order: %s, %s", got[0].MeetingID, got[1].MeetingID)
	}
	if len(s.ListByConversation("c3")) != 0 {
		t.Error("expected no meetings for unknown conversation")
	}
}
