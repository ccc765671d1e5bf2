package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func exchange(q, a string) (Message, Message) {
	user := Message{Role: "user", Content: q, Timestamp: "2026-08-30T10:00:00Z"}
	assistant := Message{
		Role:    "assistant",
		Content: a,
		Stage4Result: &model.Stage4Result{
			Rankings:   []model.RankingEntry{{Rank: 1, Label: "#1", Model: "a/p", Response: a}},
			BestAnswer: a,
		},
		Timestamp: "2026-08-30T10:05:00Z",
	}
	return user, assistant
}

func TestStore_AppendAndGet(t *testing.T) {
	s := newTestStore(t)

	u, a := exchange("q1", "a1")
	if err := s.AppendExchange("conv1", u, a); err != nil {
		t.Fatalf("append: %v", err)
	}
	u2, a2 := exchange("q2", "a2")
	if err := s.AppendExchange("conv1", u2, a2); err != nil {
		t.Fatalf("append: %v", err)
	}

	conv, err := s.Get("conv1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(conv.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(conv.Messages))
	}
	if conv.Messages[0].Content != "q1" || conv.Messages[3].Content != "a2" {
		t.Errorf("message order wrong: %q ... %q", conv.Messages[0].Content, conv.Messages[3].Content)
	}
	if conv.Messages[1].Stage4Result == nil || conv.Messages[1].Stage4Result.BestAnswer != "a1" {
		t.Errorf("stage record lost: %+v", conv.Messages[1])
	}
	if conv.CreatedAt == "" || conv.UpdatedAt == "" {
		t.Error("timestamps not set")
	}
}

func TestStore_GetUnknown(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("absent"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestStore_SetTitle(t *testing.T) {
	s := newTestStore(t)
	u, a := exchange("q", "a")
	_ = s.AppendExchange("conv1", u, a)

	if err := s.SetTitle("conv1", "First Title"); err != nil {
		t.Fatalf("set title: %v", err)
	}
	// An existing title is never overwritten.
	if err := s.SetTitle("conv1", "Second Title"); err != nil {
		t.Fatalf("set title: %v", err)
	}
	conv, _ := s.Get("conv1")
	if conv.Title != "First Title" {
		t.Errorf("title = %q", conv.Title)
	}
}

func TestStore_List(t *testing.T) {
	s := newTestStore(t)
	u, a := exchange("q", "a")
	_ = s.AppendExchange("conv1", u, a)
	_ = s.AppendExchange("conv2", u, a)

	summaries, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d", len(summaries))
	}
	for _, sum := range summaries {
		if sum.MessageCount != 2 {
			t.Errorf("message count = %d, want 2", sum.MessageCount)
		}
	}
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	u, a := exchange("q", "a")
	_ = s.AppendExchange("conv1", u, a)

	if err := s.Delete("conv1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("conv1"); !errors.Is(err, ErrConversationNotFound) {
		t.Error("conversation still readable after delete")
	}
	// Deleting again is fine.
	if err := s.Delete("conv1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	u, a := exchange("q", "a")
	if err := s.AppendExchange("conv1", u, a); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "conversations"))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".conv-tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
