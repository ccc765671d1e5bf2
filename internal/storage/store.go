// Package storage persists conversations as JSON files, one per
// conversation. Writes are atomic: temp file, sync, validate, rename.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Message is one entry of a conversation. User messages carry only Role,
// Content, and Timestamp; assistant messages additionally carry the full
// stage record of the meeting that produced them.
type Message struct {
	Role          string               `json:"role"`
	Content       string               `json:"content"`
	Stage1Results []model.Stage1Result `json:"stage1_results,omitempty"`
	Stage2Results []model.Stage2Result `json:"stage2_results,omitempty"`
	Stage3Result  *model.Stage3Result  `json:"stage3_result,omitempty"`
	Stage4Result  *model.Stage4Result  `json:"stage4_result,omitempty"`
	Timestamp     string               `json:"timestamp"`
}

type Conversation struct {
	ConvID    string    `json:"conv_id"`
	Title     string    `json:"title,omitempty"`
	Messages  []Message `json:"messages"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

type ConversationSummary struct {
	ConvID       string `json:"conv_id"`
	Title        string `json:"title,omitempty"`
	MessageCount int    `json:"message_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// Store reads and writes conversation files under dir. All operations go
// through one mutex; conversation traffic is light enough that per-file
// locking would buy nothing.
type Store struct {
	mu  sync.Mutex
	dir string
}

func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "conversations")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversations directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(convID string) string {
	return filepath.Join(s.dir, convID+".json")
}

// Get returns the conversation, or ErrConversationNotFound.
func (s *Store) Get(convID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(convID)
}

// AppendExchange appends a user/assistant message pair, creating the
// conversation file on first use.
func (s *Store) AppendExchange(convID string, user, assistant Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(convID)
	if errors.Is(err, ErrConversationNotFound) {
		now := time.Now().UTC().Format(time.RFC3339)
		conv = &Conversation{ConvID: convID, CreatedAt: now}
	} else if err != nil {
		return err
	}

	conv.Messages = append(conv.Messages, user, assistant)
	conv.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return s.save(conv)
}

// SetTitle sets the conversation title if it is still empty.
func (s *Store) SetTitle(convID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(convID)
	if err != nil {
		return err
	}
	if conv.Title != "" || title == "" {
		return nil
	}
	conv.Title = title
	conv.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return s.save(conv)
}

// Delete removes the conversation file. Deleting a missing conversation is
// not an error.
func (s *Store) Delete(convID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(convID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// List returns summaries of all conversations, most recently updated first.
func (s *Store) List() ([]ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read conversations directory: %w", err)
	}

	summaries := make([]ConversationSummary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		conv, err := s.load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			// Unreadable file: skip rather than fail the whole listing.
			continue
		}
		summaries = append(summaries, ConversationSummary{
			ConvID:       conv.ConvID,
			Title:        conv.Title,
			MessageCount: len(conv.Messages),
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt > summaries[j].UpdatedAt
	})
	return summaries, nil
}

func (s *Store) load(convID string) (*Conversation, error) {
	data, err := os.ReadFile(s.path(convID))
	if os.IsNotExist(err) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read conversation: %w", err)
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", convID, err)
	}
	return &conv, nil
}

// save writes the conversation atomically. The temp file is re-read and
// decoded before the rename so a torn write can never replace good data.
func (s *Store) save(conv *Conversation) error {
	content, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".conv-tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	written, err := os.ReadFile(tmpName)
	if err != nil {
		return fmt.Errorf("read temp file for validation: %w", err)
	}
	var check Conversation
	if err := json.Unmarshal(written, &check); err != nil {
		return fmt.Errorf("json validation failed: %w", err)
	}

	if err := os.Rename(tmpName, s.path(conv.ConvID)); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
