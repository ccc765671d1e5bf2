package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Journal persists every published event as one JSON line per event, one
// file per meeting. It is an audit trail, not the replay source — replay is
// served from the in-memory log.
type Journal struct {
	mu    sync.Mutex
	dir   string
	files map[string]*os.File
}

type journalEntry struct {
	MeetingID string `json:"meeting_id"`
	Event
}

func NewJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	return &Journal{
		dir:   dir,
		files: make(map[string]*os.File),
	}, nil
}

// Append writes the event to the meeting's journal file, creating it on
// first use. Writes are synced so a crash loses at most the current line.
func (j *Journal) Append(meetingID string, e Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, ok := j.files[meetingID]
	if !ok {
		path := filepath.Join(j.dir, meetingID+".jsonl")
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open journal file: %w", err)
		}
		j.files[meetingID] = f
	}

	data, err := json.Marshal(journalEntry{MeetingID: meetingID, Event: e})
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	data = append(data, '\n')

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync journal file: %w", err)
	}

	// Terminal event: nothing further will be written for this meeting.
	if e.IsTerminal() {
		delete(j.files, meetingID)
		return f.Close()
	}
	return nil
}

// Close closes every open journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var firstErr error
	for id, f := range j.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(j.files, id)
	}
	return firstErr
}
