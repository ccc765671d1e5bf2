package meeting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/asdersss/EZ-LLMcouncil/internal/config"
	"github.com/asdersss/EZ-LLMcouncil/internal/council"
	"github.com/asdersss/EZ-LLMcouncil/internal/events"
	"github.com/asdersss/EZ-LLMcouncil/internal/logging"
	"github.com/asdersss/EZ-LLMcouncil/internal/model"
	"github.com/asdersss/EZ-LLMcouncil/internal/storage"
)

var ErrInvalidRequest = errors.New("invalid meeting request")

// StartRequest is the API-level input for a new meeting. ConvID may be empty
// to start a fresh conversation.
type StartRequest struct {
	ConvID      string
	Content     string
	Models      []string
	Attachments []model.Attachment
}

// Coordinator starts meetings, runs one pipeline goroutine per meeting, and
// finalizes them: terminal status transition, terminal event, and the
// conversation record on success. It is the only writer of terminal states.
type Coordinator struct {
	store    *Store
	hub      *events.Hub
	pipeline *council.Pipeline
	registry *config.Registry
	convs    *storage.Store
	logger   *logging.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

func NewCoordinator(store *Store, hub *events.Hub, pipeline *council.Pipeline, registry *config.Registry, convs *storage.Store, logger *logging.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		hub:      hub,
		pipeline: pipeline,
		registry: registry,
		convs:    convs,
		logger:   logger,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start validates the request, registers the meeting, and launches its
// pipeline goroutine. The returned meeting is a snapshot in status pending.
func (c *Coordinator) Start(req StartRequest) (*model.Meeting, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrInvalidRequest)
	}
	if len(req.Models) == 0 {
		return nil, fmt.Errorf("%w: at least one model is required", ErrInvalidRequest)
	}
	for _, id := range req.Models {
		if _, ok := c.registry.Lookup(id); !ok {
			return nil, fmt.Errorf("%w: unknown model %q", ErrInvalidRequest, id)
		}
	}

	meetingID, err := model.GenerateID(model.IDTypeMeeting)
	if err != nil {
		return nil, err
	}
	convID := req.ConvID
	if convID == "" {
		convID, err = model.GenerateID(model.IDTypeConversation)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	m := &model.Meeting{
		MeetingID:   meetingID,
		ConvID:      convID,
		Content:     req.Content,
		Models:      append([]string(nil), req.Models...),
		Attachments: req.Attachments,
		Status:      model.StatusPending,
		Progress: model.Progress{
			ModelStatuses: make(map[string]model.ModelStatus),
			CurrentStage:  string(model.StatusPending),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	convContext := c.buildContext(convID)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("coordinator is shutting down")
	}
	c.store.Put(m)
	c.hub.Register(m.MeetingID)
	ctx, cancel := context.WithCancel(context.Background())
	c.cancels[m.MeetingID] = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Infof("coordinator: meeting_started meeting=%s conv=%s models=%d", m.MeetingID, convID, len(req.Models))

	go c.run(ctx, m.Clone(), convContext)
	return m.Clone(), nil
}

func (c *Coordinator) run(ctx context.Context, m *model.Meeting, convContext string) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		if cancel, ok := c.cancels[m.MeetingID]; ok {
			cancel()
			delete(c.cancels, m.MeetingID)
		}
		c.mu.Unlock()
	}()

	err := c.pipeline.Run(ctx, m, convContext)
	switch {
	case err == nil:
		c.finalizeSuccess(m)
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		c.finalize(m.MeetingID, model.StatusCancelled, "meeting cancelled")
	default:
		c.finalize(m.MeetingID, model.StatusFailed, err.Error())
	}
}

// finalizeSuccess transitions to completed, records the exchange in the
// conversation, names a fresh conversation, and publishes the terminal
// complete event. Persistence errors are logged but never fail the meeting:
// the deliberation already happened.
func (c *Coordinator) finalizeSuccess(m *model.Meeting) {
	if err := c.store.Update(m.MeetingID, func(mt *model.Meeting) error {
		if err := model.ValidateTransition(mt.Status, model.StatusCompleted); err != nil {
			return err
		}
		mt.Status = model.StatusCompleted
		mt.Progress.CurrentStage = string(model.StatusCompleted)
		mt.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		return nil
	}); err != nil {
		c.logger.Errorf("coordinator: complete_transition meeting=%s err=%q", m.MeetingID, err)
	}

	final, err := c.store.Get(m.MeetingID)
	if err != nil {
		final = m
	}

	title := c.persistExchange(final)

	if err := c.hub.Publish(m.MeetingID, events.EventComplete, events.CompletePayload{Title: title}); err != nil {
		c.logger.Errorf("coordinator: publish_complete meeting=%s err=%q", m.MeetingID, err)
	}
	c.logger.Infof("coordinator: meeting_completed meeting=%s conv=%s", m.MeetingID, m.ConvID)
}

func (c *Coordinator) finalize(meetingID string, status model.Status, msg string) {
	if err := c.store.Update(meetingID, func(mt *model.Meeting) error {
		if model.IsTerminal(mt.Status) {
			return fmt.Errorf("meeting already %s", mt.Status)
		}
		mt.Status = status
		mt.Progress.CurrentStage = string(status)
		mt.Progress.Error = msg
		mt.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		return nil
	}); err != nil {
		c.logger.Errorf("coordinator: finalize meeting=%s status=%s err=%q", meetingID, status, err)
		return
	}
	if err := c.hub.Publish(meetingID, events.EventError, events.ErrorPayload{Error: msg}); err != nil {
		c.logger.Errorf("coordinator: publish_error meeting=%s err=%q", meetingID, err)
	}
	c.logger.Warnf("coordinator: meeting_ended meeting=%s status=%s reason=%q", meetingID, status, msg)
}

// persistExchange writes the question/answer pair to the conversation file
// and returns the conversation title, generating one for a conversation that
// does not have a title yet.
func (c *Coordinator) persistExchange(m *model.Meeting) string {
	now := time.Now().UTC().Format(time.RFC3339)
	user := storage.Message{Role: "user", Content: m.Content, Timestamp: now}
	assistant := storage.Message{
		Role:          "assistant",
		Content:       answerOf(m),
		Stage1Results: m.Progress.Stage1Results,
		Stage2Results: m.Progress.Stage2Results,
		Stage3Result:  m.Progress.Stage3Result,
		Stage4Result:  m.Progress.Stage4Result,
		Timestamp:     now,
	}
	if err := c.convs.AppendExchange(m.ConvID, user, assistant); err != nil {
		c.logger.Errorf("coordinator: persist_exchange conv=%s err=%q", m.ConvID, err)
		return ""
	}

	conv, err := c.convs.Get(m.ConvID)
	if err != nil {
		return ""
	}
	if conv.Title != "" {
		return conv.Title
	}

	titleCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	title, err := c.pipeline.GenerateTitle(titleCtx, m.Content)
	if err != nil {
		c.logger.Warnf("coordinator: title_generation conv=%s err=%q", m.ConvID, err)
		return ""
	}
	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`))
	if err := c.convs.SetTitle(m.ConvID, title); err != nil {
		c.logger.Warnf("coordinator: set_title conv=%s err=%q", m.ConvID, err)
	}
	return title
}

// answerOf picks the conversation-facing answer: the chairman's synthesis,
// falling back to the top-ranked raw answer if the chairman failed.
func answerOf(m *model.Meeting) string {
	if s3 := m.Progress.Stage3Result; s3 != nil && s3.Error == "" && s3.Response != "" {
		return s3.Response
	}
	if s4 := m.Progress.Stage4Result; s4 != nil {
		return s4.BestAnswer
	}
	return ""
}

// buildContext renders recent turns of the conversation for Stage 1 prompts.
func (c *Coordinator) buildContext(convID string) string {
	conv, err := c.convs.Get(convID)
	if err != nil {
		return ""
	}
	var turns []council.Turn
	for i := 0; i+1 < len(conv.Messages); i++ {
		if conv.Messages[i].Role == "user" && conv.Messages[i+1].Role == "assistant" {
			turns = append(turns, council.Turn{
				Question: conv.Messages[i].Content,
				Answer:   conv.Messages[i+1].Content,
			})
			i++
		}
	}
	return council.BuildContext(turns, c.registry.Settings().ContextTurns)
}

// Cancel requests cancellation of a running meeting. Cancelling a meeting
// that already reached a terminal state is a no-op.
func (c *Coordinator) Cancel(meetingID string) error {
	m, err := c.store.Get(meetingID)
	if err != nil {
		return err
	}
	if model.IsTerminal(m.Status) {
		return nil
	}

	c.mu.Lock()
	cancel, ok := c.cancels[meetingID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

func (c *Coordinator) Get(meetingID string) (*model.Meeting, error) {
	return c.store.Get(meetingID)
}

func (c *Coordinator) ListByConversation(convID string) []model.MeetingSummary {
	return c.store.ListByConversation(convID)
}

func (c *Coordinator) List() []model.MeetingSummary {
	return c.store.List()
}

// Subscribe attaches to a meeting's event stream: full history first, then
// live events until the terminal event.
func (c *Coordinator) Subscribe(ctx context.Context, meetingID string) (<-chan events.Event, error) {
	if _, err := c.store.Get(meetingID); err != nil {
		return nil, err
	}
	return c.hub.Subscribe(ctx, meetingID)
}

// Shutdown cancels every running meeting and waits for their pipeline
// goroutines, bounded by ctx.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	for _, cancel := range c.cancels {
		cancel()
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}
