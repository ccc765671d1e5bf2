package council

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asdersss/EZ-LLMcouncil/internal/config"
	"github.com/asdersss/EZ-LLMcouncil/internal/events"
	"github.com/asdersss/EZ-LLMcouncil/internal/llm"
	"github.com/asdersss/EZ-LLMcouncil/internal/logging"
	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

// StateWriter is the pipeline's view of the meeting store. The update
// function runs under the store's lock on a private copy; returning an error
// aborts the update.
type StateWriter interface {
	Update(meetingID string, fn func(*model.Meeting) error) error
}

// Publisher is the pipeline's view of the event hub.
type Publisher interface {
	Publish(meetingID string, t events.EventType, payload any) error
}

// Pipeline drives one meeting through the four stages. It owns the stage
// semantics only; terminal status transitions and the terminal
// complete/error events belong to the coordinator, so the pipeline reports
// fatal conditions by returning an error.
type Pipeline struct {
	gateway  llm.Gateway
	registry *config.Registry
	state    StateWriter
	pub      Publisher
	limiter  *llm.Limiter
	logger   *logging.Logger

	baseBackoff time.Duration
}

func NewPipeline(gateway llm.Gateway, registry *config.Registry, state StateWriter, pub Publisher, limiter *llm.Limiter, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		gateway:     gateway,
		registry:    registry,
		state:       state,
		pub:         pub,
		limiter:     limiter,
		logger:      logger,
		baseBackoff: time.Second,
	}
}

// SetBaseBackoff overrides the retry backoff base for testing.
func (p *Pipeline) SetBaseBackoff(d time.Duration) {
	p.baseBackoff = d
}

// Run executes stages 1 through 4 for the meeting. Settings are captured
// once at the start so a config reload never changes a meeting mid-flight.
// A cancelled context stops the run at the next stage boundary.
func (p *Pipeline) Run(ctx context.Context, m *model.Meeting, convContext string) error {
	settings := p.registry.Settings()
	timeout := time.Duration(settings.TimeoutSec) * time.Second

	// Stage 1: every participant answers in parallel.
	if err := p.transition(m.MeetingID, model.StatusStage1); err != nil {
		return err
	}
	if err := p.pub.Publish(m.MeetingID, events.EventStage1Start, events.StageStartPayload{
		Message: fmt.Sprintf("collecting answers from %d models", len(m.Models)),
	}); err != nil {
		return err
	}

	stage1Prompt := BuildStage1Prompt(m.Content, m.Attachments, convContext)
	stage1 := p.runStage1(ctx, m, stage1Prompt, settings, timeout)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.pub.Publish(m.MeetingID, events.EventStage1Complete, events.Stage1CompletePayload{Results: stage1}); err != nil {
		return err
	}

	labels := AssignLabels(stage1)
	if labels.Len() == 0 {
		return fmt.Errorf("all %d models failed to answer", len(m.Models))
	}

	// Stage 2: surviving participants review each other anonymously.
	if err := p.transition(m.MeetingID, model.StatusStage2); err != nil {
		return err
	}
	if err := p.pub.Publish(m.MeetingID, events.EventStage2Start, events.StageStartPayload{
		Message: fmt.Sprintf("peer review across %d answers", labels.Len()),
	}); err != nil {
		return err
	}
	if err := p.pub.Publish(m.MeetingID, events.EventStage2LabelMapping, events.LabelMappingPayload{
		LabelToModel: labels.ToModel(),
	}); err != nil {
		return err
	}

	var stage2 []model.Stage2Result
	if labels.Len() < 2 {
		stage2 = p.skipStage2(m)
	} else {
		stage2 = p.runStage2(ctx, m, labels, stage1, settings, timeout)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.pub.Publish(m.MeetingID, events.EventStage2Complete, events.Stage2CompletePayload{Results: stage2}); err != nil {
		return err
	}

	// Stage 3: chairman synthesis. Failure here is recorded, not fatal;
	// the ranking can still be computed.
	if err := p.transition(m.MeetingID, model.StatusStage3); err != nil {
		return err
	}
	if err := p.pub.Publish(m.MeetingID, events.EventStage3Start, events.StageStartPayload{
		Message: "chairman is synthesizing the final answer",
	}); err != nil {
		return err
	}
	stage3 := p.runStage3(ctx, m, labels, stage1, stage2, settings, timeout)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.pub.Publish(m.MeetingID, events.EventStage3Complete, events.Stage3CompletePayload{Result: stage3}); err != nil {
		return err
	}

	// Stage 4: pure computation over recorded results, no model calls.
	if err := p.transition(m.MeetingID, model.StatusStage4); err != nil {
		return err
	}
	if err := p.pub.Publish(m.MeetingID, events.EventStage4Start, events.StageStartPayload{
		Message: "computing the final ranking",
	}); err != nil {
		return err
	}
	if err := p.pub.Publish(m.MeetingID, events.EventStage4Progress, events.Stage4ProgressPayload{Status: "aggregating scores"}); err != nil {
		return err
	}

	stage4 := Aggregate(stage1, stage2)
	if err := p.state.Update(m.MeetingID, func(mt *model.Meeting) error {
		mt.Progress.Stage4Result = stage4
		return nil
	}); err != nil {
		return err
	}
	return p.pub.Publish(m.MeetingID, events.EventStage4Complete, events.Stage4CompletePayload{Result: *stage4})
}

// runStage1 fans out one answer call per participant and collects results in
// completion order. That order is recorded in Progress.Stage1Results and
// later fixes both the anonymization labels and the ranking tie-break.
func (p *Pipeline) runStage1(ctx context.Context, m *model.Meeting, prompt string, settings model.SettingsConfig, timeout time.Duration) []model.Stage1Result {
	ch := make(chan model.Stage1Result, len(m.Models))
	var wg sync.WaitGroup
	for _, id := range m.Models {
		wg.Add(1)
		go func(modelID string) {
			defer wg.Done()
			ch <- p.answerOnce(ctx, m.MeetingID, modelID, prompt, settings, timeout)
		}(id)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	results := make([]model.Stage1Result, 0, len(m.Models))
	for r := range ch {
		results = append(results, r)
		_ = p.state.Update(m.MeetingID, func(mt *model.Meeting) error {
			mt.Progress.Stage1Results = append(mt.Progress.Stage1Results, r)
			return nil
		})
	}
	return results
}

func (p *Pipeline) answerOnce(ctx context.Context, meetingID, modelID, prompt string, settings model.SettingsConfig, timeout time.Duration) model.Stage1Result {
	cfg, ok := p.registry.Lookup(modelID)
	if !ok {
		res := model.Stage1Result{Model: modelID, Error: "model is not configured", Timestamp: nowStamp()}
		p.setModelStatus(meetingID, modelID, model.ModelStatus{Phase: "failed", Error: res.Error})
		p.publishStage1Progress(meetingID, modelID, "failed", 0, 0, &res)
		return res
	}

	p.setModelStatus(meetingID, modelID, model.ModelStatus{Phase: "querying"})
	p.publishStage1Progress(meetingID, modelID, "querying", 0, 0, nil)

	text, err := p.execute(ctx, modelID, settings, timeout, cfg, prompt, func(attempt, max int) {
		p.setModelStatus(meetingID, modelID, model.ModelStatus{Phase: "retrying", Attempt: attempt, MaxAttempts: max})
		p.publishStage1Progress(meetingID, modelID, "retrying", attempt, max, nil)
	})
	if err != nil {
		res := model.Stage1Result{Model: modelID, Error: err.Error(), Timestamp: nowStamp()}
		p.setModelStatus(meetingID, modelID, model.ModelStatus{Phase: "failed", Error: res.Error})
		p.publishStage1Progress(meetingID, modelID, "failed", 0, 0, &res)
		p.logger.Warnf("pipeline: stage1_failed meeting=%s model=%s err=%q", meetingID, modelID, err)
		return res
	}

	res := model.Stage1Result{Model: modelID, Response: NormalizeLaTeX(text), Timestamp: nowStamp()}
	p.setModelStatus(meetingID, modelID, model.ModelStatus{Phase: "completed"})
	p.publishStage1Progress(meetingID, modelID, "completed", 0, 0, &res)
	return res
}

// skipStage2 records a skipped review round for every participant. With
// fewer than two surviving answers there is nothing to compare, so no review
// calls are made at all.
func (p *Pipeline) skipStage2(m *model.Meeting) []model.Stage2Result {
	const reason = "not enough valid answers to review"
	results := make([]model.Stage2Result, 0, len(m.Models))
	for _, id := range m.Models {
		res := model.Stage2Result{
			Model:        id,
			Scores:       map[string]float64{},
			Participated: false,
			SkipReason:   reason,
			Timestamp:    nowStamp(),
		}
		results = append(results, res)
		_ = p.state.Update(m.MeetingID, func(mt *model.Meeting) error {
			mt.Progress.Stage2Results = append(mt.Progress.Stage2Results, res)
			return nil
		})
		p.publishStage2Progress(m.MeetingID, id, "skipped", 0, 0, &res)
	}
	return results
}

// runStage2 fans out one review call per surviving participant. Models that
// failed Stage 1 are not asked to review and get no Stage 2 entry.
func (p *Pipeline) runStage2(ctx context.Context, m *model.Meeting, labels *LabelMap, stage1 []model.Stage1Result, settings model.SettingsConfig, timeout time.Duration) []model.Stage2Result {
	reviewers := make([]string, 0, labels.Len())
	for _, label := range labels.Labels() {
		modelID, _ := labels.Model(label)
		reviewers = append(reviewers, modelID)
	}

	expected := labels.Labels()

	ch := make(chan model.Stage2Result, len(reviewers))
	var wg sync.WaitGroup
	for _, id := range reviewers {
		wg.Add(1)
		go func(modelID string) {
			defer wg.Done()
			ch <- p.reviewOnce(ctx, m, labels, stage1, expected, modelID, settings, timeout)
		}(id)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	results := make([]model.Stage2Result, 0, len(reviewers))
	for r := range ch {
		results = append(results, r)
		_ = p.state.Update(m.MeetingID, func(mt *model.Meeting) error {
			mt.Progress.Stage2Results = append(mt.Progress.Stage2Results, r)
			return nil
		})
	}
	return results
}

func (p *Pipeline) reviewOnce(ctx context.Context, m *model.Meeting, labels *LabelMap, stage1 []model.Stage1Result, expected []string, modelID string, settings model.SettingsConfig, timeout time.Duration) model.Stage2Result {
	reviewerLabel, _ := labels.Label(modelID)
	cfg, ok := p.registry.Lookup(modelID)
	if !ok {
		res := model.Stage2Result{Model: modelID, Scores: map[string]float64{}, Error: "model is not configured", Timestamp: nowStamp()}
		p.publishStage2Progress(m.MeetingID, modelID, "failed", 0, 0, &res)
		return res
	}

	p.setModelStatus(m.MeetingID, modelID, model.ModelStatus{Phase: "reviewing"})
	p.publishStage2Progress(m.MeetingID, modelID, "reviewing", 0, 0, nil)

	prompt := BuildStage2Prompt(m.Content, labels, stage1, reviewerLabel)
	text, err := p.execute(ctx, modelID, settings, timeout, cfg, prompt, func(attempt, max int) {
		p.setModelStatus(m.MeetingID, modelID, model.ModelStatus{Phase: "retrying", Attempt: attempt, MaxAttempts: max})
		p.publishStage2Progress(m.MeetingID, modelID, "retrying", attempt, max, nil)
	})
	if err != nil {
		res := model.Stage2Result{Model: modelID, Scores: map[string]float64{}, Error: err.Error(), Timestamp: nowStamp()}
		p.setModelStatus(m.MeetingID, modelID, model.ModelStatus{Phase: "failed", Error: res.Error})
		p.publishStage2Progress(m.MeetingID, modelID, "failed", 0, 0, &res)
		p.logger.Warnf("pipeline: stage2_failed meeting=%s model=%s err=%q", m.MeetingID, modelID, err)
		return res
	}

	scores, warnings := ParseScores(text, expected, reviewerLabel)
	for _, w := range warnings {
		p.logger.Warnf("pipeline: stage2_parse meeting=%s model=%s msg=%q", m.MeetingID, modelID, w)
	}

	res := model.Stage2Result{
		Model:        modelID,
		Scores:       scores,
		RawText:      text,
		Participated: true,
		Timestamp:    nowStamp(),
	}
	p.setModelStatus(m.MeetingID, modelID, model.ModelStatus{Phase: "completed"})
	p.publishStage2Progress(m.MeetingID, modelID, "completed", 0, 0, &res)
	return res
}

func (p *Pipeline) runStage3(ctx context.Context, m *model.Meeting, labels *LabelMap, stage1 []model.Stage1Result, stage2 []model.Stage2Result, settings model.SettingsConfig, timeout time.Duration) model.Stage3Result {
	chairmanID := p.registry.Chairman()
	record := func(res model.Stage3Result) model.Stage3Result {
		_ = p.state.Update(m.MeetingID, func(mt *model.Meeting) error {
			mt.Progress.Stage3Result = &res
			return nil
		})
		return res
	}

	cfg, ok := p.registry.Lookup(chairmanID)
	if !ok {
		res := model.Stage3Result{Error: fmt.Sprintf("chairman %s is not configured", chairmanID), Timestamp: nowStamp()}
		p.publishStage3Progress(m.MeetingID, "failed", 0, 0, res.Error)
		return record(res)
	}

	p.publishStage3Progress(m.MeetingID, "querying", 0, 0, "")

	prompt := BuildStage3Prompt(m.Content, labels, stage1, stage2)
	text, err := p.execute(ctx, chairmanID, settings, timeout, cfg, prompt, func(attempt, max int) {
		p.publishStage3Progress(m.MeetingID, "retrying", attempt, max, "")
	})
	if err != nil {
		res := model.Stage3Result{Error: err.Error(), Timestamp: nowStamp()}
		p.publishStage3Progress(m.MeetingID, "failed", 0, 0, res.Error)
		p.logger.Warnf("pipeline: stage3_failed meeting=%s chairman=%s err=%q", m.MeetingID, chairmanID, err)
		return record(res)
	}

	return record(model.Stage3Result{Response: NormalizeLaTeX(text), Timestamp: nowStamp()})
}

// GenerateTitle asks the chairman for a short conversation title. Single
// attempt with a tight timeout; the caller treats failure as "no title".
func (p *Pipeline) GenerateTitle(ctx context.Context, question string) (string, error) {
	chairmanID := p.registry.Chairman()
	cfg, ok := p.registry.Lookup(chairmanID)
	if !ok {
		return "", fmt.Errorf("chairman %s is not configured", chairmanID)
	}
	return p.gateway.Call(ctx, cfg, BuildTitlePrompt(question), 30*time.Second)
}

// execute wraps a single-prompt gateway call with the concurrency limit and
// the retry policy. The limiter is held across all attempts so a retrying
// model cannot amplify its load share.
func (p *Pipeline) execute(ctx context.Context, modelID string, settings model.SettingsConfig, timeout time.Duration, cfg model.ModelConfig, prompt string, onRetry func(attempt, max int)) (string, error) {
	if err := p.limiter.Acquire(ctx); err != nil {
		return "", err
	}
	defer p.limiter.Release()

	exec := llm.NewExecutor(settings.MaxRetries, p.baseBackoff, func(_ string, attempt, max int) {
		onRetry(attempt, max)
	})
	return exec.Execute(ctx, modelID, func(ctx context.Context) (string, error) {
		return p.gateway.Call(ctx, cfg, prompt, timeout)
	})
}

func (p *Pipeline) transition(meetingID string, to model.Status) error {
	return p.state.Update(meetingID, func(m *model.Meeting) error {
		if err := model.ValidateTransition(m.Status, to); err != nil {
			return err
		}
		m.Status = to
		m.Progress.CurrentStage = string(to)
		m.UpdatedAt = nowStamp()
		return nil
	})
}

func (p *Pipeline) setModelStatus(meetingID, modelID string, status model.ModelStatus) {
	_ = p.state.Update(meetingID, func(m *model.Meeting) error {
		if m.Progress.ModelStatuses == nil {
			m.Progress.ModelStatuses = make(map[string]model.ModelStatus)
		}
		m.Progress.ModelStatuses[modelID] = status
		return nil
	})
}

func (p *Pipeline) publishStage1Progress(meetingID, modelID, status string, attempt, max int, res *model.Stage1Result) {
	_ = p.pub.Publish(meetingID, events.EventStage1Progress, events.Stage1ProgressPayload{
		Model:       modelID,
		Status:      status,
		Attempt:     attempt,
		MaxAttempts: max,
		Result:      res,
	})
}

func (p *Pipeline) publishStage2Progress(meetingID, modelID, status string, attempt, max int, res *model.Stage2Result) {
	_ = p.pub.Publish(meetingID, events.EventStage2Progress, events.Stage2ProgressPayload{
		Model:       modelID,
		Status:      status,
		Attempt:     attempt,
		MaxAttempts: max,
		Result:      res,
	})
}

func (p *Pipeline) publishStage3Progress(meetingID, status string, attempt, max int, errMsg string) {
	_ = p.pub.Publish(meetingID, events.EventStage3Progress, events.Stage3ProgressPayload{
		Status:      status,
		Attempt:     attempt,
		MaxAttempts: max,
		Error:       errMsg,
	})
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
