package model

// Attachment is the extracted text of one uploaded document, supplied by the
// ingestion layer. The pipeline only ever sees plain text.
type Attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Stage1Result records one participant's answer (or final failure) for the
// parallel collection stage. Immutable once appended to Progress; the append
// order is the completion order and doubles as the ranking tie-break.
type Stage1Result struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// Stage2Result records one reviewer's anonymized scoring round.
// Participated reports whether the review call itself succeeded; whether the
// parsed scores are usable is judged later by the ranking aggregator.
type Stage2Result struct {
	Model        string             `json:"model"`
	Scores       map[string]float64 `json:"scores"`
	RawText      string             `json:"raw_text"`
	Participated bool               `json:"participated"`
	SkipReason   string             `json:"skip_reason,omitempty"`
	Error        string             `json:"error,omitempty"`
	Timestamp    string             `json:"timestamp"`
}

type Stage3Result struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// RankingEntry is one row of the final ranking. ScorerValid reports whether
// this model's own Stage 2 submission was usable as a scoring input.
type RankingEntry struct {
	Rank         int     `json:"rank"`
	Label        string  `json:"label"`
	Model        string  `json:"model"`
	AvgScore     float64 `json:"avg_score"`
	ScoreCount   int     `json:"score_count"`
	Response     string  `json:"response"`
	ScorerValid  bool    `json:"scorer_valid"`
	ScorerReason string  `json:"scorer_reason,omitempty"`
}

type ScorerSummary struct {
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
	Expected int    `json:"expected"`
	Actual   int    `json:"actual"`
}

type Stage4Result struct {
	Rankings         []RankingEntry           `json:"rankings"`
	BestAnswer       string                   `json:"best_answer"`
	ScoringSummary   map[string]ScorerSummary `json:"scoring_summary"`
	ValidScorerCount int                      `json:"valid_scorer_count"`
	Timestamp        string                   `json:"timestamp"`
	Error            string                   `json:"error,omitempty"`
}

// ModelStatus is the human-readable per-participant phase used for live UI
// reporting ("querying", "retrying (2/3)", "completed", ...).
type ModelStatus struct {
	Phase       string `json:"phase"`
	Attempt     int    `json:"attempt,omitempty"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
	Error       string `json:"error,omitempty"`
}

type Progress struct {
	Stage1Results []Stage1Result         `json:"stage1_results"`
	Stage2Results []Stage2Result         `json:"stage2_results"`
	Stage3Result  *Stage3Result          `json:"stage3_result,omitempty"`
	Stage4Result  *Stage4Result          `json:"stage4_result,omitempty"`
	ModelStatuses map[string]ModelStatus `json:"model_statuses"`
	CurrentStage  string                 `json:"current_stage"`
	Error         string                 `json:"error,omitempty"`
}

// Meeting is one deliberation run. Owned by the coordinator, mutated only by
// its pipeline goroutine via copy-on-write snapshot replace in the store.
type Meeting struct {
	MeetingID   string       `json:"meeting_id"`
	ConvID      string       `json:"conv_id"`
	Content     string       `json:"content"`
	Models      []string     `json:"models"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Status      Status       `json:"status"`
	Progress    Progress     `json:"progress"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
}

type MeetingSummary struct {
	MeetingID    string `json:"meeting_id"`
	ConvID       string `json:"conv_id"`
	Status       Status `json:"status"`
	CurrentStage string `json:"current_stage"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func (m *Meeting) Summary() MeetingSummary {
	return MeetingSummary{
		MeetingID:    m.MeetingID,
		ConvID:       m.ConvID,
		Status:       m.Status,
		CurrentStage: m.Progress.CurrentStage,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// Clone returns a deep copy. Readers of the store always get clones so the
// pipeline can keep appending to its own snapshot without data races.
func (m *Meeting) Clone() *Meeting {
	c := *m
	c.Models = append([]string(nil), m.Models...)
	c.Attachments = append([]Attachment(nil), m.Attachments...)
	c.Progress = m.Progress.clone()
	return &c
}

func (p Progress) clone() Progress {
	c := p
	c.Stage1Results = append([]Stage1Result(nil), p.Stage1Results...)
	c.Stage2Results = make([]Stage2Result, len(p.Stage2Results))
	for i, r := range p.Stage2Results {
		c.Stage2Results[i] = r
		if r.Scores != nil {
			scores := make(map[string]float64, len(r.Scores))
			for k, v := range r.Scores {
				scores[k] = v
			}
			c.Stage2Results[i].Scores = scores
		}
	}
	if p.Stage3Result != nil {
		s3 := *p.Stage3Result
		c.Stage3Result = &s3
	}
	if p.Stage4Result != nil {
		s4 := *p.Stage4Result
		s4.Rankings = append([]RankingEntry(nil), p.Stage4Result.Rankings...)
		if p.Stage4Result.ScoringSummary != nil {
			summary := make(map[string]ScorerSummary, len(p.Stage4Result.ScoringSummary))
			for k, v := range p.Stage4Result.ScoringSummary {
				summary[k] = v
			}
			s4.ScoringSummary = summary
		}
		c.Stage4Result = &s4
	}
	if p.ModelStatuses != nil {
		statuses := make(map[string]ModelStatus, len(p.ModelStatuses))
		for k, v := range p.ModelStatuses {
			statuses[k] = v
		}
		c.ModelStatuses = statuses
	}
	return c
}
