// Package council implements the four-stage deliberation protocol: parallel
// response collection, anonymized peer review, chairman synthesis, and
// score-based ranking.
package council

import (
	"fmt"

	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

// LabelMap is the bijection between opaque labels ("#1", "#2", ...) and
// model ids for one meeting. Labels are assigned in Stage 1 completion
// order, which is also the ranking tie-break order. Every reviewer sees the
// identical mapping.
type LabelMap struct {
	labels  []string
	toModel map[string]string
	toLabel map[string]string
}

// AssignLabels builds the label map from the Stage 1 results, labelling only
// the models that produced a non-error response. Models that failed Stage 1
// receive no label and are excluded from review entirely.
func AssignLabels(stage1 []model.Stage1Result) *LabelMap {
	lm := &LabelMap{
		toModel: make(map[string]string),
		toLabel: make(map[string]string),
	}
	for _, r := range stage1 {
		if r.Error != "" {
			continue
		}
		label := fmt.Sprintf("#%d", len(lm.labels)+1)
		lm.labels = append(lm.labels, label)
		lm.toModel[label] = r.Model
		lm.toLabel[r.Model] = label
	}
	return lm
}

// Labels returns the labels in assignment order.
func (lm *LabelMap) Labels() []string {
	return append([]string(nil), lm.labels...)
}

func (lm *LabelMap) Model(label string) (string, bool) {
	m, ok := lm.toModel[label]
	return m, ok
}

func (lm *LabelMap) Label(modelID string) (string, bool) {
	l, ok := lm.toLabel[modelID]
	return l, ok
}

func (lm *LabelMap) Len() int {
	return len(lm.labels)
}

// ToModel returns a copy of the label → model mapping for event payloads.
func (lm *LabelMap) ToModel() map[string]string {
	out := make(map[string]string, len(lm.toModel))
	for k, v := range lm.toModel {
		out[k] = v
	}
	return out
}
