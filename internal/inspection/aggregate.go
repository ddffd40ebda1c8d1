package inspection

import (
	"fmt"
	"math"
)

// Outcome is the overall verdict of an inspection.
type Outcome string

const (
	OutcomePassed Outcome = "passed"
	OutcomeFailed Outcome = "failed"
)

const defaultDefectNote = "Failed"

// Summary holds the values derived from a checklist at submit time.
type Summary struct {
	TotalItems      int      `json:"total_items"`
	CompletedItems  int      `json:"completed_items"`
	PassCount       int      `json:"pass_count"`
	FailCount       int      `json:"fail_count"`
	NACount         int      `json:"na_count"`
	UnsetCount      int      `json:"unset_count"`
	ProgressPercent int      `json:"progress_percent"`
	Outcome         Outcome  `json:"outcome"`
	Defects         []string `json:"defects"`
	Score           int      `json:"score"`
}

// ProgressPercent is the share of items with a status, rounded to a whole
// percent. An empty checklist is 0% complete.
func ProgressPercent(sections []Section) int {
	total := TotalItemCount(sections)
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(CompletedItemCount(sections)) / float64(total)))
}

// OutcomeOf fails the inspection when any item failed. Unset items do not
// count against the outcome.
func OutcomeOf(sections []Section) Outcome {
	if CountByStatus(sections, StatusFail) > 0 {
		return OutcomeFailed
	}
	return OutcomePassed
}

// DefectList renders every failed item as "label: notes" in checklist order.
func DefectList(sections []Section) []string {
	defects := []string{}
	for _, s := range sections {
		for _, item := range s.Items {
			if item.Status != StatusFail {
				continue
			}
			note := item.Notes
			if note == "" {
				note = defaultDefectNote
			}
			defects = append(defects, fmt.Sprintf("%s: %s", item.Label, note))
		}
	}
	return defects
}

// Score is the pass rate over decided items, ignoring n/a and unset.
func Score(sections []Section) int {
	pass := CountByStatus(sections, StatusPass)
	fail := CountByStatus(sections, StatusFail)
	if pass+fail == 0 {
		return 0
	}
	return int(math.Round(100 * float64(pass) / float64(pass+fail)))
}

// Summarize computes every aggregate for sections.
func Summarize(sections []Section) Summary {
	total := TotalItemCount(sections)
	completed := CompletedItemCount(sections)
	return Summary{
		TotalItems:      total,
		CompletedItems:  completed,
		PassCount:       CountByStatus(sections, StatusPass),
		FailCount:       CountByStatus(sections, StatusFail),
		NACount:         CountByStatus(sections, StatusNA),
		UnsetCount:      total - completed,
		ProgressPercent: ProgressPercent(sections),
		Outcome:         OutcomeOf(sections),
		Defects:         DefectList(sections),
		Score:           Score(sections),
	}
}
