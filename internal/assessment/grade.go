// Package assessment grades practice and quiz submissions.
package assessment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/p-n-ai/pathshala/internal/catalog"
)

// ErrUnknownQuestion is returned when a submission answers a question that is not in the set.
var ErrUnknownQuestion = errors.New("unknown question")

// Answers maps question ID to the chosen option index.
type Answers map[string]int

// QuestionResult is the outcome for one question.
type QuestionResult struct {
	QuestionID string `json:"question_id"`
	Chosen     *int   `json:"chosen,omitempty"`
	Correct    bool   `json:"correct"`
	Expected   int    `json:"expected"`
	Points     int    `json:"points"`
}

// Result summarises a graded submission.
type Result struct {
	CorrectCount int              `json:"correct_count"`
	Questions    int              `json:"questions"`
	Earned       int              `json:"earned"`
	Total        int              `json:"total"`
	Percent      int              `json:"percent"`
	Breakdown    []QuestionResult `json:"breakdown"`
}

// Passed reports whether the result meets passPercent.
func (r Result) Passed(passPercent int) bool {
	return r.Percent >= passPercent
}

// Grade scores answers against questions. Missing answers count as wrong;
// answers to questions outside the set are rejected.
func Grade(questions []catalog.Question, answers Answers) (Result, error) {
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	var unknown []string
	for id := range answers {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Result{}, fmt.Errorf("%w: %v", ErrUnknownQuestion, unknown)
	}

	res := Result{
		Questions: len(questions),
		Breakdown: make([]QuestionResult, 0, len(questions)),
	}
	for _, q := range questions {
		points := q.Points
		if points <= 0 {
			points = 1
		}
		res.Total += points

		qr := QuestionResult{QuestionID: q.ID, Expected: q.Answer, Points: points}
		if chosen, ok := answers[q.ID]; ok {
			c := chosen
			qr.Chosen = &c
			qr.Correct = chosen == q.Answer
		}
		if qr.Correct {
			res.CorrectCount++
			res.Earned += points
		} else {
			qr.Points = 0
		}
		res.Breakdown = append(res.Breakdown, qr)
	}

	if res.Total > 0 {
		res.Percent = res.Earned * 100 / res.Total
	} else {
		res.Percent = 100
	}
	return res, nil
}

// Complete reports whether every question in the set has an answer.
func Complete(questions []catalog.Question, answers Answers) bool {
	for _, q := range questions {
		if _, ok := answers[q.ID]; !ok {
			return false
		}
	}
	return true
}
