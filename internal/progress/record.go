// Package progress tracks a learner's way through a course and enforces the unlock chain
// chapter -> module -> practice -> quiz -> certificate.
package progress

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/p-n-ai/pathshala/internal/catalog"
)

// PracticeResult records the latest practice submission for a module.
type PracticeResult struct {
	Percent     int       `json:"percent"`
	CompletedAt time.Time `json:"completed_at"`
	Submissions int       `json:"submissions"`
}

// QuizAttempt is one graded quiz submission.
type QuizAttempt struct {
	Percent int       `json:"percent"`
	Passed  bool      `json:"passed"`
	At      time.Time `json:"at"`
}

// QuizHistory holds the attempts made on a module quiz since its last reset.
type QuizHistory struct {
	Attempts []QuizAttempt `json:"attempts"`
	PassedAt *time.Time    `json:"passed_at,omitempty"`
	Resets   int           `json:"resets,omitempty"`
}

// BestPercent returns the highest attempt score, or 0 without attempts.
func (h QuizHistory) BestPercent() int {
	best := 0
	for _, a := range h.Attempts {
		best = max(best, a.Percent)
	}
	return best
}

// Record is the progress of one user in one course.
type Record struct {
	UserID         string                    `json:"user_id"`
	CourseID       string                    `json:"course_id"`
	EnrolledAt     time.Time                 `json:"enrolled_at"`
	LearningPoints map[string]time.Time      `json:"learning_points"`
	Chapters       map[string]time.Time      `json:"chapters"`
	Practice       map[string]PracticeResult `json:"practice"`
	Quizzes        map[string]QuizHistory    `json:"quizzes"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
	CertificateID  string                    `json:"certificate_id,omitempty"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// NewRecord returns an empty record for a fresh enrollment.
func NewRecord(userID, courseID string, now time.Time) Record {
	r := Record{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	r.ensureMaps()
	return r
}

func (r *Record) ensureMaps() {
	if r.LearningPoints == nil {
		r.LearningPoints = make(map[string]time.Time)
	}
	if r.Chapters == nil {
		r.Chapters = make(map[string]time.Time)
	}
	if r.Practice == nil {
		r.Practice = make(map[string]PracticeResult)
	}
	if r.Quizzes == nil {
		r.Quizzes = make(map[string]QuizHistory)
	}
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	out.LearningPoints = maps.Clone(r.LearningPoints)
	out.Chapters = maps.Clone(r.Chapters)
	out.Practice = maps.Clone(r.Practice)
	out.Quizzes = make(map[string]QuizHistory, len(r.Quizzes))
	for k, h := range r.Quizzes {
		h.Attempts = slices.Clone(h.Attempts)
		if h.PassedAt != nil {
			t := *h.PassedAt
			h.PassedAt = &t
		}
		out.Quizzes[k] = h
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	out.ensureMaps()
	return out
}

// Change describes what a transition did, for event emission.
type Change struct {
	LearningPoint   string       `json:"learning_point,omitempty"`
	Chapter         string       `json:"chapter,omitempty"`
	Practice        string       `json:"practice,omitempty"`
	QuizModule      string       `json:"quiz_module,omitempty"`
	Attempt         *QuizAttempt `json:"attempt,omitempty"`
	ModulePassed    string       `json:"module_passed,omitempty"`
	CourseCompleted bool         `json:"course_completed,omitempty"`
}

// Empty reports whether the transition changed nothing.
func (c Change) Empty() bool {
	return c == Change{}
}

// ModulePassed reports whether the quiz of the module with the given ID has been passed.
func (r *Record) ModulePassed(moduleID string) bool {
	h, ok := r.Quizzes[moduleID]
	return ok && h.PassedAt != nil
}

func (r *Record) moduleAvailable(c *catalog.Course, mi int) bool {
	return mi == 0 || r.ModulePassed(c.Modules[mi-1].ID)
}

func (r *Record) chapterAvailable(c *catalog.Course, mi, ci int) bool {
	if !r.moduleAvailable(c, mi) {
		return false
	}
	if ci == 0 {
		return true
	}
	_, done := r.Chapters[c.Modules[mi].Chapters[ci-1].ID]
	return done
}

func (r *Record) chaptersDone(m *catalog.Module) bool {
	for _, ch := range m.Chapters {
		if _, done := r.Chapters[ch.ID]; !done {
			return false
		}
	}
	return true
}

func (r *Record) pointsDone(ch *catalog.Chapter) int {
	n := 0
	for _, lp := range ch.LearningPoints {
		if _, done := r.LearningPoints[lp.ID]; done {
			n++
		}
	}
	return n
}

func (r *Record) practiceAvailable(c *catalog.Course, mi int) bool {
	return r.moduleAvailable(c, mi) && r.chaptersDone(&c.Modules[mi])
}

// CompleteLearningPoint marks a learning point done. Completing the last point of a
// chapter completes the chapter.
func (r *Record) CompleteLearningPoint(c *catalog.Course, pointID string, now time.Time) (Change, error) {
	r.ensureMaps()
	_, mi, ci, ok := c.LearningPoint(pointID)
	if !ok {
		return Change{}, fmt.Errorf("%w: learning point %q", ErrUnknownItem, pointID)
	}
	if !r.chapterAvailable(c, mi, ci) {
		return Change{}, fmt.Errorf("%w: learning point %q", ErrLocked, pointID)
	}
	if _, done := r.LearningPoints[pointID]; done {
		return Change{}, nil
	}

	r.LearningPoints[pointID] = now
	r.UpdatedAt = now
	change := Change{LearningPoint: pointID}

	ch := &c.Modules[mi].Chapters[ci]
	if _, done := r.Chapters[ch.ID]; !done && r.pointsDone(ch) == len(ch.LearningPoints) {
		r.Chapters[ch.ID] = now
		change.Chapter = ch.ID
	}
	return change, nil
}

// CompleteChapter marks a chapter done once all its learning points are.
func (r *Record) CompleteChapter(c *catalog.Course, chapterID string, now time.Time) (Change, error) {
	r.ensureMaps()
	ch, mi, ci, ok := c.Chapter(chapterID)
	if !ok {
		return Change{}, fmt.Errorf("%w: chapter %q", ErrUnknownItem, chapterID)
	}
	if !r.chapterAvailable(c, mi, ci) {
		return Change{}, fmt.Errorf("%w: chapter %q", ErrLocked, chapterID)
	}
	if _, done := r.Chapters[chapterID]; done {
		return Change{}, nil
	}
	if done := r.pointsDone(ch); done < len(ch.LearningPoints) {
		return Change{}, fmt.Errorf("%w: chapter %q has %d of %d learning points done",
			ErrIncomplete, chapterID, done, len(ch.LearningPoints))
	}

	r.Chapters[chapterID] = now
	r.UpdatedAt = now
	return Change{Chapter: chapterID}, nil
}

// CheckPractice returns nil when the module practice may be submitted.
func (r *Record) CheckPractice(c *catalog.Course, moduleID string) error {
	_, mi, ok := c.Module(moduleID)
	if !ok {
		return fmt.Errorf("%w: module %q", ErrUnknownItem, moduleID)
	}
	if !r.practiceAvailable(c, mi) {
		return fmt.Errorf("%w: practice for module %q", ErrLocked, moduleID)
	}
	return nil
}

// RecordPractice stores a practice submission. Practice is ungraded: any full
// submission completes it, and later submissions only refresh the score.
func (r *Record) RecordPractice(c *catalog.Course, moduleID string, percent int, now time.Time) (Change, error) {
	r.ensureMaps()
	if err := r.CheckPractice(c, moduleID); err != nil {
		return Change{}, err
	}

	prev, seen := r.Practice[moduleID]
	res := PracticeResult{Percent: percent, CompletedAt: now, Submissions: prev.Submissions + 1}
	if seen {
		res.CompletedAt = prev.CompletedAt
	}
	r.Practice[moduleID] = res
	r.UpdatedAt = now

	if seen {
		return Change{}, nil
	}
	return Change{Practice: moduleID}, nil
}

// CheckQuiz returns nil when the module quiz may be attempted.
func (r *Record) CheckQuiz(c *catalog.Course, moduleID string) error {
	m, mi, ok := c.Module(moduleID)
	if !ok {
		return fmt.Errorf("%w: module %q", ErrUnknownItem, moduleID)
	}
	if !r.moduleAvailable(c, mi) {
		return fmt.Errorf("%w: module %q", ErrLocked, moduleID)
	}
	if _, done := r.Practice[moduleID]; !done {
		return fmt.Errorf("%w: quiz for module %q needs practice first", ErrLocked, moduleID)
	}
	h := r.Quizzes[moduleID]
	if h.PassedAt != nil {
		return fmt.Errorf("%w: module %q", ErrAlreadyPassed, moduleID)
	}
	if len(h.Attempts) >= m.Quiz.MaxAttempts {
		return fmt.Errorf("%w: module %q used %d of %d", ErrAttemptsExhausted, moduleID, len(h.Attempts), m.Quiz.MaxAttempts)
	}
	return nil
}

// RecordQuizAttempt stores a graded quiz attempt. A passing attempt passes the module;
// passing the last module completes the course.
func (r *Record) RecordQuizAttempt(c *catalog.Course, moduleID string, percent int, now time.Time) (Change, error) {
	r.ensureMaps()
	if err := r.CheckQuiz(c, moduleID); err != nil {
		return Change{}, err
	}
	m, _, _ := c.Module(moduleID)

	attempt := QuizAttempt{Percent: percent, Passed: percent >= m.Quiz.PassPercent, At: now}
	h := r.Quizzes[moduleID]
	h.Attempts = append(h.Attempts, attempt)
	change := Change{QuizModule: moduleID, Attempt: &attempt}

	if attempt.Passed {
		passedAt := now
		h.PassedAt = &passedAt
		change.ModulePassed = moduleID
	}
	r.Quizzes[moduleID] = h
	r.UpdatedAt = now

	if attempt.Passed && r.CompletedAt == nil && r.allModulesPassed(c) {
		completedAt := now
		r.CompletedAt = &completedAt
		change.CourseCompleted = true
	}
	return change, nil
}

// ResetQuiz clears the attempts of an unpassed quiz so the learner may try again.
func (r *Record) ResetQuiz(c *catalog.Course, moduleID string, now time.Time) error {
	r.ensureMaps()
	if _, _, ok := c.Module(moduleID); !ok {
		return fmt.Errorf("%w: module %q", ErrUnknownItem, moduleID)
	}
	h := r.Quizzes[moduleID]
	if h.PassedAt != nil {
		return fmt.Errorf("%w: module %q", ErrAlreadyPassed, moduleID)
	}
	h.Attempts = nil
	h.Resets++
	r.Quizzes[moduleID] = h
	r.UpdatedAt = now
	return nil
}

func (r *Record) allModulesPassed(c *catalog.Course) bool {
	for _, m := range c.Modules {
		if !r.ModulePassed(m.ID) {
			return false
		}
	}
	return len(c.Modules) > 0
}

// AverageQuizPercent returns the mean of the passing attempt scores across passed modules.
func (r *Record) AverageQuizPercent() int {
	total, n := 0, 0
	for _, h := range r.Quizzes {
		if h.PassedAt == nil {
			continue
		}
		for _, a := range h.Attempts {
			if a.Passed {
				total += a.Percent
				n++
				break
			}
		}
	}
	if n == 0 {
		return 0
	}
	return total / n
}
