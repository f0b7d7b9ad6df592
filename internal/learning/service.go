// Package learning drives a learner through a course: enrollment, chapters,
// practice, quizzes and the certificate at the end.
package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pathshala/internal/account"
	"github.com/p-n-ai/pathshala/internal/assessment"
	"github.com/p-n-ai/pathshala/internal/catalog"
	"github.com/p-n-ai/pathshala/internal/certificate"
	"github.com/p-n-ai/pathshala/internal/events"
	"github.com/p-n-ai/pathshala/internal/progress"
)

var (
	ErrCourseNotFound    = errors.New("course not found")
	ErrPremiumRequired   = errors.New("premium course requires a premium account")
	ErrIncompleteAnswers = errors.New("every question must be answered")
)

// Catalog resolves course definitions.
type Catalog interface {
	Course(id string) (catalog.Course, bool)
}

// Users resolves learner accounts.
type Users interface {
	Get(ctx context.Context, id string) (account.User, error)
}

// Config holds dependencies for the learning service.
type Config struct {
	Catalog      Catalog
	Users        Users
	Progress     progress.Store      // default: in-memory
	Certificates *certificate.Issuer // default: in-memory store
	Events       events.Logger       // default: discard
	Now          func() time.Time    // default: time.Now
}

// Service implements the learning operations.
type Service struct {
	catalog  Catalog
	users    Users
	progress progress.Store
	certs    *certificate.Issuer
	events   events.Logger
	now      func() time.Time
}

// NewService creates a learning service. Catalog and Users are required.
func NewService(cfg Config) (*Service, error) {
	if cfg.Catalog == nil || cfg.Users == nil {
		return nil, fmt.Errorf("catalog and users are required")
	}
	store := cfg.Progress
	if store == nil {
		store = progress.NewMemoryStore()
	}
	certs := cfg.Certificates
	if certs == nil {
		certs = certificate.NewIssuer(certificate.NewMemoryStore(), "")
	}
	logger := cfg.Events
	if logger == nil {
		logger = events.NopLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		catalog:  cfg.Catalog,
		users:    cfg.Users,
		progress: store,
		certs:    certs,
		events:   logger,
		now:      now,
	}, nil
}

// Enrollment is an enrolled course with the learner's status in it.
type Enrollment struct {
	Course catalog.Summary `json:"course"`
	Status progress.Status `json:"status"`
}

// PracticeOutcome is the feedback for a practice submission.
type PracticeOutcome struct {
	Result assessment.Result `json:"result"`
	Status progress.Status   `json:"status"`
}

// QuizOutcome is the result of a quiz attempt.
type QuizOutcome struct {
	Result       assessment.Result        `json:"result"`
	Passed       bool                     `json:"passed"`
	PassPercent  int                      `json:"pass_percent"`
	AttemptsLeft int                      `json:"attempts_left"`
	Status       progress.Status          `json:"status"`
	Certificate  *certificate.Certificate `json:"certificate,omitempty"`
}

func (s *Service) course(id string) (*catalog.Course, error) {
	c, ok := s.catalog.Course(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCourseNotFound, id)
	}
	return &c, nil
}

// Enroll enrolls the user in a course. Enrolling twice returns the existing status.
func (s *Service) Enroll(ctx context.Context, userID, courseID string) (progress.Status, error) {
	c, err := s.course(courseID)
	if err != nil {
		return progress.Status{}, err
	}
	if c.Premium {
		u, err := s.users.Get(ctx, userID)
		if err != nil {
			return progress.Status{}, err
		}
		if !u.Premium && !u.Admin {
			return progress.Status{}, ErrPremiumRequired
		}
	}

	rec, err := s.progress.Create(ctx, progress.NewRecord(userID, c.ID, s.now()))
	if errors.Is(err, progress.ErrAlreadyEnrolled) {
		rec, err = s.progress.Get(ctx, userID, c.ID)
		if err != nil {
			return progress.Status{}, err
		}
		return progress.Evaluate(c, rec), nil
	}
	if err != nil {
		return progress.Status{}, fmt.Errorf("enroll: %w", err)
	}

	slog.Info("learner enrolled", "user_id", userID, "course_id", c.ID)
	s.emit(ctx, userID, c.ID, events.TypeEnrolled, nil)
	return progress.Evaluate(c, rec), nil
}

// Status returns the learner's derived state in a course.
func (s *Service) Status(ctx context.Context, userID, courseID string) (progress.Status, error) {
	c, err := s.course(courseID)
	if err != nil {
		return progress.Status{}, err
	}
	rec, err := s.progress.Get(ctx, userID, c.ID)
	if err != nil {
		return progress.Status{}, err
	}
	return progress.Evaluate(c, rec), nil
}

// Enrollments lists the learner's courses in enrollment order.
// Courses that left the catalog are skipped.
func (s *Service) Enrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	recs, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Enrollment, 0, len(recs))
	for _, rec := range recs {
		c, ok := s.catalog.Course(rec.CourseID)
		if !ok {
			slog.Warn("enrollment for unknown course", "user_id", userID, "course_id", rec.CourseID)
			continue
		}
		out = append(out, Enrollment{Course: c.Summarize(), Status: progress.Evaluate(&c, rec)})
	}
	return out, nil
}

// CompleteLearningPoint marks a learning point done.
func (s *Service) CompleteLearningPoint(ctx context.Context, userID, courseID, pointID string) (progress.Status, error) {
	return s.transition(ctx, userID, courseID, func(c *catalog.Course, r *progress.Record) (progress.Change, error) {
		return r.CompleteLearningPoint(c, pointID, s.now())
	})
}

// CompleteChapter marks a chapter done. Chapters with learning points need all of them done first.
func (s *Service) CompleteChapter(ctx context.Context, userID, courseID, chapterID string) (progress.Status, error) {
	return s.transition(ctx, userID, courseID, func(c *catalog.Course, r *progress.Record) (progress.Change, error) {
		return r.CompleteChapter(c, chapterID, s.now())
	})
}

// SubmitPractice grades a practice submission and completes the practice.
// Every question must be answered; the score is feedback only.
func (s *Service) SubmitPractice(ctx context.Context, userID, courseID, moduleID string, answers assessment.Answers) (PracticeOutcome, error) {
	var result assessment.Result
	st, err := s.transition(ctx, userID, courseID, func(c *catalog.Course, r *progress.Record) (progress.Change, error) {
		if err := r.CheckPractice(c, moduleID); err != nil {
			return progress.Change{}, err
		}
		m, _, _ := c.Module(moduleID)
		if !assessment.Complete(m.Practice.Questions, answers) {
			return progress.Change{}, ErrIncompleteAnswers
		}
		var err error
		result, err = assessment.Grade(m.Practice.Questions, answers)
		if err != nil {
			return progress.Change{}, err
		}
		return r.RecordPractice(c, moduleID, result.Percent, s.now())
	})
	if err != nil {
		return PracticeOutcome{}, err
	}
	return PracticeOutcome{Result: result, Status: st}, nil
}

// SubmitQuiz grades and records a quiz attempt. Unanswered questions count as wrong.
// Passing the last module completes the course and issues the certificate.
func (s *Service) SubmitQuiz(ctx context.Context, userID, courseID, moduleID string, answers assessment.Answers) (QuizOutcome, error) {
	var (
		result assessment.Result
		out    QuizOutcome
	)
	rec, c, change, err := s.update(ctx, userID, courseID, func(c *catalog.Course, r *progress.Record) (progress.Change, error) {
		if err := r.CheckQuiz(c, moduleID); err != nil {
			return progress.Change{}, err
		}
		m, _, _ := c.Module(moduleID)
		var err error
		result, err = assessment.Grade(m.Quiz.Questions, answers)
		if err != nil {
			return progress.Change{}, err
		}
		out.PassPercent = m.Quiz.PassPercent
		return r.RecordQuizAttempt(c, moduleID, result.Percent, s.now())
	})
	if err != nil {
		return QuizOutcome{}, err
	}

	out.Result = result
	out.Passed = change.ModulePassed != ""
	if rec.CompletedAt != nil && rec.CertificateID == "" {
		cert, updated, err := s.issue(ctx, c, rec)
		if err != nil {
			// The attempt is saved; the learner can claim the certificate later.
			slog.Error("certificate issue failed", "user_id", userID, "course_id", c.ID, "error", err)
		} else {
			out.Certificate = &cert
			rec = updated
		}
	}

	out.Status = progress.Evaluate(c, rec)
	for _, ms := range out.Status.Modules {
		if ms.ID == moduleID {
			out.AttemptsLeft = ms.Quiz.AttemptsLeft
		}
	}
	return out, nil
}

// IssueCertificate returns the certificate of a completed course, issuing it if needed.
func (s *Service) IssueCertificate(ctx context.Context, userID, courseID string) (certificate.Certificate, error) {
	c, err := s.course(courseID)
	if err != nil {
		return certificate.Certificate{}, err
	}
	rec, err := s.progress.Get(ctx, userID, c.ID)
	if err != nil {
		return certificate.Certificate{}, err
	}
	if rec.CompletedAt == nil {
		return certificate.Certificate{}, fmt.Errorf("%w: course %q is not complete", progress.ErrLocked, c.ID)
	}
	if rec.CertificateID != "" {
		return s.certs.Get(ctx, rec.CertificateID)
	}
	cert, _, err := s.issue(ctx, c, rec)
	return cert, err
}

// ResetQuiz gives a learner a fresh set of attempts on an unpassed quiz.
func (s *Service) ResetQuiz(ctx context.Context, userID, courseID, moduleID string) (progress.Status, error) {
	st, err := s.transition(ctx, userID, courseID, func(c *catalog.Course, r *progress.Record) (progress.Change, error) {
		return progress.Change{}, r.ResetQuiz(c, moduleID, s.now())
	})
	if err != nil {
		return progress.Status{}, err
	}
	slog.Info("quiz reset", "user_id", userID, "course_id", courseID, "module_id", moduleID)
	s.emit(ctx, userID, courseID, events.TypeQuizReset, map[string]any{"module_id": moduleID})
	return st, nil
}

func (s *Service) issue(ctx context.Context, c *catalog.Course, rec progress.Record) (certificate.Certificate, progress.Record, error) {
	u, err := s.users.Get(ctx, rec.UserID)
	if err != nil {
		return certificate.Certificate{}, rec, fmt.Errorf("load learner: %w", err)
	}
	cert, created, err := s.certs.Issue(ctx, certificate.Request{
		UserID:         rec.UserID,
		CourseID:       c.ID,
		LearnerName:    u.DisplayName,
		CourseTitle:    c.Title,
		AveragePercent: rec.AverageQuizPercent(),
	})
	if err != nil {
		return certificate.Certificate{}, rec, err
	}

	updated, err := s.progress.Update(ctx, rec.UserID, c.ID, func(r *progress.Record) error {
		r.CertificateID = cert.ID
		return nil
	})
	if err != nil {
		return certificate.Certificate{}, rec, fmt.Errorf("link certificate: %w", err)
	}
	if created {
		s.emit(ctx, rec.UserID, c.ID, events.TypeCertificateIssued, map[string]any{
			"certificate_id": cert.ID,
			"serial":         cert.Serial,
		})
	}
	return cert, updated, nil
}

type transitionFunc func(c *catalog.Course, r *progress.Record) (progress.Change, error)

func (s *Service) transition(ctx context.Context, userID, courseID string, fn transitionFunc) (progress.Status, error) {
	rec, c, _, err := s.update(ctx, userID, courseID, fn)
	if err != nil {
		return progress.Status{}, err
	}
	return progress.Evaluate(c, rec), nil
}

// update applies fn to the stored record and emits events for what changed.
func (s *Service) update(ctx context.Context, userID, courseID string, fn transitionFunc) (progress.Record, *catalog.Course, progress.Change, error) {
	c, err := s.course(courseID)
	if err != nil {
		return progress.Record{}, nil, progress.Change{}, err
	}

	var change progress.Change
	rec, err := s.progress.Update(ctx, userID, c.ID, func(r *progress.Record) error {
		var err error
		change, err = fn(c, r)
		return err
	})
	if err != nil {
		return progress.Record{}, nil, progress.Change{}, err
	}
	s.emitChange(ctx, userID, c.ID, change)
	return rec, c, change, nil
}

func (s *Service) emitChange(ctx context.Context, userID, courseID string, ch progress.Change) {
	if ch.LearningPoint != "" {
		s.emit(ctx, userID, courseID, events.TypeLearningPointCompleted, map[string]any{"learning_point_id": ch.LearningPoint})
	}
	if ch.Chapter != "" {
		s.emit(ctx, userID, courseID, events.TypeChapterCompleted, map[string]any{"chapter_id": ch.Chapter})
	}
	if ch.Practice != "" {
		s.emit(ctx, userID, courseID, events.TypePracticeCompleted, map[string]any{"module_id": ch.Practice})
	}
	if ch.Attempt != nil {
		s.emit(ctx, userID, courseID, events.TypeQuizAttempted, map[string]any{
			"module_id": ch.QuizModule,
			"percent":   ch.Attempt.Percent,
			"passed":    ch.Attempt.Passed,
		})
	}
	if ch.ModulePassed != "" {
		s.emit(ctx, userID, courseID, events.TypeModulePassed, map[string]any{"module_id": ch.ModulePassed})
	}
	if ch.CourseCompleted {
		s.emit(ctx, userID, courseID, events.TypeCourseCompleted, nil)
	}
}

func (s *Service) emit(ctx context.Context, userID, courseID, eventType string, data map[string]any) {
	err := s.events.LogEvent(ctx, events.Event{
		UserID:    userID,
		CourseID:  courseID,
		Type:      eventType,
		Data:      data,
		CreatedAt: s.now(),
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "user_id", userID, "error", err)
	}
}
