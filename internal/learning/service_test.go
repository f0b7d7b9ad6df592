package learning_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/p-n-ai/pathshala/internal/account"
	"github.com/p-n-ai/pathshala/internal/assessment"
	"github.com/p-n-ai/pathshala/internal/catalog/catalogtest"
	"github.com/p-n-ai/pathshala/internal/certificate"
	"github.com/p-n-ai/pathshala/internal/events"
	"github.com/p-n-ai/pathshala/internal/learning"
	"github.com/p-n-ai/pathshala/internal/progress"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *learning.Service
	accounts *account.Service
	events   *events.MemoryLogger
	learner  account.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	accounts := account.NewService(account.NewMemoryStore(), bcrypt.MinCost, "")
	learner, err := accounts.Register(context.Background(), account.RegisterInput{
		Email:       "rahim@example.com",
		Password:    "password-1",
		DisplayName: "রহিম",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	issuer := certificate.NewIssuer(certificate.NewMemoryStore(), "পাঠশালা")
	issuer.SetClock(func() time.Time { return now })
	logger := events.NewMemoryLogger()

	svc, err := learning.NewService(learning.Config{
		Catalog:      catalogtest.Loader(t),
		Users:        accounts,
		Certificates: issuer,
		Events:       logger,
		Now:          func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return &fixture{svc: svc, accounts: accounts, events: logger, learner: learner}
}

func (f *fixture) enroll(t *testing.T) {
	t.Helper()
	if _, err := f.svc.Enroll(context.Background(), f.learner.ID, catalogtest.FreeCourseID); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
}

// finishModuleOne walks m1 up to an available quiz.
func (f *fixture) finishModuleOne(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	id, course := f.learner.ID, catalogtest.FreeCourseID
	for _, p := range []string{"p1", "p2"} {
		if _, err := f.svc.CompleteLearningPoint(ctx, id, course, p); err != nil {
			t.Fatalf("CompleteLearningPoint(%s) error = %v", p, err)
		}
	}
	if _, err := f.svc.CompleteChapter(ctx, id, course, "c2"); err != nil {
		t.Fatalf("CompleteChapter(c2) error = %v", err)
	}
	if _, err := f.svc.SubmitPractice(ctx, id, course, "m1", assessment.Answers{"pq1": 1}); err != nil {
		t.Fatalf("SubmitPractice(m1) error = %v", err)
	}
}

func TestNewService_RequiresDependencies(t *testing.T) {
	if _, err := learning.NewService(learning.Config{}); err == nil {
		t.Fatal("NewService() without catalog should fail")
	}
}

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.svc.Enroll(ctx, f.learner.ID, catalogtest.FreeCourseID)
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if st.Next.Kind != progress.StepChapter || st.Next.ChapterID != "c1" {
		t.Errorf("Next = %+v, want chapter c1", st.Next)
	}

	if _, err := f.svc.Enroll(ctx, f.learner.ID, catalogtest.FreeCourseID); err != nil {
		t.Fatalf("second Enroll() error = %v", err)
	}
	if got := f.events.Types(); !reflect.DeepEqual(got, []string{events.TypeEnrolled}) {
		t.Errorf("events = %v, want one enrolled", got)
	}

	if _, err := f.svc.Enroll(ctx, f.learner.ID, "missing"); !errors.Is(err, learning.ErrCourseNotFound) {
		t.Errorf("Enroll(missing) error = %v, want ErrCourseNotFound", err)
	}
}

func TestEnroll_PremiumCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Enroll(ctx, f.learner.ID, catalogtest.PremiumCourseID); !errors.Is(err, learning.ErrPremiumRequired) {
		t.Fatalf("Enroll() error = %v, want ErrPremiumRequired", err)
	}
	if _, err := f.accounts.SetPremium(ctx, f.learner.ID, true); err != nil {
		t.Fatalf("SetPremium() error = %v", err)
	}
	if _, err := f.svc.Enroll(ctx, f.learner.ID, catalogtest.PremiumCourseID); err != nil {
		t.Fatalf("Enroll() as premium error = %v", err)
	}
}

func TestStatus_NotEnrolled(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Status(context.Background(), f.learner.ID, catalogtest.FreeCourseID)
	if !errors.Is(err, progress.ErrNotEnrolled) {
		t.Errorf("Status() error = %v, want ErrNotEnrolled", err)
	}
	_, err = f.svc.CompleteLearningPoint(context.Background(), f.learner.ID, catalogtest.FreeCourseID, "p1")
	if !errors.Is(err, progress.ErrNotEnrolled) {
		t.Errorf("CompleteLearningPoint() error = %v, want ErrNotEnrolled", err)
	}
}

func TestCompleteLearningPoint_Events(t *testing.T) {
	f := newFixture(t)
	f.enroll(t)
	ctx := context.Background()

	for _, p := range []string{"p1", "p2", "p2"} {
		if _, err := f.svc.CompleteLearningPoint(ctx, f.learner.ID, catalogtest.FreeCourseID, p); err != nil {
			t.Fatalf("CompleteLearningPoint(%s) error = %v", p, err)
		}
	}
	want := []string{
		events.TypeEnrolled,
		events.TypeLearningPointCompleted,
		events.TypeLearningPointCompleted,
		events.TypeChapterCompleted,
	}
	if got := f.events.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestSubmitPractice(t *testing.T) {
	f := newFixture(t)
	f.enroll(t)
	ctx := context.Background()
	id, course := f.learner.ID, catalogtest.FreeCourseID

	if _, err := f.svc.SubmitPractice(ctx, id, course, "m1", assessment.Answers{"pq1": 0}); !errors.Is(err, progress.ErrLocked) {
		t.Fatalf("practice before chapters error = %v, want ErrLocked", err)
	}

	_, _ = f.svc.CompleteLearningPoint(ctx, id, course, "p1")
	_, _ = f.svc.CompleteLearningPoint(ctx, id, course, "p2")
	_, _ = f.svc.CompleteChapter(ctx, id, course, "c2")

	if _, err := f.svc.SubmitPractice(ctx, id, course, "m1", assessment.Answers{}); !errors.Is(err, learning.ErrIncompleteAnswers) {
		t.Errorf("empty practice error = %v, want ErrIncompleteAnswers", err)
	}
	if _, err := f.svc.SubmitPractice(ctx, id, course, "m1", assessment.Answers{"pq1": 0, "zz": 1}); !errors.Is(err, assessment.ErrUnknownQuestion) {
		t.Errorf("practice with unknown question error = %v, want ErrUnknownQuestion", err)
	}

	out, err := f.svc.SubmitPractice(ctx, id, course, "m1", assessment.Answers{"pq1": 1})
	if err != nil {
		t.Fatalf("SubmitPractice() error = %v", err)
	}
	if out.Result.Percent != 0 {
		t.Errorf("practice percent = %d, want 0", out.Result.Percent)
	}
	if out.Status.Modules[0].Quiz.State != progress.StateAvailable {
		t.Errorf("quiz state = %s, want available after any full practice", out.Status.Modules[0].Quiz.State)
	}
}

func TestSubmitQuiz_FailThenExhaustThenReset(t *testing.T) {
	f := newFixture(t)
	f.enroll(t)
	f.finishModuleOne(t)
	ctx := context.Background()
	id, course := f.learner.ID, catalogtest.FreeCourseID

	out, err := f.svc.SubmitQuiz(ctx, id, course, "m1", assessment.Answers{"q1": 1})
	if err != nil {
		t.Fatalf("SubmitQuiz() error = %v", err)
	}
	if out.Passed || out.Result.Percent != 0 || out.AttemptsLeft != 1 || out.PassPercent != 50 {
		t.Errorf("first attempt = passed %v percent %d left %d pass %d", out.Passed, out.Result.Percent, out.AttemptsLeft, out.PassPercent)
	}

	out, _ = f.svc.SubmitQuiz(ctx, id, course, "m1", assessment.Answers{})
	if out.AttemptsLeft != 0 || out.Status.Next.Kind != progress.StepBlocked {
		t.Errorf("second attempt left %d next %+v, want 0 and blocked", out.AttemptsLeft, out.Status.Next)
	}

	if _, err := f.svc.SubmitQuiz(ctx, id, course, "m1", assessment.Answers{"q1": 0, "q2": 1}); !errors.Is(err, progress.ErrAttemptsExhausted) {
		t.Fatalf("third attempt error = %v, want ErrAttemptsExhausted", err)
	}

	st, err := f.svc.ResetQuiz(ctx, id, course, "m1")
	if err != nil {
		t.Fatalf("ResetQuiz() error = %v", err)
	}
	if st.Modules[0].Quiz.AttemptsLeft != 2 {
		t.Errorf("attempts left after reset = %d, want 2", st.Modules[0].Quiz.AttemptsLeft)
	}
	out, err = f.svc.SubmitQuiz(ctx, id, course, "m1", assessment.Answers{"q1": 0, "q2": 1})
	if err != nil || !out.Passed {
		t.Fatalf("attempt after reset passed=%v error=%v", out.Passed, err)
	}
}

func TestSubmitQuiz_CompletesCourseAndIssuesCertificate(t *testing.T) {
	f := newFixture(t)
	f.enroll(t)
	f.finishModuleOne(t)
	ctx := context.Background()
	id, course := f.learner.ID, catalogtest.FreeCourseID

	out, err := f.svc.SubmitQuiz(ctx, id, course, "m1", assessment.Answers{"q1": 0, "q2": 0})
	if err != nil {
		t.Fatalf("SubmitQuiz(m1) error = %v", err)
	}
	if !out.Passed || out.Certificate != nil {
		t.Fatalf("m1 passed=%v certificate=%v, want passed without certificate", out.Passed, out.Certificate)
	}

	if _, err := f.svc.IssueCertificate(ctx, id, course); !errors.Is(err, progress.ErrLocked) {
		t.Errorf("IssueCertificate() before completion error = %v, want ErrLocked", err)
	}

	if _, err := f.svc.CompleteLearningPoint(ctx, id, course, "p3"); err != nil {
		t.Fatalf("CompleteLearningPoint(p3) error = %v", err)
	}
	if _, err := f.svc.SubmitPractice(ctx, id, course, "m2", assessment.Answers{}); err != nil {
		t.Fatalf("SubmitPractice(m2) error = %v", err)
	}
	out, err = f.svc.SubmitQuiz(ctx, id, course, "m2", assessment.Answers{"q3": 1})
	if err != nil {
		t.Fatalf("SubmitQuiz(m2) error = %v", err)
	}
	if out.Certificate == nil {
		t.Fatal("completing the course should issue a certificate")
	}
	cert := out.Certificate
	if cert.LearnerName != "রহিম" || cert.AveragePercent != 75 || cert.CourseTitle != "বাংলা ভাষার ভিত্তি" {
		t.Errorf("certificate = %+v", cert)
	}
	if !out.Status.Completed || out.Status.CertificateID != cert.ID || out.Status.Next.Kind != progress.StepNone {
		t.Errorf("status = completed %v cert %q next %+v", out.Status.Completed, out.Status.CertificateID, out.Status.Next)
	}

	again, err := f.svc.IssueCertificate(ctx, id, course)
	if err != nil {
		t.Fatalf("IssueCertificate() error = %v", err)
	}
	if again.ID != cert.ID {
		t.Errorf("IssueCertificate() = %s, want existing %s", again.ID, cert.ID)
	}

	types := f.events.Types()
	tail := types[len(types)-4:]
	want := []string{events.TypeQuizAttempted, events.TypeModulePassed, events.TypeCourseCompleted, events.TypeCertificateIssued}
	if !reflect.DeepEqual(tail, want) {
		t.Errorf("last events = %v, want %v", tail, want)
	}
}

func TestEnrollments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.accounts.SetPremium(ctx, f.learner.ID, true)
	f.enroll(t)
	if _, err := f.svc.Enroll(ctx, f.learner.ID, catalogtest.PremiumCourseID); err != nil {
		t.Fatalf("Enroll(premium) error = %v", err)
	}

	list, err := f.svc.Enrollments(ctx, f.learner.ID)
	if err != nil {
		t.Fatalf("Enrollments() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Enrollments() = %d, want 2", len(list))
	}
	if list[0].Course.ID != catalogtest.FreeCourseID || list[0].Course.Modules != 2 {
		t.Errorf("first enrollment = %+v", list[0].Course)
	}
}

func TestGradebook(t *testing.T) {
	f := newFixture(t)
	f.enroll(t)
	f.finishModuleOne(t)
	ctx := context.Background()
	_, _ = f.svc.SubmitQuiz(ctx, f.learner.ID, catalogtest.FreeCourseID, "m1", assessment.Answers{"q1": 0})

	g, err := f.svc.Gradebook(ctx, catalogtest.FreeCourseID)
	if err != nil {
		t.Fatalf("Gradebook() error = %v", err)
	}
	if len(g.Modules) != 2 || len(g.Rows) != 1 {
		t.Fatalf("gradebook has %d modules, %d rows; want 2 and 1", len(g.Modules), len(g.Rows))
	}
	row := g.Rows[0]
	if row.Name != "রহিম" || row.Email != "rahim@example.com" {
		t.Errorf("row learner = %q <%s>", row.Name, row.Email)
	}
	if !row.Quizzes[0].Passed || row.Quizzes[0].BestPercent != 50 || row.Quizzes[1].Attempts != 0 {
		t.Errorf("row quizzes = %+v", row.Quizzes)
	}
	if row.Percent != 50 || row.PointsDone != 2 || row.PointsTotal != 3 {
		t.Errorf("row progress = %d%% %d/%d", row.Percent, row.PointsDone, row.PointsTotal)
	}

	if _, err := f.svc.Gradebook(ctx, "missing"); !errors.Is(err, learning.ErrCourseNotFound) {
		t.Errorf("Gradebook(missing) error = %v, want ErrCourseNotFound", err)
	}
}
