package api

import (
	"net/http"
	"strings"

	"github.com/p-n-ai/pathshala/internal/account"
	"github.com/p-n-ai/pathshala/internal/assessment"
	"github.com/p-n-ai/pathshala/internal/catalog"
	"github.com/p-n-ai/pathshala/internal/i18n"
	"github.com/p-n-ai/pathshala/internal/learning"
	"github.com/p-n-ai/pathshala/internal/progress"
)

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	var courses []catalog.Course
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		courses = s.catalog.Search(q)
	} else {
		courses = s.catalog.Courses()
	}
	out := make([]catalog.Summary, 0, len(courses))
	for i := range courses {
		out = append(out, courses[i].Summarize())
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetCourse accepts an ID or a slug. Premium lesson bodies and question
// sets are withheld from viewers without premium access.
func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("id")
	c, ok := s.catalog.Course(key)
	if !ok {
		c, ok = s.catalog.CourseBySlug(key)
	}
	if !ok {
		writeError(w, r, learning.ErrCourseNotFound)
		return
	}

	if c.Premium {
		u, _, err := s.authenticate(r)
		if err != nil || !canSeePremium(u) {
			c = outline(c)
		}
	}
	writeJSON(w, http.StatusOK, c)
}

// outline copies c without lesson bodies or questions.
func outline(c catalog.Course) catalog.Course {
	modules := make([]catalog.Module, len(c.Modules))
	for mi, m := range c.Modules {
		chapters := make([]catalog.Chapter, len(m.Chapters))
		for ci, ch := range m.Chapters {
			points := make([]catalog.LearningPoint, len(ch.LearningPoints))
			for pi, lp := range ch.LearningPoints {
				points[pi] = catalog.LearningPoint{ID: lp.ID, Title: lp.Title}
			}
			ch.LearningPoints = points
			chapters[ci] = ch
		}
		m.Chapters = chapters
		m.Practice = catalog.Practice{}
		m.Quiz = catalog.Quiz{PassPercent: m.Quiz.PassPercent, MaxAttempts: m.Quiz.MaxAttempts}
		modules[mi] = m
	}
	c.Modules = modules
	return c
}

type enrollResponse struct {
	Status  progress.Status `json:"status"`
	Message string          `json:"message"`
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	courseID := r.PathValue("id")
	st, err := s.learning.Enroll(r.Context(), u.ID, courseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	title := courseID
	if c, ok := s.catalog.Course(courseID); ok {
		title = c.Title
	}
	writeJSON(w, http.StatusOK, enrollResponse{
		Status:  st,
		Message: i18n.Message(language(r), i18n.Enrolled, title),
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	st, err := s.learning.Status(r.Context(), currentUser(r).ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleEnrollments(w http.ResponseWriter, r *http.Request) {
	list, err := s.learning.Enrollments(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCompletePoint(w http.ResponseWriter, r *http.Request) {
	st, err := s.learning.CompleteLearningPoint(r.Context(), currentUser(r).ID, r.PathValue("id"), r.PathValue("point"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCompleteChapter(w http.ResponseWriter, r *http.Request) {
	st, err := s.learning.CompleteChapter(r.Context(), currentUser(r).ID, r.PathValue("id"), r.PathValue("chapter"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type answersRequest struct {
	Answers assessment.Answers `json:"answers"`
}

type practiceResponse struct {
	learning.PracticeOutcome
	Message string `json:"message"`
}

func (s *Server) handleSubmitPractice(w http.ResponseWriter, r *http.Request) {
	var in answersRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.learning.SubmitPractice(r.Context(), currentUser(r).ID, r.PathValue("id"), r.PathValue("module"), in.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, practiceResponse{
		PracticeOutcome: out,
		Message:         i18n.Message(language(r), i18n.PracticeDone, out.Result.Percent),
	})
}

type quizResponse struct {
	learning.QuizOutcome
	Message string `json:"message"`
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var in answersRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.learning.SubmitQuiz(r.Context(), currentUser(r).ID, r.PathValue("id"), r.PathValue("module"), in.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}

	lang := language(r)
	var msg string
	switch {
	case out.Certificate != nil:
		msg = i18n.Message(lang, i18n.CertificateIssued)
	case out.Passed:
		msg = i18n.Message(lang, i18n.QuizPassed, out.Result.Percent)
	default:
		msg = i18n.Message(lang, i18n.QuizFailed, out.Result.Percent, out.PassPercent, out.AttemptsLeft)
	}
	writeJSON(w, http.StatusOK, quizResponse{QuizOutcome: out, Message: msg})
}

func (s *Server) handleClaimCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := s.learning.IssueCertificate(r.Context(), currentUser(r).ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, certificateView(cert))
}

func canSeePremium(u account.User) bool {
	return u.Premium || u.Admin
}
