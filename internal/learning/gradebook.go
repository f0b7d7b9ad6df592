package learning

import (
	"context"
	"errors"
	"log/slog"

	"github.com/p-n-ai/pathshala/internal/account"
	"github.com/p-n-ai/pathshala/internal/progress"
	"github.com/p-n-ai/pathshala/internal/report"
)

// Gradebook collects every enrolled learner's progress in a course.
func (s *Service) Gradebook(ctx context.Context, courseID string) (report.Gradebook, error) {
	c, err := s.course(courseID)
	if err != nil {
		return report.Gradebook{}, err
	}
	recs, err := s.progress.ListByCourse(ctx, c.ID)
	if err != nil {
		return report.Gradebook{}, err
	}

	g := report.Gradebook{
		CourseID:    c.ID,
		CourseTitle: c.Title,
		GeneratedAt: s.now(),
		Rows:        make([]report.Row, 0, len(recs)),
	}
	for _, m := range c.Modules {
		g.Modules = append(g.Modules, report.ModuleColumn{ID: m.ID, Title: m.Title})
	}

	for _, rec := range recs {
		st := progress.Evaluate(c, rec)
		row := report.Row{
			UserID:        rec.UserID,
			EnrolledAt:    rec.EnrolledAt,
			Percent:       st.Percent,
			ModulesPassed: st.ModulesPassed,
			PointsDone:    st.PointsDone,
			PointsTotal:   st.PointsTotal,
			CompletedAt:   rec.CompletedAt,
		}

		u, err := s.users.Get(ctx, rec.UserID)
		switch {
		case err == nil:
			row.Name, row.Email = u.DisplayName, u.Email
		case errors.Is(err, account.ErrNotFound):
			slog.Warn("gradebook row for unknown user", "user_id", rec.UserID, "course_id", c.ID)
		default:
			return report.Gradebook{}, err
		}

		for _, ms := range st.Modules {
			row.Quizzes = append(row.Quizzes, report.QuizCell{
				BestPercent: ms.Quiz.BestPercent,
				Attempts:    ms.Quiz.AttemptsUsed,
				Passed:      ms.Quiz.State == progress.StatePassed,
				Exhausted:   ms.Quiz.State == progress.StateExhausted,
			})
		}

		if rec.CertificateID != "" {
			if cert, err := s.certs.Get(ctx, rec.CertificateID); err == nil {
				row.CertificateSerial = cert.Serial
			} else {
				slog.Warn("gradebook certificate lookup failed", "certificate_id", rec.CertificateID, "error", err)
			}
		}
		g.Rows = append(g.Rows, row)
	}
	return g, nil
}
