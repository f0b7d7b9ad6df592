package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/p-n-ai/pathshala/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.accounts.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type premiumRequest struct {
	Premium *bool `json:"premium"`
}

func (s *Server) handleSetPremium(w http.ResponseWriter, r *http.Request) {
	var in premiumRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Premium == nil {
		writeError(w, r, fmt.Errorf("%w: premium is required", errBadRequest))
		return
	}
	u, err := s.accounts.SetPremium(r.Context(), r.PathValue("id"), *in.Premium)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleResetQuiz(w http.ResponseWriter, r *http.Request) {
	st, err := s.learning.ResetQuiz(r.Context(), r.PathValue("user"), r.PathValue("id"), r.PathValue("module"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleGradebook renders into a buffer first so a failed export still gets a JSON error.
func (s *Server) handleGradebook(w http.ResponseWriter, r *http.Request) {
	g, err := s.learning.Gradebook(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, g); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-gradebook.xlsx"`, g.CourseID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleReloadCatalog(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Reload(); err != nil {
		slog.Error("catalog reload failed", "admin_id", currentUser(r).ID, "error", err)
		writeError(w, r, errCatalogLoad)
		return
	}
	n := len(s.catalog.Courses())
	slog.Info("catalog reloaded", "admin_id", currentUser(r).ID, "courses", n)
	writeJSON(w, http.StatusOK, map[string]int{"courses": n})
}
