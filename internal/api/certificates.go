package api

import (
	"net/http"

	"github.com/p-n-ai/pathshala/internal/certificate"
)

// CertificateView adds the grouped verification code to a certificate.
type CertificateView struct {
	certificate.Certificate
	DisplayCode string `json:"display_code"`
}

func certificateView(c certificate.Certificate) CertificateView {
	return CertificateView{Certificate: c, DisplayCode: certificate.FormatCode(c.VerificationCode)}
}

func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	list, err := s.certs.ListByUser(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]CertificateView, 0, len(list))
	for _, c := range list {
		out = append(out, certificateView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetCertificate hides other learners' certificates behind a 404.
func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	cert, err := s.certs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cert.UserID != u.ID && !u.Admin {
		writeError(w, r, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, certificateView(cert))
}

// VerifyResponse is the public answer to a verification lookup.
type VerifyResponse struct {
	Valid          bool   `json:"valid"`
	Serial         string `json:"serial"`
	LearnerName    string `json:"learner_name"`
	CourseTitle    string `json:"course_title"`
	Issuer         string `json:"issuer"`
	AveragePercent int    `json:"average_percent"`
	IssuedAt       string `json:"issued_at"`
}

func (s *Server) handleVerifyCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := s.certs.Verify(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{
		Valid:          true,
		Serial:         cert.Serial,
		LearnerName:    cert.LearnerName,
		CourseTitle:    cert.CourseTitle,
		Issuer:         cert.Issuer,
		AveragePercent: cert.AveragePercent,
		IssuedAt:       cert.IssuedAt.UTC().Format("2006-01-02"),
	})
}
