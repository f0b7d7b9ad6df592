// Package certificate issues and verifies course completion certificates.
package certificate

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	codeLength   = 12
	issueRetries = 3
)

var (
	ErrNotFound = errors.New("certificate not found")
	// ErrConflict is returned by a Store when a serial, code or (user, course) pair is taken.
	ErrConflict = errors.New("certificate conflict")
)

// Certificate records that a learner passed every module of a course.
type Certificate struct {
	ID               string    `json:"id"`
	Serial           string    `json:"serial"`
	VerificationCode string    `json:"verification_code"`
	UserID           string    `json:"user_id"`
	CourseID         string    `json:"course_id"`
	LearnerName      string    `json:"learner_name"`
	CourseTitle      string    `json:"course_title"`
	Issuer           string    `json:"issuer"`
	AveragePercent   int       `json:"average_percent"`
	IssuedAt         time.Time `json:"issued_at"`
}

// Request carries what the issuer needs to know about the completed course.
type Request struct {
	UserID         string
	CourseID       string
	LearnerName    string
	CourseTitle    string
	AveragePercent int
}

// Store persists certificates.
type Store interface {
	// Insert fails with ErrConflict if the serial, code or (user, course) pair exists.
	Insert(ctx context.Context, c Certificate) error
	Get(ctx context.Context, id string) (Certificate, error)
	GetByCode(ctx context.Context, code string) (Certificate, error)
	GetByUserCourse(ctx context.Context, userID, courseID string) (Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]Certificate, error)
}

// Issuer creates certificates. At most one certificate exists per (user, course).
type Issuer struct {
	store  Store
	issuer string
	now    func() time.Time
}

// NewIssuer creates an issuer that signs certificates as issuer.
func NewIssuer(store Store, issuer string) *Issuer {
	return &Issuer{store: store, issuer: issuer, now: time.Now}
}

// SetClock replaces the time source.
func (i *Issuer) SetClock(now func() time.Time) {
	i.now = now
}

// Issue returns the certificate for the request's (user, course), creating it if needed.
// created reports whether a new certificate was made.
func (i *Issuer) Issue(ctx context.Context, req Request) (cert Certificate, created bool, err error) {
	if req.UserID == "" || req.CourseID == "" {
		return Certificate{}, false, fmt.Errorf("user_id and course_id are required")
	}

	existing, err := i.store.GetByUserCourse(ctx, req.UserID, req.CourseID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Certificate{}, false, err
	}

	for attempt := 0; attempt < issueRetries; attempt++ {
		cert, err = i.newCertificate(req)
		if err != nil {
			return Certificate{}, false, err
		}

		err = i.store.Insert(ctx, cert)
		if err == nil {
			slog.Info("certificate issued",
				"certificate_id", cert.ID,
				"serial", cert.Serial,
				"user_id", cert.UserID,
				"course_id", cert.CourseID,
			)
			return cert, true, nil
		}
		if !errors.Is(err, ErrConflict) {
			return Certificate{}, false, err
		}

		// Either a concurrent issue won or the random serial/code collided.
		if existing, gerr := i.store.GetByUserCourse(ctx, req.UserID, req.CourseID); gerr == nil {
			return existing, false, nil
		}
	}
	return Certificate{}, false, fmt.Errorf("issue certificate: %w", err)
}

// Get returns a certificate by ID.
func (i *Issuer) Get(ctx context.Context, id string) (Certificate, error) {
	return i.store.Get(ctx, id)
}

// Verify looks up a certificate by its verification code. Case, spaces and dashes are ignored.
func (i *Issuer) Verify(ctx context.Context, code string) (Certificate, error) {
	code = NormalizeCode(code)
	if len(code) != codeLength {
		return Certificate{}, ErrNotFound
	}
	return i.store.GetByCode(ctx, code)
}

// ListByUser returns a learner's certificates, oldest first.
func (i *Issuer) ListByUser(ctx context.Context, userID string) ([]Certificate, error) {
	return i.store.ListByUser(ctx, userID)
}

func (i *Issuer) newCertificate(req Request) (Certificate, error) {
	serialBytes := make([]byte, 4)
	codeBytes := make([]byte, 8)
	if _, err := rand.Read(serialBytes); err != nil {
		return Certificate{}, fmt.Errorf("generate serial: %w", err)
	}
	if _, err := rand.Read(codeBytes); err != nil {
		return Certificate{}, fmt.Errorf("generate code: %w", err)
	}

	issued := i.now().UTC()
	return Certificate{
		ID:               uuid.NewString(),
		Serial:           fmt.Sprintf("PS-%d-%s", issued.Year(), strings.ToUpper(hex.EncodeToString(serialBytes))),
		VerificationCode: base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(codeBytes)[:codeLength],
		UserID:           req.UserID,
		CourseID:         req.CourseID,
		LearnerName:      req.LearnerName,
		CourseTitle:      req.CourseTitle,
		Issuer:           i.issuer,
		AveragePercent:   req.AveragePercent,
		IssuedAt:         issued,
	}, nil
}

// NormalizeCode upper-cases a verification code and drops spaces and dashes.
func NormalizeCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatCode groups a verification code in blocks of four for display.
func FormatCode(code string) string {
	var parts []string
	for len(code) > 4 {
		parts = append(parts, code[:4])
		code = code[4:]
	}
	return strings.Join(append(parts, code), "-")
}
