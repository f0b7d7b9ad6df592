package certificate_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/p-n-ai/pathshala/internal/certificate"
)

var issuedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newIssuer(store certificate.Store) *certificate.Issuer {
	iss := certificate.NewIssuer(store, "পাঠশালা")
	iss.SetClock(func() time.Time { return issuedAt })
	return iss
}

func request(user, course string) certificate.Request {
	return certificate.Request{
		UserID:         user,
		CourseID:       course,
		LearnerName:    "রহিম",
		CourseTitle:    "বাংলা ১০১",
		AveragePercent: 82,
	}
}

func TestIssue(t *testing.T) {
	iss := newIssuer(certificate.NewMemoryStore())
	ctx := context.Background()

	cert, created, err := iss.Issue(ctx, request("u1", "bangla-101"))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !created {
		t.Error("first Issue() should create")
	}
	if ok, _ := regexp.MatchString(`^PS-2026-[0-9A-F]{8}$`, cert.Serial); !ok {
		t.Errorf("Serial = %q, want PS-2026-XXXXXXXX", cert.Serial)
	}
	if ok, _ := regexp.MatchString(`^[A-Z2-7]{12}$`, cert.VerificationCode); !ok {
		t.Errorf("VerificationCode = %q, want 12 base32 chars", cert.VerificationCode)
	}
	if cert.Issuer != "পাঠশালা" || cert.AveragePercent != 82 || !cert.IssuedAt.Equal(issuedAt) {
		t.Errorf("cert = %+v", cert)
	}

	again, created, err := iss.Issue(ctx, request("u1", "bangla-101"))
	if err != nil {
		t.Fatalf("second Issue() error = %v", err)
	}
	if created || again.ID != cert.ID {
		t.Errorf("second Issue() = %s created=%v, want existing %s", again.ID, created, cert.ID)
	}
}

func TestIssue_RequiresIDs(t *testing.T) {
	iss := newIssuer(certificate.NewMemoryStore())
	if _, _, err := iss.Issue(context.Background(), request("", "bangla-101")); err == nil {
		t.Error("Issue() without user should fail")
	}
}

func TestIssue_ConcurrentSingleCertificate(t *testing.T) {
	store := certificate.NewMemoryStore()
	iss := newIssuer(store)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]bool{}
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cert, isNew, err := iss.Issue(ctx, request("u1", "bangla-101"))
			if err != nil {
				t.Errorf("Issue() error = %v", err)
				return
			}
			mu.Lock()
			ids[cert.ID] = true
			if isNew {
				created++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != 1 || created != 1 {
		t.Errorf("got %d distinct certificates, %d created; want 1 and 1", len(ids), created)
	}
}

func TestVerify(t *testing.T) {
	iss := newIssuer(certificate.NewMemoryStore())
	ctx := context.Background()
	cert, _, _ := iss.Issue(ctx, request("u1", "bangla-101"))

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"exact", cert.VerificationCode, nil},
		{"formatted lower case", strings.ToLower(certificate.FormatCode(cert.VerificationCode)) + " ", nil},
		{"wrong length", "ABC", certificate.ErrNotFound},
		{"unknown", "AAAAAAAAAAAA", certificate.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := iss.Verify(ctx, tt.code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Verify(%q) error = %v, want %v", tt.code, err, tt.wantErr)
			}
			if tt.wantErr == nil && got.ID != cert.ID {
				t.Errorf("Verify(%q) = %s, want %s", tt.code, got.ID, cert.ID)
			}
		})
	}
}

func TestFormatCode(t *testing.T) {
	if got := certificate.FormatCode("ABCDEFGHIJKL"); got != "ABCD-EFGH-IJKL" {
		t.Errorf("FormatCode() = %q, want ABCD-EFGH-IJKL", got)
	}
	if got := certificate.NormalizeCode("abcd-efgh ijkl"); got != "ABCDEFGHIJKL" {
		t.Errorf("NormalizeCode() = %q, want ABCDEFGHIJKL", got)
	}
}
