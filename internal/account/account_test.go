package account_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/p-n-ai/pathshala/internal/account"
)

func newService() *account.Service {
	return account.NewService(account.NewMemoryStore(), bcrypt.MinCost, "Admin@Example.com")
}

func register(t *testing.T, svc *account.Service, email string) account.User {
	t.Helper()
	u, err := svc.Register(context.Background(), account.RegisterInput{
		Email:       email,
		Password:    "গোপন-password",
		DisplayName: "রহিম উদ্দিন",
	})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	return u
}

func TestRegister(t *testing.T) {
	svc := newService()
	u := register(t, svc, "  Rahim@Example.com ")

	if u.ID == "" {
		t.Error("ID should be set")
	}
	if u.Email != "rahim@example.com" {
		t.Errorf("Email = %q, want lower-cased and trimmed", u.Email)
	}
	if u.Language != "bn" {
		t.Errorf("Language = %q, want bn", u.Language)
	}
	if u.Admin || u.Premium {
		t.Errorf("new user admin=%v premium=%v, want both false", u.Admin, u.Premium)
	}
	if u.PasswordHash == "" || strings.Contains(u.PasswordHash, "password") {
		t.Error("password should be stored hashed")
	}

	admin := register(t, svc, "admin@example.com")
	if !admin.Admin {
		t.Error("configured admin email should get the admin role")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newService()
	register(t, svc, "karim@example.com")

	_, err := svc.Register(context.Background(), account.RegisterInput{
		Email:       "KARIM@example.com",
		Password:    "another-password",
		DisplayName: "করিম",
	})
	if !errors.Is(err, account.ErrEmailTaken) {
		t.Errorf("Register() error = %v, want ErrEmailTaken", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    account.RegisterInput
		field string
	}{
		{"bad email", account.RegisterInput{Email: "not-an-email", Password: "password1", DisplayName: "ক"}, "email"},
		{"short password", account.RegisterInput{Email: "a@b.co", Password: "short", DisplayName: "ক"}, "password"},
		{"long password", account.RegisterInput{Email: "a@b.co", Password: strings.Repeat("অ", 30), DisplayName: "ক"}, "password"},
		{"blank name", account.RegisterInput{Email: "a@b.co", Password: "password1", DisplayName: "   "}, "display_name"},
		{"long name", account.RegisterInput{Email: "a@b.co", Password: "password1", DisplayName: strings.Repeat("ক", 81)}, "display_name"},
		{"bad language", account.RegisterInput{Email: "a@b.co", Password: "password1", DisplayName: "ক", Language: "fr"}, "language"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService().Register(context.Background(), tt.in)
			var verr *account.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Register() error = %v, want ValidationError", err)
			}
			if len(verr.Fields) != 1 || verr.Fields[0].Field != tt.field {
				t.Errorf("Fields = %+v, want one error on %s", verr.Fields, tt.field)
			}
		})
	}
}

func TestRegister_NameLengthAfterNormalisation(t *testing.T) {
	// "কো" written as ক + ে + া is three runes; NFC composes the vowel sign into one.
	decomposed := strings.Repeat("ক\u09c7\u09be", 40)
	composed := strings.Repeat("কো", 40)

	u, err := newService().Register(context.Background(), account.RegisterInput{
		Email:       "a@b.co",
		Password:    "password1",
		DisplayName: decomposed,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.DisplayName != composed {
		t.Errorf("DisplayName = %q, want NFC form %q", u.DisplayName, composed)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := newService()
	u := register(t, svc, "salma@example.com")
	ctx := context.Background()

	got, err := svc.Authenticate(ctx, "SALMA@example.com", "গোপন-password")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("Authenticate() ID = %s, want %s", got.ID, u.ID)
	}

	if _, err := svc.Authenticate(ctx, "salma@example.com", "wrong-password"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "whatever1"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := newService()
	u := register(t, svc, "nila@example.com")
	ctx := context.Background()

	name, lang := "  নীলা  ", "en"
	got, err := svc.UpdateProfile(ctx, u.ID, account.ProfileUpdate{DisplayName: &name, Language: &lang})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if got.DisplayName != "নীলা" || got.Language != "en" {
		t.Errorf("UpdateProfile() = %q/%q, want নীলা/en", got.DisplayName, got.Language)
	}

	bad := "de"
	if _, err := svc.UpdateProfile(ctx, u.ID, account.ProfileUpdate{Language: &bad}); err == nil {
		t.Error("UpdateProfile() with unsupported language should fail")
	}
	if _, err := svc.UpdateProfile(ctx, "missing", account.ProfileUpdate{}); !errors.Is(err, account.ErrNotFound) {
		t.Errorf("UpdateProfile(missing) error = %v, want ErrNotFound", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc := newService()
	u := register(t, svc, "tania@example.com")
	ctx := context.Background()

	if err := svc.ChangePassword(ctx, u.ID, "wrong-current", "new-password"); !errors.Is(err, account.ErrInvalidCredentials) {
		t.Errorf("ChangePassword() with wrong current error = %v, want ErrInvalidCredentials", err)
	}
	var verr *account.ValidationError
	if err := svc.ChangePassword(ctx, u.ID, "গোপন-password", "short"); !errors.As(err, &verr) {
		t.Errorf("ChangePassword() with short password error = %v, want ValidationError", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "গোপন-password", "new-password"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, "tania@example.com", "new-password"); err != nil {
		t.Errorf("Authenticate() with new password error = %v", err)
	}
}

func TestSetPremium(t *testing.T) {
	svc := newService()
	u := register(t, svc, "jamal@example.com")
	ctx := context.Background()

	got, err := svc.SetPremium(ctx, u.ID, true)
	if err != nil {
		t.Fatalf("SetPremium() error = %v", err)
	}
	if !got.Premium {
		t.Error("Premium should be true")
	}
	reread, _ := svc.Get(ctx, u.ID)
	if !reread.Premium {
		t.Error("premium flag not persisted")
	}
	if _, err := svc.SetPremium(ctx, "missing", true); !errors.Is(err, account.ErrNotFound) {
		t.Errorf("SetPremium(missing) error = %v, want ErrNotFound", err)
	}
}
