package i18n_test

import (
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/p-n-ai/pathshala/internal/i18n"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		in   string
		want language.Tag
	}{
		{"", language.Bengali},
		{"bn", language.Bengali},
		{"en", language.English},
		{"en-GB,en;q=0.8", language.English},
		{"bn-BD,en;q=0.5", language.Bengali},
		{"ja", language.Bengali},
		{"not a tag;;", language.Bengali},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := i18n.Match(tt.in); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	if got := i18n.Message("bn", i18n.Locked); !strings.Contains(got, "খোলা হয়নি") {
		t.Errorf("Message(bn, locked) = %q", got)
	}
	if got := i18n.Message("en", i18n.Locked); got != "This part is locked. Finish the previous steps first." {
		t.Errorf("Message(en, locked) = %q", got)
	}
	if got := i18n.Message("", i18n.EmailTaken); !strings.Contains(got, "ইমেইল") {
		t.Errorf("Message(default, email_taken) = %q, want Bengali", got)
	}
}

func TestMessage_Arguments(t *testing.T) {
	bn := i18n.Message("bn", i18n.QuizFailed, 40, 60, 2)
	for _, want := range []string{"৪০", "৬০", "২"} {
		if !strings.Contains(bn, want) {
			t.Errorf("Message(bn, quiz_failed) = %q, missing %q", bn, want)
		}
	}
	if strings.ContainsAny(bn, "0123456789") {
		t.Errorf("Message(bn, quiz_failed) = %q, still has ASCII digits", bn)
	}

	en := i18n.Message("en", i18n.QuizFailed, 40, 60, 2)
	if en != "You scored 40%, 60% is needed to pass. Attempts left: 2." {
		t.Errorf("Message(en, quiz_failed) = %q", en)
	}
}

func TestBengaliDigits(t *testing.T) {
	if got := i18n.BengaliDigits("PS-2026-0A"); got != "PS-২০২৬-০A" {
		t.Errorf("BengaliDigits() = %q", got)
	}
}
