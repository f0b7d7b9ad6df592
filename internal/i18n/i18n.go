// Package i18n holds the Bengali and English user-facing messages.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Message keys.
const (
	InvalidInput       = "invalid_input"
	Unauthorized       = "unauthorized"
	Forbidden          = "forbidden"
	NotFound           = "not_found"
	CourseNotFound     = "course_not_found"
	UserNotFound       = "user_not_found"
	CertificateInvalid = "certificate_invalid"
	NotEnrolled        = "not_enrolled"
	Locked             = "locked"
	Incomplete         = "incomplete"
	IncompleteAnswers  = "incomplete_answers"
	AttemptsExhausted  = "attempts_exhausted"
	AlreadyPassed      = "already_passed"
	PremiumRequired    = "premium_required"
	EmailTaken         = "email_taken"
	InvalidCredentials = "invalid_credentials"
	TooManyAttempts    = "too_many_attempts"
	UnknownItem        = "unknown_item"
	CatalogReload      = "catalog_reload_failed"
	Internal           = "internal"

	Enrolled          = "enrolled"
	PracticeDone      = "practice_done"
	QuizPassed        = "quiz_passed"
	QuizFailed        = "quiz_failed"
	CertificateIssued = "certificate_issued"
)

var supported = []language.Tag{language.Bengali, language.English}

var matcher = language.NewMatcher(supported)

var messages = map[string][2]string{
	InvalidInput:       {"প্রদত্ত তথ্য সঠিক নয়।", "The submitted data is invalid."},
	Unauthorized:       {"অনুগ্রহ করে লগ ইন করুন।", "Please log in."},
	Forbidden:          {"এই কাজের অনুমতি আপনার নেই।", "You are not allowed to do this."},
	NotFound:           {"খুঁজে পাওয়া যায়নি।", "Not found."},
	CourseNotFound:     {"কোর্সটি খুঁজে পাওয়া যায়নি।", "Course not found."},
	UserNotFound:       {"ব্যবহারকারী খুঁজে পাওয়া যায়নি।", "User not found."},
	CertificateInvalid: {"এই যাচাই কোডের কোনো সনদ নেই।", "No certificate matches this verification code."},
	NotEnrolled:        {"আপনি এই কোর্সে ভর্তি হননি।", "You are not enrolled in this course."},
	Locked:             {"এই অংশটি এখনও খোলা হয়নি। আগের ধাপগুলো শেষ করুন।", "This part is locked. Finish the previous steps first."},
	Incomplete:         {"অধ্যায়ের সব পাঠ এখনও শেষ হয়নি।", "The chapter still has unfinished learning points."},
	IncompleteAnswers:  {"সব প্রশ্নের উত্তর দিন।", "Answer every question."},
	AttemptsExhausted:  {"কুইজের সব সুযোগ শেষ। পুনরায় চেষ্টার জন্য শিক্ষকের সাথে যোগাযোগ করুন।", "All quiz attempts are used. Ask an instructor for a reset."},
	AlreadyPassed:      {"আপনি এই কুইজে ইতিমধ্যে উত্তীর্ণ হয়েছেন।", "You have already passed this quiz."},
	PremiumRequired:    {"এটি একটি প্রিমিয়াম কোর্স।", "This is a premium course."},
	EmailTaken:         {"এই ইমেইল দিয়ে আগেই নিবন্ধন করা হয়েছে।", "This email is already registered."},
	InvalidCredentials: {"ইমেইল বা পাসওয়ার্ড ভুল।", "Wrong email or password."},
	TooManyAttempts:    {"অনেকবার ভুল চেষ্টা হয়েছে। কিছুক্ষণ পর আবার লগ ইন করুন।", "Too many failed attempts. Try logging in again later."},
	UnknownItem:        {"কোর্সে এমন কোনো অংশ নেই।", "The course has no such item."},
	CatalogReload:      {"কোর্স তালিকা আবার লোড করা যায়নি। আগের তালিকা চালু আছে।", "The course catalog could not be reloaded. The previous catalog is still served."},
	Internal:           {"একটি সমস্যা হয়েছে। কিছুক্ষণ পর আবার চেষ্টা করুন।", "Something went wrong. Try again later."},

	Enrolled:          {"আপনি %s কোর্সে ভর্তি হয়েছেন।", "You are enrolled in %s."},
	PracticeDone:      {"অনুশীলন সম্পন্ন: %d%% সঠিক।", "Practice done: %d%% correct."},
	QuizPassed:        {"অভিনন্দন! %d%% নম্বর পেয়ে আপনি উত্তীর্ণ হয়েছেন।", "Congratulations! You passed with %d%%."},
	QuizFailed:        {"আপনি %d%% পেয়েছেন, উত্তীর্ণ হতে %d%% প্রয়োজন। বাকি সুযোগ: %d।", "You scored %d%%, %d%% is needed to pass. Attempts left: %d."},
	CertificateIssued: {"অভিনন্দন! কোর্স সম্পন্ন হয়েছে, আপনার সনদ প্রস্তুত।", "Course complete. Your certificate is ready."},
}

var cat = newCatalog()

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.Bengali))
	for key, m := range messages {
		for i, tag := range supported {
			if err := b.SetString(tag, key, m[i]); err != nil {
				panic(fmt.Sprintf("i18n: %s: %v", key, err))
			}
		}
	}
	return b
}

// Match picks the supported language closest to lang, which may be a
// tag ("bn", "en-GB") or an Accept-Language header. Bengali is the default.
func Match(lang string) language.Tag {
	if lang == "" {
		return language.Bengali
	}
	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		return language.Bengali
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.Bengali
	}
	return supported[idx]
}

// Printer returns a message printer for lang.
func Printer(lang string) *message.Printer {
	return message.NewPrinter(Match(lang), message.Catalog(cat))
}

// Message formats the message for key in lang. Bengali output uses Bengali digits.
func Message(lang, key string, args ...any) string {
	tag := Match(lang)
	s := message.NewPrinter(tag, message.Catalog(cat)).Sprintf(key, args...)
	if tag == language.Bengali {
		return BengaliDigits(s)
	}
	return s
}

var toBengaliDigits = runes.Map(func(r rune) rune {
	if r >= '0' && r <= '9' {
		return '০' + (r - '0')
	}
	return r
})

// BengaliDigits replaces ASCII digits with Bengali ones.
func BengaliDigits(s string) string {
	out, _, err := transform.String(toBengaliDigits, s)
	if err != nil {
		return s
	}
	return out
}
