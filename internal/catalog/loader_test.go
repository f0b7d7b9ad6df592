package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pathshala/internal/catalog"
)

const banglaCourse = `
id: bangla-101
slug: bangla-basics
title: "বাংলা ব্যাকরণ"
description: "Grammar for beginners"
premium: false
modules:
  - id: m2
    title: "বাক্য"
    order: 2
    chapters:
      - id: m2-c1
        title: "সরল বাক্য"
        order: 1
        learning_points:
          - id: m2-c1-p1
            title: "কর্তা ও ক্রিয়া"
    quiz:
      questions:
        - id: q1
          prompt: "সরল বাক্যে কয়টি ক্রিয়া থাকে?"
          options: ["একটি", "দুটি"]
          answer: 0
  - id: m1
    title: "বর্ণমালা"
    order: 1
    chapters:
      - id: m1-c2
        title: "ব্যঞ্জনবর্ণ"
        order: 2
        learning_points:
          - id: m1-c2-p1
            title: "ক থেকে ঙ"
      - id: m1-c1
        title: "স্বরবর্ণ"
        order: 1
        learning_points:
          - id: m1-c1-p1
            title: "অ থেকে ঔ"
            body: "inline body"
          - id: m1-c1-p2
            title: "মাত্রা"
    practice:
      questions:
        - id: p1
          prompt: "স্বরবর্ণ কয়টি?"
          options: ["১১", "৩৯"]
          answer: 0
    quiz:
      pass_percent: 80
      max_attempts: 2
      questions:
        - id: q1
          prompt: "প্রথম স্বরবর্ণ কোনটি?"
          options: ["অ", "ক"]
          answer: 0
          points: 2
`

func writeCourse(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func setupCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeCourse(t, dir, "bangla/101.yaml", banglaCourse)
	writeCourse(t, dir, "bangla/101.m1-c1-p2.md", "# মাত্রা\n\nমাত্রা হলো বর্ণের উপরের রেখা।")
	return dir
}

func TestLoader_LoadCourses(t *testing.T) {
	loader, err := catalog.NewLoader(setupCatalog(t), catalog.Defaults{})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if got := len(loader.Courses()); got != 1 {
		t.Fatalf("Courses() = %d, want 1", got)
	}
}

func TestLoader_OrdersModulesAndChapters(t *testing.T) {
	loader, err := catalog.NewLoader(setupCatalog(t), catalog.Defaults{})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	c, ok := loader.Course("bangla-101")
	if !ok {
		t.Fatal("Course(bangla-101) not found")
	}
	if c.Modules[0].ID != "m1" || c.Modules[1].ID != "m2" {
		t.Errorf("module order = %s,%s, want m1,m2", c.Modules[0].ID, c.Modules[1].ID)
	}
	if c.Modules[0].Chapters[0].ID != "m1-c1" {
		t.Errorf("first chapter = %s, want m1-c1", c.Modules[0].Chapters[0].ID)
	}
}

func TestLoader_AppliesQuizDefaults(t *testing.T) {
	loader, err := catalog.NewLoader(setupCatalog(t), catalog.Defaults{PassPercent: 50, MaxAttempts: 5})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	c, _ := loader.Course("bangla-101")
	m1, _, _ := c.Module("m1")
	if m1.Quiz.PassPercent != 80 || m1.Quiz.MaxAttempts != 2 {
		t.Errorf("m1 quiz = %d%%/%d, want explicit 80%%/2", m1.Quiz.PassPercent, m1.Quiz.MaxAttempts)
	}
	m2, _, _ := c.Module("m2")
	if m2.Quiz.PassPercent != 50 || m2.Quiz.MaxAttempts != 5 {
		t.Errorf("m2 quiz = %d%%/%d, want defaults 50%%/5", m2.Quiz.PassPercent, m2.Quiz.MaxAttempts)
	}
	if m2.Quiz.Questions[0].Points != 1 {
		t.Errorf("default points = %d, want 1", m2.Quiz.Questions[0].Points)
	}
	if m1.Quiz.Questions[0].Points != 2 {
		t.Errorf("explicit points = %d, want 2", m1.Quiz.Questions[0].Points)
	}
}

func TestLoader_AttachesMarkdownBodies(t *testing.T) {
	loader, err := catalog.NewLoader(setupCatalog(t), catalog.Defaults{})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	c, _ := loader.Course("bangla-101")
	lp, _, _, ok := c.LearningPoint("m1-c1-p2")
	if !ok {
		t.Fatal("LearningPoint(m1-c1-p2) not found")
	}
	if !strings.Contains(lp.Body, "মাত্রা হলো") {
		t.Errorf("Body = %q, want markdown file contents", lp.Body)
	}
	inline, _, _, _ := c.LearningPoint("m1-c1-p1")
	if inline.Body != "inline body" {
		t.Errorf("inline Body = %q, want it kept", inline.Body)
	}
}

func TestLoader_CourseBySlug(t *testing.T) {
	loader, err := catalog.NewLoader(setupCatalog(t), catalog.Defaults{})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if _, ok := loader.CourseBySlug("bangla-basics"); !ok {
		t.Error("CourseBySlug(bangla-basics) not found")
	}
	if _, ok := loader.CourseBySlug("missing"); ok {
		t.Error("CourseBySlug(missing) should not be found")
	}
}

func TestLoader_SkipsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not yaml", "id: [unterminated"},
		{"missing modules", "id: empty\ntitle: Empty\n"},
		{"bad id", "id: Bad_ID\ntitle: x\nmodules: []\n"},
		{
			"answer out of range",
			`
id: broken
title: Broken
modules:
  - id: m1
    title: M
    chapters:
      - id: c1
        title: C
    quiz:
      questions:
        - id: q1
          prompt: P
          options: ["a", "b"]
          answer: 2
`,
		},
		{
			"duplicate ids",
			`
id: dup
title: Dup
modules:
  - id: m1
    title: M
    chapters:
      - id: m1
        title: C
    quiz:
      questions:
        - id: q1
          prompt: P
          options: ["a", "b"]
          answer: 0
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupCatalog(t)
			writeCourse(t, dir, "bad.yaml", tt.body)

			loader, err := catalog.NewLoader(dir, catalog.Defaults{})
			if err != nil {
				t.Fatalf("NewLoader() error = %v", err)
			}
			if got := len(loader.Courses()); got != 1 {
				t.Errorf("Courses() = %d, want 1 (invalid document skipped)", got)
			}
		})
	}
}

func TestLoader_EmptyDir(t *testing.T) {
	loader, err := catalog.NewLoader(t.TempDir(), catalog.Defaults{})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if got := len(loader.Courses()); got != 0 {
		t.Errorf("Courses() = %d, want 0", got)
	}
}

func TestLoader_Search(t *testing.T) {
	loader, err := catalog.NewLoader(setupCatalog(t), catalog.Defaults{})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"ব্যাকরণ", 1},
		{"GRAMMAR", 1},
		{"গণিত", 0},
	}
	for _, tt := range tests {
		if got := len(loader.Search(tt.query)); got != tt.want {
			t.Errorf("Search(%q) = %d results, want %d", tt.query, got, tt.want)
		}
	}
}

func TestLoader_Reload(t *testing.T) {
	dir := setupCatalog(t)
	loader, err := catalog.NewLoader(dir, catalog.Defaults{})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	second := strings.Replace(banglaCourse, "id: bangla-101", "id: bangla-102", 1)
	second = strings.Replace(second, "slug: bangla-basics", "slug: bangla-next", 1)
	writeCourse(t, dir, "bangla/102.yaml", second)

	if err := loader.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := len(loader.Courses()); got != 2 {
		t.Errorf("Courses() after reload = %d, want 2", got)
	}
}

func TestLoader_ReloadKeepsCatalogOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		breakDir func(t *testing.T, dir string)
		wantErr  error
	}{
		{
			name: "directory removed",
			breakDir: func(t *testing.T, dir string) {
				if err := os.RemoveAll(dir); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: os.ErrNotExist,
		},
		{
			name: "directory emptied",
			breakDir: func(t *testing.T, dir string) {
				if err := os.RemoveAll(filepath.Join(dir, "bangla")); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: catalog.ErrEmptyCatalog,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupCatalog(t)
			loader, err := catalog.NewLoader(dir, catalog.Defaults{})
			if err != nil {
				t.Fatalf("NewLoader() error = %v", err)
			}

			tt.breakDir(t, dir)
			if err := loader.Reload(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Reload() error = %v, want %v", err, tt.wantErr)
			}
			if _, ok := loader.Course("bangla-101"); !ok {
				t.Error("previous catalog no longer served after failed reload")
			}
		})
	}
}

func TestNewLoader_MissingDir(t *testing.T) {
	if _, err := catalog.NewLoader(filepath.Join(t.TempDir(), "missing"), catalog.Defaults{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("NewLoader() error = %v, want ErrNotExist", err)
	}
}

func TestCourse_Summarize(t *testing.T) {
	loader, err := catalog.NewLoader(setupCatalog(t), catalog.Defaults{})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	c, _ := loader.Course("bangla-101")
	s := c.Summarize()
	if s.Modules != 2 || s.Chapters != 3 {
		t.Errorf("Summarize() = %d modules %d chapters, want 2 and 3", s.Modules, s.Chapters)
	}
	if c.CountLearningPoints() != 4 {
		t.Errorf("CountLearningPoints() = %d, want 4", c.CountLearningPoints())
	}
}

func TestLoader_ShippedCourses(t *testing.T) {
	l, err := catalog.NewLoader("../../courses", catalog.Defaults{})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	tests := []struct {
		id      string
		premium bool
		modules int
	}{
		{"bangla-barnamala", false, 2},
		{"ganit-sonkhya", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			c, ok := l.Course(tt.id)
			if !ok {
				t.Fatalf("course %s not loaded", tt.id)
			}
			if c.Premium != tt.premium || len(c.Modules) != tt.modules {
				t.Errorf("premium=%v modules=%d, want %v and %d", c.Premium, len(c.Modules), tt.premium, tt.modules)
			}
		})
	}

	c, _ := l.Course("bangla-barnamala")
	if c.Modules[0].Chapters[0].LearningPoints[0].Body == "" {
		t.Error("markdown body for swar-o-aa not attached")
	}
}
