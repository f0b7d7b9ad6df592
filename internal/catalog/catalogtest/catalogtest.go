// Package catalogtest provides a small two-course catalog for tests.
package catalogtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pathshala/internal/catalog"
)

const (
	// FreeCourseID has two modules: m1 (chapters c1 with p1,p2 and c2 without points,
	// one practice question, quiz q1+q2 passing at 50% with 2 attempts) and m2
	// (chapter c3 with p3, no practice questions, quiz q3 passing at 100% with 1 attempt).
	FreeCourseID = "bangla-101"
	// PremiumCourseID is a one-module premium course.
	PremiumCourseID = "ganit-201"
)

const freeCourse = `
id: bangla-101
slug: bangla-basics
title: "বাংলা ভাষার ভিত্তি"
description: "Bengali basics"
modules:
  - id: m1
    title: "বর্ণমালা"
    order: 1
    chapters:
      - id: c1
        title: "স্বরবর্ণ"
        order: 1
        learning_points:
          - id: p1
            title: "অ"
          - id: p2
            title: "আ"
      - id: c2
        title: "পুনরালোচনা"
        order: 2
    practice:
      questions:
        - id: pq1
          prompt: "স্বরবর্ণ কয়টি?"
          options: ["১১", "৩৯"]
          answer: 0
    quiz:
      pass_percent: 50
      max_attempts: 2
      questions:
        - id: q1
          prompt: "প্রথম স্বরবর্ণ?"
          options: ["অ", "ক"]
          answer: 0
        - id: q2
          prompt: "প্রথম ব্যঞ্জনবর্ণ?"
          options: ["অ", "ক"]
          answer: 1
  - id: m2
    title: "শব্দ"
    order: 2
    chapters:
      - id: c3
        title: "সরল শব্দ"
        order: 1
        learning_points:
          - id: p3
            title: "মা"
    quiz:
      pass_percent: 100
      max_attempts: 1
      questions:
        - id: q3
          prompt: "'মা' শব্দে কয়টি বর্ণ?"
          options: ["১", "২"]
          answer: 1
`

const premiumCourse = `
id: ganit-201
title: "গণিত"
premium: true
modules:
  - id: g1
    title: "যোগ"
    chapters:
      - id: g1c1
        title: "এক অঙ্কের যোগ"
    quiz:
      questions:
        - id: gq1
          prompt: "২ + ২ = ?"
          options: ["৩", "৪"]
          answer: 1
`

// Dir writes the fixture catalog to a temporary directory and returns it.
func Dir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"bangla-101.yaml": freeCourse,
		"ganit-201.yaml":  premiumCourse,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("writing fixture %s: %v", name, err)
		}
	}
	return dir
}

// Loader returns a catalog loaded from the fixture.
func Loader(t testing.TB) *catalog.Loader {
	t.Helper()
	l, err := catalog.NewLoader(Dir(t), catalog.Defaults{PassPercent: 60, MaxAttempts: 3})
	if err != nil {
		t.Fatalf("loading fixture catalog: %v", err)
	}
	return l
}

// Course returns one fixture course by ID.
func Course(t testing.TB, id string) catalog.Course {
	t.Helper()
	c, ok := Loader(t).Course(id)
	if !ok {
		t.Fatalf("fixture course %q not found", id)
	}
	return c
}
