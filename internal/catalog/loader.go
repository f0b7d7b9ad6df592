// Package catalog loads and serves the course catalog from YAML documents on disk.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Loader loads and caches course documents from the filesystem.
type Loader struct {
	rootDir  string
	defaults Defaults
	courses  map[string]Course
	slugs    map[string]string // slug -> course ID
	mu       sync.RWMutex
}

// NewLoader creates a new catalog loader and loads all courses under rootDir.
func NewLoader(rootDir string, defaults Defaults) (*Loader, error) {
	if defaults.PassPercent == 0 {
		defaults.PassPercent = 60
	}
	if defaults.MaxAttempts == 0 {
		defaults.MaxAttempts = 3
	}
	l := &Loader{
		rootDir:  rootDir,
		defaults: defaults,
		courses:  make(map[string]Course),
		slugs:    make(map[string]string),
	}

	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// ErrEmptyCatalog is returned by Reload when a catalog that had courses would become empty.
var ErrEmptyCatalog = errors.New("catalog reload found no courses")

// Reload re-reads every course document and atomically replaces the catalog.
// On failure the previous catalog keeps being served.
func (l *Loader) Reload() error {
	courses, err := l.loadAll()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	l.mu.RLock()
	previous := len(l.courses)
	l.mu.RUnlock()
	if len(courses) == 0 && previous > 0 {
		return fmt.Errorf("%w in %s, keeping %d courses", ErrEmptyCatalog, l.rootDir, previous)
	}

	slugs := make(map[string]string, len(courses))
	for id, c := range courses {
		slugs[c.Slug] = id
	}

	l.mu.Lock()
	l.courses = courses
	l.slugs = slugs
	l.mu.Unlock()

	slog.Info("catalog loaded", "courses", len(courses), "root", l.rootDir)
	return nil
}

// Course returns a course by ID.
func (l *Loader) Course(id string) (Course, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.courses[id]
	return c, ok
}

// CourseBySlug returns a course by its URL slug.
func (l *Loader) CourseBySlug(slug string) (Course, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.slugs[slug]
	if !ok {
		return Course{}, false
	}
	c, ok := l.courses[id]
	return c, ok
}

// Courses returns all courses ordered by title using Bengali collation.
func (l *Loader) Courses() []Course {
	l.mu.RLock()
	courses := make([]Course, 0, len(l.courses))
	for _, c := range l.courses {
		courses = append(courses, c)
	}
	l.mu.RUnlock()

	col := collate.New(language.Bengali)
	sort.Slice(courses, func(i, j int) bool {
		if r := col.CompareString(courses[i].Title, courses[j].Title); r != 0 {
			return r < 0
		}
		return courses[i].ID < courses[j].ID
	})
	return courses
}

// Search returns courses whose title or description contains query.
// Matching is case-insensitive and insensitive to Unicode normalisation form.
func (l *Loader) Search(query string) []Course {
	q := foldString(strings.TrimSpace(query))
	all := l.Courses()
	if q == "" {
		return all
	}

	var out []Course
	for _, c := range all {
		if strings.Contains(foldString(c.Title), q) || strings.Contains(foldString(c.Description), q) {
			out = append(out, c)
		}
	}
	return out
}

func foldString(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func (l *Loader) loadAll() (map[string]Course, error) {
	courses := make(map[string]Course)
	sources := make(map[string]string)

	info, err := os.Stat(l.rootDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", l.rootDir)
	}

	err = filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == l.rootDir {
				return err
			}
			slog.Warn("skipping unreadable catalog path", "path", path, "error", err)
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		c, err := l.loadCourse(path)
		if err != nil {
			slog.Warn("skipping invalid course document", "path", path, "error", err)
			return nil
		}
		if prev, dup := sources[c.ID]; dup {
			slog.Warn("duplicate course id, later file wins", "id", c.ID, "previous", prev, "path", path)
		}
		courses[c.ID] = c
		sources[c.ID] = path
		return nil
	})
	if err != nil {
		return nil, err
	}
	return courses, nil
}

func (l *Loader) loadCourse(path string) (Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Course{}, err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Course{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := ValidateDocument(doc); err != nil {
		return Course{}, err
	}

	var c Course
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Course{}, fmt.Errorf("decode course: %w", err)
	}

	l.normalize(&c)
	if err := checkStructure(&c); err != nil {
		return Course{}, err
	}
	l.attachBodies(path, &c)
	return c, nil
}

// normalize fills defaults and orders modules and chapters by their Order field.
func (l *Loader) normalize(c *Course) {
	if c.Slug == "" {
		c.Slug = c.ID
	}
	if c.Language == "" {
		c.Language = "bn"
	}
	c.Title = norm.NFC.String(c.Title)

	sort.SliceStable(c.Modules, func(i, j int) bool { return c.Modules[i].Order < c.Modules[j].Order })
	for mi := range c.Modules {
		m := &c.Modules[mi]
		sort.SliceStable(m.Chapters, func(i, j int) bool { return m.Chapters[i].Order < m.Chapters[j].Order })
		if m.Quiz.PassPercent == 0 {
			m.Quiz.PassPercent = l.defaults.PassPercent
		}
		if m.Quiz.MaxAttempts == 0 {
			m.Quiz.MaxAttempts = l.defaults.MaxAttempts
		}
		defaultPoints(m.Practice.Questions)
		defaultPoints(m.Quiz.Questions)
	}
}

func defaultPoints(qs []Question) {
	for i := range qs {
		if qs[i].Points == 0 {
			qs[i].Points = 1
		}
	}
}

// attachBodies reads "<course-file>.<point-id>.md" siblings into learning points without a body.
func (l *Loader) attachBodies(path string, c *Course) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for mi := range c.Modules {
		for ci := range c.Modules[mi].Chapters {
			points := c.Modules[mi].Chapters[ci].LearningPoints
			for pi := range points {
				if points[pi].Body != "" {
					continue
				}
				body, err := os.ReadFile(base + "." + points[pi].ID + ".md")
				if err != nil {
					continue
				}
				points[pi].Body = string(body)
			}
		}
	}
}

// checkStructure enforces the invariants the schema cannot express.
func checkStructure(c *Course) error {
	seen := make(map[string]string)
	claim := func(kind, id string) error {
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%s id %q already used by a %s", kind, id, prev)
		}
		seen[id] = kind
		return nil
	}

	if len(c.Modules) == 0 {
		return fmt.Errorf("course %q has no modules", c.ID)
	}
	for _, m := range c.Modules {
		if err := claim("module", m.ID); err != nil {
			return err
		}
		if len(m.Quiz.Questions) == 0 {
			return fmt.Errorf("module %q has an empty quiz", m.ID)
		}
		for _, ch := range m.Chapters {
			if err := claim("chapter", ch.ID); err != nil {
				return err
			}
			for _, lp := range ch.LearningPoints {
				if err := claim("learning point", lp.ID); err != nil {
					return err
				}
			}
		}
		if err := checkQuestions(m.ID, "practice", m.Practice.Questions); err != nil {
			return err
		}
		if err := checkQuestions(m.ID, "quiz", m.Quiz.Questions); err != nil {
			return err
		}
	}
	return nil
}

func checkQuestions(moduleID, set string, qs []Question) error {
	ids := make(map[string]bool, len(qs))
	for _, q := range qs {
		if ids[q.ID] {
			return fmt.Errorf("module %q %s: duplicate question id %q", moduleID, set, q.ID)
		}
		ids[q.ID] = true
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return fmt.Errorf("module %q %s: question %q answer %d out of range", moduleID, set, q.ID, q.Answer)
		}
	}
	return nil
}
