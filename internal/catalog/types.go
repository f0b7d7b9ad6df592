package catalog

// Course is a published course: ordered modules, each with chapters, a practice set and a quiz.
type Course struct {
	ID          string   `yaml:"id" json:"id"`
	Slug        string   `yaml:"slug" json:"slug"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Premium     bool     `yaml:"premium" json:"premium"`
	Language    string   `yaml:"language" json:"language"`
	Modules     []Module `yaml:"modules" json:"modules"`
}

// Module is a course subdivision containing ordered chapters.
type Module struct {
	ID       string    `yaml:"id" json:"id"`
	Title    string    `yaml:"title" json:"title"`
	Order    int       `yaml:"order" json:"order"`
	Chapters []Chapter `yaml:"chapters" json:"chapters"`
	Practice Practice  `yaml:"practice" json:"practice"`
	Quiz     Quiz      `yaml:"quiz" json:"quiz"`
}

// Chapter is an ordered content unit within a module.
type Chapter struct {
	ID             string          `yaml:"id" json:"id"`
	Title          string          `yaml:"title" json:"title"`
	Order          int             `yaml:"order" json:"order"`
	LearningPoints []LearningPoint `yaml:"learning_points" json:"learning_points"`
}

// LearningPoint is an atomic completable item within a chapter.
type LearningPoint struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body,omitempty"`
}

// Question is a single-answer multiple choice question.
// Answer is never serialised to clients.
type Question struct {
	ID      string   `yaml:"id" json:"id"`
	Prompt  string   `yaml:"prompt" json:"prompt"`
	Options []string `yaml:"options" json:"options"`
	Answer  int      `yaml:"answer" json:"-"`
	Points  int      `yaml:"points" json:"points"`
}

// Practice is the ungraded question set that opens once every chapter of the module is done.
type Practice struct {
	Questions []Question `yaml:"questions" json:"questions"`
}

// Quiz is the graded, attempt-limited assessment that closes a module.
type Quiz struct {
	PassPercent int        `yaml:"pass_percent" json:"pass_percent"`
	MaxAttempts int        `yaml:"max_attempts" json:"max_attempts"`
	Questions   []Question `yaml:"questions" json:"questions"`
}

// Defaults are applied to quizzes that leave PassPercent or MaxAttempts unset.
type Defaults struct {
	PassPercent int
	MaxAttempts int
}

// Module returns the module with the given ID and its position in the course.
func (c *Course) Module(id string) (*Module, int, bool) {
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return &c.Modules[i], i, true
		}
	}
	return nil, -1, false
}

// Chapter returns the chapter with the given ID and the index of its module and of itself.
func (c *Course) Chapter(id string) (ch *Chapter, moduleIdx, chapterIdx int, ok bool) {
	for mi := range c.Modules {
		for ci := range c.Modules[mi].Chapters {
			if c.Modules[mi].Chapters[ci].ID == id {
				return &c.Modules[mi].Chapters[ci], mi, ci, true
			}
		}
	}
	return nil, -1, -1, false
}

// LearningPoint returns the learning point with the given ID and the indices of its module and chapter.
func (c *Course) LearningPoint(id string) (lp *LearningPoint, moduleIdx, chapterIdx int, ok bool) {
	for mi := range c.Modules {
		for ci := range c.Modules[mi].Chapters {
			ch := &c.Modules[mi].Chapters[ci]
			for pi := range ch.LearningPoints {
				if ch.LearningPoints[pi].ID == id {
					return &ch.LearningPoints[pi], mi, ci, true
				}
			}
		}
	}
	return nil, -1, -1, false
}

// CountLearningPoints returns the number of learning points across the course.
func (c *Course) CountLearningPoints() int {
	n := 0
	for _, m := range c.Modules {
		for _, ch := range m.Chapters {
			n += len(ch.LearningPoints)
		}
	}
	return n
}

// Summary is the catalog listing view of a course.
type Summary struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Premium     bool   `json:"premium"`
	Modules     int    `json:"modules"`
	Chapters    int    `json:"chapters"`
}

// Summarize returns the listing view of the course.
func (c *Course) Summarize() Summary {
	chapters := 0
	for _, m := range c.Modules {
		chapters += len(m.Chapters)
	}
	return Summary{
		ID:          c.ID,
		Slug:        c.Slug,
		Title:       c.Title,
		Description: c.Description,
		Premium:     c.Premium,
		Modules:     len(c.Modules),
		Chapters:    chapters,
	}
}
