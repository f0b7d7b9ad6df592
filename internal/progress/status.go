package progress

import (
	"github.com/p-n-ai/pathshala/internal/catalog"
)

// State is the derived state of a module, chapter, practice or quiz.
type State string

const (
	StateLocked     State = "locked"
	StateAvailable  State = "available"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StatePassed     State = "passed"
	StateExhausted  State = "exhausted"
)

// StepKind names the next action a learner can take.
type StepKind string

const (
	StepChapter     StepKind = "chapter"
	StepPractice    StepKind = "practice"
	StepQuiz        StepKind = "quiz"
	StepCertificate StepKind = "certificate"
	// StepBlocked means the learner used up the quiz attempts and needs a reset.
	StepBlocked StepKind = "blocked"
	StepNone    StepKind = "none"
)

// Step points at the next actionable item.
type Step struct {
	Kind      StepKind `json:"kind"`
	ModuleID  string   `json:"module_id,omitempty"`
	ChapterID string   `json:"chapter_id,omitempty"`
}

// ChapterStatus is the derived state of one chapter.
type ChapterStatus struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	State       State  `json:"state"`
	PointsDone  int    `json:"points_done"`
	PointsTotal int    `json:"points_total"`
}

// PracticeStatus is the derived state of a module practice.
type PracticeStatus struct {
	State   State `json:"state"`
	Percent *int  `json:"percent,omitempty"`
}

// QuizStatus is the derived state of a module quiz.
type QuizStatus struct {
	State        State `json:"state"`
	AttemptsUsed int   `json:"attempts_used"`
	AttemptsLeft int   `json:"attempts_left"`
	MaxAttempts  int   `json:"max_attempts"`
	PassPercent  int   `json:"pass_percent"`
	BestPercent  int   `json:"best_percent"`
}

// ModuleStatus is the derived state of one module.
type ModuleStatus struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	State    State           `json:"state"`
	Chapters []ChapterStatus `json:"chapters"`
	Practice PracticeStatus  `json:"practice"`
	Quiz     QuizStatus      `json:"quiz"`
}

// Status is the full derived view of a record against its course.
type Status struct {
	UserID              string         `json:"user_id"`
	CourseID            string         `json:"course_id"`
	Percent             int            `json:"percent"`
	ModulesPassed       int            `json:"modules_passed"`
	ModulesTotal        int            `json:"modules_total"`
	PointsDone          int            `json:"points_done"`
	PointsTotal         int            `json:"points_total"`
	Completed           bool           `json:"completed"`
	CertificateEligible bool           `json:"certificate_eligible"`
	CertificateID       string         `json:"certificate_id,omitempty"`
	Modules             []ModuleStatus `json:"modules"`
	Next                Step           `json:"next"`
}

// Evaluate derives the state of every step of the course from the record alone.
func Evaluate(c *catalog.Course, r Record) Status {
	r.ensureMaps()
	st := Status{
		UserID:        r.UserID,
		CourseID:      c.ID,
		ModulesTotal:  len(c.Modules),
		PointsTotal:   c.CountLearningPoints(),
		CertificateID: r.CertificateID,
		Modules:       make([]ModuleStatus, 0, len(c.Modules)),
		Next:          Step{Kind: StepNone},
	}
	nextSet := false
	setNext := func(s Step) {
		if !nextSet {
			st.Next = s
			nextSet = true
		}
	}

	for mi := range c.Modules {
		m := &c.Modules[mi]
		ms := evaluateModule(c, &r, mi)
		st.PointsDone += pointsDoneInModule(&r, m)
		if ms.State == StatePassed {
			st.ModulesPassed++
		}

		if ms.State == StateAvailable || ms.State == StateInProgress {
			switch {
			case ms.Quiz.State == StateAvailable:
				setNext(Step{Kind: StepQuiz, ModuleID: m.ID})
			case ms.Quiz.State == StateExhausted:
				setNext(Step{Kind: StepBlocked, ModuleID: m.ID})
			case ms.Practice.State == StateAvailable:
				setNext(Step{Kind: StepPractice, ModuleID: m.ID})
			default:
				for _, cs := range ms.Chapters {
					if cs.State == StateAvailable {
						setNext(Step{Kind: StepChapter, ModuleID: m.ID, ChapterID: cs.ID})
						break
					}
				}
			}
		}
		st.Modules = append(st.Modules, ms)
	}

	if st.ModulesTotal > 0 {
		st.Percent = st.ModulesPassed * 100 / st.ModulesTotal
	}
	st.Completed = st.ModulesTotal > 0 && st.ModulesPassed == st.ModulesTotal
	st.CertificateEligible = st.Completed && r.CertificateID == ""
	if st.CertificateEligible {
		setNext(Step{Kind: StepCertificate})
	}
	return st
}

func evaluateModule(c *catalog.Course, r *Record, mi int) ModuleStatus {
	m := &c.Modules[mi]
	h := r.Quizzes[m.ID]
	ms := ModuleStatus{
		ID:       m.ID,
		Title:    m.Title,
		State:    StateLocked,
		Chapters: make([]ChapterStatus, 0, len(m.Chapters)),
		Practice: PracticeStatus{State: StateLocked},
		Quiz: QuizStatus{
			State:        StateLocked,
			AttemptsUsed: len(h.Attempts),
			AttemptsLeft: max(m.Quiz.MaxAttempts-len(h.Attempts), 0),
			MaxAttempts:  m.Quiz.MaxAttempts,
			PassPercent:  m.Quiz.PassPercent,
			BestPercent:  h.BestPercent(),
		},
	}
	available := r.moduleAvailable(c, mi)

	started := false
	for ci := range m.Chapters {
		ch := &m.Chapters[ci]
		cs := ChapterStatus{
			ID:          ch.ID,
			Title:       ch.Title,
			State:       StateLocked,
			PointsDone:  r.pointsDone(ch),
			PointsTotal: len(ch.LearningPoints),
		}
		if _, done := r.Chapters[ch.ID]; done {
			cs.State = StateCompleted
		} else if r.chapterAvailable(c, mi, ci) {
			cs.State = StateAvailable
		}
		if cs.State == StateCompleted || cs.PointsDone > 0 {
			started = true
		}
		ms.Chapters = append(ms.Chapters, cs)
	}

	if pr, done := r.Practice[m.ID]; done {
		p := pr.Percent
		ms.Practice = PracticeStatus{State: StateCompleted, Percent: &p}
		started = true
	} else if r.practiceAvailable(c, mi) {
		ms.Practice.State = StateAvailable
	}

	switch {
	case h.PassedAt != nil:
		ms.Quiz.State = StatePassed
	case available && ms.Practice.State == StateCompleted && ms.Quiz.AttemptsLeft == 0:
		ms.Quiz.State = StateExhausted
	case available && ms.Practice.State == StateCompleted:
		ms.Quiz.State = StateAvailable
	}

	switch {
	case h.PassedAt != nil:
		ms.State = StatePassed
	case !available:
		ms.State = StateLocked
	case started:
		ms.State = StateInProgress
	default:
		ms.State = StateAvailable
	}
	return ms
}

func pointsDoneInModule(r *Record, m *catalog.Module) int {
	n := 0
	for ci := range m.Chapters {
		n += r.pointsDone(&m.Chapters[ci])
	}
	return n
}
