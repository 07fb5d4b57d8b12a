package receipt

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Step is a stage of the splitting workflow
type Step int

// Workflow steps, in order
const (
	StepUpload Step = iota + 1
	StepPeople
	StepAssign
	StepSummary
)

var stepNames = map[Step]string{
	StepUpload:  "Upload Receipt",
	StepPeople:  "Add People",
	StepAssign:  "Assign Items",
	StepSummary: "Summary",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoReceipt       = errors.New("no receipt loaded")
	ErrNoPeople        = errors.New("no people added")
	ErrInvalidStep     = errors.New("invalid step")
	ErrInvalidItem     = errors.New("invalid item")
	ErrUnknownPerson   = errors.New("unknown person")
)

// Session is the state of one person splitting one bill
type Session struct {
	ID            string    `json:"id"`
	Receipt       *Receipt  `json:"receipt"`
	People        []string  `json:"people"`
	Step          Step      `json:"step"`
	ImageFilename string    `json:"image_filename,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewSession creates a session at the upload step
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		People:    []string{},
		Step:      StepUpload,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddPeople adds each name once. Entries may be comma-separated lists;
// blanks and names already present are skipped. Returns the names added.
func (s *Session) AddPeople(entries ...string) []string {
	var added []string
	for _, entry := range entries {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" || slices.Contains(s.People, name) {
				continue
			}
			s.People = append(s.People, name)
			added = append(added, name)
		}
	}
	return added
}

// RemovePerson drops a person from the session and from every item
func (s *Session) RemovePerson(name string) {
	idx := slices.Index(s.People, name)
	if idx == -1 {
		return
	}
	s.People = slices.Delete(s.People, idx, idx+1)
	if s.Receipt != nil {
		s.Receipt.UnassignEverywhere(name)
	}
}

// HasPerson reports whether the name is in the session
func (s *Session) HasPerson(name string) bool {
	return slices.Contains(s.People, name)
}

// Item returns the line item at index
func (s *Session) Item(index int) (*LineItem, error) {
	if s.Receipt == nil {
		return nil, ErrNoReceipt
	}
	if index < 0 || index >= len(s.Receipt.Items) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidItem, index)
	}
	return s.Receipt.Items[index], nil
}

// GoTo moves the workflow to step, enforcing what each step needs
func (s *Session) GoTo(step Step) error {
	if step < StepUpload || step > StepSummary {
		return fmt.Errorf("%w: %d", ErrInvalidStep, int(step))
	}
	if step >= StepPeople && s.Receipt == nil {
		return ErrNoReceipt
	}
	if step == StepAssign && len(s.People) == 0 {
		return ErrNoPeople
	}
	s.Step = step
	return nil
}

// Reset clears everything but the session identity
func (s *Session) Reset() {
	s.Receipt = nil
	s.People = []string{}
	s.Step = StepUpload
	s.ImageFilename = ""
}
