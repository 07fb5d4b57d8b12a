package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-splitter/internal/scanning"
)

var (
	// ErrExtraction wraps any failure of the expense analysis service
	ErrExtraction = errors.New("receipt extraction failed")
	// ErrInvalidAmount is returned for negative subtotal or tax corrections
	ErrInvalidAmount = errors.New("amount must not be negative")
)

// ExtractionHint is the guidance shown to users when scanning fails
const ExtractionHint = "Try loading the sample receipt if the scanning service is unavailable."

// IDGenerator generates unique IDs for sessions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service runs the splitting workflow on stored sessions
type Service struct {
	db          DB
	extractor   scanning.Extractor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource

	// locks holds one *sync.Mutex per session ID
	locks sync.Map
}

// NewService creates a new Service with UUID session IDs and the wall clock
func NewService(db DB, extractor scanning.Extractor, storage Storage) *Service {
	return NewServiceWithDeps(db, extractor, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor scanning.Extractor, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up phone-generated upload names
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// uploadName returns a fresh file name for every upload, even of the same file
func uploadName(id, filename string) string {
	return fmt.Sprintf("%s_%s_%s", id, uuid.NewString()[:8], sanitizeFilename(filename))
}

// lock serializes read-modify-write cycles on one session
func (s *Service) lock(id string) func() {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// update loads a session, applies fn and saves it if fn succeeds
func (s *Service) update(id string, fn func(*Session) error) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()

	session, err := s.db.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveSession(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// withReceipt is update for operations that need a loaded receipt
func (s *Service) withReceipt(id string, fn func(*Session, *Receipt) error) (*Session, error) {
	return s.update(id, func(session *Session) error {
		if session.Receipt == nil {
			return ErrNoReceipt
		}
		return fn(session, session.Receipt)
	})
}

// CreateSession starts a new, empty session
func (s *Service) CreateSession() (*Session, error) {
	session := NewSession(s.idGenerator.Generate(), s.timeSource.Now())
	if err := s.db.SaveSession(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by ID
func (s *Service) GetSession(id string) (*Session, error) {
	session, err := s.db.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions
func (s *Service) ListSessions() ([]*Session, error) {
	sessions, err := s.db.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// removeImage deletes a stored upload, logging failures
func (s *Service) removeImage(name string) {
	if name == "" {
		return
	}
	if err := s.storage.Delete(name); err != nil {
		slog.Warn("Failed to delete file", "filename", name, "error", err)
	}
}

// ResetSession clears the receipt, people and upload and returns to the first step
func (s *Service) ResetSession(id string) (*Session, error) {
	var image string
	session, err := s.update(id, func(session *Session) error {
		image = session.ImageFilename
		session.Reset()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.removeImage(image)
	return session, nil
}

// DeleteSession removes a session and its upload
func (s *Service) DeleteSession(id string) error {
	unlock := s.lock(id)
	defer unlock()

	session, err := s.db.GetSession(id)
	if err != nil {
		return fmt.Errorf("getting session for deletion: %w", err)
	}

	s.removeImage(session.ImageFilename)

	if err := s.db.DeleteSession(id); err != nil {
		return fmt.Errorf("deleting session from database: %w", err)
	}
	s.locks.Delete(id)
	return nil
}

// ScanReceipt stores the upload, analyzes it and replaces the session's
// receipt. The session is not locked while the extractor runs, so edits made
// in the meantime are kept.
func (s *Service) ScanReceipt(ctx context.Context, id, filename string, data []byte, contentType string) (*Session, error) {
	if _, err := s.db.GetSession(id); err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	savedName, err := s.storage.Save(uploadName(id, filename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	result, err := s.extractor.AnalyzeExpense(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"session_id", id,
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.removeImage(savedName)
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	receipt := Normalize(result)
	slog.Info("Scanned receipt",
		"session_id", id,
		"vendor", receipt.Vendor,
		"items", len(receipt.Items),
		"subtotal", receipt.Subtotal,
	)

	var previous string
	session, err := s.update(id, func(session *Session) error {
		previous = session.ImageFilename
		session.Receipt = receipt
		session.ImageFilename = savedName
		return nil
	})
	if err != nil {
		s.removeImage(savedName)
		return nil, err
	}
	s.removeImage(previous)
	return session, nil
}

// GetReceiptImage returns the stored upload of a session
func (s *Service) GetReceiptImage(id string) ([]byte, error) {
	session, err := s.db.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if session.ImageFilename == "" {
		return nil, fmt.Errorf("%w: no image uploaded", ErrNoReceipt)
	}
	data, err := s.storage.Get(session.ImageFilename)
	if err != nil {
		return nil, fmt.Errorf("getting receipt file: %w", err)
	}
	return data, nil
}

// LoadSampleReceipt replaces the session's receipt with the sample data
func (s *Service) LoadSampleReceipt(id string) (*Session, error) {
	return s.update(id, func(session *Session) error {
		session.Receipt = SampleReceipt()
		return nil
	})
}

// Details are manual corrections to the scanned receipt. Nil fields are left alone.
type Details struct {
	Vendor   *string  `json:"vendor,omitempty"`
	Date     *string  `json:"date,omitempty"`
	Subtotal *float64 `json:"subtotal,omitempty"`
	Tax      *float64 `json:"tax,omitempty"`
}

// UpdateDetails applies manual corrections. The subtotal is taken as given and
// not reconciled against the item prices.
func (s *Service) UpdateDetails(id string, d Details) (*Session, error) {
	if (d.Subtotal != nil && *d.Subtotal < 0) || (d.Tax != nil && *d.Tax < 0) {
		return nil, ErrInvalidAmount
	}
	return s.withReceipt(id, func(_ *Session, r *Receipt) error {
		if d.Vendor != nil {
			r.Vendor = *d.Vendor
		}
		if d.Date != nil {
			r.Date = *d.Date
		}
		if d.Subtotal != nil {
			r.Subtotal = *d.Subtotal
		}
		if d.Tax != nil {
			r.Tax = *d.Tax
		}
		return nil
	})
}

// AddItem adds a manually entered item. Entries without a name or with a
// non-positive price are ignored and reported as not added.
func (s *Service) AddItem(id, name string, price float64, quantity int) (*Session, bool, error) {
	name = strings.TrimSpace(name)
	added := name != "" && price > 0
	session, err := s.withReceipt(id, func(_ *Session, r *Receipt) error {
		if added {
			r.AddItem(NewLineItem(name, price, quantity))
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return session, added, nil
}

// AddPeople adds names to the session, each entry may be a comma-separated list
func (s *Service) AddPeople(id string, entries ...string) (*Session, error) {
	return s.update(id, func(session *Session) error {
		session.AddPeople(entries...)
		return nil
	})
}

// RemovePerson removes a person and their item assignments
func (s *Service) RemovePerson(id, name string) (*Session, error) {
	return s.update(id, func(session *Session) error {
		session.RemovePerson(name)
		return nil
	})
}

// SetItemAssignment assigns or unassigns a person on the item at index
func (s *Service) SetItemAssignment(id string, index int, person string, assigned bool) (*Session, error) {
	return s.update(id, func(session *Session) error {
		item, err := session.Item(index)
		if err != nil {
			return err
		}
		if assigned {
			if !session.HasPerson(person) {
				return fmt.Errorf("%w: %s", ErrUnknownPerson, person)
			}
			item.AssignTo(person)
		} else {
			item.UnassignFrom(person)
		}
		return nil
	})
}

// AssignUnassigned gives every unclaimed item to one person
func (s *Service) AssignUnassigned(id, person string) (*Session, error) {
	return s.withReceipt(id, func(session *Session, r *Receipt) error {
		if !session.HasPerson(person) {
			return fmt.Errorf("%w: %s", ErrUnknownPerson, person)
		}
		r.AssignUnassignedTo(person)
		return nil
	})
}

// SplitEvenly shares every item among everyone in the session
func (s *Service) SplitEvenly(id string) (*Session, error) {
	return s.withReceipt(id, func(session *Session, r *Receipt) error {
		if len(session.People) == 0 {
			return ErrNoPeople
		}
		r.AssignAllTo(session.People)
		return nil
	})
}

// Tip is either a percentage of the subtotal or a fixed amount
type Tip struct {
	Percent *float64 `json:"percent,omitempty"`
	Amount  *float64 `json:"amount,omitempty"`
}

// SetTip sets the receipt tip; exactly one of Percent and Amount must be given
func (s *Service) SetTip(id string, tip Tip) (*Session, error) {
	if (tip.Percent == nil) == (tip.Amount == nil) {
		return nil, fmt.Errorf("%w: give either a percent or an amount", ErrInvalidTip)
	}
	return s.withReceipt(id, func(_ *Session, r *Receipt) error {
		if tip.Percent != nil {
			return r.SetTipPercent(*tip.Percent)
		}
		return r.SetTipAmount(*tip.Amount)
	})
}

// SetStep moves the workflow and reports how many items are still unassigned
func (s *Service) SetStep(id string, step Step) (*Session, int, error) {
	session, err := s.update(id, func(session *Session) error {
		return session.GoTo(step)
	})
	if err != nil {
		return nil, 0, err
	}
	unassigned := 0
	if session.Receipt != nil {
		unassigned = len(session.Receipt.UnassignedItems())
	}
	return session, unassigned, nil
}

// ItemAssignment shows who shares one line item
type ItemAssignment struct {
	Name           string   `json:"name"`
	Price          float64  `json:"price"`
	Quantity       int      `json:"quantity"`
	AssignedTo     []string `json:"assigned_to"`
	PricePerPerson float64  `json:"price_per_person"`
}

// Split is the computed result of a session
type Split struct {
	Vendor          string           `json:"vendor"`
	Date            string           `json:"date"`
	Subtotal        float64          `json:"subtotal"`
	Tax             float64          `json:"tax"`
	Tip             float64          `json:"tip"`
	Total           float64          `json:"total"`
	Items           []ItemAssignment `json:"items"`
	People          []PersonShare    `json:"people"`
	UnassignedItems int              `json:"unassigned_items"`
	// Unattributed is the part of the total nobody owes, left over from
	// unassigned items or a subtotal that disagrees with the item prices
	Unattributed float64 `json:"unattributed"`
}

// NewSplit computes the split of a receipt
func NewSplit(r *Receipt) *Split {
	split := &Split{
		Vendor:          r.Vendor,
		Date:            r.Date,
		Subtotal:        r.Subtotal,
		Tax:             r.Tax,
		Tip:             r.Tip,
		Total:           r.Total(),
		Items:           make([]ItemAssignment, 0, len(r.Items)),
		People:          r.PersonBreakdown(),
		UnassignedItems: len(r.UnassignedItems()),
	}
	for _, item := range r.Items {
		split.Items = append(split.Items, ItemAssignment{
			Name:           item.Name,
			Price:          item.Price,
			Quantity:       item.Quantity,
			AssignedTo:     item.AssignedTo,
			PricePerPerson: item.PricePerPerson(),
		})
	}

	owed := 0.0
	for _, share := range split.People {
		owed += share.Total
	}
	split.Unattributed = split.Total - owed
	return split
}

// receipt loads the receipt of a session
func (s *Service) receipt(id string) (*Receipt, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if session.Receipt == nil {
		return nil, ErrNoReceipt
	}
	return session.Receipt, nil
}

// Split computes what everyone in the session owes
func (s *Service) Split(id string) (*Split, error) {
	r, err := s.receipt(id)
	if err != nil {
		return nil, err
	}
	return NewSplit(r), nil
}

// Summary renders the shareable text summary of a session
func (s *Service) Summary(id string) (string, error) {
	r, err := s.receipt(id)
	if err != nil {
		return "", err
	}
	return SummaryText(r), nil
}

// CSV renders the Person,Amount export of a session
func (s *Service) CSV(id string) ([]byte, error) {
	r, err := s.receipt(id)
	if err != nil {
		return nil, err
	}
	return SplitCSV(r)
}
