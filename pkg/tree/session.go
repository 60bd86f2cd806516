package tree

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/qb/pkg/model"
)

// ErrSaveInProgress is returned by Save while an earlier save is outstanding.
var ErrSaveInProgress = errors.New("save already in progress")

// ErrNoEditTarget is returned by CommitEdit when nothing is being edited.
var ErrNoEditTarget = errors.New("no node is being edited")

// ValidationError reports why a document cannot be submitted.
type ValidationError struct {
	Duplicates []string
}

func (e *ValidationError) Error() string {
	return DuplicateCategoryMessage
}

// Unwrap lets callers match with errors.Is(err, ErrDuplicateCategoryName).
func (e *ValidationError) Unwrap() error {
	return ErrDuplicateCategoryName
}

// Saver submits a questionnaire to the persistence collaborator.
type Saver interface {
	CreateTemplate(ctx context.Context, q model.Questionnaire) (model.Questionnaire, error)
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, q model.Questionnaire) (model.Questionnaire, error)

// CreateTemplate calls f.
func (f SaverFunc) CreateTemplate(ctx context.Context, q model.Questionnaire) (model.Questionnaire, error) {
	return f(ctx, q)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithSaver sets the persistence collaborator used by Save.
func WithSaver(sv Saver) SessionOption {
	return func(s *Session) { s.saver = sv }
}

// WithOwner records the user the questionnaire is created for.
func WithOwner(userID string) SessionOption {
	return func(s *Session) { s.owner = userID }
}

// Session is the editor state for one editing session: the current document
// snapshot, the expanded set, and at most one node under rename.
//
// Edits are expected from a single goroutine (the UI loop). Save may run on
// another goroutine; the snapshot it submits is captured before the request
// is issued, so later edits do not race with it.
type Session struct {
	mu       sync.Mutex
	doc      *Document
	expanded ExpandedSet
	editing  NodeID
	owner    string
	lastErr  error
	closed   bool

	saver  Saver
	flight singleflight.Group
	// saving counts requests running inside flight; waiting counts Save
	// callers that entered it.
	saving  atomic.Int32
	waiting atomic.Int32
	log     *zap.Logger
}

// NewSession starts a session on doc. A nil doc starts an empty document.
func NewSession(doc *Document, opts ...SessionOption) *Session {
	if doc == nil {
		doc = NewDocument("")
	}
	s := &Session{doc: doc, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document returns the current snapshot.
func (s *Session) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Snapshot returns the current document in wire form.
func (s *Session) Snapshot() model.Questionnaire {
	q := s.Document().ToQuestionnaire()
	q.OwnerID = s.owner
	return q
}

// Expanded returns the current expanded set.
func (s *Session) Expanded() ExpandedSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded
}

// Editing returns the node under rename, if any.
func (s *Session) Editing() (NodeID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing, s.editing != ""
}

// Busy reports whether a save is outstanding.
func (s *Session) Busy() bool {
	return s.saving.Load() > 0
}

// LastError returns the most recent validation or save error.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// replace swaps in a new snapshot and reconciles expansion and edit state
// with the nodes that still exist.
func (s *Session) replace(doc *Document) {
	s.doc = doc
	s.expanded = s.expanded.Purge(doc)
	if s.editing != "" && !doc.Contains(s.editing) {
		s.log.Debug("edit target removed", zap.String("node", string(s.editing)))
		s.editing = ""
	}
}

// Load replaces the document with doc, e.g. a template fetched as a starting
// point. Expansion and edit state are reset.
func (s *Session) Load(doc *Document) {
	if doc == nil {
		doc = NewDocument("")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.expanded = ExpandedSet{}
	s.editing = ""
	s.lastErr = nil
}

// SetTitle renames the template.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(s.doc.WithTitle(title))
}

// SetDescription changes the template description.
func (s *Session) SetDescription(desc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(s.doc.WithDescription(desc))
}

// ToggleExpanded flips the expansion of the node at p.
func (s *Session) ToggleExpanded(p Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.doc.Resolve(p)
	if !ok {
		return fmt.Errorf("toggle %s: %w", p, ErrPathNotFound)
	}
	s.expanded = s.expanded.Toggle(id)
	return nil
}

// Expand marks the node at p expanded.
func (s *Session) Expand(p Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.doc.Resolve(p)
	if !ok {
		return fmt.Errorf("expand %s: %w", p, ErrPathNotFound)
	}
	s.expanded = s.expanded.With(id)
	return nil
}

// IsExpanded reports whether the node at p is expanded.
func (s *Session) IsExpanded(p Path) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.doc.Resolve(p)
	return ok && s.expanded.Contains(id)
}

// AddCategory appends an empty category.
func (s *Session) AddCategory() NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, id := s.doc.AddCategory()
	s.replace(doc)
	return id
}

// AddSubCategory appends an empty subcategory to category ci.
func (s *Session) AddSubCategory(ci int) (NodeID, error) {
	return s.AddChild(Path{ci})
}

// AddTopic appends an empty topic to subcategory [ci, si].
func (s *Session) AddTopic(ci, si int) (NodeID, error) {
	return s.AddChild(Path{ci, si})
}

// AddQuestion appends an empty question to topic [ci, si, ti].
func (s *Session) AddQuestion(ci, si, ti int) (NodeID, error) {
	return s.AddChild(Path{ci, si, ti})
}

// AddChild appends an empty child under parent; an empty parent adds a
// category. The parent is not expanded.
func (s *Session) AddChild(parent Path) (NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, id, err := s.doc.AddChild(parent)
	if err != nil {
		return "", err
	}
	s.replace(doc)
	return id, nil
}

// DeleteCategory removes category ci and its subtree.
func (s *Session) DeleteCategory(ci int) error {
	return s.Delete(Path{ci})
}

// DeleteSubCategory removes subcategory [ci, si] and its subtree.
func (s *Session) DeleteSubCategory(ci, si int) error {
	return s.Delete(Path{ci, si})
}

// DeleteTopic removes topic [ci, si, ti] and its questions.
func (s *Session) DeleteTopic(ci, si, ti int) error {
	return s.Delete(Path{ci, si, ti})
}

// DeleteQuestion removes question [ci, si, ti, qi].
func (s *Session) DeleteQuestion(ci, si, ti, qi int) error {
	return s.Delete(Path{ci, si, ti, qi})
}

// Delete removes the node at p and all its descendants. Expansion and edit
// state referring to removed nodes is dropped.
func (s *Session) Delete(p Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, removed, err := s.doc.Delete(p)
	if err != nil {
		return err
	}
	s.log.Debug("deleted subtree", zap.Stringer("path", p), zap.Int("nodes", len(removed)))
	s.replace(doc)
	return nil
}

// Rename sets the name of the node at p.
func (s *Session) Rename(p Path, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.doc.Rename(p, name)
	if err != nil {
		s.lastErr = err
		return err
	}
	s.lastErr = nil
	s.replace(doc)
	return nil
}

// SetAnswerType changes the answer type of the question at p.
func (s *Session) SetAnswerType(p Path, at model.AnswerType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.doc.SetAnswerType(p, at)
	if err != nil {
		return err
	}
	s.replace(doc)
	return nil
}

// SetOptions replaces the choices of the question at p.
func (s *Session) SetOptions(p Path, options []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.doc.SetOptions(p, options)
	if err != nil {
		return err
	}
	s.replace(doc)
	return nil
}

// BeginEdit makes the node at p the rename target, replacing any previous
// target.
func (s *Session) BeginEdit(p Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.doc.Resolve(p)
	if !ok {
		return fmt.Errorf("edit %s: %w", p, ErrPathNotFound)
	}
	s.editing = id
	return nil
}

// CommitEdit renames the edit target. On a duplicate category name the
// rename is rejected and the target stays so the text can be corrected.
func (s *Session) CommitEdit(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing == "" {
		return ErrNoEditTarget
	}
	p, ok := s.doc.PathOf(s.editing)
	if !ok {
		s.editing = ""
		return ErrNoEditTarget
	}
	doc, err := s.doc.Rename(p, name)
	if err != nil {
		s.lastErr = err
		return err
	}
	s.lastErr = nil
	s.editing = ""
	s.replace(doc)
	return nil
}

// CancelEdit drops the edit target without renaming.
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = ""
}

// Validate checks the current snapshot for duplicate category names.
func (s *Session) Validate() error {
	return validate(s.Document())
}

func validate(doc *Document) error {
	if dups := doc.DuplicateCategoryNames(); len(dups) > 0 {
		return &ValidationError{Duplicates: dups}
	}
	return nil
}

// Save validates the current snapshot and submits it. Only one save runs at a
// time: callers that arrive while one is outstanding, including callers racing
// the first one into the flight group, get ErrSaveInProgress and issue no
// request. A failed save leaves the snapshot untouched so the same document can
// be retried.
func (s *Session) Save(ctx context.Context) (model.Questionnaire, error) {
	if s.Busy() {
		return model.Questionnaire{}, ErrSaveInProgress
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Questionnaire{}, errors.New("session closed")
	}
	if s.saver == nil {
		s.mu.Unlock()
		return model.Questionnaire{}, errors.New("no saver configured")
	}
	doc := s.doc
	if err := validate(doc); err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return model.Questionnaire{}, err
	}
	s.mu.Unlock()

	q := doc.ToQuestionnaire()
	q.OwnerID = s.owner

	s.waiting.Add(1)
	defer s.waiting.Add(-1)

	// fn runs on the leader's goroutine only
	led := false
	v, err, _ := s.flight.Do("save", func() (any, error) {
		led = true
		s.saving.Add(1)
		defer s.saving.Add(-1)
		return s.saver.CreateTemplate(ctx, q)
	})
	if !led {
		s.log.Debug("save joined an outstanding request", zap.String("title", q.Title))
		return model.Questionnaire{}, ErrSaveInProgress
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		s.log.Warn("save failed", zap.String("title", q.Title), zap.Error(err))
		return model.Questionnaire{}, fmt.Errorf("save questionnaire: %w", err)
	}
	s.lastErr = nil
	created := v.(model.Questionnaire)
	s.log.Info("questionnaire saved",
		zap.String("id", created.ID),
		zap.String("title", created.Title),
		zap.Int("questions", q.QuestionCount()))
	return created, nil
}

// Close ends the session; state is discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.doc = NewDocument("")
	s.expanded = ExpandedSet{}
	s.editing = ""
}
