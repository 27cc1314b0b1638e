package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/pkg/collection"
	"github.com/vmcmoto/motoportal/pkg/event"
	"github.com/vmcmoto/motoportal/pkg/logger"
	"github.com/vmcmoto/motoportal/pkg/metrics"
	"github.com/vmcmoto/motoportal/pkg/validate"
)

// EventSpecsChanged is fired with the model id after the spec list changed.
const EventSpecsChanged = "specs.changed"

// SpecBackend is the part of the catalog backend a SpecSet needs.
type SpecBackend interface {
	ListSpecs(ctx context.Context, modelID int64) ([]models.Spec, error)
	CreateSpec(ctx context.Context, modelID int64, in models.SpecInput) (models.Spec, error)
	UpdateSpec(ctx context.Context, specID int64, in models.SpecInput) (models.Spec, error)
	DeleteSpec(ctx context.Context, specID int64) error
}

// MergeResult reports what Merge did with each imported row.
type MergeResult struct {
	Added      []models.Spec
	Duplicates []string // names already present, left untouched
	Blank      int      // rows without a name
}

// SpecFailure is one backend call that failed during Merge or Sync.
type SpecFailure struct {
	Op   string // "create" | "update" | "delete"
	Name string
	Err  error
}

// PersistError collects the backend failures of one Merge or Sync. The local
// list is not rolled back.
type PersistError struct {
	Failures []SpecFailure
}

func (e *PersistError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s %q: %v", f.Op, f.Name, f.Err)
	}
	return fmt.Sprintf("services: %d spec change(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *PersistError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Err
	}
	return out
}

// SpecGroup is one category section of the read view.
type SpecGroup struct {
	Category string
	Specs    []models.Spec
}

// SpecChanges is the backend work pending after manual edits.
type SpecChanges struct {
	Create []models.Spec
	Update []models.Spec
	Delete []int64
}

// Empty reports whether nothing is pending.
func (c SpecChanges) Empty() bool {
	return len(c.Create) == 0 && len(c.Update) == 0 && len(c.Delete) == 0
}

// SpecSet is the spec list of one model with its import and edit protocol.
// Names are unique within the set, ignoring case.
type SpecSet struct {
	backend        SpecBackend
	persistOnMerge bool
	bus            *event.Bus

	mu      sync.Mutex
	modelID int64
	specs   []models.Spec
	dirty   map[int64]bool
	deleted []int64

	editing int // -1 when no buffer is open
	buffer  models.Spec
	fresh   bool // buffer row was created by Add
}

// SpecOption configures a SpecSet.
type SpecOption func(*SpecSet)

// WithPersistOnMerge creates every merged row on the backend right away when
// the model is saved.
func WithPersistOnMerge() SpecOption { return func(s *SpecSet) { s.persistOnMerge = true } }

// WithSpecEvents fires EventSpecsChanged on bus.
func WithSpecEvents(bus *event.Bus) SpecOption { return func(s *SpecSet) { s.bus = bus } }

// NewSpecSet returns a set for modelID holding specs as the last known
// backend state. Like PhotoSet, a zero modelID defers every write until Bind.
func NewSpecSet(backend SpecBackend, modelID int64, specs []models.Spec, opts ...SpecOption) *SpecSet {
	s := &SpecSet{
		backend: backend,
		modelID: modelID,
		specs:   append([]models.Spec(nil), specs...),
		dirty:   map[int64]bool{},
		editing: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind attaches the set to a freshly saved model.
func (s *SpecSet) Bind(modelID int64) {
	s.mu.Lock()
	s.modelID = modelID
	s.mu.Unlock()
}

// Load replaces the list with the backend's and drops pending changes.
func (s *SpecSet) Load(ctx context.Context) error {
	s.mu.Lock()
	modelID := s.modelID
	s.mu.Unlock()
	if modelID == 0 {
		return ErrNotPersisted
	}

	specs, err := s.backend.ListSpecs(ctx, modelID)
	if err != nil {
		return fmt.Errorf("services: load specs: %w", err)
	}
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].SortOrder < specs[j].SortOrder })

	s.mu.Lock()
	s.specs = specs
	s.dirty = map[int64]bool{}
	s.deleted = nil
	s.closeBuffer()
	s.mu.Unlock()
	return nil
}

// Specs returns a copy of the list.
func (s *SpecSet) Specs() []models.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Spec(nil), s.specs...)
}

// Len returns the number of specs.
func (s *SpecSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.specs)
}

// ─── Import ───────────────────────────────────────────────────────────────────

// Merge appends the rows whose name is not present yet, in input order.
// Existing specs are never overwritten, and of two rows sharing a name the
// first wins. With WithPersistOnMerge each added row is then created on the
// backend; failures come back as a *PersistError while the local merge stays.
func (s *SpecSet) Merge(ctx context.Context, rows []models.SpecRow) (MergeResult, error) {
	var res MergeResult

	s.mu.Lock()
	names := collection.FoldSet(s.specs, func(sp models.Spec) string { return sp.Name })
	for _, row := range rows {
		key := collection.Fold(row.Name)
		if key == "" {
			res.Blank++
			continue
		}
		if _, dup := names[key]; dup {
			res.Duplicates = append(res.Duplicates, row.Name)
			continue
		}
		names[key] = struct{}{}
		sp := row.Spec()
		s.specs = append(s.specs, sp)
		res.Added = append(res.Added, sp)
	}
	modelID := s.modelID
	s.mu.Unlock()

	metrics.RecordSpecImport("added", len(res.Added))
	metrics.RecordSpecImport("duplicate", len(res.Duplicates))
	metrics.RecordSpecImport("invalid", res.Blank)
	logger.WithCtx(ctx).Info("specs merged", "op", "specs.merge", "model_id", modelID,
		"added", len(res.Added), "duplicates", len(res.Duplicates))

	if len(res.Added) > 0 {
		s.changed()
	}
	if !s.persistOnMerge || modelID == 0 || len(res.Added) == 0 {
		return res, nil
	}

	var failures []SpecFailure
	for i, sp := range res.Added {
		created, err := s.backend.CreateSpec(ctx, modelID, sp.Input())
		if err != nil {
			failures = append(failures, SpecFailure{Op: "create", Name: sp.Name, Err: err})
			continue
		}
		s.adopt(sp.Name, created)
		res.Added[i] = created
	}
	if len(failures) > 0 {
		return res, &PersistError{Failures: failures}
	}
	return res, nil
}

// adopt writes the backend's copy over the unsaved local row named name.
func (s *SpecSet) adopt(name string, saved models.Spec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := collection.Fold(name)
	i := collection.IndexOf(s.specs, func(sp models.Spec) bool {
		return sp.ID == 0 && collection.Fold(sp.Name) == key
	})
	if i >= 0 {
		s.specs[i] = saved
	}
}

// ─── Manual editing ───────────────────────────────────────────────────────────

// Add appends a blank row in category "other" and opens it for editing.
func (s *SpecSet) Add() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := models.Spec{Category: models.DefaultSpecCategory, SortOrder: len(s.specs)}
	s.specs = append(s.specs, sp)
	s.editing = len(s.specs) - 1
	s.buffer = sp
	s.fresh = true
	return s.editing
}

// Edit opens the row at i for editing.
func (s *SpecSet) Edit(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.specs) {
		return ErrIndexOutOfRange
	}
	s.editing = i
	s.buffer = s.specs[i]
	s.fresh = false
	return nil
}

// Buffer returns the row being edited.
func (s *SpecSet) Buffer() (models.Spec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer, s.editing >= 0
}

// SetBuffer replaces the edit buffer's content.
func (s *SpecSet) SetBuffer(sp models.Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing < 0 {
		return ErrNoEditBuffer
	}
	sp.ID = s.specs[s.editing].ID
	sp.ModelID = s.specs[s.editing].ModelID
	s.buffer = sp
	return nil
}

// Commit writes the buffer back when both name and value are filled. It
// returns false, leaving the buffer open, when either is blank. A name that
// another row already uses is a validation error.
func (s *SpecSet) Commit() (bool, error) {
	s.mu.Lock()
	if s.editing < 0 {
		s.mu.Unlock()
		return false, ErrNoEditBuffer
	}
	sp := s.buffer
	sp.Name = strings.TrimSpace(sp.Name)
	sp.Value = strings.TrimSpace(sp.Value)
	if sp.Name == "" || sp.Value == "" {
		s.mu.Unlock()
		return false, nil
	}

	key := collection.Fold(sp.Name)
	for i, other := range s.specs {
		if i != s.editing && collection.Fold(other.Name) == key {
			s.mu.Unlock()
			return false, validate.New("spec_name", fmt.Sprintf("A spec named %s already exists.", other.Name))
		}
	}
	if sp.Category == "" {
		sp.Category = models.DefaultSpecCategory
	}
	s.specs[s.editing] = sp
	if sp.ID != 0 {
		s.dirty[sp.ID] = true
	}
	s.closeBuffer()
	s.mu.Unlock()

	s.changed()
	return true, nil
}

// Cancel closes the buffer without writing. A row opened by Add that was
// never committed is removed.
func (s *SpecSet) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing < 0 {
		return
	}
	if s.fresh {
		if row := s.specs[s.editing]; row.ID == 0 && row.Name == "" && row.Value == "" {
			s.specs = append(s.specs[:s.editing:s.editing], s.specs[s.editing+1:]...)
		}
	}
	s.closeBuffer()
}

// Delete removes the row at i without confirmation.
func (s *SpecSet) Delete(i int) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.specs) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	if id := s.specs[i].ID; id != 0 {
		s.deleted = append(s.deleted, id)
		delete(s.dirty, id)
	}
	s.specs = append(s.specs[:i:i], s.specs[i+1:]...)
	switch {
	case s.editing == i:
		s.closeBuffer()
	case s.editing > i:
		s.editing--
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

func (s *SpecSet) closeBuffer() {
	s.editing = -1
	s.buffer = models.Spec{}
	s.fresh = false
}

// ─── Read path ────────────────────────────────────────────────────────────────

// Filter returns specs whose name or value contains query, ignoring case.
func (s *SpecSet) Filter(query string) []models.Spec {
	return FilterSpecs(s.Specs(), query)
}

// FilterSpecs is Filter over a plain slice.
func FilterSpecs(specs []models.Spec, query string) []models.Spec {
	if strings.TrimSpace(query) == "" {
		return specs
	}
	return collection.Filter(specs, func(sp models.Spec) bool {
		return collection.ContainsFold(query, sp.Name, sp.Value)
	})
}

// Groups partitions the filtered specs by category. Groups keep the order in
// which their category first appears; specs inside a group are ordered by
// SortOrder.
func (s *SpecSet) Groups(query string) []SpecGroup {
	return GroupSpecs(s.Filter(query))
}

// GroupSpecs is Groups over a plain slice.
func GroupSpecs(specs []models.Spec) []SpecGroup {
	groups := collection.GroupOrdered(specs, models.Spec.GroupKey)
	return collection.Map(groups, func(g collection.Group[models.Spec]) SpecGroup {
		return SpecGroup{
			Category: g.Key,
			Specs:    collection.SortBy(g.Items, func(a, b models.Spec) bool { return a.SortOrder < b.SortOrder }),
		}
	})
}

// ─── Sync ─────────────────────────────────────────────────────────────────────

// Changes reports the backend work pending after manual edits.
func (s *SpecSet) Changes() SpecChanges {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c SpecChanges
	for _, sp := range s.specs {
		switch {
		case sp.ID == 0 && sp.Name != "":
			c.Create = append(c.Create, sp)
		case sp.ID != 0 && s.dirty[sp.ID]:
			c.Update = append(c.Update, sp)
		}
	}
	c.Delete = append(c.Delete, s.deleted...)
	return c
}

// Sync pushes Changes to the backend. Each successful call clears its
// pending entry; failures stay pending and come back as a *PersistError.
func (s *SpecSet) Sync(ctx context.Context) (SpecChanges, error) {
	s.mu.Lock()
	modelID := s.modelID
	s.mu.Unlock()
	if modelID == 0 {
		return SpecChanges{}, ErrNotPersisted
	}

	pending := s.Changes()
	var (
		done     SpecChanges
		failures []SpecFailure
	)

	for _, id := range pending.Delete {
		if err := s.backend.DeleteSpec(ctx, id); err != nil {
			failures = append(failures, SpecFailure{Op: "delete", Name: fmt.Sprintf("#%d", id), Err: err})
			continue
		}
		s.mu.Lock()
		s.deleted = collection.Reject(s.deleted, func(d int64) bool { return d == id })
		s.mu.Unlock()
		done.Delete = append(done.Delete, id)
	}

	for _, sp := range pending.Update {
		saved, err := s.backend.UpdateSpec(ctx, sp.ID, sp.Input())
		if err != nil {
			failures = append(failures, SpecFailure{Op: "update", Name: sp.Name, Err: err})
			continue
		}
		s.mu.Lock()
		delete(s.dirty, sp.ID)
		s.mu.Unlock()
		done.Update = append(done.Update, saved)
	}

	for _, sp := range pending.Create {
		created, err := s.backend.CreateSpec(ctx, modelID, sp.Input())
		if err != nil {
			failures = append(failures, SpecFailure{Op: "create", Name: sp.Name, Err: err})
			continue
		}
		s.adopt(sp.Name, created)
		done.Create = append(done.Create, created)
	}

	logger.WithCtx(ctx).Info("specs synced", "op", "specs.sync", "model_id", modelID,
		"created", len(done.Create), "updated", len(done.Update), "deleted", len(done.Delete), "failed", len(failures))
	if !done.Empty() {
		s.changed()
	}
	if len(failures) > 0 {
		return done, &PersistError{Failures: failures}
	}
	return done, nil
}

func (s *SpecSet) changed() {
	s.mu.Lock()
	id := s.modelID
	s.mu.Unlock()
	s.bus.Fire(EventSpecsChanged, id)
}
