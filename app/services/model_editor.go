package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/pkg/collection"
	"github.com/vmcmoto/motoportal/pkg/event"
	"github.com/vmcmoto/motoportal/pkg/logger"
	"github.com/vmcmoto/motoportal/pkg/validate"
)

// EventModelSaved is fired with the saved models.Model.
const EventModelSaved = "model.saved"

// EventModelDeleted is fired with the id of a deleted model.
const EventModelDeleted = "model.deleted"

// ModelBackend is the part of the catalog backend a ModelEditor needs for the
// entity itself.
type ModelBackend interface {
	GetModel(ctx context.Context, id int64) (models.Model, error)
	CreateModel(ctx context.Context, in models.ModelInput) (models.Model, error)
	UpdateModel(ctx context.Context, id int64, in models.ModelInput) (models.Model, error)
	DeleteModel(ctx context.Context, id int64) error
}

// CatalogBackend is everything the editor talks to.
type CatalogBackend interface {
	ModelBackend
	PhotoBackend
	SpecBackend
}

// Form is the editable part of a model.
type Form struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Category        string   `json:"category" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	FullDescription string   `json:"full_description" validate:"required"`
	Features        []string `json:"features" validate:"filled"`
	SalesScript     string   `json:"sales_script"`
	IsActive        bool     `json:"is_active"`
	SortOrder       int      `json:"sort_order" validate:"gte=0"`
}

// FormFromModel copies the editable fields of m.
func FormFromModel(m models.Model) Form {
	return Form{
		Name:            m.Name,
		Category:        m.Category,
		Description:     m.Description,
		FullDescription: m.FullDescription,
		Features:        append([]string(nil), m.Features...),
		SalesScript:     m.SalesScript,
		IsActive:        m.IsActive,
		SortOrder:       m.SortOrder,
	}
}

// Input returns the create/update payload. Text is trimmed and blank
// features are dropped.
func (f Form) Input() models.ModelInput {
	features := collection.Map(f.Features, strings.TrimSpace)
	features = collection.Reject(features, func(s string) bool { return s == "" })
	return models.ModelInput{
		Name:            strings.TrimSpace(f.Name),
		Category:        strings.TrimSpace(f.Category),
		Description:     strings.TrimSpace(f.Description),
		FullDescription: strings.TrimSpace(f.FullDescription),
		Features:        features,
		SalesScript:     strings.TrimSpace(f.SalesScript),
		IsActive:        f.IsActive,
		SortOrder:       f.SortOrder,
	}
}

// ModelEditor edits one catalog model together with its photos and specs.
// A new editor starts unsaved; the attachment managers refuse to work until
// the first Save assigns an id.
type ModelEditor struct {
	backend CatalogBackend
	bus     *event.Bus

	mu    sync.Mutex
	model models.Model

	Form   Form
	Photos *PhotoSet
	Specs  *SpecSet

	photoOpts []PhotoOption
	specOpts  []SpecOption
}

// EditorOption configures a ModelEditor.
type EditorOption func(*ModelEditor)

// WithEditorEvents fires model, photo and spec events on bus.
func WithEditorEvents(bus *event.Bus) EditorOption {
	return func(e *ModelEditor) { e.bus = bus }
}

// WithPhotoOptions passes opts to the editor's PhotoSet.
func WithPhotoOptions(opts ...PhotoOption) EditorOption {
	return func(e *ModelEditor) { e.photoOpts = append(e.photoOpts, opts...) }
}

// WithSpecOptions passes opts to the editor's SpecSet.
func WithSpecOptions(opts ...SpecOption) EditorOption {
	return func(e *ModelEditor) { e.specOpts = append(e.specOpts, opts...) }
}

// NewModelEditor returns an editor for a new, unsaved model.
func NewModelEditor(backend CatalogBackend, opts ...EditorOption) *ModelEditor {
	e := &ModelEditor{backend: backend, Form: Form{IsActive: true}}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus != nil {
		e.photoOpts = append(e.photoOpts, WithPhotoEvents(e.bus))
		e.specOpts = append(e.specOpts, WithSpecEvents(e.bus))
	}
	e.Photos = NewPhotoSet(backend, 0, nil, e.photoOpts...)
	e.Specs = NewSpecSet(backend, 0, nil, e.specOpts...)
	return e
}

// Model returns the last state read from or written to the backend.
func (e *ModelEditor) Model() models.Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

// ID returns the model id, zero while unsaved.
func (e *ModelEditor) ID() int64 { return e.Model().ID }

// Load reads model id with its photos and specs.
func (e *ModelEditor) Load(ctx context.Context, id int64) error {
	m, err := e.backend.GetModel(ctx, id)
	if err != nil {
		return fmt.Errorf("services: load model %d: %w", id, err)
	}

	e.mu.Lock()
	e.model = m
	e.Form = FormFromModel(m)
	e.mu.Unlock()

	e.Photos.Bind(m.ID)
	e.Specs.Bind(m.ID)
	if err := e.Photos.Load(ctx); err != nil {
		return err
	}
	return e.Specs.Load(ctx)
}

// Validate checks the form.
func (e *ModelEditor) Validate() error {
	return validate.Check(e.Form)
}

// Save validates the form, then creates the model when it is new or updates
// it otherwise. After the first save the photo and spec managers are bound
// to the new id.
func (e *ModelEditor) Save(ctx context.Context) (models.Model, error) {
	if err := e.Validate(); err != nil {
		return models.Model{}, err
	}
	in := e.Form.Input()
	current := e.Model()
	creating := !current.Persisted()

	var (
		saved models.Model
		err   error
	)
	if creating {
		saved, err = e.backend.CreateModel(ctx, in)
	} else {
		saved, err = e.backend.UpdateModel(ctx, current.ID, in)
	}
	if err != nil {
		return models.Model{}, fmt.Errorf("services: save model: %w", err)
	}

	e.mu.Lock()
	e.model = saved
	e.Form = FormFromModel(saved)
	e.mu.Unlock()

	if creating {
		e.Photos.Bind(saved.ID)
		e.Specs.Bind(saved.ID)
		logger.WithCtx(ctx).Info("model created", "op", "models.create", "model_id", saved.ID)
	} else {
		logger.WithCtx(ctx).Info("model updated", "op", "models.update", "model_id", saved.ID)
	}
	e.bus.Fire(EventModelSaved, saved)
	return saved, nil
}

// Delete removes the model after confirm approves it.
func (e *ModelEditor) Delete(ctx context.Context, confirm ConfirmFunc) error {
	m := e.Model()
	if m.ID == 0 {
		return ErrNotPersisted
	}
	if !confirmed(confirm, fmt.Sprintf("Delete model %s with all its photos and specs?", m.Name)) {
		return ErrNotConfirmed
	}
	if err := e.backend.DeleteModel(ctx, m.ID); err != nil {
		return fmt.Errorf("services: delete model %d: %w", m.ID, err)
	}

	e.mu.Lock()
	e.model = models.Model{}
	e.mu.Unlock()
	e.Photos.Bind(0)
	e.Specs.Bind(0)

	logger.WithCtx(ctx).Info("model deleted", "op", "models.delete", "model_id", m.ID)
	e.bus.Fire(EventModelDeleted, m.ID)
	return nil
}

// SyncSpecs pushes the manual spec edits to the backend.
func (e *ModelEditor) SyncSpecs(ctx context.Context) (SpecChanges, error) {
	return e.Specs.Sync(ctx)
}
