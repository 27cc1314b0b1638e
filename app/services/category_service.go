package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/pkg/collection"
	"github.com/vmcmoto/motoportal/pkg/logger"
	"github.com/vmcmoto/motoportal/pkg/storage"
	"github.com/vmcmoto/motoportal/pkg/validate"
)

// ModelLister lists catalog models; used to count models per category.
type ModelLister interface {
	ListModels(ctx context.Context) ([]models.Model, error)
}

// CategoryService manages the category list, kept as a JSON document on a
// storage disk. The five system categories are seeded on first use.
type CategoryService struct {
	disk   storage.Disk
	path   string
	models ModelLister

	mu sync.Mutex
}

// NewCategoryService keeps the category document at path on disk. lister
// may be nil, in which case counts stay zero and Models finds nothing.
func NewCategoryService(disk storage.Disk, path string, lister ModelLister) *CategoryService {
	return &CategoryService{disk: disk, path: path, models: lister}
}

type categoryInput struct {
	Name string `json:"name" validate:"required,max=50"`
}

// List returns every category with Count derived from the backend's model
// list. A model belongs to a category when its category field equals the
// category id or name, ignoring case.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	s.mu.Lock()
	cats, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if s.models == nil {
		return cats, nil
	}

	list, err := s.models.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("services: count models: %w", err)
	}
	for i := range cats {
		cats[i].Count = collection.Count(list, func(m models.Model) bool { return belongsTo(m, cats[i]) })
	}
	return cats, nil
}

// Models returns the backend's models that belong to category id, in the
// backend's order.
func (s *CategoryService) Models(ctx context.Context, id string) ([]models.Model, error) {
	s.mu.Lock()
	cats, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	i := collection.IndexOf(cats, func(c models.Category) bool { return c.ID == id })
	if i < 0 {
		return nil, ErrUnknownCategory
	}
	if s.models == nil {
		return nil, nil
	}
	list, err := s.models.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("services: list models: %w", err)
	}
	return collection.Filter(list, func(m models.Model) bool { return belongsTo(m, cats[i]) }), nil
}

// Add creates a category. Names are unique ignoring case.
func (s *CategoryService) Add(ctx context.Context, name string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if err := validate.Check(categoryInput{Name: name}); err != nil {
		return models.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cats, err := s.load(ctx)
	if err != nil {
		return models.Category{}, err
	}
	if err := uniqueName(cats, "", name); err != nil {
		return models.Category{}, err
	}

	c := models.Category{ID: s.newID(cats, name), Name: name}
	cats = append(cats, c)
	if err := s.save(ctx, cats); err != nil {
		return models.Category{}, err
	}
	logger.WithCtx(ctx).Info("category added", "op", "categories.add", "category", c.ID)
	return c, nil
}

// Rename changes a custom category's name.
func (s *CategoryService) Rename(ctx context.Context, id, name string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if err := validate.Check(categoryInput{Name: name}); err != nil {
		return models.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cats, err := s.load(ctx)
	if err != nil {
		return models.Category{}, err
	}
	i, err := mutableIndex(cats, id)
	if err != nil {
		return models.Category{}, err
	}
	if err := uniqueName(cats, id, name); err != nil {
		return models.Category{}, err
	}

	cats[i].Name = name
	if err := s.save(ctx, cats); err != nil {
		return models.Category{}, err
	}
	logger.WithCtx(ctx).Info("category renamed", "op", "categories.rename", "category", id)
	return cats[i], nil
}

// Delete removes a custom category. A category that still has models needs
// confirm to approve.
func (s *CategoryService) Delete(ctx context.Context, id string, confirm ConfirmFunc) error {
	cats, err := s.List(ctx)
	if err != nil {
		return err
	}
	i, err := mutableIndex(cats, id)
	if err != nil {
		return err
	}
	if c := cats[i]; c.Count > 0 {
		if !confirmed(confirm, fmt.Sprintf("Category %s has %d model(s). Delete it anyway?", c.Name, c.Count)) {
			return ErrNotConfirmed
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.load(ctx)
	if err != nil {
		return err
	}
	stored = collection.Reject(stored, func(c models.Category) bool { return c.ID == id })
	if err := s.save(ctx, stored); err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("category deleted", "op", "categories.delete", "category", id)
	return nil
}

// ─── storage ──────────────────────────────────────────────────────────────────

func (s *CategoryService) load(ctx context.Context) ([]models.Category, error) {
	data, err := s.disk.Get(ctx, s.path)
	if errors.Is(err, storage.ErrNotFound) {
		return models.SystemCategories(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("services: read categories: %w", err)
	}
	var cats []models.Category
	if err := json.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("services: decode categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) save(ctx context.Context, cats []models.Category) error {
	data, err := json.MarshalIndent(cats, "", "  ")
	if err != nil {
		return fmt.Errorf("services: encode categories: %w", err)
	}
	if err := s.disk.Put(ctx, s.path, data); err != nil {
		return fmt.Errorf("services: write categories: %w", err)
	}
	return nil
}

// ─── rules ────────────────────────────────────────────────────────────────────

// mutableIndex finds id and refuses system categories.
func mutableIndex(cats []models.Category, id string) (int, error) {
	i := collection.IndexOf(cats, func(c models.Category) bool { return c.ID == id })
	if i < 0 {
		return -1, ErrUnknownCategory
	}
	if cats[i].System {
		return -1, ErrSystemCategory
	}
	return i, nil
}

func uniqueName(cats []models.Category, exceptID, name string) error {
	key := collection.Fold(name)
	taken := collection.Contains(cats, func(c models.Category) bool {
		return c.ID != exceptID && (collection.Fold(c.Name) == key || collection.Fold(c.ID) == key)
	})
	if taken {
		return validate.New("name", fmt.Sprintf("A category named %s already exists.", name))
	}
	return nil
}

func belongsTo(m models.Model, c models.Category) bool {
	key := collection.Fold(m.Category)
	return key != "" && (key == collection.Fold(c.ID) || key == collection.Fold(c.Name))
}

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

func (s *CategoryService) newID(cats []models.Category, name string) string {
	base := strings.Trim(slugRE.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if base == "" {
		base = "category"
	}
	id := base
	for n := 2; collection.Contains(cats, func(c models.Category) bool { return c.ID == id }); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}
