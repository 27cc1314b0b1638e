package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/app/repositories"
	"github.com/vmcmoto/motoportal/pkg/logger"
	"github.com/vmcmoto/motoportal/pkg/testkit"
)

// newCatalog returns a repository talking to a fresh fake backend.
func newCatalog(t *testing.T) (*repositories.CatalogRepository, *testkit.FakeBackend) {
	t.Helper()
	logger.Discard()
	fb := testkit.NewFakeBackend(t)
	fb.RequireToken("tok")
	tokens := repositories.TokenFunc(func(context.Context) (string, error) { return "tok", nil })
	repo := repositories.NewCatalogRepository(fb.URL(), tokens,
		repositories.WithClient(fb.Client()),
		repositories.WithTimeout(5*time.Second),
	)
	return repo, fb
}

// stubPhotos is an in-process PhotoBackend. When gate is set, SetPrimaryPhoto
// signals entered and blocks until gate is closed; uploadGate and
// uploadEntered do the same for UploadPhoto.
type stubPhotos struct {
	mu       sync.Mutex
	photos   []models.Photo
	orderErr error
	orders   [][]int64
	gate     chan struct{}
	entered  chan struct{}
	primary  []int64

	uploadGate    chan struct{}
	uploadEntered chan struct{}
}

func (s *stubPhotos) ListPhotos(context.Context, int64) ([]models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Photo(nil), s.photos...), nil
}

func (s *stubPhotos) UploadPhoto(ctx context.Context, modelID int64, up models.Upload) (models.Photo, error) {
	if s.uploadGate != nil {
		s.uploadEntered <- struct{}{}
		select {
		case <-s.uploadGate:
		case <-ctx.Done():
			return models.Photo{}, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Photo{ID: int64(100 + len(s.photos)), ModelID: modelID, OriginalFilename: up.Name}
	s.photos = append(s.photos, p)
	return p, nil
}

func (s *stubPhotos) SetPhotoOrder(_ context.Context, _ int64, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, append([]int64(nil), ids...))
	return s.orderErr
}

func (s *stubPhotos) SetPrimaryPhoto(ctx context.Context, id int64) error {
	if s.gate != nil {
		s.entered <- struct{}{}
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.primary = append(s.primary, id)
	s.mu.Unlock()
	return nil
}

func (s *stubPhotos) DeletePhoto(context.Context, int64) error { return nil }

func threePhotos() []models.Photo {
	return []models.Photo{
		{ID: 1, ModelID: 9, OriginalFilename: "front.jpg", SortOrder: 0, IsPrimary: true},
		{ID: 2, ModelID: 9, OriginalFilename: "side.jpg", SortOrder: 1},
		{ID: 3, ModelID: 9, OriginalFilename: "rear.jpg", SortOrder: 2},
	}
}

func ids(photos []models.Photo) []int64 {
	out := make([]int64, len(photos))
	for i, p := range photos {
		out[i] = p.ID
	}
	return out
}
