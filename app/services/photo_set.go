package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/pkg/collection"
	"github.com/vmcmoto/motoportal/pkg/event"
	"github.com/vmcmoto/motoportal/pkg/logger"
	"github.com/vmcmoto/motoportal/pkg/metrics"
	"github.com/vmcmoto/motoportal/pkg/validate"
)

// DefaultPhotoMaxBytes is the largest accepted upload.
const DefaultPhotoMaxBytes int64 = 10 << 20

// EventPhotosChanged is fired with a PhotosChanged payload after every
// successful mutation.
const EventPhotosChanged = "photos.changed"

// PhotosChanged is the payload of EventPhotosChanged.
type PhotosChanged struct {
	ModelID int64
	Photos  []models.Photo
}

// PhotoBackend is the part of the catalog backend a PhotoSet needs.
type PhotoBackend interface {
	ListPhotos(ctx context.Context, modelID int64) ([]models.Photo, error)
	UploadPhoto(ctx context.Context, modelID int64, up models.Upload) (models.Photo, error)
	SetPhotoOrder(ctx context.Context, modelID int64, ids []int64) error
	SetPrimaryPhoto(ctx context.Context, photoID int64) error
	DeletePhoto(ctx context.Context, photoID int64) error
}

// UploadResult reports one file of an AddAll batch.
type UploadResult struct {
	Name  string
	Photo models.Photo
	Err   error
}

// PhotoSet is the ordered photo list of one model.
//
// Mutations are serialized: a second mutation queues behind the one in
// flight, or fails with ErrBusy when the set was built WithRejectWhenBusy.
// Reads never wait for the network.
type PhotoSet struct {
	backend    PhotoBackend
	maxBytes   int64
	rejectBusy bool
	bus        *event.Bus
	sem        *semaphore.Weighted

	mu      sync.RWMutex
	modelID int64
	photos  []models.Photo
}

// PhotoOption configures a PhotoSet.
type PhotoOption func(*PhotoSet)

// WithMaxBytes overrides the upload size limit.
func WithMaxBytes(n int64) PhotoOption {
	return func(s *PhotoSet) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithRejectWhenBusy makes a mutation fail fast with ErrBusy instead of
// waiting for the one in flight.
func WithRejectWhenBusy() PhotoOption { return func(s *PhotoSet) { s.rejectBusy = true } }

// WithPhotoEvents fires EventPhotosChanged on bus.
func WithPhotoEvents(bus *event.Bus) PhotoOption { return func(s *PhotoSet) { s.bus = bus } }

// NewPhotoSet returns a set for modelID seeded with photos. A zero modelID
// is allowed; every mutation then fails with ErrNotPersisted until Bind.
func NewPhotoSet(backend PhotoBackend, modelID int64, photos []models.Photo, opts ...PhotoOption) *PhotoSet {
	s := &PhotoSet{
		backend:  backend,
		maxBytes: DefaultPhotoMaxBytes,
		sem:      semaphore.NewWeighted(1),
		modelID:  modelID,
		photos:   clonePhotos(photos),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind attaches the set to a freshly saved model.
func (s *PhotoSet) Bind(modelID int64) {
	s.mu.Lock()
	s.modelID = modelID
	s.mu.Unlock()
}

// ModelID returns the parent model id.
func (s *PhotoSet) ModelID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modelID
}

// Load replaces the local list with the backend's, ordered by SortOrder.
func (s *PhotoSet) Load(ctx context.Context) error {
	modelID, err := s.persisted()
	if err != nil {
		return err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	photos, err := s.backend.ListPhotos(ctx, modelID)
	if err != nil {
		return fmt.Errorf("services: load photos: %w", err)
	}
	sort.SliceStable(photos, func(i, j int) bool { return photos[i].SortOrder < photos[j].SortOrder })

	if n := collection.Count(photos, func(p models.Photo) bool { return p.IsPrimary }); len(photos) > 0 && n != 1 {
		logger.WithCtx(ctx).Warn("photos: unexpected primary count", "model_id", modelID, "primary", n)
	}
	s.replace(photos)
	return nil
}

// ─── Reads ────────────────────────────────────────────────────────────────────

// Photos returns a copy of the ordered list.
func (s *PhotoSet) Photos() []models.Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePhotos(s.photos)
}

// Len returns the number of photos.
func (s *PhotoSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos)
}

// Primary returns the primary photo, if any.
func (s *PhotoSet) Primary() (models.Photo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collection.First(s.photos, func(p models.Photo) bool { return p.IsPrimary })
}

// Filter returns photos whose names contain query, ignoring case.
func (s *PhotoSet) Filter(query string) []models.Photo {
	return FilterPhotos(s.Photos(), query)
}

// FilterPhotos matches query against the original and stored file names.
// An empty query returns photos unchanged.
func FilterPhotos(photos []models.Photo, query string) []models.Photo {
	if strings.TrimSpace(query) == "" {
		return photos
	}
	return collection.Filter(photos, func(p models.Photo) bool {
		return collection.ContainsFold(query, p.OriginalFilename, p.Filename)
	})
}

// ─── Mutations ────────────────────────────────────────────────────────────────

// ValidateUpload checks the body, content type and size of up. Every failing
// field is reported.
func (s *PhotoSet) ValidateUpload(up models.Upload) error {
	verr := &validate.Error{}
	if up.Body == nil {
		verr.Add("file", fmt.Sprintf("The file %s has no content.", up.Name))
	}
	if !strings.HasPrefix(strings.ToLower(up.ContentType), "image/") {
		verr.Add("content_type", fmt.Sprintf("The file %s is not an image.", up.Name))
	}
	if up.Size > s.maxBytes {
		verr.Add("size", fmt.Sprintf("The file %s is larger than %d MB.", up.Name, s.maxBytes>>20))
	}
	return verr.OrNil()
}

// Add validates and uploads one file, appending the stored photo.
func (s *PhotoSet) Add(ctx context.Context, up models.Upload) (models.Photo, error) {
	modelID, err := s.persisted()
	if err != nil {
		return models.Photo{}, err
	}
	if err := s.ValidateUpload(up); err != nil {
		metrics.RecordPhotoOp("add", "rejected")
		return models.Photo{}, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return models.Photo{}, err
	}
	defer release()

	photo, err := s.backend.UploadPhoto(ctx, modelID, up)
	if err != nil {
		metrics.RecordPhotoOp("add", "failed")
		return models.Photo{}, fmt.Errorf("services: upload %s: %w", up.Name, err)
	}

	s.mu.Lock()
	s.photos = append(s.photos, photo)
	s.mu.Unlock()

	metrics.RecordPhotoOp("add", "ok")
	logger.WithCtx(ctx).Info("photo uploaded", "op", "photos.add", "model_id", modelID, "photo_id", photo.ID)
	s.changed()
	return photo, nil
}

// AddAll uploads files one after another. A rejected or failed file is
// reported in its result and the batch continues.
func (s *PhotoSet) AddAll(ctx context.Context, uploads []models.Upload) []UploadResult {
	results := make([]UploadResult, 0, len(uploads))
	for _, up := range uploads {
		photo, err := s.Add(ctx, up)
		results = append(results, UploadResult{Name: up.Name, Photo: photo, Err: err})
	}
	return results
}

// Remove deletes a photo after confirm approves it. The local list changes
// only when the backend delete succeeded.
func (s *PhotoSet) Remove(ctx context.Context, id int64, confirm ConfirmFunc) error {
	if _, err := s.persisted(); err != nil {
		return err
	}
	photo, ok := s.find(id)
	if !ok {
		return ErrUnknownPhoto
	}
	if !confirmed(confirm, fmt.Sprintf("Delete photo %s?", photo.DisplayName())) {
		return ErrNotConfirmed
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := s.backend.DeletePhoto(ctx, id); err != nil {
		metrics.RecordPhotoOp("remove", "failed")
		return fmt.Errorf("services: delete photo %d: %w", id, err)
	}

	s.mu.Lock()
	if i := collection.IndexOf(s.photos, func(p models.Photo) bool { return p.ID == id }); i >= 0 {
		s.photos = append(s.photos[:i:i], s.photos[i+1:]...)
	}
	s.mu.Unlock()

	metrics.RecordPhotoOp("remove", "ok")
	logger.WithCtx(ctx).Info("photo deleted", "op", "photos.remove", "model_id", photo.ModelID, "photo_id", id)
	s.changed()
	return nil
}

// Reorder applies ids as the new order. ids must be a permutation of the
// current ids. The change is shown at once and restored exactly if the
// backend refuses it.
func (s *PhotoSet) Reorder(ctx context.Context, ids []int64) error {
	modelID, err := s.persisted()
	if err != nil {
		return err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.reorder(ctx, modelID, ids)
}

// Move drags the photo at position from to position to. Equal or
// out-of-range positions are a no-op. The positions are resolved once the
// set is free, so a move queued behind an upload sees the new photo.
func (s *PhotoSet) Move(ctx context.Context, from, to int) error {
	if from == to || from < 0 || to < 0 {
		return nil
	}
	modelID, err := s.persisted()
	if err != nil {
		return err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.mu.RLock()
	n := len(s.photos)
	if from >= n || to >= n {
		s.mu.RUnlock()
		return nil
	}
	ids := collection.Map(s.photos, func(p models.Photo) int64 { return p.ID })
	s.mu.RUnlock()

	moved := ids[from]
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:to], append([]int64{moved}, ids[to:]...)...)
	return s.reorder(ctx, modelID, ids)
}

// reorder runs with the set's semaphore held.
func (s *PhotoSet) reorder(ctx context.Context, modelID int64, ids []int64) error {
	s.mu.Lock()
	if err := checkPermutation(s.photos, ids); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := clonePhotos(s.photos)
	byID := collection.KeyBy(s.photos, func(p models.Photo) int64 { return p.ID })
	reordered := make([]models.Photo, len(ids))
	for i, id := range ids {
		p := byID[id]
		p.SortOrder = i
		reordered[i] = p
	}
	s.photos = reordered
	s.mu.Unlock()

	if err := s.backend.SetPhotoOrder(ctx, modelID, ids); err != nil {
		s.replace(snapshot)
		metrics.RecordPhotoOp("reorder", "rolled_back")
		logger.WithCtx(ctx).Warn("photo order rolled back", "op", "photos.reorder", "model_id", modelID, "error", err)
		return fmt.Errorf("services: reorder photos: %w", err)
	}

	metrics.RecordPhotoOp("reorder", "ok")
	logger.WithCtx(ctx).Info("photos reordered", "op", "photos.reorder", "model_id", modelID)
	s.changed()
	return nil
}

// SetPrimary marks id as the only primary photo once the backend agrees.
func (s *PhotoSet) SetPrimary(ctx context.Context, id int64) error {
	modelID, err := s.persisted()
	if err != nil {
		return err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, ok := s.find(id); !ok {
		return ErrUnknownPhoto
	}
	if err := s.backend.SetPrimaryPhoto(ctx, id); err != nil {
		metrics.RecordPhotoOp("primary", "failed")
		return fmt.Errorf("services: set primary photo %d: %w", id, err)
	}

	s.mu.Lock()
	for i := range s.photos {
		s.photos[i].IsPrimary = s.photos[i].ID == id
	}
	s.mu.Unlock()

	metrics.RecordPhotoOp("primary", "ok")
	logger.WithCtx(ctx).Info("primary photo set", "op", "photos.primary", "model_id", modelID, "photo_id", id)
	s.changed()
	return nil
}

// ─── internals ────────────────────────────────────────────────────────────────

func (s *PhotoSet) persisted() (int64, error) {
	id := s.ModelID()
	if id == 0 {
		return 0, ErrNotPersisted
	}
	return id, nil
}

func (s *PhotoSet) acquire(ctx context.Context) (func(), error) {
	if s.rejectBusy {
		if !s.sem.TryAcquire(1) {
			metrics.RecordPhotoOp("any", "busy")
			return nil, ErrBusy
		}
	} else if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.sem.Release(1) }, nil
}

func (s *PhotoSet) find(id int64) (models.Photo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collection.First(s.photos, func(p models.Photo) bool { return p.ID == id })
}

func (s *PhotoSet) replace(photos []models.Photo) {
	s.mu.Lock()
	s.photos = photos
	s.mu.Unlock()
}

func (s *PhotoSet) changed() {
	s.bus.Fire(EventPhotosChanged, PhotosChanged{ModelID: s.ModelID(), Photos: s.Photos()})
}

func checkPermutation(photos []models.Photo, ids []int64) error {
	if len(ids) != len(photos) {
		return validate.New("ids", fmt.Sprintf("The order must list all %d photos.", len(photos)))
	}
	present := collection.KeyBy(photos, func(p models.Photo) int64 { return p.ID })
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			return validate.New("ids", fmt.Sprintf("Photo %d does not belong to this model.", id))
		}
		if seen[id] {
			return validate.New("ids", fmt.Sprintf("Photo %d is listed twice.", id))
		}
		seen[id] = true
	}
	return nil
}

func clonePhotos(in []models.Photo) []models.Photo {
	if in == nil {
		return nil
	}
	out := make([]models.Photo, len(in))
	copy(out, in)
	return out
}
