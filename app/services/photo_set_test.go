package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/pkg/event"
	"github.com/vmcmoto/motoportal/pkg/testkit"
)

func jpeg(name string, size int) models.Upload {
	return models.Upload{Name: name, ContentType: "image/jpeg", Size: int64(size), Body: bytes.NewReader(make([]byte, size))}
}

func TestPhotoSet_LoadOrdersBySortOrder(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Enduro 250"})
	c := fb.SeedPhoto(m.ID, models.Photo{SortOrder: 3})
	a := fb.SeedPhoto(m.ID, models.Photo{SortOrder: 1, IsPrimary: true})
	b := fb.SeedPhoto(m.ID, models.Photo{SortOrder: 2})

	set := NewPhotoSet(repo, m.ID, nil)
	require.NoError(t, set.Load(context.Background()))

	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, ids(set.Photos()))
	p, ok := set.Primary()
	require.True(t, ok)
	assert.Equal(t, a.ID, p.ID)
}

func TestPhotoSet_UnsavedModel(t *testing.T) {
	set := NewPhotoSet(&stubPhotos{}, 0, nil)
	ctx := context.Background()

	assert.ErrorIs(t, set.Load(ctx), ErrNotPersisted)
	_, err := set.Add(ctx, jpeg("a.jpg", 10))
	assert.ErrorIs(t, err, ErrNotPersisted)
	assert.ErrorIs(t, set.Reorder(ctx, nil), ErrNotPersisted)
	assert.ErrorIs(t, set.SetPrimary(ctx, 1), ErrNotPersisted)
	assert.ErrorIs(t, set.Remove(ctx, 1, AlwaysConfirm), ErrNotPersisted)

	set.Bind(9)
	_, err = set.Add(ctx, jpeg("a.jpg", 10))
	assert.NoError(t, err)
}

func TestPhotoSet_ValidateUploadReportsEveryField(t *testing.T) {
	set := NewPhotoSet(&stubPhotos{}, 9, nil, WithMaxBytes(1<<20))

	err := set.ValidateUpload(models.Upload{Name: "brochure.pdf", ContentType: "application/pdf", Size: 2 << 20, Body: bytes.NewReader(nil)})
	testkit.AssertValidationFields(t, err, "content_type", "size")

	err = set.ValidateUpload(models.Upload{Name: "empty.jpg", ContentType: "image/jpeg"})
	testkit.AssertValidationFields(t, err, "file")

	assert.NoError(t, set.ValidateUpload(models.Upload{Name: "a.png", ContentType: "IMAGE/PNG", Size: 1 << 20, Body: bytes.NewReader(nil)}))
}

func TestPhotoSet_AddRejectsTextFileOverLimit(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Cross 450"})
	set := NewPhotoSet(repo, m.ID, nil)

	up := models.Upload{Name: "manual.txt", ContentType: "text/plain", Size: 11 << 20, Body: bytes.NewReader(nil)}
	_, err := set.Add(context.Background(), up)

	testkit.AssertValidationFields(t, err, "content_type", "size")
	assert.Zero(t, fb.Calls("photos.upload"))
	assert.Zero(t, set.Len())
}

func TestPhotoSet_AddAcceptsExactLimit(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Cross 450"})
	set := NewPhotoSet(repo, m.ID, nil)

	p, err := set.Add(context.Background(), jpeg("full.jpg", int(DefaultPhotoMaxBytes)))
	require.NoError(t, err)
	assert.Equal(t, DefaultPhotoMaxBytes, p.FileSize)
	assert.Equal(t, 1, fb.Calls("photos.upload"))
}

func TestPhotoSet_AddWithoutBodyIsRejected(t *testing.T) {
	stub := &stubPhotos{}
	set := NewPhotoSet(stub, 9, nil)

	_, err := set.Add(context.Background(), models.Upload{Name: "front.jpg", ContentType: "image/jpeg", Size: 10})
	testkit.AssertValidationFields(t, err, "file")
	assert.Empty(t, stub.photos)
}

func TestPhotoSet_AddAllContinuesPastFailures(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Pit 125"})
	set := NewPhotoSet(repo, m.ID, nil)

	bad := jpeg("notes.txt", 4) // passes local checks, refused by the backend
	huge := jpeg("huge.jpg", 0)
	huge.Size = DefaultPhotoMaxBytes + 1

	results := set.AddAll(context.Background(), []models.Upload{jpeg("front.jpg", 3), bad, huge, jpeg("side.png", 5)})
	require.Len(t, results, 4)

	assert.NoError(t, results[0].Err)
	testkit.AssertStatusError(t, results[1].Err, http.StatusBadRequest)
	testkit.AssertValidationFields(t, results[2].Err, "size")
	assert.NoError(t, results[3].Err)

	assert.Equal(t, 2, set.Len())
	assert.Len(t, fb.Photos(m.ID), 2)
	assert.Equal(t, 3, fb.Calls("photos.upload"), "rejected files never reach the backend")

	_, hasPrimary := set.Primary()
	assert.False(t, hasPrimary, "uploads do not pick a primary photo")
}

func TestPhotoSet_ReorderRollsBackExactly(t *testing.T) {
	stub := &stubPhotos{orderErr: errors.New("backend down")}
	set := NewPhotoSet(stub, 9, threePhotos())
	before := set.Photos()

	err := set.Reorder(context.Background(), []int64{3, 1, 2})
	require.Error(t, err)

	if diff := cmp.Diff(before, set.Photos()); diff != "" {
		t.Fatalf("photos after rollback (-want +got):\n%s", diff)
	}
}

func TestPhotoSet_ReorderRejectsNonPermutation(t *testing.T) {
	set := NewPhotoSet(&stubPhotos{}, 9, threePhotos())
	ctx := context.Background()

	for _, order := range [][]int64{{1, 2}, {1, 2, 2}, {1, 2, 4}} {
		err := set.Reorder(ctx, order)
		testkit.AssertValidationFields(t, err, "ids")
	}
	assert.Equal(t, []int64{1, 2, 3}, ids(set.Photos()))
}

func TestPhotoSet_MoveUpdatesBackend(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Scooter 50"})
	a := fb.SeedPhoto(m.ID, models.Photo{SortOrder: 1})
	b := fb.SeedPhoto(m.ID, models.Photo{SortOrder: 2})
	c := fb.SeedPhoto(m.ID, models.Photo{SortOrder: 3})

	set := NewPhotoSet(repo, m.ID, nil)
	ctx := context.Background()
	require.NoError(t, set.Load(ctx))

	require.NoError(t, set.Move(ctx, 0, 2))
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, ids(set.Photos()))
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, ids(fb.Photos(m.ID)))
	assert.Equal(t, []int{0, 1, 2}, []int{set.Photos()[0].SortOrder, set.Photos()[1].SortOrder, set.Photos()[2].SortOrder})

	require.NoError(t, set.Move(ctx, 1, 1))
	require.NoError(t, set.Move(ctx, 0, 7))
	assert.Equal(t, 1, fb.Calls("photos.order"), "no-op moves do not call the backend")
}

func TestPhotoSet_SetPrimaryRewritesFlags(t *testing.T) {
	photos := threePhotos()
	photos[2].IsPrimary = true // two primaries from a bad backend state
	stub := &stubPhotos{}
	set := NewPhotoSet(stub, 9, photos)
	ctx := context.Background()

	require.NoError(t, set.SetPrimary(ctx, 2))
	for _, p := range set.Photos() {
		assert.Equal(t, p.ID == 2, p.IsPrimary, "photo %d", p.ID)
	}

	assert.ErrorIs(t, set.SetPrimary(ctx, 42), ErrUnknownPhoto)
	assert.Equal(t, []int64{2}, stub.primary)
}

func TestPhotoSet_SetPrimaryFromNoPrimary(t *testing.T) {
	photos := threePhotos()
	photos[0].IsPrimary = false
	set := NewPhotoSet(&stubPhotos{}, 9, photos)

	_, hasPrimary := set.Primary()
	require.False(t, hasPrimary)

	require.NoError(t, set.SetPrimary(context.Background(), 3))
	for _, p := range set.Photos() {
		assert.Equal(t, p.ID == 3, p.IsPrimary, "photo %d", p.ID)
	}
}

func TestPhotoSet_SetPrimaryFailureKeepsFlags(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Moped"})
	a := fb.SeedPhoto(m.ID, models.Photo{SortOrder: 1, IsPrimary: true})
	b := fb.SeedPhoto(m.ID, models.Photo{SortOrder: 2})

	set := NewPhotoSet(repo, m.ID, nil)
	ctx := context.Background()
	require.NoError(t, set.Load(ctx))

	fb.FailNext("photos.primary", http.StatusInternalServerError)
	err := set.SetPrimary(ctx, b.ID)
	testkit.AssertStatusError(t, err, http.StatusInternalServerError)

	p, _ := set.Primary()
	assert.Equal(t, a.ID, p.ID)
}

func TestPhotoSet_RemoveNeedsConfirmation(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Enduro 300"})
	a := fb.SeedPhoto(m.ID, models.Photo{SortOrder: 1, IsPrimary: true})
	b := fb.SeedPhoto(m.ID, models.Photo{SortOrder: 2})

	set := NewPhotoSet(repo, m.ID, nil)
	ctx := context.Background()
	require.NoError(t, set.Load(ctx))

	var prompt string
	decline := func(p string) bool { prompt = p; return false }
	assert.ErrorIs(t, set.Remove(ctx, a.ID, decline), ErrNotConfirmed)
	assert.Contains(t, prompt, a.Filename)
	assert.ErrorIs(t, set.Remove(ctx, a.ID, nil), ErrNotConfirmed)
	assert.Zero(t, fb.Calls("photos.delete"))

	require.NoError(t, set.Remove(ctx, a.ID, AlwaysConfirm))
	assert.Equal(t, []int64{b.ID}, ids(set.Photos()))

	_, hasPrimary := set.Primary()
	assert.False(t, hasPrimary, "no other photo is promoted")

	assert.ErrorIs(t, set.Remove(ctx, a.ID, AlwaysConfirm), ErrUnknownPhoto)
}

func TestPhotoSet_RemoveFailureKeepsPhoto(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Enduro 300"})
	a := fb.SeedPhoto(m.ID, models.Photo{SortOrder: 1})

	set := NewPhotoSet(repo, m.ID, nil)
	ctx := context.Background()
	require.NoError(t, set.Load(ctx))

	fb.FailNext("photos.delete", http.StatusBadGateway)
	require.Error(t, set.Remove(ctx, a.ID, AlwaysConfirm))
	assert.Equal(t, 1, set.Len())
}

func TestPhotoSet_FilterByName(t *testing.T) {
	set := NewPhotoSet(&stubPhotos{}, 9, threePhotos())

	assert.Equal(t, []int64{2}, ids(set.Filter("SIDE")))
	assert.Len(t, set.Filter("  "), 3)
	assert.Empty(t, set.Filter("engine"))
}

func TestPhotoSet_RejectWhenBusy(t *testing.T) {
	defer goleak.VerifyNone(t)

	stub := &stubPhotos{gate: make(chan struct{}), entered: make(chan struct{})}
	set := NewPhotoSet(stub, 9, threePhotos(), WithRejectWhenBusy())
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- set.SetPrimary(ctx, 2) }()
	<-stub.entered

	assert.ErrorIs(t, set.SetPrimary(ctx, 3), ErrBusy)
	assert.ErrorIs(t, set.Reorder(ctx, []int64{3, 2, 1}), ErrBusy)

	close(stub.gate)
	require.NoError(t, <-first)
	assert.Equal(t, []int64{2}, stub.primary)
}

func TestPhotoSet_QueuesWhenBusy(t *testing.T) {
	defer goleak.VerifyNone(t)

	stub := &stubPhotos{gate: make(chan struct{}), entered: make(chan struct{})}
	set := NewPhotoSet(stub, 9, threePhotos())
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() { errs <- set.SetPrimary(ctx, 2) }()
	<-stub.entered

	go func() { errs <- set.SetPrimary(ctx, 3) }()

	close(stub.gate)
	<-stub.entered // the queued call reaches the backend only after the first
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	assert.Equal(t, []int64{2, 3}, stub.primary)
	p, _ := set.Primary()
	assert.Equal(t, int64(3), p.ID)
}

func TestPhotoSet_MoveQueuedBehindUpload(t *testing.T) {
	defer goleak.VerifyNone(t)

	stub := &stubPhotos{photos: threePhotos(), uploadGate: make(chan struct{}), uploadEntered: make(chan struct{})}
	set := NewPhotoSet(stub, 9, threePhotos())
	ctx := context.Background()

	added := make(chan error, 1)
	go func() {
		_, err := set.Add(ctx, jpeg("tank.jpg", 4))
		added <- err
	}()
	<-stub.uploadEntered

	moved := make(chan error, 1)
	go func() { moved <- set.Move(ctx, 0, 2) }()
	time.Sleep(20 * time.Millisecond) // let the move reach the semaphore

	close(stub.uploadGate)
	require.NoError(t, <-added)
	require.NoError(t, <-moved)

	assert.Equal(t, []int64{2, 3, 1, 103}, ids(set.Photos()))
	assert.Equal(t, [][]int64{{2, 3, 1, 103}}, stub.orders)
}

func TestPhotoSet_QueuedCallHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	stub := &stubPhotos{gate: make(chan struct{}), entered: make(chan struct{})}
	set := NewPhotoSet(stub, 9, threePhotos())

	first := make(chan error, 1)
	go func() { first <- set.SetPrimary(context.Background(), 2) }()
	<-stub.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, set.SetPrimary(ctx, 3), context.Canceled)

	close(stub.gate)
	require.NoError(t, <-first)
}

func TestPhotoSet_FiresChangedEvent(t *testing.T) {
	bus := event.New()
	var got []PhotosChanged
	bus.Listen(EventPhotosChanged, func(payload interface{}) {
		got = append(got, payload.(PhotosChanged))
	})

	set := NewPhotoSet(&stubPhotos{}, 9, threePhotos(), WithPhotoEvents(bus))
	require.NoError(t, set.SetPrimary(context.Background(), 3))

	require.Len(t, got, 1)
	assert.Equal(t, int64(9), got[0].ModelID)
	assert.True(t, got[0].Photos[2].IsPrimary)
}
