package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/pkg/event"
	"github.com/vmcmoto/motoportal/pkg/testkit"
)

func validForm() Form {
	return Form{
		Name:            "  Enduro 250 ",
		Category:        "enduro",
		Description:     "Light trail bike",
		FullDescription: "A 250cc enduro for forest trails.",
		Features:        []string{"ABS", "  ", " LED lights "},
		IsActive:        true,
	}
}

func TestForm_InputTrimsAndDropsBlankFeatures(t *testing.T) {
	in := validForm().Input()
	assert.Equal(t, "Enduro 250", in.Name)
	assert.Equal(t, []string{"ABS", "LED lights"}, in.Features)
}

func TestModelEditor_ValidateReportsEveryField(t *testing.T) {
	ed := NewModelEditor(nil)
	assert.True(t, ed.Form.IsActive, "new models start active")

	ed.Form.SortOrder = -1
	err := ed.Validate()
	testkit.AssertValidationFields(t, err, "name", "category", "description", "full_description", "features", "sort_order")

	ed.Form = validForm()
	ed.Form.Features = []string{" ", ""}
	testkit.AssertValidationFields(t, ed.Validate(), "features")
}

func TestModelEditor_AttachmentsWaitForFirstSave(t *testing.T) {
	repo, fb := newCatalog(t)
	ed := NewModelEditor(repo)
	ctx := context.Background()

	_, err := ed.Photos.Add(ctx, jpeg("front.jpg", 3))
	assert.ErrorIs(t, err, ErrNotPersisted)
	_, err = ed.SyncSpecs(ctx)
	assert.ErrorIs(t, err, ErrNotPersisted)

	ed.Form = validForm()
	saved, err := ed.Save(ctx)
	require.NoError(t, err)
	require.NotZero(t, saved.ID)
	assert.Equal(t, saved.ID, ed.Photos.ModelID())

	_, err = ed.Photos.Add(ctx, jpeg("front.jpg", 3))
	require.NoError(t, err)
	assert.Len(t, fb.Photos(saved.ID), 1)
}

func TestModelEditor_SaveCreatesThenUpdates(t *testing.T) {
	repo, fb := newCatalog(t)
	bus := event.New()
	var saved []models.Model
	bus.Listen(EventModelSaved, func(p interface{}) { saved = append(saved, p.(models.Model)) })

	ed := NewModelEditor(repo, WithEditorEvents(bus))
	ctx := context.Background()
	ed.Form = validForm()

	created, err := ed.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fb.Calls("models.create"))

	ed.Form.Name = "Enduro 300"
	updated, err := ed.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 1, fb.Calls("models.update"))

	stored, ok := fb.Model(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Enduro 300", stored.Name)
	assert.Equal(t, []string{"ABS", "LED lights"}, stored.Features)

	require.Len(t, saved, 2)
	assert.Equal(t, "Enduro 300", saved[1].Name)
}

func TestModelEditor_InvalidFormIsNotSent(t *testing.T) {
	repo, fb := newCatalog(t)
	ed := NewModelEditor(repo)

	_, err := ed.Save(context.Background())
	require.Error(t, err)
	assert.Zero(t, fb.Calls("models.create"))
}

func TestModelEditor_LoadBringsAttachments(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Pit 125", Category: "pitbikes", Features: []string{"Kick start"}})
	fb.SeedPhoto(m.ID, models.Photo{SortOrder: 1, IsPrimary: true})
	fb.SeedSpec(m.ID, models.Spec{Name: "Power", Value: "9", Category: "engine"})

	ed := NewModelEditor(repo)
	require.NoError(t, ed.Load(context.Background(), m.ID))

	assert.Equal(t, m.ID, ed.ID())
	assert.Equal(t, "Pit 125", ed.Form.Name)
	assert.Equal(t, 1, ed.Photos.Len())
	assert.Equal(t, 1, ed.Specs.Len())
}

func TestModelEditor_LoadUnknownModel(t *testing.T) {
	repo, _ := newCatalog(t)
	ed := NewModelEditor(repo)

	err := ed.Load(context.Background(), 404)
	testkit.AssertStatusError(t, err, http.StatusNotFound)
	assert.Zero(t, ed.ID())
}

func TestModelEditor_DeleteNeedsConfirmation(t *testing.T) {
	repo, fb := newCatalog(t)
	bus := event.New()
	var deleted []int64
	bus.Listen(EventModelDeleted, func(p interface{}) { deleted = append(deleted, p.(int64)) })

	ed := NewModelEditor(repo, WithEditorEvents(bus))
	ctx := context.Background()
	assert.ErrorIs(t, ed.Delete(ctx, AlwaysConfirm), ErrNotPersisted)

	ed.Form = validForm()
	m, err := ed.Save(ctx)
	require.NoError(t, err)

	var prompt string
	assert.ErrorIs(t, ed.Delete(ctx, func(p string) bool { prompt = p; return false }), ErrNotConfirmed)
	assert.Contains(t, prompt, "Enduro 250")

	require.NoError(t, ed.Delete(ctx, AlwaysConfirm))
	_, ok := fb.Model(m.ID)
	assert.False(t, ok)
	assert.Zero(t, ed.ID())
	assert.Zero(t, ed.Photos.ModelID())
	assert.Equal(t, []int64{m.ID}, deleted)
}

func TestModelEditor_SyncSpecs(t *testing.T) {
	repo, fb := newCatalog(t)
	ed := NewModelEditor(repo)
	ctx := context.Background()
	ed.Form = validForm()
	m, err := ed.Save(ctx)
	require.NoError(t, err)

	ed.Specs.Add()
	require.NoError(t, ed.Specs.SetBuffer(models.Spec{Name: "Power", Value: "21", Unit: "hp", Category: "engine"}))
	_, err = ed.Specs.Commit()
	require.NoError(t, err)

	done, err := ed.SyncSpecs(ctx)
	require.NoError(t, err)
	assert.Len(t, done.Create, 1)
	assert.Len(t, fb.Specs(m.ID), 1)
}
