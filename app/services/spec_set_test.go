package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/pkg/event"
	"github.com/vmcmoto/motoportal/pkg/testkit"
)

func specNames(specs []models.Spec) []string {
	out := make([]string, len(specs))
	for i, sp := range specs {
		out[i] = sp.Name
	}
	return out
}

func TestSpecSet_MergeKeepsExistingAndFirstRow(t *testing.T) {
	set := NewSpecSet(nil, 0, []models.Spec{{ID: 1, Name: "Power", Value: "15", Unit: "hp", Category: "engine"}})

	res, err := set.Merge(context.Background(), []models.SpecRow{
		{Name: "power", Value: "99", Order: 1},
		{Name: "Torque", Value: "12", Unit: "Nm", Category: "engine", Order: 2},
		{Name: "TORQUE", Value: "13", Order: 3},
		{Name: "  ", Value: "x", Order: 4},
		{Name: "Weight", Value: "98", Unit: "kg", Order: 5},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Torque", "Weight"}, specNames(res.Added))
	assert.Equal(t, []string{"power", "TORQUE"}, res.Duplicates)
	assert.Equal(t, 1, res.Blank)

	specs := set.Specs()
	assert.Equal(t, []string{"Power", "Torque", "Weight"}, specNames(specs))
	assert.Equal(t, "15", specs[0].Value, "existing spec is never overwritten")
	assert.Equal(t, models.DefaultSpecCategory, specs[2].Category)
	assert.Equal(t, 5, specs[2].SortOrder)
}

func TestSpecSet_MergeOnUnsavedModelStaysLocal(t *testing.T) {
	repo, fb := newCatalog(t)
	set := NewSpecSet(repo, 0, nil, WithPersistOnMerge())

	res, err := set.Merge(context.Background(), []models.SpecRow{{Name: "Power", Value: "15"}})
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)
	assert.Zero(t, fb.Calls("specs.create"))
	assert.Len(t, set.Changes().Create, 1)
}

func TestSpecSet_MergePersistsAndAdoptsIDs(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Enduro 250"})
	set := NewSpecSet(repo, m.ID, nil, WithPersistOnMerge())

	res, err := set.Merge(context.Background(), []models.SpecRow{
		{Name: "Power", Value: "15", Unit: "hp", Order: 1},
		{Name: "Weight", Value: "98", Unit: "kg", Order: 2},
	})
	require.NoError(t, err)

	for _, sp := range res.Added {
		assert.NotZero(t, sp.ID)
	}
	for _, sp := range set.Specs() {
		assert.NotZero(t, sp.ID, "%s adopted the backend id", sp.Name)
	}
	assert.True(t, set.Changes().Empty())
	assert.Len(t, fb.Specs(m.ID), 2)
}

func TestSpecSet_MergeReportsPersistFailures(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Enduro 250"})
	set := NewSpecSet(repo, m.ID, nil, WithPersistOnMerge())

	fb.FailNext("specs.create", http.StatusInternalServerError)
	res, err := set.Merge(context.Background(), []models.SpecRow{
		{Name: "Power", Value: "15"},
		{Name: "Weight", Value: "98"},
	})

	var perr *PersistError
	require.True(t, errors.As(err, &perr))
	require.Len(t, perr.Failures, 1)
	assert.Equal(t, "create", perr.Failures[0].Op)
	assert.Equal(t, "Power", perr.Failures[0].Name)
	testkit.AssertStatusError(t, err, http.StatusInternalServerError)

	assert.Len(t, res.Added, 2)
	assert.Equal(t, 2, set.Len(), "local merge is not rolled back")
	assert.Equal(t, []string{"Power"}, specNames(set.Changes().Create))
}

func TestSpecSet_AddCancelRemovesBlankRow(t *testing.T) {
	set := NewSpecSet(nil, 0, []models.Spec{{ID: 1, Name: "Power", Value: "15"}})

	i := set.Add()
	assert.Equal(t, 1, i)
	buf, open := set.Buffer()
	require.True(t, open)
	assert.Equal(t, models.DefaultSpecCategory, buf.Category)

	set.Cancel()
	assert.Equal(t, 1, set.Len())
	_, open = set.Buffer()
	assert.False(t, open)
}

func TestSpecSet_CommitNeedsNameAndValue(t *testing.T) {
	set := NewSpecSet(nil, 0, nil)
	set.Add()

	require.NoError(t, set.SetBuffer(models.Spec{Name: "Power"}))
	ok, err := set.Commit()
	require.NoError(t, err)
	assert.False(t, ok)
	_, open := set.Buffer()
	assert.True(t, open, "buffer stays open")

	require.NoError(t, set.SetBuffer(models.Spec{Name: " Power ", Value: "15", Unit: "hp"}))
	ok, err = set.Commit()
	require.NoError(t, err)
	assert.True(t, ok)

	got := set.Specs()[0]
	assert.Equal(t, "Power", got.Name)
	assert.Equal(t, models.DefaultSpecCategory, got.Category)
}

func TestSpecSet_CommitRejectsDuplicateName(t *testing.T) {
	set := NewSpecSet(nil, 0, []models.Spec{{ID: 1, Name: "Power", Value: "15"}, {ID: 2, Name: "Weight", Value: "98"}})

	require.NoError(t, set.Edit(1))
	buf, _ := set.Buffer()
	buf.Name = "POWER"
	require.NoError(t, set.SetBuffer(buf))

	_, err := set.Commit()
	testkit.AssertValidationFields(t, err, "spec_name")

	// the row may keep its own name
	buf.Name = "weight"
	require.NoError(t, set.SetBuffer(buf))
	ok, err := set.Commit()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSpecSet_EditBounds(t *testing.T) {
	set := NewSpecSet(nil, 0, []models.Spec{{Name: "Power", Value: "15"}})

	assert.ErrorIs(t, set.Edit(1), ErrIndexOutOfRange)
	assert.ErrorIs(t, set.Edit(-1), ErrIndexOutOfRange)
	assert.ErrorIs(t, set.Delete(3), ErrIndexOutOfRange)
	assert.ErrorIs(t, set.SetBuffer(models.Spec{}), ErrNoEditBuffer)
	_, err := set.Commit()
	assert.ErrorIs(t, err, ErrNoEditBuffer)
}

func TestSpecSet_DeleteShiftsOpenBuffer(t *testing.T) {
	set := NewSpecSet(nil, 0, []models.Spec{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}, {Name: "C", Value: "3"}})

	require.NoError(t, set.Edit(2))
	require.NoError(t, set.Delete(0))

	buf, open := set.Buffer()
	require.True(t, open)
	buf.Value = "30"
	require.NoError(t, set.SetBuffer(buf))
	ok, err := set.Commit()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "30", set.Specs()[1].Value)
}

func TestSpecSet_SyncPushesPendingChanges(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Scooter 50"})
	power := fb.SeedSpec(m.ID, models.Spec{Name: "Power", Value: "3", Category: "engine", SortOrder: 1})
	weight := fb.SeedSpec(m.ID, models.Spec{Name: "Weight", Value: "80", Category: "chassis", SortOrder: 2})

	set := NewSpecSet(repo, m.ID, nil)
	ctx := context.Background()
	require.NoError(t, set.Load(ctx))

	require.NoError(t, set.Edit(0))
	buf, _ := set.Buffer()
	buf.Value = "4"
	require.NoError(t, set.SetBuffer(buf))
	_, err := set.Commit()
	require.NoError(t, err)

	require.NoError(t, set.Delete(1))

	set.Add()
	require.NoError(t, set.SetBuffer(models.Spec{Name: "Top speed", Value: "45", Unit: "km/h"}))
	_, err = set.Commit()
	require.NoError(t, err)

	pending := set.Changes()
	assert.Len(t, pending.Create, 1)
	assert.Len(t, pending.Update, 1)
	assert.Equal(t, []int64{weight.ID}, pending.Delete)

	done, err := set.Sync(ctx)
	require.NoError(t, err)
	assert.Len(t, done.Create, 1)
	assert.True(t, set.Changes().Empty())

	want := []models.Spec{
		{ID: power.ID, ModelID: m.ID, Name: "Power", Value: "4", Category: "engine", SortOrder: 1},
		{ModelID: m.ID, Name: "Top speed", Value: "45", Unit: "km/h", Category: models.DefaultSpecCategory, SortOrder: 1},
	}
	if diff := cmp.Diff(want, fb.Specs(m.ID), cmpopts.IgnoreFields(models.Spec{}, "ID", "SortOrder")); diff != "" {
		t.Fatalf("backend specs (-want +got):\n%s", diff)
	}
}

func TestSpecSet_SyncKeepsFailuresPending(t *testing.T) {
	repo, fb := newCatalog(t)
	m := fb.SeedModel(models.Model{Name: "Scooter 50"})
	fb.SeedSpec(m.ID, models.Spec{Name: "Power", Value: "3"})

	set := NewSpecSet(repo, m.ID, nil)
	ctx := context.Background()
	require.NoError(t, set.Load(ctx))
	require.NoError(t, set.Edit(0))
	buf, _ := set.Buffer()
	buf.Value = "4"
	require.NoError(t, set.SetBuffer(buf))
	_, err := set.Commit()
	require.NoError(t, err)

	fb.FailNext("specs.update", http.StatusServiceUnavailable)
	_, err = set.Sync(ctx)
	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	assert.Len(t, set.Changes().Update, 1)

	_, err = set.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, set.Changes().Empty())
	assert.Equal(t, "4", fb.Specs(m.ID)[0].Value)
}

func TestSpecSet_SyncNeedsSavedModel(t *testing.T) {
	set := NewSpecSet(nil, 0, nil)
	_, err := set.Sync(context.Background())
	assert.ErrorIs(t, err, ErrNotPersisted)
	assert.ErrorIs(t, set.Load(context.Background()), ErrNotPersisted)
}

func TestSpecSet_GroupsKeepFirstAppearance(t *testing.T) {
	set := NewSpecSet(nil, 0, []models.Spec{
		{Name: "Torque", Value: "12", Category: "engine", SortOrder: 3},
		{Name: "Frame", Value: "steel", Category: "chassis", SortOrder: 1},
		{Name: "Power", Value: "15", Category: "engine", SortOrder: 2},
		{Name: "Colour", Value: "red"},
	})

	groups := set.Groups("")
	require.Len(t, groups, 3)
	assert.Equal(t, "engine", groups[0].Category)
	assert.Equal(t, []string{"Power", "Torque"}, specNames(groups[0].Specs))
	assert.Equal(t, "chassis", groups[1].Category)
	assert.Equal(t, models.DefaultSpecCategory, groups[2].Category)

	filtered := set.Groups("STEEL")
	require.Len(t, filtered, 1)
	assert.Equal(t, "chassis", filtered[0].Category)
}

func TestSpecSet_FiresChangedEvent(t *testing.T) {
	bus := event.New()
	var fired []int64
	bus.Listen(EventSpecsChanged, func(payload interface{}) { fired = append(fired, payload.(int64)) })

	set := NewSpecSet(nil, 7, nil, WithSpecEvents(bus))
	_, err := set.Merge(context.Background(), []models.SpecRow{{Name: "Power", Value: "15"}})
	require.NoError(t, err)
	require.NoError(t, set.Delete(0))

	assert.Equal(t, []int64{7, 7}, fired)
}
