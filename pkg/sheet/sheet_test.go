package sheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vmcmoto/motoportal/app/models"
)

func TestReadSpecs_CSV(t *testing.T) {
	in := strings.Join([]string{
		"Spec name,Value,Unit,Category",
		"Power,15,hp,engine",
		"Weight,,kg,",
		",120,,",
		"Color,Red,,",
		",,,",
		"Seat height,  780 ,mm",
	}, "\n")

	res, err := ReadSpecs(strings.NewReader(in), "specs.CSV")
	require.NoError(t, err)

	want := []models.SpecRow{
		{Name: "Power", Value: "15", Unit: "hp", Category: "engine", Order: 1},
		{Name: "Color", Value: "Red", Category: "other", Order: 4},
		{Name: "Seat height", Value: "780", Unit: "mm", Category: "other", Order: 6},
	}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, res.Skipped, "rows missing A or B are counted")
}

func TestReadSpecs_XLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"name", "value", "unit", "category"},
		{"Power", "15", "hp", "engine"},
		{"Torque", "", "Nm"},
		{"Fuel tank", 12, "l"},
	}
	for i, r := range rows {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		r := r
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &r))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	res, err := ReadSpecs(&buf, "upload.xlsx")
	require.NoError(t, err)

	want := []models.SpecRow{
		{Name: "Power", Value: "15", Unit: "hp", Category: "engine", Order: 1},
		{Name: "Fuel tank", Value: "12", Unit: "l", Category: "other", Order: 3},
	}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, res.Skipped)
}

func TestReadSpecs_Unsupported(t *testing.T) {
	_, err := ReadSpecs(strings.NewReader(""), "old.xls")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestWriteTemplate_ReadsBackSamples(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	res, err := ReadSpecs(&buf, "template.xlsx")
	require.NoError(t, err)
	assert.Len(t, res.Rows, len(sampleRows))
	assert.Equal(t, "Engine displacement", res.Rows[0].Name)
	assert.Zero(t, res.Skipped)
}

func TestWriteSpecs_CSV(t *testing.T) {
	specs := []models.Spec{
		{Name: "Power", Value: "15", Unit: "hp", Category: "engine"},
		{Name: "Color", Value: "Red"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSpecs(&buf, "export.csv", specs))

	assert.Equal(t, "Spec name,Value,Unit,Category\nPower,15,hp,engine\nColor,Red,,other\n", buf.String())
}

func TestWriteSpecs_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSpecs(&buf, "export.xlsx", []models.Spec{{Name: "Power", Value: "15"}}))

	res, err := ReadSpecs(&buf, "export.xlsx")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Power", res.Rows[0].Name)
}
