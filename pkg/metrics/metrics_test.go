package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBackendCall(t *testing.T) {
	before := testutil.ToFloat64(BackendRequestTotal.WithLabelValues("photos.upload", "200"))
	ObserveBackendCall("photos.upload", "200", time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(BackendRequestTotal.WithLabelValues("photos.upload", "200")))
}

func TestRecordSpecImportSkipsZero(t *testing.T) {
	before := testutil.ToFloat64(SpecImportRows.WithLabelValues("duplicate"))
	RecordSpecImport("duplicate", 0)
	RecordSpecImport("duplicate", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(SpecImportRows.WithLabelValues("duplicate")))
}

func TestWriteTextfile(t *testing.T) {
	RecordPhotoOp("reorder", "rolled_back")
	path := filepath.Join(t.TempDir(), "motoadmin.prom")

	require.NoError(t, WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `motoportal_photos_operations_total{op="reorder",outcome="rolled_back"}`)
}
