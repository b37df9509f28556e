package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gpuhot/gpuhot/internal/errors"
	"github.com/gpuhot/gpuhot/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	at := time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		key  string
		want string
	}{
		{"0", "gpuhot-0-20250309-140507.html"},
		{"node1-3", "gpuhot-node1-3-20250309-140507.html"},
		{"rack/a b-1", "gpuhot-rack_a_b-1-20250309-140507.html"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.key, at))
		})
	}
}

func TestEntityWritesCharts(t *testing.T) {
	store := series.NewStore(10)
	at := time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)
	store.Initialize("0", at, map[series.Metric]float64{
		series.Utilization: 40,
		series.Temperature: 55,
	})
	store.Append("0", series.Utilization, 60, at.Add(time.Second))

	dir := filepath.Join(t.TempDir(), "out")
	path, err := Entity(store, "0", "RTX 4090", dir, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gpuhot-0-20250309-140507.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "RTX 4090 (GPU 0)")
	assert.Contains(t, html, "GPU Utilization")
	assert.Contains(t, html, "Temperature")
	assert.NotContains(t, html, "PCIe RX")
}

func TestEntityWithoutHistory(t *testing.T) {
	store := series.NewStore(10)

	_, err := Entity(store, "7", "", t.TempDir(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExport))
}
