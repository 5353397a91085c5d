package wind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// descentPoints generates circling-flight samples descending from top to
// bottom altitude.
func descentPoints(top, bottom float64, windE, windN float64, n int) []DataPoint {
	pts := circlePoints(windE, windN, 30, n)
	for i := range pts {
		frac := float64(i) / float64(n-1)
		pts[i].Altitude = top - frac*(top-bottom)
	}
	return pts
}

func TestManagerAutoInit(t *testing.T) {
	m := NewManager()
	assert.False(t, m.HasLayers())

	m.AddDataPoint(DataPoint{Millis: 0, Altitude: 3000, VE: 10, VN: 20})
	require.True(t, m.HasLayers())
	require.NotNil(t, m.TopLayer())
	assert.Equal(t, m.TopLayer(), m.ActiveLayer())
	assert.Equal(t, 3000.0, m.TopLayer().MaxAltitude)
}

func TestManagerExpandsTopLayer(t *testing.T) {
	m := NewManager()
	for _, p := range descentPoints(3000, 2000, 5, -3, 24) {
		m.AddDataPoint(p)
	}
	top := m.TopLayer()
	require.NotNil(t, top)
	assert.Equal(t, 3000.0, top.MaxAltitude)
	assert.Equal(t, 2000.0, top.MinAltitude)

	// A full turn's worth of data gives a valid wind fit.
	assert.InDelta(t, 5, top.GPSFit.WindE(), 0.1)
	assert.InDelta(t, -3, top.GPSFit.WindN(), 0.1)
}

func TestSaveActiveLayer(t *testing.T) {
	m := NewManager()
	for _, p := range descentPoints(3000, 2000, 5, -3, 24) {
		m.AddDataPoint(p)
	}

	live := m.SaveActiveLayer(2500)
	require.NotNil(t, live)
	assert.True(t, live.IsTop)

	layers := m.Layers()
	require.Len(t, layers, 2)
	assert.False(t, m.HasOverlaps())
	// Highest first.
	assert.GreaterOrEqual(t, layers[0].MaxAltitude, layers[1].MaxAltitude)
}

func TestSaveActiveLayerInvalidSplit(t *testing.T) {
	m := NewManager()
	m.AddDataPoint(DataPoint{Altitude: 2000, VE: 10, VN: 20})
	assert.Nil(t, m.SaveActiveLayer(1500))
}

func TestDeleteLayer(t *testing.T) {
	m := NewManager()
	for _, p := range descentPoints(3000, 2000, 5, -3, 24) {
		m.AddDataPoint(p)
	}
	m.SaveActiveLayer(2500)
	layers := m.Layers()
	require.Len(t, layers, 2)

	// Cannot delete down to zero layers.
	assert.True(t, m.DeleteLayer(layers[1]))
	assert.False(t, m.DeleteLayer(m.Layers()[0]))
	assert.Len(t, m.Layers(), 1)
}

func TestWindAt(t *testing.T) {
	m := NewManager()
	_, ok := m.WindAt(2500)
	assert.False(t, ok)

	for _, p := range descentPoints(3000, 2000, 5, -3, 24) {
		m.AddDataPoint(p)
	}
	fit, ok := m.WindAt(2500)
	require.True(t, ok)
	assert.InDelta(t, 5, fit.WindE(), 0.1)

	// Above all layers: falls back to a managed layer rather than none.
	_, ok = m.WindAt(5000)
	assert.True(t, ok)
}

func TestSetActiveLayer(t *testing.T) {
	m := NewManager()
	for _, p := range descentPoints(3000, 2000, 5, -3, 24) {
		m.AddDataPoint(p)
	}
	m.SaveActiveLayer(2500)
	layers := m.Layers()
	saved := layers[1]

	m.SetActiveLayer(saved)
	assert.Equal(t, saved, m.ActiveLayer())
	assert.True(t, saved.IsActive)

	// Foreign layer is ignored.
	other := &Layer{Name: "foreign"}
	m.SetActiveLayer(other)
	assert.Equal(t, saved, m.ActiveLayer())
}
