package wind

import (
	"fmt"
	"log"
	"math"
	"sort"
)

// Layer is one altitude band with its own wind estimate. The top layer
// receives live data and its bounds track the dataset; saved layers are
// frozen below it.
type Layer struct {
	Name        string
	MinAltitude float64
	MaxAltitude float64
	StartTime   int64
	EndTime     int64
	IsTop       bool
	IsActive    bool

	// Fit results over the layer's data band.
	GPSFit       CircleFitResult
	SustainedFit CircleFitResult
}

// Contains reports whether the altitude falls inside the layer band.
func (l *Layer) Contains(altitude float64) bool {
	return l.MinAltitude <= altitude && altitude <= l.MaxAltitude
}

// OverlapsWith reports altitude-band overlap with another layer.
func (l *Layer) OverlapsWith(other *Layer) bool {
	return l.MinAltitude < other.MaxAltitude && other.MinAltitude < l.MaxAltitude
}

// Manager keeps the central sample dataset and the altitude-ordered
// layer list: the top layer always spans the highest altitudes, layers
// never overlap, and exactly one layer is active at a time.
type Manager struct {
	dataset []DataPoint
	layers  []*Layer
	active  *Layer
	top     *Layer

	minAltitude float64
	maxAltitude float64
	hasData     bool
}

// NewManager returns an empty manager; the first data point
// auto-initializes the default layer.
func NewManager() *Manager {
	return &Manager{
		minAltitude: math.MaxFloat64,
		maxAltitude: -math.MaxFloat64,
	}
}

// HasLayers reports whether any layer exists yet.
func (m *Manager) HasLayers() bool {
	return len(m.layers) > 0
}

// AddDataPoint appends a sample to the central dataset, expanding the
// top layer's bounds and refreshing its wind fit.
func (m *Manager) AddDataPoint(p DataPoint) {
	m.dataset = append(m.dataset, p)

	if !m.hasData {
		m.hasData = true
		m.minAltitude = p.Altitude
		m.maxAltitude = p.Altitude
		layer := &Layer{
			Name:        "Live Layer",
			MinAltitude: p.Altitude,
			MaxAltitude: p.Altitude,
			StartTime:   p.Millis,
			IsTop:       true,
			IsActive:    true,
		}
		m.layers = append(m.layers, layer)
		m.top = layer
		m.active = layer
	}

	if p.Altitude > m.maxAltitude {
		m.maxAltitude = p.Altitude
	}
	if p.Altitude < m.minAltitude {
		m.minAltitude = p.Altitude
	}

	if m.top != nil {
		expanded := false
		if p.Altitude > m.top.MaxAltitude {
			m.top.MaxAltitude = p.Altitude
			expanded = true
		}
		if p.Altitude < m.top.MinAltitude {
			m.top.MinAltitude = p.Altitude
			expanded = true
		}
		m.top.EndTime = p.Millis
		if expanded || m.top.Contains(p.Altitude) {
			m.refit(m.top)
		}
	}
}

// refit recomputes both wind fits for a layer over its data band.
func (m *Manager) refit(l *Layer) {
	pts := m.PointsInRange(l.MinAltitude, l.MaxAltitude)
	l.GPSFit = FitCircleToVelocities(pts)
	l.SustainedFit = FitCircleToSustainedVelocities(pts)
}

// PointsInRange returns dataset samples within [minAlt, maxAlt].
func (m *Manager) PointsInRange(minAlt, maxAlt float64) []DataPoint {
	var out []DataPoint
	for _, p := range m.dataset {
		if minAlt <= p.Altitude && p.Altitude <= maxAlt {
			out = append(out, p)
		}
	}
	return out
}

// SaveActiveLayer freezes the top layer below splitAltitude and starts a
// fresh live layer above it. Returns the new live layer, or nil if the
// split is invalid or there is no data to save.
func (m *Manager) SaveActiveLayer(splitAltitude float64) *Layer {
	if m.top == nil {
		return nil
	}
	if splitAltitude <= m.top.MinAltitude {
		log.Printf("wind: cannot split at %.0fm, below layer floor %.0fm", splitAltitude, m.top.MinAltitude)
		return nil
	}
	saved := m.PointsInRange(m.top.MinAltitude, splitAltitude)
	if len(saved) == 0 {
		log.Printf("wind: no data below %.0fm to save", splitAltitude)
		return nil
	}

	actualMax := m.top.MinAltitude
	for _, p := range saved {
		if p.Altitude > actualMax {
			actualMax = p.Altitude
		}
	}

	savedLayer := &Layer{
		Name:        fmt.Sprintf("Saved Layer %d", len(m.layers)),
		MinAltitude: m.top.MinAltitude,
		MaxAltitude: actualMax,
		StartTime:   m.top.StartTime,
		EndTime:     m.top.EndTime,
	}
	m.refit(savedLayer)

	liveMax := splitAltitude
	for _, p := range m.dataset {
		if p.Altitude > splitAltitude && p.Altitude > liveMax {
			liveMax = p.Altitude
		}
	}
	liveLayer := &Layer{
		Name:        fmt.Sprintf("Live Layer %d", len(m.layers)+1),
		MinAltitude: splitAltitude,
		MaxAltitude: liveMax,
		StartTime:   m.top.EndTime,
		IsTop:       true,
		IsActive:    true,
	}
	m.refit(liveLayer)

	m.removeLayer(m.top)
	m.layers = append(m.layers, savedLayer, liveLayer)
	if m.active == nil || m.active.IsTop {
		m.active = liveLayer
	}
	m.top = liveLayer
	m.sortLayers()
	return liveLayer
}

// DeleteLayer removes a layer; the only remaining layer cannot be
// deleted. Active/top references move to the highest remaining layer.
func (m *Manager) DeleteLayer(l *Layer) bool {
	if len(m.layers) <= 1 {
		return false
	}
	before := len(m.layers)
	m.removeLayer(l)
	if len(m.layers) == before {
		return false
	}
	m.sortLayers()
	if m.active == l {
		m.active = m.layers[0]
		m.active.IsActive = true
	}
	if m.top == l {
		m.top = m.layers[0]
		m.top.IsTop = true
	}
	return true
}

// SetActiveLayer marks a managed layer active for viewing.
func (m *Manager) SetActiveLayer(l *Layer) {
	for _, existing := range m.layers {
		if existing == l {
			if m.active != nil {
				m.active.IsActive = false
			}
			l.IsActive = true
			m.active = l
			return
		}
	}
}

// Layers returns the layers sorted highest-altitude first.
func (m *Manager) Layers() []*Layer {
	m.sortLayers()
	out := make([]*Layer, len(m.layers))
	copy(out, m.layers)
	return out
}

// ActiveLayer returns the layer selected for viewing, or nil.
func (m *Manager) ActiveLayer() *Layer { return m.active }

// TopLayer returns the live layer receiving data, or nil.
func (m *Manager) TopLayer() *Layer { return m.top }

// WindAt returns the GPS-velocity wind fit of the layer containing the
// altitude. Falls back to the nearest layer below, then the top layer.
func (m *Manager) WindAt(altitude float64) (CircleFitResult, bool) {
	if len(m.layers) == 0 {
		return CircleFitResult{}, false
	}
	for _, l := range m.layers {
		if l.Contains(altitude) {
			return l.GPSFit, true
		}
	}
	m.sortLayers()
	for _, l := range m.layers {
		if l.MaxAltitude <= altitude {
			return l.GPSFit, true
		}
	}
	return m.layers[len(m.layers)-1].GPSFit, true
}

// HasOverlaps reports whether any two layers overlap; a well-managed
// system never has any.
func (m *Manager) HasOverlaps() bool {
	for i := 0; i < len(m.layers); i++ {
		for j := i + 1; j < len(m.layers); j++ {
			if m.layers[i].OverlapsWith(m.layers[j]) {
				return true
			}
		}
	}
	return false
}

func (m *Manager) removeLayer(l *Layer) {
	for i, existing := range m.layers {
		if existing == l {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			return
		}
	}
}

func (m *Manager) sortLayers() {
	sort.Slice(m.layers, func(i, j int) bool {
		return m.layers[i].MaxAltitude > m.layers[j].MaxAltitude
	})
}
