package classifier

import (
	"fmt"
	"slices"
	"time"

	"sensor-bridge/models"
	"sensor-bridge/utils"
)

// Prototype is one stored pattern: a feature vector, the class it stands
// for, and the L1 radius inside which it claims a match.
type Prototype struct {
	Class     uint16
	Vector    []byte
	Influence int
}

// PatternMatcherConfig sizes the built-in runtime.
type PatternMatcherConfig struct {
	Model      uint16
	Window     int // samples per axis in one classification window
	Slide      int // samples between consecutive classifications
	Prototypes []Prototype
}

// Feature functions, in vector order. Each is computed for every axis.
var featureFunctions = [...]string{"Minimum", "InterquartileRange"}

// PatternMatcher is a small built-in knowledge pack: per-axis sliding
// windows, Minimum and InterquartileRange features scaled to bytes, and a
// nearest-prototype match. It stands in for a vendor runtime in
// simulations and tests.
type PatternMatcher struct {
	cfg      PatternMatcherConfig
	onResult ResultFunc

	axes    int
	windows [][]int16 // ring per axis
	head    int
	filled  int
	since   int

	scratch  []int16
	features []byte
	cycles   [len(featureFunctions)]uint32
}

// NewPatternMatcher validates cfg and returns an uninitialised runtime.
func NewPatternMatcher(cfg PatternMatcherConfig) (*PatternMatcher, error) {
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("pattern matcher: window must be positive, got %d", cfg.Window)
	}
	if cfg.Slide <= 0 || cfg.Slide > cfg.Window {
		cfg.Slide = cfg.Window
	}
	return &PatternMatcher{cfg: cfg}, nil
}

// FromConfig builds the runtime from the yaml section.
func FromConfig(c utils.BuiltinConfig) (*PatternMatcher, error) {
	protos := make([]Prototype, 0, len(c.Prototypes))
	for _, p := range c.Prototypes {
		vec := make([]byte, len(p.Vector))
		for i, v := range p.Vector {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("pattern matcher: prototype class %d: value %d out of byte range", p.Class, v)
			}
			vec[i] = byte(v)
		}
		protos = append(protos, Prototype{Class: p.Class, Vector: vec, Influence: p.Influence})
	}
	return NewPatternMatcher(PatternMatcherConfig{
		Window:     c.Window,
		Slide:      c.Slide,
		Prototypes: protos,
	})
}

func (m *PatternMatcher) Init(onResult ResultFunc) error {
	m.onResult = onResult
	m.axes = 0
	m.head, m.filled, m.since = 0, 0, 0
	utils.L().Info("classifier ready       (backend=builtin, window=%d, slide=%d, prototypes=%d)",
		m.cfg.Window, m.cfg.Slide, len(m.cfg.Prototypes))
	return nil
}

// Run appends one frame to the per-axis windows and reports when a full
// window has slid by. The axis count is fixed by the first frame.
func (m *PatternMatcher) Run(frame []int16) error {
	if m.onResult == nil {
		return ErrNotInitialised
	}
	if len(frame) == 0 {
		return nil
	}
	if m.axes == 0 {
		m.allocate(len(frame))
	}
	if len(frame) != m.axes {
		return fmt.Errorf("pattern matcher: frame has %d values, want %d", len(frame), m.axes)
	}

	for a, v := range frame {
		m.windows[a][m.head] = v
	}
	m.head = (m.head + 1) % m.cfg.Window
	if m.filled < m.cfg.Window {
		m.filled++
	}
	m.since++

	if m.filled < m.cfg.Window || m.since < m.cfg.Slide {
		return nil
	}
	m.since = 0

	m.extract()
	m.onResult(models.ClassificationResult{
		ModelIndex: m.cfg.Model,
		ClassID:    m.match(),
	}, m.features)
	return nil
}

func (m *PatternMatcher) allocate(axes int) {
	m.axes = axes
	m.windows = make([][]int16, axes)
	for a := range m.windows {
		m.windows[a] = make([]int16, m.cfg.Window)
	}
	m.scratch = make([]int16, m.cfg.Window)
	m.features = make([]byte, len(featureFunctions)*axes)
}

// extract fills features as [Minimum per axis..., IQR per axis...].
func (m *PatternMatcher) extract() {
	start := time.Now()
	for a := 0; a < m.axes; a++ {
		m.features[a] = scaleSigned(slices.Min(m.windows[a]))
	}
	m.cycles[0] = uint32(time.Since(start).Nanoseconds())

	start = time.Now()
	for a := 0; a < m.axes; a++ {
		copy(m.scratch, m.windows[a])
		slices.Sort(m.scratch)
		n := len(m.scratch)
		iqr := int(m.scratch[(3*n)/4]) - int(m.scratch[n/4])
		m.features[m.axes+a] = scaleRange(iqr)
	}
	m.cycles[1] = uint32(time.Since(start).Nanoseconds())
}

func (m *PatternMatcher) match() uint16 {
	best, bestDist := models.ClassUnknown, -1
	for _, p := range m.cfg.Prototypes {
		if len(p.Vector) != len(m.features) {
			continue
		}
		d := 0
		for i, v := range p.Vector {
			diff := int(v) - int(m.features[i])
			if diff < 0 {
				diff = -diff
			}
			d += diff
		}
		if d <= p.Influence && (bestDist < 0 || d < bestDist) {
			best, bestDist = p.Class, d
		}
	}
	return best
}

// ModelCycles returns nanoseconds spent per feature function in the last
// classification.
func (m *PatternMatcher) ModelCycles(model uint16) []uint32 {
	if model != m.cfg.Model {
		return nil
	}
	return m.cycles[:]
}

// FeatureFunctions lists the feature function names in vector order.
func (m *PatternMatcher) FeatureFunctions() []string { return featureFunctions[:] }

func (m *PatternMatcher) Close() error { return nil }

// scaleSigned maps an int16 onto 0..255.
func scaleSigned(v int16) byte { return byte((int(v) + 32768) >> 8) }

// scaleRange maps a non-negative spread onto 0..255.
func scaleRange(v int) byte {
	v >>= 7
	if v > 255 {
		return 255
	}
	return byte(v)
}
