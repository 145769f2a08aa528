package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/soloveyska1/gipsrbot-sub000/internal/catalog"
)

// Mode selects which urgency bracket table applies to every quote.
type Mode string

const (
	ModeLight Mode = "light"
	ModeHard  Mode = "hard"
)

// ParseMode validates an administrator-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLight:
		return ModeLight, nil
	case ModeHard:
		return ModeHard, nil
	}
	return "", fmt.Errorf("unknown pricing mode %q (expected light or hard)", s)
}

// Settings holds the process-wide pricing mode: one writer (the admin
// command), unlimited concurrent readers.
type Settings struct {
	mu   sync.RWMutex
	mode Mode
}

func NewSettings(mode Mode) *Settings {
	if mode != ModeHard {
		mode = ModeLight
	}
	return &Settings{mode: mode}
}

func (s *Settings) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Settings) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// ErrUnknownWorkType is returned when a quote is requested for a key the
// catalog does not know. Recoverable: callers log and re-prompt.
var ErrUnknownWorkType = errors.New("pricing: unknown work type")

// urgency returns the deadline multiplier for the given mode.
func urgency(mode Mode, days int) float64 {
	if mode == ModeHard {
		switch {
		case days < 7:
			return 1.30
		case days < 15:
			return 1.15
		}
		return 1.0
	}
	switch {
	case days < 3:
		return 1.30
	case days < 7:
		return 1.15
	}
	return 1.0
}

// quoteEpsilon absorbs binary float error before the floor: 8000 × 1.15
// must quote 9200, not 9199.
const quoteEpsilon = 1e-9

// Quote computes floor(base × complexity × urgency). The floor is applied
// once, after all factors are combined.
func Quote(base, days int, complexity float64, mode Mode) int {
	return int(math.Floor(float64(base)*complexity*urgency(mode, days) + quoteEpsilon))
}

// Calculator binds the quote function to the catalog and the current mode.
type Calculator struct {
	catalog  *catalog.Catalog
	settings *Settings
}

func NewCalculator(cat *catalog.Catalog, settings *Settings) *Calculator {
	return &Calculator{catalog: cat, settings: settings}
}

// Price quotes a work type for the given deadline and complexity factor.
// Upsell surcharges are the caller's concern and are never included here.
func (c *Calculator) Price(typeKey string, deadlineDays int, complexity float64) (int, error) {
	wt, ok := c.catalog.Get(typeKey)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownWorkType, typeKey)
	}
	if complexity <= 0 {
		complexity = 1.0
	}
	return Quote(wt.BasePrice, deadlineDays, complexity, c.settings.Mode()), nil
}

// ComplexityFactor derives a draft's complexity from its topic and
// requirements: +5% for long topics, +10% when analytic work is implied.
func ComplexityFactor(topic, requirements string) float64 {
	factor := 1.0
	if len([]rune(topic)) > 50 {
		factor += 0.05
	}
	haystack := strings.ToLower(topic + " " + requirements)
	for _, term := range []string{"анализ", "исследование", "сравнительный", "методология", "эмпирический"} {
		if strings.Contains(haystack, term) {
			factor += 0.10
			break
		}
	}
	return factor
}
