// Package identity matches captured faces against enrolled users.
package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/exp/slog"
)

const (
	DefaultTolerance = 0.5
	// faces beyond the largest few are usually bystanders
	maxCandidates = 3
)

type Matcher struct {
	detector  Detector
	cache     *Cache
	tolerance float64
	now       func() time.Time
	log       *slog.Logger
}

func NewMatcher(detector Detector, cache *Cache, tolerance float64, log *slog.Logger) *Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Matcher{
		detector:  detector,
		cache:     cache,
		tolerance: tolerance,
		now:       time.Now,
		log:       log.With("component", "matcher"),
	}
}

func (m *Matcher) detect(ctx context.Context, img []byte) ([]Face, error) {
	if _, _, err := image.DecodeConfig(bytes.NewReader(img)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return m.detector.Detect(ctx, img)
}

// Enroll registers the single face in img under label.
func (m *Matcher) Enroll(ctx context.Context, img []byte, label string) (*Enrollment, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrEmptyLabel
	}

	faces, err := m.detect(ctx, img)
	if err != nil {
		return nil, err
	}
	switch len(faces) {
	case 0:
		return nil, ErrNoFace
	case 1:
	default:
		return nil, ErrMultipleFaces
	}

	if known, dist, ok := m.closest(faces[0].Embedding); ok && dist <= m.tolerance {
		return nil, fmt.Errorf("%w: matches %s", ErrAlreadyKnown, known)
	}

	e, err := m.cache.Add(Enrollment{
		Label:      label,
		Embedding:  faces[0].Embedding,
		EnrolledAt: m.now(),
	}, img)
	if err != nil {
		return nil, err
	}

	m.log.Info("face enrolled", "label", label, "known", m.cache.Len())
	return &e, nil
}

// Recognize compares the largest faces in img with the known encodings and reports the best
// match. Only detector failures other than a bad image are returned as errors.
func (m *Matcher) Recognize(ctx context.Context, img []byte) (Result, error) {
	faces, err := m.detect(ctx, img)
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			return Result{Status: StatusInvalidImage}, nil
		}
		return Result{}, err
	}
	if len(faces) == 0 {
		return Result{Status: StatusNoFace}, nil
	}

	sort.SliceStable(faces, func(i, j int) bool { return faces[i].Box.Area() > faces[j].Box.Area() })
	if len(faces) > maxCandidates {
		faces = faces[:maxCandidates]
	}

	best := Result{Status: StatusUnmatched, Distance: math.MaxFloat64}
	for i := range faces {
		label, dist, ok := m.closest(faces[i].Embedding)
		if !ok || dist >= best.Distance {
			continue
		}
		box := faces[i].Box
		best.Label, best.Distance, best.Box = label, dist, &box
	}

	switch {
	case best.Box == nil:
		box := faces[0].Box
		return Result{Status: StatusUnmatched, Box: &box}, nil
	case best.Distance <= m.tolerance:
		best.Status = StatusMatched
	default:
		best.Label = ""
	}

	m.log.Debug("recognition done", "status", best.Status, "label", best.Label, "distance", best.Distance)
	return best, nil
}

// closest returns the known label nearest to embedding. ok is false when nothing comparable
// is enrolled.
func (m *Matcher) closest(embedding []float64) (string, float64, bool) {
	var (
		label string
		best  = math.MaxFloat64
		found bool
	)
	for _, e := range m.cache.All() {
		d, ok := Distance(e.Embedding, embedding)
		if !ok {
			continue
		}
		if d < best {
			label, best, found = e.Label, d, true
		}
	}
	return label, best, found
}

// Distance is the Euclidean distance. ok is false when the dimensions differ.
func Distance(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), true
}

func (m *Matcher) Reload() (int, error) {
	return m.cache.Reload()
}

func (m *Matcher) Known() []Enrollment {
	return m.cache.All()
}
