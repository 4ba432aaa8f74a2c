package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/exp/slog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Cache holds the known encodings in memory. The JSON files in the encodings directory are the
// source of truth; Reload rebuilds the cache from them.
type Cache struct {
	encodingsDir string
	facesDir     string
	log          *slog.Logger

	mu      sync.RWMutex
	byLabel map[string]Enrollment
}

func NewCache(encodingsDir, facesDir string, log *slog.Logger) *Cache {
	return &Cache{
		encodingsDir: encodingsDir,
		facesDir:     facesDir,
		log:          log.With("component", "face_cache"),
		byLabel:      make(map[string]Enrollment),
	}
}

// Reload reads every *.json enrollment. Unreadable files are logged and skipped.
func (c *Cache) Reload() (int, error) {
	if err := os.MkdirAll(c.encodingsDir, 0o755); err != nil {
		return 0, fmt.Errorf("create encodings dir: %w", err)
	}

	paths, err := filepath.Glob(filepath.Join(c.encodingsDir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("list encodings: %w", err)
	}

	loaded := make(map[string]Enrollment, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			c.log.Warn("skipping unreadable encoding", "path", p, "error", err)
			continue
		}
		var e Enrollment
		if err := json.Unmarshal(data, &e); err != nil || e.Label == "" || len(e.Embedding) == 0 {
			c.log.Warn("skipping invalid encoding", "path", p, "error", err)
			continue
		}
		loaded[e.Label] = e
	}

	c.mu.Lock()
	c.byLabel = loaded
	c.mu.Unlock()

	c.log.Info("face encodings loaded", "count", len(loaded))
	return len(loaded), nil
}

// Add persists the enrollment and its face image, then publishes it. An existing enrollment
// with the same label is replaced.
func (c *Cache) Add(e Enrollment, image []byte) (Enrollment, error) {
	name := Slug(e.Label)
	if name == "" {
		return Enrollment{}, ErrEmptyLabel
	}

	if len(image) > 0 {
		if err := os.MkdirAll(c.facesDir, 0o755); err != nil {
			return Enrollment{}, fmt.Errorf("create faces dir: %w", err)
		}
		ref := filepath.Join(c.facesDir, fmt.Sprintf("%s_%s.jpg", name, e.EnrolledAt.UTC().Format("20060102_150405")))
		if err := os.WriteFile(ref, image, 0o644); err != nil {
			return Enrollment{}, fmt.Errorf("write face image: %w", err)
		}
		e.ImageRef = ref
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return Enrollment{}, fmt.Errorf("encode enrollment: %w", err)
	}
	if err := os.MkdirAll(c.encodingsDir, 0o755); err != nil {
		return Enrollment{}, fmt.Errorf("create encodings dir: %w", err)
	}
	if err := writeAtomic(filepath.Join(c.encodingsDir, name+".json"), data); err != nil {
		return Enrollment{}, err
	}

	c.mu.Lock()
	c.byLabel[e.Label] = e
	c.mu.Unlock()

	return e, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write encoding: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Join(fmt.Errorf("rename encoding: %w", err), os.Remove(tmp))
	}
	return nil
}

// All returns the enrollments sorted by label.
func (c *Cache) All() []Enrollment {
	c.mu.RLock()
	out := make([]Enrollment, 0, len(c.byLabel))
	for _, e := range c.byLabel {
		out = append(out, e)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byLabel)
}

// Slug turns a label into a file name: lower case, runs of anything but letters and digits
// collapsed to one underscore.
func Slug(label string) string {
	var b strings.Builder
	underscore := false
	for _, r := range cases.Lower(language.Und).String(strings.TrimSpace(label)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
