package engine

import (
	"fmt"
	"image"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Detector finds text-line regions on a page image.
type Detector interface {
	DetectLines(img []byte) ([]image.Rectangle, error)
	Close() error
}

// Recognizer reads the text of a single cropped line image and reports a
// confidence in [0,1].
type Recognizer interface {
	Recognize(img []byte) (string, float64, error)
	Close() error
}

// Factory builds engine handles. NewRecognizer receives a normalized
// language set.
type Factory interface {
	NewDetector() (Detector, error)
	NewRecognizer(langs []string) (Recognizer, error)
}

// Registry owns the engine handles for a service. The detector and each
// recognizer are built at most once and shared by every caller.
type Registry struct {
	factory Factory
	logger  *slog.Logger

	mu          sync.RWMutex
	detector    Detector
	recognizers map[string]Recognizer
}

func NewRegistry(factory Factory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factory:     factory,
		logger:      logger,
		recognizers: make(map[string]Recognizer),
	}
}

// Detector returns the shared detection handle, building it on first use.
func (r *Registry) Detector() (Detector, error) {
	r.mu.RLock()
	d := r.detector
	r.mu.RUnlock()
	if d != nil {
		return d, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detector != nil {
		return r.detector, nil
	}
	d, err := r.factory.NewDetector()
	if err != nil {
		return nil, fmt.Errorf("init detector: %w", err)
	}
	r.detector = d
	r.logger.Info("engine.detector.ready")
	return d, nil
}

// Recognizer returns the shared recognition handle for a language set.
// Language sets that differ only in order or case share a handle.
func (r *Registry) Recognizer(langs []string) (Recognizer, error) {
	norm := NormalizeLanguages(langs)
	key := strings.Join(norm, "+")

	r.mu.RLock()
	rec, ok := r.recognizers[key]
	r.mu.RUnlock()
	if ok {
		return rec, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.recognizers[key]; ok {
		return rec, nil
	}
	rec, err := r.factory.NewRecognizer(norm)
	if err != nil {
		return nil, fmt.Errorf("init recognizer %s: %w", key, err)
	}
	r.recognizers[key] = rec
	r.logger.Info("engine.recognizer.ready", "languages", key)
	return rec, nil
}

// Close releases every handle built so far.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	if r.detector != nil {
		if err := r.detector.Close(); err != nil {
			firstErr = err
		}
		r.detector = nil
	}
	for key, rec := range r.recognizers {
		if err := rec.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.recognizers, key)
	}
	return firstErr
}

// NormalizeLanguages lowercases, dedupes and sorts language codes. An empty
// set means "eng".
func NormalizeLanguages(langs []string) []string {
	seen := make(map[string]struct{}, len(langs))
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	if len(out) == 0 {
		return []string{"eng"}
	}
	sort.Strings(out)
	return out
}
