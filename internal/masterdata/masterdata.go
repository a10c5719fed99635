package masterdata

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

// Paths points at the alias files. Empty paths are skipped.
type Paths struct {
	Vendors string
	SKUs    string
	UOMs    string
}

// Tables holds read-only alias tables (canonical name → aliases).
type Tables struct {
	Vendors map[string][]string
	SKUs    map[string][]string
	UOMs    map[string][]string

	vendorIdx map[string]string
}

// Load reads the alias files. A file that cannot be read or parsed is
// logged and skipped; Load itself never fails.
func Load(paths Paths, logger *slog.Logger) *Tables {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tables{
		Vendors: load(paths.Vendors, "vendors", logger),
		SKUs:    load(paths.SKUs, "skus", logger),
		UOMs:    load(paths.UOMs, "uoms", logger),
	}
	t.index()
	return t
}

// New builds tables from in-memory maps.
func New(vendors, skus, uoms map[string][]string) *Tables {
	t := &Tables{Vendors: orEmpty(vendors), SKUs: orEmpty(skus), UOMs: orEmpty(uoms)}
	t.index()
	return t
}

func orEmpty(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}

func load(path, kind string, logger *slog.Logger) map[string][]string {
	out := map[string][]string{}
	if path == "" {
		return out
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("masterdata.read.failed", "kind", kind, "path", path, "error", err)
		return out
	}
	parsed, err := parse(data)
	if err != nil {
		logger.Warn("masterdata.parse.failed", "kind", kind, "path", path, "error", err)
		return out
	}
	logger.Debug("masterdata.loaded", "kind", kind, "path", path, "entries", len(parsed))
	return parsed
}

// parse accepts YAML or JSON of the form {canonical: [alias, ...]}.
func parse(data []byte) (map[string][]string, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode aliases: %w", err)
	}
	return orEmpty(raw), nil
}

func (t *Tables) index() {
	t.vendorIdx = make(map[string]string)
	for canonical, aliases := range t.Vendors {
		t.vendorIdx[fold(canonical)] = canonical
		for _, a := range aliases {
			if k := fold(a); k != "" {
				t.vendorIdx[k] = canonical
			}
		}
	}
}

// fold lowercases and drops everything but letters and digits.
func fold(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveVendor maps a vendor name or alias to its canonical form.
func (t *Tables) ResolveVendor(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	canonical, ok := t.vendorIdx[fold(name)]
	return canonical, ok
}

// Empty reports whether no aliases are loaded.
func (t *Tables) Empty() bool {
	return t == nil || len(t.Vendors)+len(t.SKUs)+len(t.UOMs) == 0
}

// Summary exposes the tables on a document result.
func (t *Tables) Summary() *entity.MasterData {
	if t.Empty() {
		return nil
	}
	return &entity.MasterData{VendorAliases: t.Vendors, SKUAliases: t.SKUs, UOMAliases: t.UOMs}
}
