package services

import (
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// TemplateRef points at one PDF inside the template directory. Name is the
// bare file name, URL the public path the frontend can render.
type TemplateRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MonthlyCertificateTemplates maps award slots to template files. A zero
// TemplateRef means no template matched that slot.
type MonthlyCertificateTemplates struct {
	First  TemplateRef `json:"first"`
	Second TemplateRef `json:"second"`
	Third  TemplateRef `json:"third"`
	Top    TemplateRef `json:"top"`
}

// ForRank maps podium ranks 1..3 to their slots. Works on a nil receiver
// so callers never need a guard.
func (t *MonthlyCertificateTemplates) ForRank(rank int) TemplateRef {
	if t == nil {
		return TemplateRef{}
	}
	switch rank {
	case 1:
		return t.First
	case 2:
		return t.Second
	case 3:
		return t.Third
	}
	return TemplateRef{}
}

// Slot tokens cover both localized ordinal words and the English ones, so
// curators can drop in files named either way.
var (
	firstSlotPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^1`),
		regexp.MustCompile(`(?i)1[-_\s]?daraj`),
		regexp.MustCompile(`(?i)bir`),
		regexp.MustCompile(`(?i)first`),
	}
	secondSlotPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^2`),
		regexp.MustCompile(`(?i)2[-_\s]?daraj`),
		regexp.MustCompile(`(?i)ikki`),
		regexp.MustCompile(`(?i)second`),
	}
	thirdSlotPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^3`),
		regexp.MustCompile(`(?i)3[-_\s]?daraj`),
		regexp.MustCompile(`(?i)uch`),
		regexp.MustCompile(`(?i)third`),
	}
	topSlotPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)oliy`),
		regexp.MustCompile(`(?i)grand`),
		regexp.MustCompile(`(?i)supreme`),
		regexp.MustCompile(`(?i)top`),
	}
)

// TemplateResolver scans a directory of certificate PDFs and assigns them
// to award slots. Results are cached for TTL because the directory changes
// only when an admin uploads new templates.
type TemplateResolver struct {
	Dir     string
	BaseURL string
	TTL     time.Duration

	mu       sync.Mutex
	loadedAt time.Time
	cached   *MonthlyCertificateTemplates
	loaded   bool // distinguishes a cached nil from "never resolved"
}

func NewTemplateResolver(dir, baseURL string) *TemplateResolver {
	return &TemplateResolver{
		Dir:     dir,
		BaseURL: strings.TrimRight(baseURL, "/"),
		TTL:     time.Minute,
	}
}

// Resolve returns the slot mapping, serving from cache inside the TTL.
// A missing directory resolves to nil, and that nil is cached like any
// other result.
func (r *TemplateResolver) Resolve(forceReload bool) *MonthlyCertificateTemplates {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !forceReload && r.loaded && time.Since(r.loadedAt) < r.TTL {
		return r.cached
	}
	r.loadedAt = time.Now()
	r.loaded = true

	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		r.cached = nil
		return nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	first := pickTemplateFile(files, firstSlotPatterns)
	second := pickTemplateFile(files, secondSlotPatterns)
	third := pickTemplateFile(files, thirdSlotPatterns)
	top := pickTemplateFile(files, topSlotPatterns)

	// Positional fallback: when nothing matched by name, hand out files in
	// lexicographic order so three anonymous PDFs still cover the podium.
	// The top slot never falls back, it only fills on a superlative match.
	if first == "" && len(files) > 0 {
		first = files[0]
	}
	if second == "" && len(files) > 1 {
		second = files[1]
	}
	if third == "" && len(files) > 2 {
		third = files[2]
	}

	r.cached = &MonthlyCertificateTemplates{
		First:  r.ref(first),
		Second: r.ref(second),
		Third:  r.ref(third),
		Top:    r.ref(top),
	}
	return r.cached
}

func pickTemplateFile(files []string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		for _, f := range files {
			if p.MatchString(f) {
				return f
			}
		}
	}
	return ""
}

func (r *TemplateResolver) ref(name string) TemplateRef {
	if name == "" {
		return TemplateRef{}
	}
	return TemplateRef{Name: name, URL: r.BaseURL + "/" + url.PathEscape(name)}
}
