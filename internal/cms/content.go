package cms

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no localized page exists for a slug.
var ErrNotFound = errors.New("cms: content not found")

// Page is localized editorial copy read from markdown with YAML front matter.
type Page struct {
	Kind      string
	Slug      string
	Lang      string
	Title     string
	Summary   string
	Body      template.HTML
	UpdatedAt time.Time
	Banner    *Banner
	SEO       SEO
}

// SEO holds optional metadata overrides.
type SEO struct {
	Title       string
	Description string
	OGImage     string
}

// Banner is an optional notice rendered above the listing.
type Banner struct {
	Variant  string
	Message  string
	LinkText string
	LinkURL  string
}

type frontMatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	Lang      string `yaml:"lang"`
	UpdatedAt string `yaml:"updated_at"`
	SEO       struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		OGImage     string `yaml:"og_image"`
	} `yaml:"seo"`
	Banner *struct {
		Variant  string `yaml:"variant"`
		Message  string `yaml:"message"`
		LinkText string `yaml:"link_text"`
		LinkURL  string `yaml:"link_url"`
	} `yaml:"banner"`
}

const (
	defaultContentDir = "content"
	defaultCacheTTL   = 5 * time.Minute
)

// Library reads pages from {dir}/{kind}/{lang}/{slug}.md and caches the
// rendered result.
type Library struct {
	dir      string
	fallback string
	ttl      time.Duration
	md       goldmark.Markdown
	policy   *bluemonday.Policy

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// NewLibrary returns a library rooted at dir. fallbackLang is tried when a
// page is missing in the requested language. A ttl of zero disables caching.
func NewLibrary(dir, fallbackLang string, ttl time.Duration) *Library {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultContentDir
	}
	if ttl < 0 {
		ttl = defaultCacheTTL
	}
	return &Library{
		dir:      dir,
		fallback: strings.ToLower(strings.TrimSpace(fallbackLang)),
		ttl:      ttl,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		policy: bluemonday.UGCPolicy(),
		cache:  map[string]cacheEntry{},
	}
}

// Dir returns the content root.
func (l *Library) Dir() string { return l.dir }

// Page returns the page for kind/slug in lang, or in the fallback language.
func (l *Library) Page(kind, slug, lang string) (Page, error) {
	kind = sanitizeSegment(kind)
	slug = sanitizeSegment(slug)
	if kind == "" || slug == "" {
		return Page{}, ErrNotFound
	}
	lang = strings.ToLower(strings.TrimSpace(lang))

	key := strings.Join([]string{kind, lang, slug}, "|")
	if page, ok := l.cached(key); ok {
		return page, nil
	}

	candidates := []string{lang}
	if l.fallback != "" && l.fallback != lang {
		candidates = append(candidates, l.fallback)
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		page, err := l.read(kind, slug, candidate)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Page{}, err
		}
		l.store(key, page)
		return clonePage(page), nil
	}
	return Page{}, ErrNotFound
}

func (l *Library) read(kind, slug, lang string) (Page, error) {
	file := filepath.Join(l.dir, kind, lang, slug+".md")
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, err
	}

	fm, body := splitFrontMatter(string(data))
	var front frontMatter
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("cms: parse front matter %s: %w", file, err)
		}
	}

	var buf bytes.Buffer
	if err := l.md.Convert([]byte(body), &buf); err != nil {
		return Page{}, fmt.Errorf("cms: render %s: %w", file, err)
	}

	page := Page{
		Kind:    kind,
		Slug:    slug,
		Lang:    firstNonEmpty(strings.TrimSpace(front.Lang), lang),
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		// Sanitized by the UGC policy before being trusted as HTML.
		Body: template.HTML(l.policy.SanitizeBytes(buf.Bytes())),
		SEO: SEO{
			Title:       strings.TrimSpace(front.SEO.Title),
			Description: strings.TrimSpace(front.SEO.Description),
			OGImage:     strings.TrimSpace(front.SEO.OGImage),
		},
		UpdatedAt: parseDate(front.UpdatedAt),
	}
	if page.UpdatedAt.IsZero() {
		if info, err := os.Stat(file); err == nil {
			page.UpdatedAt = info.ModTime()
		}
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	if front.Banner != nil && strings.TrimSpace(front.Banner.Message) != "" {
		page.Banner = &Banner{
			Variant:  firstNonEmpty(strings.TrimSpace(front.Banner.Variant), "info"),
			Message:  strings.TrimSpace(front.Banner.Message),
			LinkText: strings.TrimSpace(front.Banner.LinkText),
			LinkURL:  strings.TrimSpace(front.Banner.LinkURL),
		}
	}
	return page, nil
}

func (l *Library) cached(key string) (Page, bool) {
	if l.ttl == 0 {
		return Page{}, false
	}
	l.mu.RLock()
	entry, ok := l.cache[key]
	l.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return Page{}, false
	}
	return clonePage(entry.page), true
}

func (l *Library) store(key string, page Page) {
	if l.ttl == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[key] = cacheEntry{page: clonePage(page), expires: time.Now().Add(l.ttl)}
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		if runes[0] >= 'a' && runes[0] <= 'z' {
			runes[0] -= 'a' - 'A'
		}
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

func sanitizeSegment(seg string) string {
	seg = strings.Trim(strings.TrimSpace(strings.ToLower(seg)), "/")
	if seg == "" || strings.Contains(seg, "..") || strings.ContainsAny(seg, `/\`) {
		return ""
	}
	return seg
}

func clonePage(src Page) Page {
	cp := src
	if src.Banner != nil {
		b := *src.Banner
		cp.Banner = &b
	}
	return cp
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
