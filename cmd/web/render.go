package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"finitefield.org/catalog-web/internal/i18n"
	"finitefield.org/catalog-web/internal/observability"
)

// templateSet holds the shared layouts/partials plus one clone per page,
// each page defining its own "content" block.
type templateSet struct {
	shared *template.Template
	pages  map[string]*template.Template
}

// renderer parses templates once, or on every request in dev mode.
type renderer struct {
	dir   string
	dev   bool
	funcs template.FuncMap

	mu     sync.RWMutex
	cached *templateSet
}

func newRenderer(dir string, dev bool, bundle *i18n.Bundle) (*renderer, error) {
	r := &renderer{
		dir: dir,
		dev: dev,
		funcs: template.FuncMap{
			"t":  bundle.T,
			"tf": bundle.Tf,
		},
	}
	set, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.cached = set
	return r, nil
}

func (r *renderer) parse() (*templateSet, error) {
	var shared, pages []string
	if err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmpl") {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == "pages" {
			pages = append(pages, path)
		} else {
			shared = append(shared, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(shared) == 0 {
		return nil, fmt.Errorf("no templates found under %s", r.dir)
	}

	base, err := template.New("_root").Funcs(r.funcs).ParseFiles(shared...)
	if err != nil {
		return nil, err
	}
	set := &templateSet{shared: base, pages: map[string]*template.Template{}}
	for _, page := range pages {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFiles(page); err != nil {
			return nil, err
		}
		set.pages[strings.TrimSuffix(filepath.Base(page), ".tmpl")] = clone
	}
	return set, nil
}

func (r *renderer) templates() (*templateSet, error) {
	if r.dev {
		return r.parse()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cached, nil
}

// page executes the base layout with the named page's content block.
func (r *renderer) page(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	set, err := r.templates()
	if err != nil {
		r.fail(w, req, "template parse error", err)
		return
	}
	t, ok := set.pages[name]
	if !ok {
		r.fail(w, req, "template missing", fmt.Errorf("page %q not found", name))
		return
	}
	r.execute(w, req, status, t, "base", data)
}

// fragment executes one named template for htmx swaps.
func (r *renderer) fragment(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	set, err := r.templates()
	if err != nil {
		r.fail(w, req, "template parse error", err)
		return
	}
	r.execute(w, req, status, set.shared, name, data)
}

func (r *renderer) execute(w http.ResponseWriter, req *http.Request, status int, t *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		r.fail(w, req, "template exec error", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (r *renderer) fail(w http.ResponseWriter, req *http.Request, msg string, err error) {
	observability.FromContext(req.Context()).Error(msg, zap.Error(err), zap.String("path", req.URL.Path))
	http.Error(w, msg, http.StatusInternalServerError)
}
