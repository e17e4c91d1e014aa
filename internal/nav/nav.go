package nav

import (
	"path"
	"strings"
)

// Item represents a top-level navigation item.
type Item struct {
	Path     string // e.g. "/products"
	LabelKey string // i18n key, e.g. "nav.products"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Main is the primary navigation definition.
var Main = []Item{
	{Path: "/products", LabelKey: "nav.products"},
}

// sections maps singular detail routes onto the listing they belong to.
var sections = map[string]string{
	"/product": "/products",
}

// Build renders navigation items with active state given the current path.
func Build(currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Href:     it.Path,
			LabelKey: it.LabelKey,
			Active:   isActive(it.Path, currentPath),
		})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	if currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/") {
		return true
	}
	for detail, listing := range sections {
		if listing == itemPath && strings.HasPrefix(currentPath, detail+"/") {
			return true
		}
	}
	return false
}

func lookupLabel(top string) string {
	for _, it := range Main {
		if it.Path == top {
			return it.LabelKey
		}
	}
	return ""
}

// Breadcrumbs builds breadcrumb entries from the current path, starting at
// Home. Detail routes hang off their listing section; leafLabel names the
// final crumb when non-empty.
func Breadcrumbs(currentPath, leafLabel string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	crumbs := []Crumb{{Href: "/", LabelKey: "nav.home", Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}

	clean := path.Clean(currentPath)
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	top := "/" + parts[0]

	if listing, ok := sections[top]; ok {
		crumbs = append(crumbs, Crumb{Href: listing, LabelKey: lookupLabel(listing), Label: titleFromSegment(strings.TrimPrefix(listing, "/"))})
		parts = parts[1:]
		top = listing
	} else {
		crumbs = append(crumbs, Crumb{Href: top, LabelKey: lookupLabel(top), Label: titleFromSegment(parts[0]), Active: len(parts) == 1})
		parts = parts[1:]
	}

	var href string
	for i, seg := range parts {
		label := titleFromSegment(seg)
		if i == len(parts)-1 && leafLabel != "" {
			label = leafLabel
		}
		if i < len(parts)-1 {
			href = top + "/" + strings.Join(parts[:i+1], "/")
		} else {
			href = clean
		}
		crumbs = append(crumbs, Crumb{Href: href, Label: label, Active: i == len(parts)-1})
	}
	return crumbs
}

func titleFromSegment(seg string) string {
	if seg == "" {
		return seg
	}
	s := strings.ReplaceAll(seg, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
