package main

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/catalog-web/internal/catalog"
	"finitefield.org/catalog-web/internal/cms"
	"finitefield.org/catalog-web/internal/handlers"
	mw "finitefield.org/catalog-web/internal/middleware"
	"finitefield.org/catalog-web/internal/nav"
	"finitefield.org/catalog-web/internal/observability"
	"finitefield.org/catalog-web/internal/seo"
)

const listingCopySlug = "all-products"

// listingView snapshots a view into its display model.
func (a *app) listingView(r *http.Request, view *catalog.View) *handlers.ListingView {
	lv := handlers.BuildListing(a.bundle, handlers.ListingInput{
		ViewID:   view.ID(),
		Lang:     mw.Lang(r),
		Currency: a.cfg.Catalog.Currency,
		State:    view.Snapshot(),
		Listing:  view.Listing(),
	})
	lv.CSRFToken = mw.CSRFToken(r)
	return &lv
}

// basePage fills the layout fields shared by every page. path is the
// canonical location, which may differ from the request path.
func (a *app) basePage(r *http.Request, path, title, description, leaf string) handlers.PageData {
	lang := mw.Lang(r)
	siteName := a.bundle.T(lang, "site.name")
	vm := handlers.PageData{
		Title:       title,
		Lang:        lang,
		SiteName:    siteName,
		CSRFToken:   mw.CSRFToken(r),
		Analytics:   a.analytics,
		Path:        path,
		Nav:         nav.Build(path),
		Breadcrumbs: nav.Breadcrumbs(path, leaf),
	}
	vm.SEO.Title = title + " | " + siteName
	vm.SEO.Description = description
	vm.SEO.Canonical = a.absoluteURL(r, path)
	vm.SEO.OG.URL = vm.SEO.Canonical
	vm.SEO.OG.SiteName = siteName
	vm.SEO.OG.Title = vm.SEO.Title
	vm.SEO.OG.Description = description
	vm.SEO.OG.Type = "website"
	vm.SEO.Twitter.Card = "summary_large_image"
	for _, l := range a.bundle.Supported() {
		vm.SEO.Alternates = append(vm.SEO.Alternates, handlers.Alternate{
			Href:     vm.SEO.Canonical + "?hl=" + url.QueryEscape(l),
			Hreflang: l,
		})
	}
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.Script(seo.BreadcrumbList(a.breadcrumbItems(r, vm.Breadcrumbs))))
	return vm
}

// productsPageData builds the listing page for a mounted view.
func (a *app) productsPageData(r *http.Request, view *catalog.View) handlers.PageData {
	lang := mw.Lang(r)
	title := a.bundle.T(lang, "listing.title")
	description := a.bundle.T(lang, "listing.description")

	page, err := a.library.Page("listing", listingCopySlug, lang)
	switch {
	case err == nil:
		if page.Title != "" {
			title = page.Title
		}
		if page.SEO.Description != "" {
			description = page.SEO.Description
		} else if page.Summary != "" {
			description = page.Summary
		}
	case !errors.Is(err, cms.ErrNotFound):
		observability.FromContext(r.Context()).Warn("listing copy unavailable", zap.Error(err))
	}

	vm := a.basePage(r, "/products", title, description, "")
	if r.URL.Path != "/products" {
		vm.SEO.Robots = "noindex, follow"
	}
	if err == nil {
		vm.Copy = &handlers.Copy{Title: page.Title, Summary: page.Summary, Body: page.Body}
		if page.Banner != nil {
			vm.Copy.Banner = &handlers.Banner{
				Variant:  page.Banner.Variant,
				Message:  page.Banner.Message,
				LinkText: page.Banner.LinkText,
				LinkURL:  page.Banner.LinkURL,
			}
		}
		if page.SEO.OGImage != "" {
			vm.SEO.OG.Image = page.SEO.OGImage
			vm.SEO.Twitter.Image = page.SEO.OGImage
		}
	}

	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.Script(seo.Organization(vm.SiteName, a.absoluteURL(r, "/"), "")))
	vm.Listing = a.listingView(r, view)
	if !vm.Listing.Loading {
		vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.Script(a.itemList(r, title, view.Listing())))
	}
	return vm
}

func (a *app) itemList(r *http.Request, name string, listing catalog.Listing) map[string]any {
	offset := 0
	if listing.Page.Size > 0 {
		offset = (listing.Page.Number - 1) * listing.Page.Size
	}
	items := make([]seo.ProductInfo, 0, len(listing.Products))
	for _, p := range listing.Products {
		items = append(items, seo.ProductInfo{Name: p.Name, URL: a.absoluteURL(r, handlers.ProductHref(p.ID))})
	}
	return seo.ItemList(name, offset, items)
}

func (a *app) breadcrumbItems(r *http.Request, crumbs []nav.Crumb) []seo.BreadcrumbItem {
	lang := mw.Lang(r)
	items := make([]seo.BreadcrumbItem, 0, len(crumbs))
	for _, c := range crumbs {
		name := c.Label
		if c.LabelKey != "" {
			name = a.bundle.T(lang, c.LabelKey)
		}
		items = append(items, seo.BreadcrumbItem{Name: name, Item: a.absoluteURL(r, c.Href)})
	}
	return items
}

// absoluteURL resolves path against the configured site URL, or the request host.
func (a *app) absoluteURL(r *http.Request, path string) string {
	if base := strings.TrimRight(a.cfg.Site.URL, "/"); base != "" {
		return base + path
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}
