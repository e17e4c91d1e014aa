package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/catalog-web/internal/catalog"
	"finitefield.org/catalog-web/internal/handlers"
	mw "finitefield.org/catalog-web/internal/middleware"
	"finitefield.org/catalog-web/internal/observability"
	"finitefield.org/catalog-web/internal/seo"
)

// productsPage mounts a fresh view and renders the listing page. The grid
// arrives through the listing fragment once the fetch resolves.
func (a *app) productsPage(w http.ResponseWriter, r *http.Request) {
	view, err := a.registry.Mount()
	if err != nil {
		observability.FromContext(r.Context()).Error("mount view", zap.Error(err))
		mw.WriteError(w, r, http.StatusServiceUnavailable, "service shutting down")
		return
	}
	observability.FromContext(r.Context()).Debug("view mounted", zap.String("view_id", view.ID()))
	a.render.page(w, r, http.StatusOK, "products", a.productsPageData(r, view))
}

// viewPage re-renders the full page of an existing view without refetching.
func (a *app) viewPage(w http.ResponseWriter, r *http.Request) {
	view, ok := a.lookupView(w, r)
	if !ok {
		return
	}
	a.render.page(w, r, http.StatusOK, "products", a.productsPageData(r, view))
}

// listingFragment waits for the view's fetch and renders the grid.
func (a *app) listingFragment(w http.ResponseWriter, r *http.Request) {
	view, ok := a.lookupView(w, r)
	if !ok {
		return
	}
	if err := view.Wait(r.Context()); err != nil {
		if errors.Is(err, catalog.ErrViewUnmounted) {
			a.viewGone(w, r)
			return
		}
		// Client went away or the request timed out.
		observability.FromContext(r.Context()).Debug("listing wait aborted", zap.Error(err))
		return
	}
	a.render.fragment(w, r, http.StatusOK, "listing", a.listingView(r, view))
}

func (a *app) selectSort(w http.ResponseWriter, r *http.Request) {
	view, ok := a.lookupView(w, r)
	if !ok {
		return
	}
	if err := view.SelectSort(r.FormValue("sort")); err != nil {
		if errors.Is(err, catalog.ErrUnknownSort) {
			mw.WriteError(w, r, http.StatusBadRequest, "unknown sort option")
			return
		}
		mw.WriteError(w, r, http.StatusInternalServerError, "sort failed")
		return
	}
	a.respond(w, r, view, "listing")
}

func (a *app) toggleSortMenu(w http.ResponseWriter, r *http.Request) {
	view, ok := a.lookupView(w, r)
	if !ok {
		return
	}
	if strings.EqualFold(r.FormValue("open"), "false") {
		view.CloseSortMenu()
	} else {
		view.ToggleSortMenu()
	}
	a.respond(w, r, view, "sort_control")
}

func (a *app) openFilters(w http.ResponseWriter, r *http.Request) {
	view, ok := a.lookupView(w, r)
	if !ok {
		return
	}
	view.OpenFilterPanel()
	a.respond(w, r, view, "filters_mobile")
}

func (a *app) closeFilters(w http.ResponseWriter, r *http.Request) {
	view, ok := a.lookupView(w, r)
	if !ok {
		return
	}
	view.CloseFilterPanel()
	a.respond(w, r, view, "filters_mobile")
}

func (a *app) applyFilters(w http.ResponseWriter, r *http.Request) {
	view, ok := a.lookupView(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		mw.WriteError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	filter := catalog.Filter{}
	if r.PostForm.Get("reset") == "" {
		filter = catalog.ParseFilter(r.PostForm)
	}
	view.ApplyFilter(filter)
	a.respond(w, r, view, "listing")
}

func (a *app) setPage(w http.ResponseWriter, r *http.Request) {
	view, ok := a.lookupView(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue("page")))
	if err != nil {
		mw.WriteError(w, r, http.StatusBadRequest, "invalid page")
		return
	}
	view.SetPage(n)
	a.respond(w, r, view, "listing")
}

func (a *app) unmountView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "viewID")
	if err := a.registry.Unmount(id); err != nil {
		if errors.Is(err, catalog.ErrViewNotFound) {
			mw.WriteError(w, r, http.StatusNotFound, "view not found")
			return
		}
		mw.WriteError(w, r, http.StatusInternalServerError, "unmount failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respond renders fragment for htmx callers and redirects plain form posts
// back to the view page.
func (a *app) respond(w http.ResponseWriter, r *http.Request, view *catalog.View, fragment string) {
	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, handlers.RoutesFor(view.ID()).Page, http.StatusSeeOther)
		return
	}
	a.render.fragment(w, r, http.StatusOK, fragment, a.listingView(r, view))
}

func (a *app) lookupView(w http.ResponseWriter, r *http.Request) (*catalog.View, bool) {
	view, err := a.registry.Get(chi.URLParam(r, "viewID"))
	if err != nil {
		if !errors.Is(err, catalog.ErrViewNotFound) {
			observability.FromContext(r.Context()).Error("lookup view", zap.Error(err))
		}
		a.viewGone(w, r)
		return nil, false
	}
	return view, true
}

// viewGone answers requests for expired or unknown views. htmx reloads the
// page, which mounts a new view.
func (a *app) viewGone(w http.ResponseWriter, r *http.Request) {
	if mw.IsHTMX(r.Context()) {
		mw.HXRefresh(w)
		mw.WriteError(w, r, http.StatusNotFound, a.bundle.T(mw.Lang(r), "error.view_expired"))
		return
	}
	a.notFound(w, r)
}

// productDetail is the navigation target of every card.
func (a *app) productDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var found *catalog.Product
	for _, p := range a.fetcher.FetchProducts(r.Context()) {
		if p.ID == id {
			found = &p
			break
		}
	}
	if found == nil {
		a.notFound(w, r)
		return
	}

	lang := mw.Lang(r)
	card := handlers.BuildCard(a.bundle, lang, a.cfg.Catalog.Currency, *found)
	vm := a.basePage(r, r.URL.Path, found.Name, found.Name, found.Name)
	vm.SEO.OG.Type = "product"
	vm.SEO.OG.Image = found.ImageURL
	vm.Product = &handlers.ProductDetail{Card: card, BackHref: "/products"}
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.Script(seo.Product(seo.ProductInfo{
		Name:     found.Name,
		URL:      vm.SEO.Canonical,
		Image:    found.ImageURL,
		SKU:      found.ID,
		Price:    found.Price,
		Currency: a.cfg.Catalog.Currency,
		Rating:   found.RatingOrZero(),
		Reviews:  found.ReviewsOrZero(),
	})))
	a.render.page(w, r, http.StatusOK, "product", vm)
}

func (a *app) notFound(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	title := a.bundle.T(lang, "error.not_found")
	if mw.IsHTMX(r.Context()) {
		mw.WriteError(w, r, http.StatusNotFound, title)
		return
	}
	vm := a.basePage(r, r.URL.Path, title, title, "")
	vm.SEO.Robots = "noindex"
	vm.Error = &handlers.ErrorView{Status: http.StatusNotFound, Message: title}
	a.render.page(w, r, http.StatusNotFound, "error", vm)
}
