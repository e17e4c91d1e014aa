package handlers

import (
	"net/url"
	"strconv"

	"finitefield.org/catalog-web/internal/catalog"
	"finitefield.org/catalog-web/internal/format"
)

// Translator resolves message keys for a language.
type Translator interface {
	T(lang, key string) string
	Tf(lang, key string, args ...any) string
}

// ListingView is everything the listing fragment and its controls render.
type ListingView struct {
	ViewID   string
	Lang     string
	Loading  bool
	Error    string
	Total    int
	Header   string
	Empty    bool
	Sort     SortView
	Cards    []ProductCard
	Pager    PagerView
	Filters  FilterView
	Routes   ViewRoutes
	LoadText string

	// CSRFToken is echoed in plain form posts.
	CSRFToken string
}

// ViewRoutes are the endpoints a mounted view exposes to htmx.
type ViewRoutes struct {
	Page       string
	Listing    string
	Sort       string
	SortMenu   string
	FilterOpen string
	FilterShut string
	Filters    string
	Pager      string
	Unmount    string
}

// SortView backs the sort dropdown.
type SortView struct {
	Trigger  string
	Selected string
	Open     bool
	Options  []SortOptionView
}

// SortOptionView is one entry of the sort dropdown.
type SortOptionView struct {
	Label    string
	Value    string
	Selected bool
}

// ProductCard is the display contract of one grid cell.
type ProductCard struct {
	ID               string
	Href             string
	Title            string
	Price            string
	OriginalPrice    string
	HasOriginalPrice bool
	Rating           string
	RatingValue      float64
	Reviews          int
	ReviewsLabel     string
	Image            string
	Discount         string
	HasDiscount      bool
}

// FilterView backs both filter panels.
type FilterView struct {
	MobileOpen     bool
	Active         bool
	MinPrice       string
	MaxPrice       string
	MinRating      string
	DiscountedOnly bool
	RatingOptions  []RatingOption
}

// RatingOption is one choice of the minimum rating select.
type RatingOption struct {
	Value    string
	Label    string
	Selected bool
}

// PagerView backs the pagination control.
type PagerView struct {
	Show       bool
	Current    int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	Prev       int
	Next       int
	Markers    []PagerMarker
	Label      string
}

// PagerMarker is a page link or an ellipsis.
type PagerMarker struct {
	Number   int
	Label    string
	Current  bool
	Ellipsis bool
}

// ListingInput groups what BuildListing needs besides the translator.
type ListingInput struct {
	ViewID   string
	Lang     string
	Currency string
	State    catalog.ViewState
	Listing  catalog.Listing
}

// RoutesFor returns the endpoints of view id.
func RoutesFor(id string) ViewRoutes {
	base := "/products/views/" + url.PathEscape(id)
	return ViewRoutes{
		Page:       base,
		Listing:    base + "/listing",
		Sort:       base + "/sort",
		SortMenu:   base + "/sort/menu",
		FilterOpen: base + "/filters/open",
		FilterShut: base + "/filters/close",
		Filters:    base + "/filters",
		Pager:      base + "/page",
		Unmount:    base,
	}
}

// BuildListing turns a view snapshot and its derived listing into display data.
func BuildListing(tr Translator, in ListingInput) ListingView {
	lang := in.Lang
	st := in.State
	v := ListingView{
		ViewID:   in.ViewID,
		Lang:     lang,
		Loading:  st.Loading,
		Error:    st.Error,
		Total:    in.Listing.Total,
		Header:   tr.Tf(lang, "listing.showing", in.Listing.Total),
		Routes:   RoutesFor(in.ViewID),
		LoadText: tr.T(lang, "listing.loading"),
		Sort:     buildSort(tr, lang, st),
		Filters:  buildFilters(tr, lang, st),
	}
	if v.Loading {
		return v
	}
	v.Empty = in.Listing.Total == 0
	v.Cards = make([]ProductCard, 0, len(in.Listing.Products))
	for _, p := range in.Listing.Products {
		v.Cards = append(v.Cards, BuildCard(tr, lang, in.Currency, p))
	}
	v.Pager = buildPager(tr, lang, in.Listing.Page)
	return v
}

// SortLabel returns the localized label of opt, defaulting to its own label.
func SortLabel(tr Translator, lang string, opt catalog.SortOption) string {
	key := "sort." + opt.Value
	if label := tr.T(lang, key); label != key {
		return label
	}
	return opt.Label
}

func buildSort(tr Translator, lang string, st catalog.ViewState) SortView {
	selected := st.SelectedSort
	if selected.Value == "" {
		selected = catalog.DefaultSort()
	}
	view := SortView{
		Trigger:  tr.Tf(lang, "sort.trigger", SortLabel(tr, lang, selected)),
		Selected: selected.Value,
		Open:     st.SortMenuOpen,
	}
	for _, opt := range catalog.SortOptions() {
		view.Options = append(view.Options, SortOptionView{
			Label:    SortLabel(tr, lang, opt),
			Value:    opt.Value,
			Selected: opt.Value == selected.Value,
		})
	}
	return view
}

func buildFilters(tr Translator, lang string, st catalog.ViewState) FilterView {
	f := st.Filter
	values := f.Values()
	view := FilterView{
		MobileOpen:     st.FilterPanelOpen,
		Active:         !f.IsZero(),
		MinPrice:       values.Get("min_price"),
		MaxPrice:       values.Get("max_price"),
		MinRating:      values.Get("min_rating"),
		DiscountedOnly: f.DiscountedOnly,
	}
	view.RatingOptions = append(view.RatingOptions, RatingOption{
		Value:    "",
		Label:    tr.T(lang, "filters.rating_any"),
		Selected: f.MinRating == 0,
	})
	for _, n := range []int{4, 3, 2, 1} {
		val := strconv.Itoa(n)
		view.RatingOptions = append(view.RatingOptions, RatingOption{
			Value:    val,
			Label:    val + "+",
			Selected: f.MinRating == float64(n),
		})
	}
	return view
}

// BuildCard renders the display contract of one product.
func BuildCard(tr Translator, lang, currency string, p catalog.Product) ProductCard {
	card := ProductCard{
		ID:          p.ID,
		Href:        ProductHref(p.ID),
		Title:       p.Name,
		Price:       format.Price(p.Price, currency, lang),
		Rating:      format.Rating(p.RatingOrZero(), lang),
		RatingValue: p.RatingOrZero(),
		Reviews:     p.ReviewsOrZero(),
		Image:       p.ImageURL,
	}
	card.ReviewsLabel = tr.Tf(lang, "card.reviews", card.Reviews)
	if p.OriginalPrice != nil {
		card.HasOriginalPrice = true
		card.OriginalPrice = format.Price(*p.OriginalPrice, currency, lang)
	}
	if p.DiscountPercent != nil {
		card.HasDiscount = true
		card.Discount = tr.Tf(lang, "card.discount", format.Percent(*p.DiscountPercent, lang))
	}
	return card
}

// ProductHref is the navigation target of a card.
func ProductHref(id string) string {
	return "/product/" + url.PathEscape(id)
}

func buildPager(tr Translator, lang string, page catalog.Page) PagerView {
	view := PagerView{
		Show:       page.TotalPages > 1,
		Current:    page.Number,
		TotalPages: page.TotalPages,
		HasPrev:    page.HasPrev(),
		HasNext:    page.HasNext(),
		Prev:       page.PrevNumber(),
		Next:       page.NextNumber(),
		Label:      tr.T(lang, "pager.label"),
	}
	for _, m := range page.Markers {
		marker := PagerMarker{Number: m.Number, Current: m.Current, Ellipsis: m.Ellipsis}
		if m.Ellipsis {
			marker.Label = "…"
		} else {
			marker.Label = format.Count(m.Number, lang)
		}
		view.Markers = append(view.Markers, marker)
	}
	return view
}

// ProductDetail backs the product page.
type ProductDetail struct {
	Card     ProductCard
	BackHref string
}
