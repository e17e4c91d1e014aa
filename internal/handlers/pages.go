package handlers

import (
	"html/template"

	"finitefield.org/catalog-web/internal/nav"
)

// PageData is the view model for full pages rendered through the shared layout.
type PageData struct {
	Title     string
	Lang      string
	SiteName  string
	CSRFToken string
	SEO       SEOData
	Analytics Analytics

	Path        string
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb

	// Optional per-page view model payloads
	Listing *ListingView
	Product *ProductDetail
	Copy    *Copy
	Error   *ErrorView
}

// SEOData carries head metadata for the layout.
type SEOData struct {
	Title       string
	Description string
	Canonical   string
	Robots      string
	OG          struct {
		Title       string
		Description string
		Image       string
		Type        string
		URL         string
		SiteName    string
	}
	Twitter struct {
		Card  string
		Image string
	}
	Alternates []Alternate
	JSONLD     []template.JS
}

// Alternate is an hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

// Copy is editorial text shown above the listing.
type Copy struct {
	Title   string
	Summary string
	Body    template.HTML
	Banner  *Banner
}

// Banner is a dismissible notice above the listing.
type Banner struct {
	Variant  string
	Message  string
	LinkText string
	LinkURL  string
}

// ErrorView backs the not-found and error pages.
type ErrorView struct {
	Status  int
	Message string
}
