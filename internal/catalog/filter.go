package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

// Filter narrows the fetched collection. The zero value matches every product.
type Filter struct {
	MinPrice       *float64
	MaxPrice       *float64
	MinRating      float64
	DiscountedOnly bool
}

// ParseFilter reads filter criteria from submitted form values. Malformed
// numbers are treated as absent.
func ParseFilter(values url.Values) Filter {
	var f Filter
	f.MinPrice = parseOptionalFloat(values.Get("min_price"))
	f.MaxPrice = parseOptionalFloat(values.Get("max_price"))
	if v := parseOptionalFloat(values.Get("min_rating")); v != nil && *v > 0 {
		f.MinRating = *v
	}
	switch strings.ToLower(strings.TrimSpace(values.Get("discounted"))) {
	case "1", "true", "on", "yes":
		f.DiscountedOnly = true
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		f.MinPrice, f.MaxPrice = f.MaxPrice, f.MinPrice
	}
	return f
}

func parseOptionalFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.MinPrice == nil && f.MaxPrice == nil && f.MinRating == 0 && !f.DiscountedOnly
}

// Match reports whether p satisfies every criterion.
func (f Filter) Match(p Product) bool {
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.MinRating > 0 && p.RatingOrZero() < f.MinRating {
		return false
	}
	if f.DiscountedOnly && (p.DiscountPercent == nil || *p.DiscountPercent <= 0) {
		return false
	}
	return true
}

// Apply returns the products matching f, preserving order.
func (f Filter) Apply(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Values encodes the filter back into form values, for re-rendering inputs.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.MinPrice != nil {
		v.Set("min_price", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		v.Set("max_price", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.MinRating > 0 {
		v.Set("min_rating", strconv.FormatFloat(f.MinRating, 'f', -1, 64))
	}
	if f.DiscountedOnly {
		v.Set("discounted", "1")
	}
	return v
}

func (f Filter) clone() Filter {
	return Filter{
		MinPrice:       cloneFloat(f.MinPrice),
		MaxPrice:       cloneFloat(f.MaxPrice),
		MinRating:      f.MinRating,
		DiscountedOnly: f.DiscountedOnly,
	}
}
