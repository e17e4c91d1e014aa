package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SortOption is a (label, value) pair offered by the sort selector.
type SortOption struct {
	Label string
	Value string
}

const (
	SortMostPopular  = "most-popular"
	SortNewest       = "newest"
	SortPriceLowHigh = "price-low-high"
	SortPriceHighLow = "price-high-low"
)

// ErrUnknownSort is returned for sort values outside the fixed option set.
var ErrUnknownSort = errors.New("catalog: unknown sort option")

var sortOptions = []SortOption{
	{Label: "Most Popular", Value: SortMostPopular},
	{Label: "Newest", Value: SortNewest},
	{Label: "Price: Low to High", Value: SortPriceLowHigh},
	{Label: "Price: High to Low", Value: SortPriceHighLow},
}

// SortOptions returns the closed set of sort options in display order.
func SortOptions() []SortOption {
	out := make([]SortOption, len(sortOptions))
	copy(out, sortOptions)
	return out
}

// DefaultSort is the option selected when a view mounts.
func DefaultSort() SortOption {
	return sortOptions[0]
}

// LookupSort resolves a machine value to its option.
func LookupSort(value string) (SortOption, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, opt := range sortOptions {
		if opt.Value == value {
			return opt, nil
		}
	}
	return SortOption{}, fmt.Errorf("%w: %q", ErrUnknownSort, value)
}

// SortProducts returns a sorted copy of products. Ties keep their input order.
func SortProducts(products []Product, opt SortOption) []Product {
	out := make([]Product, len(products))
	copy(out, products)

	switch opt.Value {
	case SortMostPopular:
		sort.SliceStable(out, func(i, j int) bool {
			ri, rj := out[i].ReviewsOrZero(), out[j].ReviewsOrZero()
			if ri != rj {
				return ri > rj
			}
			return out[i].RatingOrZero() > out[j].RatingOrZero()
		})
	case SortNewest:
		sortNewest(out)
	case SortPriceLowHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceHighLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	}
	return out
}

// sortNewest orders by ObjectId timestamp when every id carries one, and
// falls back to reverse fetch order otherwise.
func sortNewest(products []Product) {
	for _, p := range products {
		if _, ok := p.CreatedAt(); !ok {
			for i, j := 0, len(products)-1; i < j; i, j = i+1, j-1 {
				products[i], products[j] = products[j], products[i]
			}
			return
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		ti, _ := products[i].CreatedAt()
		tj, _ := products[j].CreatedAt()
		return ti.After(tj)
	})
}
