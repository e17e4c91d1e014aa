package catalog

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFilter(t *testing.T) {
	f := ParseFilter(url.Values{
		"min_price":  {"100"},
		"max_price":  {"20"},
		"min_rating": {"4"},
		"discounted": {"on"},
	})
	if f.MinPrice == nil || *f.MinPrice != 20 || f.MaxPrice == nil || *f.MaxPrice != 100 {
		t.Fatalf("expected swapped price range, got %+v", f)
	}
	if f.MinRating != 4 || !f.DiscountedOnly {
		t.Fatalf("unexpected filter %+v", f)
	}

	f = ParseFilter(url.Values{"min_price": {"abc"}, "max_price": {"-3"}, "min_rating": {""}})
	if !f.IsZero() {
		t.Fatalf("expected malformed values to be ignored, got %+v", f)
	}
}

func TestFilterApply(t *testing.T) {
	products := []Product{
		{ID: "cheap", Price: 10, Rating: floatPtr(4.9)},
		{ID: "sale", Price: 50, Rating: floatPtr(4.2), DiscountPercent: floatPtr(20)},
		{ID: "unrated", Price: 40},
		{ID: "pricey", Price: 500, Rating: floatPtr(3.1), DiscountPercent: floatPtr(0)},
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"zero", Filter{}, []string{"cheap", "sale", "unrated", "pricey"}},
		{"price range", Filter{MinPrice: floatPtr(20), MaxPrice: floatPtr(100)}, []string{"sale", "unrated"}},
		{"rating", Filter{MinRating: 4}, []string{"cheap", "sale"}},
		{"discounted", Filter{DiscountedOnly: true}, []string{"sale"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(tt.filter.Apply(products))); diff != "" {
				t.Fatalf("filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterValuesRoundTripsInputs(t *testing.T) {
	f := Filter{MinPrice: floatPtr(12.5), MinRating: 3, DiscountedOnly: true}
	v := f.Values()
	if v.Get("min_price") != "12.5" || v.Get("max_price") != "" || v.Get("min_rating") != "3" || v.Get("discounted") != "1" {
		t.Fatalf("unexpected values %v", v)
	}
}
