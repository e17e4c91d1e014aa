package nav

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildMarksProductsActive(t *testing.T) {
	for _, p := range []string{"/products", "/products/views/abc/listing", "/product/42"} {
		items := Build(p)
		if len(items) != 1 || !items[0].Active {
			t.Fatalf("expected products nav active for %s, got %+v", p, items)
		}
	}
	if Build("/")[0].Active {
		t.Fatalf("expected products nav inactive on home")
	}
}

func TestBreadcrumbs(t *testing.T) {
	got := Breadcrumbs("/products", "")
	want := []Crumb{
		{Href: "/", LabelKey: "nav.home"},
		{Href: "/products", LabelKey: "nav.products", Label: "Products", Active: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("listing crumbs mismatch (-want +got):\n%s", diff)
	}

	got = Breadcrumbs("/product/6650a1f0", "Linen Camp Shirt")
	want = []Crumb{
		{Href: "/", LabelKey: "nav.home"},
		{Href: "/products", LabelKey: "nav.products", Label: "Products"},
		{Href: "/product/6650a1f0", Label: "Linen Camp Shirt", Active: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("detail crumbs mismatch (-want +got):\n%s", diff)
	}
}
