package seo

import (
	"encoding/json"
	"html/template"
	"strconv"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Script marshals v for embedding inside a ld+json script element.
func Script(v any) template.JS {
	return template.JS(JSON(v))
}

// Organization returns a minimal Organization schema.
func Organization(name, url, logoURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if logoURL != "" {
		m["logo"] = logoURL
	}
	return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// ProductInfo is the subset of a product surfaced to search engines.
type ProductInfo struct {
	Name     string
	URL      string
	Image    string
	SKU      string
	Price    float64
	Currency string
	Rating   float64
	Reviews  int
}

// Product returns a product schema with an Offer and, when reviewed, an
// AggregateRating.
func Product(p ProductInfo) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Product",
		"name":     p.Name,
		"offers": map[string]any{
			"@type":         "Offer",
			"price":         strconv.FormatFloat(p.Price, 'f', 2, 64),
			"priceCurrency": p.Currency,
		},
	}
	if p.URL != "" {
		m["url"] = p.URL
	}
	if p.Image != "" {
		m["image"] = p.Image
	}
	if p.SKU != "" {
		m["sku"] = p.SKU
	}
	if p.Reviews > 0 {
		m["aggregateRating"] = map[string]any{
			"@type":       "AggregateRating",
			"ratingValue": p.Rating,
			"reviewCount": p.Reviews,
		}
	}
	return m
}

// ItemList describes an ordered listing page. Positions start at offset+1 so
// later pages continue the numbering.
func ItemList(name string, offset int, items []ProductInfo) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		entry := map[string]any{
			"@type":    "ListItem",
			"position": offset + i + 1,
			"url":      it.URL,
			"name":     it.Name,
		}
		el = append(el, entry)
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "ItemList",
		"name":            name,
		"numberOfItems":   len(items),
		"itemListElement": el,
	}
}
