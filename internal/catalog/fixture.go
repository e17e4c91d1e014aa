package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed sample_products.yaml
var sampleProducts []byte

// FixtureFetcher serves products from a YAML document. It backs local
// development when no catalog API is configured.
type FixtureFetcher struct {
	path   string
	logger *zap.Logger
}

// NewFixtureFetcher reads products from path on every fetch. An empty path
// selects the built-in sample catalog.
func NewFixtureFetcher(path string, opts ...FetcherOption) *FixtureFetcher {
	o := buildFetcherOptions(opts)
	return &FixtureFetcher{
		path:   strings.TrimSpace(path),
		logger: o.logger.Named("fixture"),
	}
}

// FetchProducts decodes the fixture. Load failures yield an empty slice.
func (f *FixtureFetcher) FetchProducts(ctx context.Context) []Product {
	if err := ctx.Err(); err != nil {
		return []Product{}
	}
	products, err := f.load()
	if err != nil {
		f.logger.Warn("product fixture unavailable; rendering empty listing",
			zap.String("path", f.path),
			zap.Error(err),
		)
		return []Product{}
	}
	return products
}

func (f *FixtureFetcher) load() ([]Product, error) {
	data := sampleProducts
	if f.path != "" {
		raw, err := os.ReadFile(f.path)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return decodeFixture(data, f.logger)
}

// fixtureDocument accepts either a bare list or a {products: [...]} mapping.
type fixtureDocument struct {
	Products []Product `yaml:"products"`
}

func decodeFixture(data []byte, logger *zap.Logger) ([]Product, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if len(node.Content) == 0 {
		return []Product{}, nil
	}
	root := node.Content[0]

	var products []Product
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&products); err != nil {
			return nil, fmt.Errorf("decode fixture: %w", err)
		}
	case yaml.MappingNode:
		var doc fixtureDocument
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode fixture: %w", err)
		}
		products = doc.Products
	default:
		return nil, fmt.Errorf("decode fixture: unexpected yaml kind %d", root.Kind)
	}
	return normalizeProducts(products, logger), nil
}
