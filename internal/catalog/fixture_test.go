package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixtureFetcherBuiltInSample(t *testing.T) {
	products := NewFixtureFetcher("").FetchProducts(context.Background())
	require.NotEmpty(t, products)
	for _, p := range products {
		require.NotEmpty(t, p.ID)
		require.NotEmpty(t, p.Name)
		_, ok := p.CreatedAt()
		require.True(t, ok, "sample id %q should carry a timestamp", p.ID)
	}
}

func TestFixtureFetcherReadsFile(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(list, []byte(`
- _id: "1"
  name: Shirt
  price: 20
  imageUrl: /a.png
`), 0o600))

	products := NewFixtureFetcher(list).FetchProducts(context.Background())
	require.Len(t, products, 1)
	require.Equal(t, "Shirt", products[0].Name)
	require.Nil(t, products[0].DiscountPercent)

	doc := filepath.Join(dir, "doc.yaml")
	require.NoError(t, os.WriteFile(doc, []byte("products:\n  - _id: \"2\"\n    name: Hat\n    price: 15\n    discountPercent: 10\n"), 0o600))
	products = NewFixtureFetcher(doc).FetchProducts(context.Background())
	require.Len(t, products, 1)
	require.NotNil(t, products[0].DiscountPercent)
}

func TestFixtureFetcherSkipsNullEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nulls.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- null\n- _id: \"3\"\n  name: Cap\n  price: 9\n- name: Orphan\n"), 0o600))

	products := NewFixtureFetcher(path).FetchProducts(context.Background())
	require.Len(t, products, 1)
	require.Equal(t, "3", products[0].ID)
}

func TestFixtureFetcherFailSoft(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("products: [\n"), 0o600))

	for _, path := range []string{broken, filepath.Join(dir, "missing.yaml")} {
		products := NewFixtureFetcher(path).FetchProducts(context.Background())
		require.NotNil(t, products)
		require.Empty(t, products)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Empty(t, NewFixtureFetcher("").FetchProducts(ctx))
}
