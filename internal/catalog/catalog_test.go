package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/opendata-cli/pkg/ckan"
)

// fakeCKAN is a canned ckan.Client.
type fakeCKAN struct {
	searchResults []ckan.Package
	searchErr     error
	packages      map[string]*ckan.Package
	showErr       error
}

func (f *fakeCKAN) SearchPackages(_ context.Context, _ string, _ int) ([]ckan.Package, error) {
	return f.searchResults, f.searchErr
}

func (f *fakeCKAN) ShowPackage(_ context.Context, packageID string) (*ckan.Package, error) {
	if f.showErr != nil {
		return nil, f.showErr
	}
	pkg, ok := f.packages[packageID]
	if !ok {
		return nil, errors.New("not found")
	}
	return pkg, nil
}

func TestSearchPreservesCatalogOrder(t *testing.T) {
	c := New(&fakeCKAN{searchResults: []ckan.Package{
		{ID: "first", Title: "First", Organization: ckan.Organization{Title: "Org A"}},
		{ID: "second", Title: "Second"},
		{ID: "third", Title: "Third"},
	}}, 100)

	got, err := c.Search(context.Background(), "incidenti")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "Org A", got[0].Organization)
	assert.Equal(t, "third", got[2].ID)

	// Scores decrease with position.
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.Greater(t, got[1].Score, got[2].Score)
}

func TestSearchEmptyKeyword(t *testing.T) {
	c := New(&fakeCKAN{}, 100)

	for _, keyword := range []string{"", "   ", "\t"} {
		_, err := c.Search(context.Background(), keyword)
		assert.ErrorIs(t, err, ErrInvalidQuery, "keyword %q", keyword)
	}
}

func TestSearchCatalogFailure(t *testing.T) {
	c := New(&fakeCKAN{searchErr: errors.New("503")}, 100)

	_, err := c.Search(context.Background(), "incidenti")
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestSearchNoMatches(t *testing.T) {
	c := New(&fakeCKAN{}, 100)

	got, err := c.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveFiltersToUsableFormats(t *testing.T) {
	c := New(&fakeCKAN{packages: map[string]*ckan.Package{
		"ds1": {ID: "ds1", Resources: []ckan.Resource{
			{ID: "r1", URL: "http://x/a.csv", Format: "CSV"},
			{ID: "r2", URL: "http://x/b.pdf", Format: "PDF"},
			{ID: "r3", URL: "http://x/c.json", Format: "JSON"},
			{ID: "r4", URL: "http://x/d.zip", Format: "ZIP"},
		}},
	}}, 100)

	got, err := c.Resolve(context.Background(), "ds1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, "csv", got[0].Format)
	assert.Equal(t, "ds1", got[0].DatasetID)
	assert.Equal(t, "r3", got[1].ID)
	assert.Equal(t, "json", got[1].Format)
}

func TestResolveSniffsURLWhenFormatBlank(t *testing.T) {
	c := New(&fakeCKAN{packages: map[string]*ckan.Package{
		"ds1": {ID: "ds1", Resources: []ckan.Resource{
			{ID: "r1", URL: "http://x/data.csv?download=1", Format: ""},
			{ID: "r2", URL: "http://x/data.json", Format: ""},
			{ID: "r3", URL: "http://x/data", Format: ""},
		}},
	}}, 100)

	got, err := c.Resolve(context.Background(), "ds1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "csv", got[0].Format)
	assert.Equal(t, "json", got[1].Format)
}

func TestResolveDeclaredFormatBlocksSniffing(t *testing.T) {
	// A resource declared PDF is never rescued by its URL extension.
	c := New(&fakeCKAN{packages: map[string]*ckan.Package{
		"ds1": {ID: "ds1", Resources: []ckan.Resource{
			{ID: "r1", URL: "http://x/report.csv", Format: "PDF"},
		}},
	}}, 100)

	got, err := c.Resolve(context.Background(), "ds1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveNoUsableResources(t *testing.T) {
	c := New(&fakeCKAN{packages: map[string]*ckan.Package{
		"ds1": {ID: "ds1", Resources: []ckan.Resource{
			{ID: "r1", URL: "http://x/a.pdf", Format: "PDF"},
		}},
	}}, 100)

	got, err := c.Resolve(context.Background(), "ds1")
	require.NoError(t, err, "no usable resource is a normal outcome, not an error")
	assert.Empty(t, got)
}

func TestResolveShowFailure(t *testing.T) {
	c := New(&fakeCKAN{showErr: errors.New("timeout")}, 100)

	_, err := c.Resolve(context.Background(), "ds1")
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}
