package loader

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/opendata-cli/internal/catalog"
)

// stubFetcher serves canned bytes keyed by URL.
type stubFetcher struct {
	bodies map[string]string
	err    error
}

func (s *stubFetcher) Download(_ context.Context, rawURL string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	body, ok := s.bodies[rawURL]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestLoadCSVResource(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{
		"http://example.com/data.csv": "via;lat;lon\nRoma;45.1;9.2\nRoma;45.1;9.2\n",
	}}
	l := New(f, Options{SampleRows: 10})

	tbl, err := l.Load(context.Background(), catalog.Resource{
		ID:     "r1",
		URL:    "http://example.com/data.csv",
		Format: "csv",
	})
	require.NoError(t, err)

	// The duplicate row is dropped.
	assert.Equal(t, 1, tbl.RowCount())
	v, _ := tbl.Value(0, "via")
	assert.Equal(t, "Roma", v)
}

func TestLoadFallsBackAcrossFormats(t *testing.T) {
	// Declared CSV but the body is JSON; the chain falls back.
	f := &stubFetcher{bodies: map[string]string{
		"http://example.com/data.csv": "[\n{\"via\": \"Roma\", \"lat\": \"45.1\"}\n]",
	}}
	l := New(f, Options{})

	tbl, err := l.Load(context.Background(), catalog.Resource{
		ID:     "r1",
		URL:    "http://example.com/data.csv",
		Format: "csv",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.RowCount())
}

func TestLoadJSONPreferredWhenDeclared(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{
		"http://example.com/data.json": `[{"a": "1,2", "b": "3"}]`,
	}}
	l := New(f, Options{})

	tbl, err := l.Load(context.Background(), catalog.Resource{
		ID:     "r1",
		URL:    "http://example.com/data.json",
		Format: "json",
	})
	require.NoError(t, err)

	// Parsed as JSON, the embedded comma stays inside one cell.
	v, _ := tbl.Value(0, "a")
	assert.Equal(t, "1,2", v)
}

func TestLoadFetchFailure(t *testing.T) {
	f := &stubFetcher{err: errors.New("connection refused")}
	l := New(f, Options{})

	_, err := l.Load(context.Background(), catalog.Resource{URL: "http://example.com/x.csv", Format: "csv"})
	assert.ErrorIs(t, err, ErrFetch)
}

func TestLoadUnparsableContent(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{
		"http://example.com/page": "<html><body>not data</body></html>",
	}}
	l := New(f, Options{})

	_, err := l.Load(context.Background(), catalog.Resource{URL: "http://example.com/page", Format: "csv"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
