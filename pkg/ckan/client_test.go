package ckan

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPackages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/package_search", r.URL.Path)
		assert.Equal(t, "incidenti stradali", r.URL.Query().Get("q"))
		assert.Equal(t, "50", r.URL.Query().Get("rows"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		fmt.Fprint(w, `{
			"success": true,
			"result": {
				"count": 2,
				"results": [
					{"id": "ds1", "title": "Incidenti 2023", "organization": {"name": "comune-milano", "title": "Comune di Milano"}},
					{"id": "ds2", "title": "Incidenti 2022"}
				]
			}
		}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithUserAgent("test-agent"))

	pkgs, err := c.SearchPackages(context.Background(), "incidenti stradali", 50)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "ds1", pkgs[0].ID)
	assert.Equal(t, "Comune di Milano", pkgs[0].Organization.Title)
}

func TestSearchPackagesDefaultRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("rows"))
		fmt.Fprint(w, `{"success": true, "result": {"count": 0, "results": []}}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	pkgs, err := c.SearchPackages(context.Background(), "x", 0)
	require.NoError(t, err)
	assert.Empty(t, pkgs)
}

func TestSearchPackagesEnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"success": false}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.SearchPackages(context.Background(), "x", 10)
	assert.Error(t, err)
}

func TestSearchPackagesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.SearchPackages(context.Background(), "x", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestShowPackage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/package_show", r.URL.Path)
		assert.Equal(t, "ds1", r.URL.Query().Get("id"))

		fmt.Fprint(w, `{
			"success": true,
			"result": {
				"id": "ds1",
				"title": "Incidenti 2023",
				"resources": [
					{"id": "r1", "url": "http://x/data.csv", "format": "CSV", "size": 1024}
				]
			}
		}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	pkg, err := c.ShowPackage(context.Background(), "ds1")
	require.NoError(t, err)
	require.Len(t, pkg.Resources, 1)
	assert.Equal(t, "CSV", pkg.Resources[0].Format)
	assert.Equal(t, int64(1024), pkg.Resources[0].Size)
}

func TestShowPackageMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"success": tru`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.ShowPackage(context.Background(), "ds1")
	assert.Error(t, err)
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.SearchPackages(ctx, "x", 10)
	assert.Error(t, err)
}

func TestFractionalRateLimitStillAdmitsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"success": true, "result": {"count": 0, "results": []}}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0.5))
	_, err := c.SearchPackages(ctx, "x", 10)
	require.NoError(t, err)
}
