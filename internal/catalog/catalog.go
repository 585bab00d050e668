// Package catalog wraps the CKAN API with the dataset and resource model the
// analysis pipeline works on.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opencivic/opendata-cli/pkg/ckan"
)

// ErrInvalidQuery reports an unusable search query. Fatal to the whole run.
var ErrInvalidQuery = errors.New("invalid query")

// ErrCatalogUnavailable reports a transport or parse failure talking to the
// catalog. Fatal to the whole run.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// DatasetSummary is one search hit.
type DatasetSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Organization string `json:"organization"`
	// Score is the hit's position-derived relevance: earlier hits rank
	// higher. The remote relevance order is never re-sorted locally.
	Score float64 `json:"score"`
}

// Resource is one downloadable file of a dataset, already normalized to a
// usable format.
type Resource struct {
	ID        string `json:"id"`
	DatasetID string `json:"dataset_id"`
	URL       string `json:"url"`
	Format    string `json:"format"` // "csv" or "json"
	Size      int64  `json:"size,omitempty"`
}

// Client searches the catalog and resolves dataset resources.
type Client struct {
	ckan ckan.Client
	rows int
}

// New creates a catalog Client over the given CKAN client.
func New(ckanClient ckan.Client, searchRows int) *Client {
	if searchRows <= 0 {
		searchRows = 100
	}
	return &Client{ckan: ckanClient, rows: searchRows}
}

// Search returns dataset summaries for a keyword, preserving the catalog's
// relevance order.
func (c *Client) Search(ctx context.Context, keyword string) ([]DatasetSummary, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, eris.Wrap(ErrInvalidQuery, "catalog: empty keyword")
	}

	pkgs, err := c.ckan.SearchPackages(ctx, keyword, c.rows)
	if err != nil {
		return nil, eris.Wrapf(ErrCatalogUnavailable, "catalog: search %q: %v", keyword, err)
	}

	summaries := make([]DatasetSummary, 0, len(pkgs))
	for i, p := range pkgs {
		id := p.ID
		if id == "" {
			id = p.Name
		}
		summaries = append(summaries, DatasetSummary{
			ID:           id,
			Title:        p.Title,
			Organization: p.Organization.Title,
			Score:        positionScore(i, len(pkgs)),
		})
	}

	zap.L().Info("catalog: search complete",
		zap.String("keyword", keyword),
		zap.Int("hits", len(summaries)),
	)
	return summaries, nil
}

// positionScore maps a hit's position to (0,1], highest first.
func positionScore(idx, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(total-idx) / float64(total)
}
