package catalog

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// usableFormats are the declared formats the pipeline can parse.
var usableFormats = map[string]string{
	"csv":  "csv",
	"json": "json",
}

// Resolve fetches a dataset's metadata and returns its usable resources.
// A dataset with no CSV/JSON resource yields an empty slice, not an error;
// callers report it as a normal outcome.
func (c *Client) Resolve(ctx context.Context, datasetID string) ([]Resource, error) {
	pkg, err := c.ckan.ShowPackage(ctx, datasetID)
	if err != nil {
		return nil, eris.Wrapf(ErrCatalogUnavailable, "catalog: show %s: %v", datasetID, err)
	}

	var resources []Resource
	for _, r := range pkg.Resources {
		format, ok := normalizeFormat(r.Format, r.URL)
		if !ok {
			continue
		}
		resources = append(resources, Resource{
			ID:        r.ID,
			DatasetID: datasetID,
			URL:       r.URL,
			Format:    format,
			Size:      r.Size,
		})
	}

	zap.L().Debug("catalog: resources resolved",
		zap.String("dataset", datasetID),
		zap.Int("total", len(pkg.Resources)),
		zap.Int("usable", len(resources)),
	)
	return resources, nil
}

// normalizeFormat maps a declared format to "csv"/"json", falling back to
// URL extension sniffing when the declaration is absent or unknown.
func normalizeFormat(declared, rawURL string) (string, bool) {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if f, ok := usableFormats[declared]; ok {
		return f, true
	}
	if declared != "" {
		// A recognized-but-unusable declaration (PDF, SHP, ...) is final:
		// extension sniffing only covers missing or junk declarations.
		if isKnownFormat(declared) {
			return "", false
		}
	}
	return sniffURLFormat(rawURL)
}

// isKnownFormat reports declarations the catalog uses for non-tabular files.
func isKnownFormat(declared string) bool {
	switch declared {
	case "pdf", "xml", "xls", "xlsx", "zip", "shp", "html", "rdf", "ods", "geojson", "kml", "txt":
		return true
	}
	return false
}

// sniffURLFormat inspects the URL path extension.
func sniffURLFormat(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	f, ok := usableFormats[ext]
	return f, ok
}
