package ckan

// Package is a CKAN dataset: a named collection of downloadable resources.
type Package struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Title        string       `json:"title"`
	Notes        string       `json:"notes,omitempty"`
	Organization Organization `json:"organization"`
	Resources    []Resource   `json:"resources"`
}

// Organization is the publishing body of a package.
type Organization struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Resource is one downloadable file attached to a package.
type Resource struct {
	ID        string `json:"id"`
	PackageID string `json:"package_id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Format    string `json:"format"`
	Size      int64  `json:"size,omitempty"`
	MimeType  string `json:"mimetype,omitempty"`
}

// searchResponse is the envelope returned by package_search.
type searchResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Count   int       `json:"count"`
		Results []Package `json:"results"`
	} `json:"result"`
}

// showResponse is the envelope returned by package_show.
type showResponse struct {
	Success bool    `json:"success"`
	Result  Package `json:"result"`
}
