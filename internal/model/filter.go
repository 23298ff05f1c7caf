package model

// Filter narrows a search or listing to a subset of papers by category,
// published_date range, or arxiv_id.
type Filter struct {
	Categories    []string
	ArxivID       string
	PublishedFrom *string
	PublishedTo   *string
}
