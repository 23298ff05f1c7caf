package model

// Chunk is a retrievable fragment of a paper. (paper_ref, chunk_index) is
// unique; embedding dimension is fixed by the embedding service.
type Chunk struct {
	ID          string    `json:"id"`
	PaperRef    string    `json:"paperRef"`
	ArxivID     string    `json:"arxivId"`
	PaperTitle  string    `json:"paperTitle"`
	ChunkIndex  int       `json:"chunkIndex"`
	Text        string    `json:"text"`
	SectionName string    `json:"sectionName,omitempty"`
	PageNumber  *int      `json:"pageNumber,omitempty"`
	WordCount   int       `json:"wordCount"`
	Embedding   []float32 `json:"-"`
}

// Source is the citation-facing shape of a chunk's parent paper, used in
// the "sources" SSE event and in a persisted ConversationTurn.
type Source struct {
	ArxivID           string   `json:"arxivId"`
	Title             string   `json:"title"`
	Authors           []string `json:"authors"`
	PDFURL            string   `json:"pdfUrl"`
	RelevanceScore    float64  `json:"relevanceScore"`
	PublishedDate     *string  `json:"publishedDate,omitempty"`
	WasGradedRelevant *bool    `json:"wasGradedRelevant,omitempty"`
}
