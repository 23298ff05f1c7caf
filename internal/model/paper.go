package model

import "time"

// Section is a named portion of a paper's extracted text (e.g. "Abstract", "Introduction").
type Section struct {
	Name string `json:"name"`
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Paper is a research paper in the corpus. Created by ingestion (out of scope
// here); the core only reads these rows.
type Paper struct {
	ID            string    `json:"id"`
	ArxivID       string    `json:"arxivId"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors"`
	Abstract      string    `json:"abstract"`
	Categories    []string  `json:"categories"`
	PublishedDate time.Time `json:"publishedDate"`
	PDFURL        string    `json:"pdfUrl"`
	RawText       string    `json:"-"`
	Sections      []Section `json:"sections,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
