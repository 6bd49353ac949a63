package models

import "time"

// ImageInfo is a figure extracted from a paper, ready to be placed in the blog post.
type ImageInfo struct {
	Caption  string `json:"caption" yaml:"caption"`
	URL      string `json:"url" yaml:"url"`
	Markdown string `json:"markdown" yaml:"-"`
}

// Table is a table extracted from a paper; the first row is the header.
type Table [][]string

// BlogPost is the generated article.
type BlogPost struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// ConversionResponse is returned to callers for every conversion.
// Error is set when no usable content could be produced.
type ConversionResponse struct {
	ID           string      `json:"id,omitempty"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	Summary      string      `json:"summary"`
	Language     string      `json:"language"`
	Images       []ImageInfo `json:"images"`
	Tags         []string    `json:"tags"`
	MarkdownPath string      `json:"markdown_path,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// ConversionRecord tracks a finished conversion for the running server
type ConversionRecord struct {
	ID               string              `json:"id"`
	Source           string              `json:"source"`
	OriginalFilename string              `json:"original_filename,omitempty"`
	Language         string              `json:"language"`
	Response         *ConversionResponse `json:"response"`
	CreatedAt        time.Time           `json:"created_at"`
}

// ArtifactRecord is the sidecar metadata saved next to a converted markdown file.
type ArtifactRecord struct {
	PaperIdentifier     string      `yaml:"paper_identifier"`
	OriginalFilename    string      `yaml:"original_filename"`
	Language            string      `yaml:"language"`
	ConversionTimestamp string      `yaml:"conversion_timestamp"`
	Title               string      `yaml:"title,omitempty"`
	Tags                []string    `yaml:"tags,omitempty"`
	Error               string      `yaml:"error,omitempty"`
	Figures             []ImageInfo `yaml:"figures"`
}
