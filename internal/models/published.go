package models

import "time"

// PublishedEntity is a row in one of the per-category published tables.
// It is derived 1:1 from an approved StagingItem at publish time and is
// immutable at creation; later edits happen outside this system.
type PublishedEntity struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Description     string          `json:"description"`
	Category        Category        `json:"category"`
	Subcategory     string          `json:"subcategory"`
	Images          []string        `json:"images"`
	PrimaryImage    *string         `json:"primary_image,omitempty"`
	Price           string          `json:"price"`
	Duration        string          `json:"duration"`
	Rating          float64         `json:"rating"`
	ReviewCount     int             `json:"review_count"`
	Featured        bool            `json:"featured"`
	ConfidenceScore int             `json:"confidence_score"`
	Metadata        PublishMetadata `json:"metadata"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PublishMetadata preserves full provenance of a published row so any
// entity can be traced back to the staging record it came from.
type PublishMetadata struct {
	OriginalStagingID int64      `json:"original_staging_id"`
	ScrapingJobID     *string    `json:"scraping_job_id,omitempty"`
	SourceURLs        []string   `json:"source_urls,omitempty"`
	RawContent        RawContent `json:"raw_content"`
	PublishedAt       time.Time  `json:"published_at"`
}
