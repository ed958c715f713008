package models

import (
	"strings"
	"time"
)

// Category identifies which published table a staging item targets.
// Assigned at creation and never changed afterwards.
type Category string

const (
	CategoryActivities  Category = "activities"
	CategoryRestaurants Category = "restaurants"
	CategoryHotels      Category = "hotels"
	CategoryShopping    Category = "shopping"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryActivities, CategoryRestaurants, CategoryHotels, CategoryShopping:
		return true
	}
	return false
}

// Status is the review state of a staging item.
// Allowed transitions: pending -> approved, pending -> rejected, approved -> published.
// Rejected and published items stay in the table and remain queryable.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPublished Status = "published"
)

// ValidStatus reports whether s is a known review state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusPublished:
		return true
	}
	return false
}

// Facilities are keyword-detected amenity flags extracted from scraped content.
type Facilities struct {
	Wifi        bool `json:"wifi,omitempty"`
	Parking     bool `json:"parking,omitempty"`
	Toilets     bool `json:"toilets,omitempty"`
	GiftShop    bool `json:"gift_shop,omitempty"`
	AudioGuide  bool `json:"audio_guide,omitempty"`
	GuidedTours bool `json:"guided_tours,omitempty"`
	Cafe        bool `json:"cafe,omitempty"`
}

// Any reports whether at least one facility flag is set.
func (f Facilities) Any() bool {
	return f.Wifi || f.Parking || f.Toilets || f.GiftShop || f.AudioGuide || f.GuidedTours || f.Cafe
}

// Accessibility flags extracted from scraped content.
type Accessibility struct {
	WheelchairAccessible bool `json:"wheelchair_accessible,omitempty"`
	StrollerFriendly     bool `json:"stroller_friendly,omitempty"`
	KidFriendly          bool `json:"kid_friendly,omitempty"`
	SeniorFriendly       bool `json:"senior_friendly,omitempty"`
}

func (a Accessibility) Any() bool {
	return a.WheelchairAccessible || a.StrollerFriendly || a.KidFriendly || a.SeniorFriendly
}

// PracticalInfo holds visitor logistics extracted from scraped content.
type PracticalInfo struct {
	DressCode          string `json:"dress_code,omitempty"`
	PhotographyAllowed bool   `json:"photography_allowed,omitempty"`
	EntryRequirements  string `json:"entry_requirements,omitempty"`
}

// OriginalContent is a snapshot of the text fields before AI enhancement,
// kept so editors can always see what the model rewrote.
type OriginalContent struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

// EnhancementLogEntry is one audit record of an AI enhancement pass.
type EnhancementLogEntry struct {
	Timestamp        time.Time `json:"timestamp"`
	EnhancementType  string    `json:"enhancement_type"`
	Audience         string    `json:"audience"`
	Style            string    `json:"style"`
	Model            string    `json:"model"`
	InputTitle       string    `json:"input_title"`
	OutputTitle      string    `json:"output_title"`
	ConfidenceBefore int       `json:"confidence_before"`
	ConfidenceAfter  int       `json:"confidence_after"`
	ProcessingMs     int64     `json:"processing_ms"`
}

// RawContent is the structured working document attached to a staging item.
// It is schema-on-read: every field is optional and fields are merged, never
// replaced wholesale, when new data arrives. Stored as one JSON column.
type RawContent struct {
	Description  string         `json:"description,omitempty"`
	Highlights   []string       `json:"highlights,omitempty"`
	WhyVisit     []string       `json:"why_visit,omitempty"`
	InsiderTips  []string       `json:"insider_tips,omitempty"`
	OpeningHours []string       `json:"opening_hours,omitempty"`
	Facilities   *Facilities    `json:"facilities,omitempty"`
	Access       *Accessibility `json:"accessibility,omitempty"`
	Practical    *PracticalInfo `json:"practical_info,omitempty"`

	// Commerce fields copied into published rows at publish time.
	Price       string  `json:"price,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`

	// External references used by enrichment and rescrape.
	Website string `json:"website,omitempty"`
	PlaceID string `json:"place_id,omitempty"`

	// Provenance and audit trail.
	Original         *OriginalContent      `json:"original_content,omitempty"`
	EnhancementLog   []EnhancementLogEntry `json:"enhancement_log,omitempty"`
	EnrichedAt       *time.Time            `json:"enriched_at,omitempty"`
	EnrichmentSource string                `json:"enrichment_source,omitempty"`

	// Thumbnail override metadata set by editors.
	ThumbnailIndex  *int   `json:"thumbnail_index,omitempty"`
	ThumbnailReason string `json:"thumbnail_reason,omitempty"`
}

// SnapshotOriginal stores the current text fields under Original if no
// snapshot exists yet. First enhancement wins; later passes keep the
// earliest version.
func (rc *RawContent) SnapshotOriginal(title string) {
	if rc.Original != nil {
		return
	}
	rc.Original = &OriginalContent{
		Title:       title,
		Description: rc.Description,
		Highlights:  append([]string(nil), rc.Highlights...),
		SavedAt:     time.Now().UTC(),
	}
}

// SearchText flattens the textual fields into one lowercase blob for
// keyword heuristics (subcategory derivation).
func (rc *RawContent) SearchText(title string) string {
	parts := []string{title, rc.Description}
	parts = append(parts, rc.Highlights...)
	parts = append(parts, rc.WhyVisit...)
	parts = append(parts, rc.InsiderTips...)
	return strings.ToLower(strings.Join(parts, " "))
}

// StagingItem is a venue candidate awaiting review before publication.
type StagingItem struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Category        Category   `json:"category"`
	Status          Status     `json:"status"`
	Images          []string   `json:"images"`
	PrimaryImage    *string    `json:"primary_image,omitempty"`
	ConfidenceScore int        `json:"confidence_score"`
	Raw             RawContent `json:"raw_content"`
	SourceURLs      []string   `json:"source_urls,omitempty"`
	ScrapingJobID   *string    `json:"scraping_job_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HeroImage returns the explicit primary image when set, otherwise the
// first entry of Images, otherwise "".
func (s *StagingItem) HeroImage() string {
	if s.PrimaryImage != nil && *s.PrimaryImage != "" {
		return *s.PrimaryImage
	}
	if len(s.Images) > 0 {
		return s.Images[0]
	}
	return ""
}

// BumpConfidence raises the confidence score by delta, capped at 100.
// Enhancement never lowers confidence, so negative deltas are ignored.
func (s *StagingItem) BumpConfidence(delta int) {
	if delta <= 0 {
		return
	}
	s.ConfidenceScore += delta
	if s.ConfidenceScore > 100 {
		s.ConfidenceScore = 100
	}
}

// StagingStats are the aggregate counts behind the back-office dashboard.
type StagingStats struct {
	Total          int              `json:"total"`
	ByStatus       map[Status]int   `json:"by_status"`
	ByCategory     map[Category]int `json:"by_category"`
	HighConfidence int              `json:"high_confidence"`   // score >= 85
	MediumConfidence int            `json:"medium_confidence"` // 60..84
	LowConfidence  int              `json:"low_confidence"`    // < 60
}
