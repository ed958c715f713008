// Package events defines the append-only audit trail of staging lifecycle
// actions. Payloads stay small and JSON-friendly so they can be replayed or
// inspected without coupling to the main tables. Event persistence is
// best-effort: callers log a warning on failure and continue.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event is the base interface for staging audit events.
type Event interface {
	Type() string
	StagingID() int64
	Timestamp() time.Time
	Admin() *string
	MarshalData() ([]byte, error)
}

// Base contains common event metadata.
type Base struct {
	Ts  time.Time `json:"ts"`
	SID int64     `json:"staging_id"`
	Adm *string   `json:"admin,omitempty"`
}

func (b Base) Timestamp() time.Time { return b.Ts }
func (b Base) StagingID() int64     { return b.SID }
func (b Base) Admin() *string       { return b.Adm }

// NewBase stamps an event with the current time.
func NewBase(stagingID int64, admin *string) Base {
	return Base{Ts: time.Now().UTC(), SID: stagingID, Adm: admin}
}

const (
	TypeApproved            = "item.approved"
	TypeRejected            = "item.rejected"
	TypePublished           = "item.published"
	TypeEnhanced            = "item.enhanced"
	TypeEnriched            = "item.enriched"
	TypeThumbnailOverridden = "item.thumbnail_overridden"
	TypeImagesUpdated       = "item.images_updated"
)

// ItemApproved is emitted when an editor approves a staging item.
type ItemApproved struct {
	Base
	Notes string `json:"notes,omitempty"`
}

func (e ItemApproved) Type() string                 { return TypeApproved }
func (e ItemApproved) MarshalData() ([]byte, error) { return json.Marshal(e) }

// ItemRejected is emitted when an editor rejects a staging item.
type ItemRejected struct {
	Base
	Notes string `json:"notes,omitempty"`
}

func (e ItemRejected) Type() string                 { return TypeRejected }
func (e ItemRejected) MarshalData() ([]byte, error) { return json.Marshal(e) }

// ItemPublished captures the published row an approved item became.
type ItemPublished struct {
	Base
	EntityID int64  `json:"entity_id"`
	Category string `json:"category"`
	Slug     string `json:"slug"`
}

func (e ItemPublished) Type() string                 { return TypePublished }
func (e ItemPublished) MarshalData() ([]byte, error) { return json.Marshal(e) }

// ItemEnhanced records an AI enhancement pass.
type ItemEnhanced struct {
	Base
	Model           string `json:"model"`
	EnhancementType string `json:"enhancement_type"`
	Audience        string `json:"audience"`
	Style           string `json:"style"`
	ConfidenceAfter int    `json:"confidence_after"`
}

func (e ItemEnhanced) Type() string                 { return TypeEnhanced }
func (e ItemEnhanced) MarshalData() ([]byte, error) { return json.Marshal(e) }

// ItemEnriched records an external content enrichment pass.
type ItemEnriched struct {
	Base
	SourceURL      string   `json:"source_url"`
	CreditsUsed    int      `json:"credits_used"`
	EnrichedFields []string `json:"enriched_fields,omitempty"`
}

func (e ItemEnriched) Type() string                 { return TypeEnriched }
func (e ItemEnriched) MarshalData() ([]byte, error) { return json.Marshal(e) }

// ThumbnailOverridden records a manual hero image override.
type ThumbnailOverridden struct {
	Base
	ThumbnailURL string `json:"thumbnail_url"`
	Reason       string `json:"reason,omitempty"`
}

func (e ThumbnailOverridden) Type() string                 { return TypeThumbnailOverridden }
func (e ThumbnailOverridden) MarshalData() ([]byte, error) { return json.Marshal(e) }

// ImagesUpdated records an image merge or replacement during rescrape.
type ImagesUpdated struct {
	Base
	Mode      string `json:"mode"` // append|replace
	Added     int    `json:"added"`
	Total     int    `json:"total"`
	Shortfall int    `json:"shortfall,omitempty"`
}

func (e ImagesUpdated) Type() string                 { return TypeImagesUpdated }
func (e ImagesUpdated) MarshalData() ([]byte, error) { return json.Marshal(e) }

// StoredEvent is a persisted event row read back for audit views.
type StoredEvent struct {
	ID        string    `json:"id"`
	StagingID int64     `json:"staging_id"`
	Type      string    `json:"type"`
	Admin     *string   `json:"admin,omitempty"`
	Data      string    `json:"data"`
	Ts        time.Time `json:"ts"`
}

// EventStore persists and queries audit events.
type EventStore interface {
	Append(ctx context.Context, e Event) error
	RecentByStagingID(ctx context.Context, stagingID int64, limit int) ([]StoredEvent, error)
}
