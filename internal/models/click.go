package models

import "time"

// Placeholder labels applied to click events when no real referrer tracking
// or geolocation is wired in. The registry stamps every accepted visit with
// these values; the archive may carry richer transport context.
const (
	ClickSourceDirect    = "direct"
	ClickLocationUnknown = "unknown"
)

// ClickEvent is one accepted visit to a short link, held on the Link record
// itself. Events are append-only and their slice order is the chronological
// order of the visits, so len(ClickEvents) always equals the Clicks counter.
type ClickEvent struct {
	// Timestamp records the exact moment when the visit was accepted
	Timestamp time.Time `json:"timestamp"`

	// Source is a label identifying the visit's origin (ClickSourceDirect
	// unless a referrer was captured at the transport boundary)
	Source string `json:"source"`

	// Location is a coarse location label (always ClickLocationUnknown in
	// this build, no geolocation lookup is performed)
	Location string `json:"location"`
}

// Click represents a click event persisted to the analytics archive.
// Rows are written asynchronously by the click workers and only feed the
// stats views; the Link record's ClickEvents slice stays the source of
// truth for the counters.
type Click struct {
	// ID is the primary key with auto-increment functionality
	ID uint `gorm:"primaryKey" json:"id"`

	// LinkID references the registry link that was visited
	// - index: efficient queries when counting or listing clicks per link
	LinkID uint `gorm:"index" json:"link_id"`

	// ShortCode is denormalized alongside LinkID so archive rows stay
	// readable without a join against the in-memory registry
	ShortCode string `gorm:"size:20;index" json:"short_code"`

	// Timestamp records when the visit was accepted by the registry
	Timestamp time.Time `json:"timestamp"`

	// Source mirrors the event's origin label (referrer host or "direct")
	Source string `gorm:"size:255" json:"source"`

	// Location mirrors the event's coarse location label
	Location string `gorm:"size:100" json:"location"`

	// UserAgent stores the raw browser/client string from the HTTP request
	// - size:255: limits the database column to 255 characters
	UserAgent string `gorm:"size:255" json:"user_agent,omitempty"`

	// IPAddress stores the IP address of the visitor
	// - size:50: sufficient for both IPv4 and IPv6 addresses
	IPAddress string `gorm:"size:50" json:"ip_address,omitempty"`
}
