// Package registry contains the business logic layer for the URL shortener:
// it owns the collection of active short links, allocates and validates
// shortcodes, and records click events on accepted visits.
package registry

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/models"
)

// charset defines the character set used for generating short codes.
// Uses alphanumeric characters (both cases) for a total of 62 possible characters.
// This gives us 62^6 = ~56 billion possible combinations for 6-character codes.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// DefaultMaxLinks is the concurrent-link cap: the registry never holds
	// more records than this at any time.
	DefaultMaxLinks = 5

	// DefaultCodeLength is the length of generated short codes.
	DefaultCodeLength = 6

	// MinCustomCodeLength is the minimum length accepted for a
	// caller-chosen shortcode.
	MinCustomCodeLength = 3

	// maxGenerateAttempts bounds the regeneration loop when a generated
	// code collides with a held one.
	maxGenerateAttempts = 5
)

// CreateLinkRequest carries the typed fields of a link creation request.
// Transport layers are expected to parse their loose inputs (form values,
// flags) into these fields before calling Create; a nil ValidityMinutes
// means "never expires".
type CreateLinkRequest struct {
	LongURL         string
	ValidityMinutes *int
	CustomCode      string
}

// Options configures a Registry. The zero value of every field selects a
// sensible default, so callers only set what they need. Now and Generate
// exist mainly as seams for tests and alternative entropy sources.
type Options struct {
	MaxLinks   int
	CodeLength int
	Now        func() time.Time
	Generate   func(length int) (string, error)
}

// Registry owns the set of active short-link records. All reads and writes
// go through its methods under a single mutex: two concurrent creates with
// the same custom code, or two creates at the cap boundary, can never both
// succeed. Records handed out by its methods are deep copies, callers never
// share memory with the held collection.
type Registry struct {
	mu       sync.Mutex
	links    map[string]*models.Link // keyed by shortcode
	ordered  []*models.Link          // creation order, for listings
	nextID   uint
	maxLinks int
	codeLen  int
	now      func() time.Time
	generate func(length int) (string, error)
}

// New creates a Registry with the given options.
func New(opts Options) *Registry {
	if opts.MaxLinks <= 0 {
		opts.MaxLinks = DefaultMaxLinks
	}
	if opts.CodeLength <= 0 {
		opts.CodeLength = DefaultCodeLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Generate == nil {
		opts.Generate = GenerateShortCode
	}
	return &Registry{
		links:    make(map[string]*models.Link),
		nextID:   1,
		maxLinks: opts.MaxLinks,
		codeLen:  opts.CodeLength,
		now:      opts.Now,
		generate: opts.Generate,
	}
}

// GenerateShortCode generates a cryptographically secure random short code
// of the given length, drawing each character independently from the
// 62-character alphanumeric charset.
func GenerateShortCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// Create validates a creation request and, on success, allocates a shortcode,
// builds the record and inserts it into the held collection.
//
// The capacity gate runs first: once the registry is full the request is
// rejected with ErrLinkCapReached and no field validation happens at all.
// Field validation then collects every failing field into one
// ValidationError instead of stopping at the first:
//   - url: required, and must parse as an absolute URL
//   - validity: when present, must be a positive number of minutes
//   - shortcode: when present, must be at least MinCustomCodeLength
//     characters and must not collide with a held record
//
// When no custom code is given, a code is generated; collisions against held
// records trigger regeneration, bounded by maxGenerateAttempts.
func (r *Registry) Create(req CreateLinkRequest) (*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Capacity failure is deliberately general: reporting field errors for
	// a request that cannot be accepted anyway would only mislead callers.
	if len(r.links) >= r.maxLinks {
		return nil, customerrors.ErrLinkCapReached
	}

	verr := customerrors.NewValidationError()

	longURL := strings.TrimSpace(req.LongURL)
	if longURL == "" {
		verr.Add("url", "URL is required")
	} else if !isValidURL(longURL) {
		verr.Add("url", "invalid URL")
	}

	if req.ValidityMinutes != nil && *req.ValidityMinutes <= 0 {
		verr.Add("validity", "validity period must be a positive number")
	}

	customCode := strings.TrimSpace(req.CustomCode)
	if customCode != "" {
		if len(customCode) < MinCustomCodeLength {
			verr.Add("shortcode", "shortcode too short")
		} else if _, taken := r.links[customCode]; taken {
			verr.Add("shortcode", "shortcode already taken")
		}
	}

	if !verr.Empty() {
		return nil, verr
	}

	shortCode := customCode
	if shortCode == "" {
		code, err := r.uniqueCode()
		if err != nil {
			return nil, err
		}
		shortCode = code
	}

	now := r.now()
	link := &models.Link{
		ID:          r.nextID,
		ShortCode:   shortCode,
		LongURL:     longURL,
		CreatedAt:   now,
		Clicks:      0,
		ClickEvents: []models.ClickEvent{},
	}
	if req.ValidityMinutes != nil {
		expiresAt := now.Add(time.Duration(*req.ValidityMinutes) * time.Minute)
		link.ExpiresAt = &expiresAt
	}

	r.nextID++
	r.links[shortCode] = link
	r.ordered = append(r.ordered, link)

	return snapshot(link), nil
}

// RecordVisit records one click on the link held under shortCode.
//
// An unknown code returns ErrShortCodeNotFound. A held but expired link is
// rejected silently: the record comes back unchanged with accepted=false and
// its counters stay frozen. Otherwise exactly one ClickEvent is appended,
// the Clicks counter is incremented by exactly one and accepted=true.
func (r *Registry) RecordVisit(shortCode string) (*models.Link, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[shortCode]
	if !ok {
		return nil, false, customerrors.ErrShortCodeNotFound
	}

	now := r.now()
	if link.IsExpired(now) {
		return snapshot(link), false, nil
	}

	link.ClickEvents = append(link.ClickEvents, models.ClickEvent{
		Timestamp: now,
		Source:    models.ClickSourceDirect,
		Location:  models.ClickLocationUnknown,
	})
	link.Clicks++

	return snapshot(link), true, nil
}

// Get returns a copy of the link held under shortCode, expired or not.
func (r *Registry) Get(shortCode string) (*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[shortCode]
	if !ok {
		return nil, customerrors.ErrShortCodeNotFound
	}
	return snapshot(link), nil
}

// Links returns copies of all held records in creation order.
func (r *Registry) Links() []models.Link {
	r.mu.Lock()
	defer r.mu.Unlock()

	links := make([]models.Link, 0, len(r.ordered))
	for _, link := range r.ordered {
		links = append(links, *snapshot(link))
	}
	return links
}

// Len returns the number of records currently held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

// Capacity returns the concurrent-link cap.
func (r *Registry) Capacity() int {
	return r.maxLinks
}

// uniqueCode generates a code that does not collide with any held record.
// Collisions among generated codes are astronomically unlikely, but checking
// costs one map lookup; the loop gives up after maxGenerateAttempts rather
// than spinning forever on a broken generator. Callers must hold r.mu.
func (r *Registry) uniqueCode() (string, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		code, err := r.generate(r.codeLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}
		if _, taken := r.links[code]; !taken {
			return code, nil
		}
	}
	return "", customerrors.ErrShortCodeGenerationFailed
}

// isValidURL reports whether raw parses as an absolute URL with a host.
func isValidURL(raw string) bool {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}

// snapshot deep-copies a record so callers can read it without holding the
// registry mutex while visits keep mutating the original.
func snapshot(link *models.Link) *models.Link {
	cp := *link
	if link.ExpiresAt != nil {
		expiresAt := *link.ExpiresAt
		cp.ExpiresAt = &expiresAt
	}
	cp.ClickEvents = make([]models.ClickEvent, len(link.ClickEvents))
	copy(cp.ClickEvents, link.ClickEvents)
	return &cp
}
