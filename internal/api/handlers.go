package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/models"
	"github.com/axellelanca/shortlink/internal/registry"
	"github.com/axellelanca/shortlink/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

// ClickQueue is the global channel used to send archive rows to the click
// workers. It enables asynchronous click archiving without blocking URL
// redirection: the redirect handler enqueues with a non-blocking send and
// drops the row when the buffer is full.
var ClickQueue chan models.Click

// recentClicksLimit caps the archived clicks returned by the stats endpoint.
const recentClicksLimit = 50

// SetupRoutes configures all Gin API routes and injects necessary dependencies.
// Parameters:
//   - router: Gin engine instance to configure routes on
//   - reg: the in-memory link registry (source of truth for links and counters)
//   - clickRepo: archive repository feeding the stats views
//   - baseURL: base URL used to build full short links
//   - limiter: per-IP rate limiter applied to the whole API, nil to disable
//   - bufferSize: size of the click queue buffer for async archiving
func SetupRoutes(router *gin.Engine, reg *registry.Registry, clickRepo repository.ClickRepository, baseURL string, limiter *IPRateLimiter, bufferSize int) {
	// Initialize the global click queue if it hasn't been created yet
	if ClickQueue == nil {
		ClickQueue = make(chan models.Click, bufferSize)
	}

	router.Use(RequestIDMiddleware())
	if limiter != nil {
		router.Use(RateLimitMiddleware(limiter))
	}

	// Health Check Route - used for monitoring service availability
	router.GET("/health", HealthCheckHandler)

	// API Routes Group - all business logic endpoints under /api/v1 prefix
	api := router.Group("/api/v1")
	{
		// POST endpoint for creating new shortened links (supports single and multiple URLs)
		api.POST("/links", CreateShortLinkHandler(reg, baseURL))
		// GET endpoint listing all held links with expiry status and cap usage
		api.GET("/links", ListLinksHandler(reg))
		// GET endpoint for retrieving click statistics for a specific short code
		api.GET("/links/:shortCode/stats", GetLinkStatsHandler(reg, clickRepo))
		// GET endpoint returning a QR code PNG for a short link
		api.GET("/links/:shortCode/qr", QRCodeHandler(reg, baseURL))
	}

	// Redirection Route - handles the actual URL redirection at root level
	// This is where users access their short URLs (e.g., localhost:8080/abc123)
	router.GET("/:shortCode", RedirectHandler(reg))
}

// HealthCheckHandler handles the /health route to verify service status.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateLinkRequest represents the JSON request body for creating one or
// multiple links. Supports both formats:
// Single: {"long_url": "https://example.com", "validity_minutes": 30, "custom_code": "mycode"}
// Multiple: {"long_urls": ["https://example.com", "https://google.com"]}
// Batch items take no validity or custom code; those only apply to the
// single-URL form.
type CreateLinkRequest struct {
	LongURL         string   `json:"long_url"`                   // Single URL (optional)
	ValidityMinutes *int     `json:"validity_minutes,omitempty"` // Optional TTL in minutes
	CustomCode      string   `json:"custom_code,omitempty"`      // Optional caller-chosen shortcode
	LongURLs        []string `json:"long_urls"`                  // Multiple URLs (optional)
}

// CreateLinkResponse represents the response for a single link creation.
// Also used as an element of the results array for batch requests.
type CreateLinkResponse struct {
	ShortCode    string     `json:"short_code,omitempty"`     // The allocated short code
	LongURL      string     `json:"long_url"`                 // The original long URL
	FullShortURL string     `json:"full_short_url,omitempty"` // Complete shortened URL ready to use
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`     // Expiry instant when a validity was given
	Success      bool       `json:"success"`                  // Whether this URL was shortened
	Error        string     `json:"error,omitempty"`          // Failure message when Success is false
}

// CreateLinksResponse represents the response for a batch link creation,
// with individual results plus aggregate statistics.
type CreateLinksResponse struct {
	Results []CreateLinkResponse `json:"results"`
	Summary struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
	} `json:"summary"`
}

// CreateShortLinkHandler handles the creation of one or multiple shortened URLs.
// It detects the request format and routes to the matching processing logic.
// Business failures map to structured responses: per-field validation errors
// to 400, the capacity failure to 409, generator exhaustion to 503.
func CreateShortLinkHandler(reg *registry.Registry, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			// A malformed body or a non-numeric validity fails the typed
			// bind; the registry never sees loosely-typed input.
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		if len(req.LongURLs) > 0 {
			handleMultipleURLs(c, reg, baseURL, req.LongURLs)
			return
		}
		handleSingleURL(c, reg, baseURL, req)
	}
}

// handleSingleURL processes a single URL request.
func handleSingleURL(c *gin.Context, reg *registry.Registry, baseURL string, req CreateLinkRequest) {
	link, err := reg.Create(registry.CreateLinkRequest{
		LongURL:         req.LongURL,
		ValidityMinutes: req.ValidityMinutes,
		CustomCode:      req.CustomCode,
	})
	if err != nil {
		writeCreateError(c, err)
		return
	}

	resp := gin.H{
		"short_code":     link.ShortCode,
		"long_url":       link.LongURL,
		"full_short_url": baseURL + "/" + link.ShortCode,
	}
	if link.ExpiresAt != nil {
		resp["expires_at"] = link.ExpiresAt
	}
	c.JSON(http.StatusCreated, resp)
}

// handleMultipleURLs processes a batch of URLs, tracking per-URL results so
// some URLs can succeed even when others fail (for example when the registry
// fills up mid-batch).
func handleMultipleURLs(c *gin.Context, reg *registry.Registry, baseURL string, urls []string) {
	var results []CreateLinkResponse
	successful := 0
	failed := 0

	for _, longURL := range urls {
		result := CreateLinkResponse{LongURL: longURL}

		link, err := reg.Create(registry.CreateLinkRequest{LongURL: longURL})
		if err != nil {
			result.Success = false
			result.Error = createErrorMessage(err)
			failed++
		} else {
			result.Success = true
			result.ShortCode = link.ShortCode
			result.FullShortURL = baseURL + "/" + link.ShortCode
			successful++
		}
		results = append(results, result)
	}

	response := CreateLinksResponse{Results: results}
	response.Summary.Total = len(urls)
	response.Summary.Successful = successful
	response.Summary.Failed = failed

	// 201 when everything succeeded, 400 when nothing did, 207 for a mix.
	var statusCode int
	switch {
	case failed == 0:
		statusCode = http.StatusCreated
	case successful == 0:
		statusCode = http.StatusBadRequest
	default:
		statusCode = http.StatusMultiStatus
	}
	c.JSON(statusCode, response)
}

// writeCreateError maps a registry creation failure to its HTTP response.
func writeCreateError(c *gin.Context, err error) {
	if verr, ok := customerrors.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
		return
	}
	if errors.Is(err, customerrors.ErrLinkCapReached) {
		c.JSON(http.StatusConflict, gin.H{"error": customerrors.ErrLinkCapReached.Error()})
		return
	}
	if errors.Is(err, customerrors.ErrShortCodeGenerationFailed) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Unable to generate unique short code. Please try again later."})
		return
	}
	slog.Error("Error creating link", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create short link"})
}

// createErrorMessage flattens a creation failure to one line for batch results.
func createErrorMessage(err error) string {
	if verr, ok := customerrors.AsValidation(err); ok {
		return verr.Error()
	}
	if errors.Is(err, customerrors.ErrLinkCapReached) {
		return customerrors.ErrLinkCapReached.Error()
	}
	if errors.Is(err, customerrors.ErrShortCodeGenerationFailed) {
		return "Unable to generate unique short code"
	}
	return "Failed to create short link"
}

// RedirectHandler handles the redirection from a short URL to the original
// long URL. The visit goes through the registry first: unknown codes return
// 404, expired links 410 with their counters left frozen. Accepted visits
// additionally enqueue an archive row for the click workers, without ever
// blocking the redirect itself.
func RedirectHandler(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")

		link, accepted, err := reg.RecordVisit(shortCode)
		if err != nil {
			if errors.Is(err, customerrors.ErrShortCodeNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Short URL not found"})
				return
			}
			slog.Error("Error recording visit", "short_code", shortCode, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !accepted {
			c.JSON(http.StatusGone, gin.H{"error": "Short URL has expired"})
			return
		}

		// Capture transport context for the archive; the registry's own
		// event keeps the placeholder labels.
		click := models.Click{
			LinkID:    link.ID,
			ShortCode: link.ShortCode,
			Timestamp: time.Now(),
			Source:    clickSource(c.GetHeader("Referer")),
			Location:  models.ClickLocationUnknown,
			UserAgent: c.GetHeader("User-Agent"),
			IPAddress: c.ClientIP(),
		}

		// Non-blocking send: archiving never delays the user's redirect.
		select {
		case ClickQueue <- click:
			slog.Debug("Click queued for archiving", "short_code", shortCode, "link_id", link.ID)
		default:
			slog.Warn("Click queue is full, dropping click", "short_code", shortCode, "link_id", link.ID)
		}

		c.Redirect(http.StatusFound, link.LongURL)
	}
}

// clickSource derives the archive source label from the Referer header,
// falling back to the placeholder when there is none or it does not parse.
func clickSource(referer string) string {
	if referer == "" {
		return models.ClickSourceDirect
	}
	parsed, err := url.Parse(referer)
	if err != nil || parsed.Host == "" {
		return models.ClickSourceDirect
	}
	return parsed.Host
}

// ListLinksHandler returns all held links in creation order, with their
// expiry status plus the registry's occupancy and cap.
func ListLinksHandler(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		links := reg.Links()

		items := make([]gin.H, 0, len(links))
		for _, link := range links {
			item := gin.H{
				"short_code": link.ShortCode,
				"long_url":   link.LongURL,
				"created_at": link.CreatedAt,
				"clicks":     link.Clicks,
				"expired":    link.IsExpired(now),
			}
			if link.ExpiresAt != nil {
				item["expires_at"] = link.ExpiresAt
			}
			items = append(items, item)
		}

		c.JSON(http.StatusOK, gin.H{
			"links":    items,
			"count":    len(links),
			"capacity": reg.Capacity(),
		})
	}
}

// GetLinkStatsHandler handles the retrieval of statistics for a specific link:
// the registry record (counters and events) plus the most recent archived
// clicks with their transport context.
func GetLinkStatsHandler(reg *registry.Registry, clickRepo repository.ClickRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")

		link, err := reg.Get(shortCode)
		if err != nil {
			if errors.Is(err, customerrors.ErrShortCodeNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Short URL not found"})
				return
			}
			slog.Error("Error retrieving stats", "short_code", shortCode, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		// The archive is best-effort: when it fails, the registry's own
		// numbers still make a complete answer.
		recent, err := clickRepo.RecentClicksByShortCode(shortCode, recentClicksLimit)
		if err != nil {
			slog.Error("Error retrieving archived clicks", "short_code", shortCode, "error", err)
			recent = nil
		}

		resp := gin.H{
			"short_code":    link.ShortCode,
			"long_url":      link.LongURL,
			"total_clicks":  link.Clicks,
			"created_at":    link.CreatedAt,
			"expired":       link.IsExpired(time.Now()),
			"click_events":  link.ClickEvents,
			"recent_clicks": recent,
		}
		if link.ExpiresAt != nil {
			resp["expires_at"] = link.ExpiresAt
		}
		c.JSON(http.StatusOK, resp)
	}
}

// qrSizeDefault and bounds for the QR endpoint's ?size= query parameter.
const (
	qrSizeDefault = 256
	qrSizeMin     = 64
	qrSizeMax     = 1024
)

// QRCodeHandler returns a PNG QR code encoding the full short URL.
// Unknown codes return 404; the size query parameter is clamped to sane
// bounds so a caller cannot request an enormous image.
func QRCodeHandler(reg *registry.Registry, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")

		if _, err := reg.Get(shortCode); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Short URL not found"})
			return
		}

		size := qrSizeDefault
		if raw := c.Query("size"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "size must be a number"})
				return
			}
			size = parsed
		}
		if size < qrSizeMin {
			size = qrSizeMin
		}
		if size > qrSizeMax {
			size = qrSizeMax
		}

		png, err := qrcode.Encode(baseURL+"/"+shortCode, qrcode.Medium, size)
		if err != nil {
			slog.Error("Error generating QR code", "short_code", shortCode, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
			return
		}

		c.Data(http.StatusOK, "image/png", png)
	}
}
