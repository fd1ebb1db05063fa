package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/axellelanca/shortlink/internal/models"
	"github.com/axellelanca/shortlink/internal/registry"
	"github.com/axellelanca/shortlink/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const testBaseURL = "http://short.test"

// testClock lets a test move the registry's notion of now.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func setupTest(t *testing.T) (*gin.Engine, *registry.Registry, *repository.GormClickRepository, *testClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Click{}))
	clickRepo := repository.NewClickRepository(db)

	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	reg := registry.New(registry.Options{Now: clock.Now})

	// Fresh queue per test so assertions never see another test's clicks.
	ClickQueue = make(chan models.Click, 16)

	router := gin.New()
	SetupRoutes(router, reg, clickRepo, testBaseURL, nil, 16)
	return router, reg, clickRepo, clock
}

func postJSON(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _, _, _ := setupTest(t)

	w := get(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateShortLink(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		router, _, _, _ := setupTest(t)

		w := postJSON(router, "/api/v1/links", gin.H{"long_url": "https://example.com/page"})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		code := resp["short_code"].(string)
		assert.Len(t, code, 6)
		assert.Equal(t, "https://example.com/page", resp["long_url"])
		assert.Equal(t, testBaseURL+"/"+code, resp["full_short_url"])
		assert.NotContains(t, resp, "expires_at")
	})

	t.Run("Created With Validity And Custom Code", func(t *testing.T) {
		router, _, _, clock := setupTest(t)

		w := postJSON(router, "/api/v1/links", gin.H{
			"long_url":         "https://example.com",
			"validity_minutes": 30,
			"custom_code":      "launch",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			ShortCode string     `json:"short_code"`
			ExpiresAt *time.Time `json:"expires_at"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "launch", resp.ShortCode)
		require.NotNil(t, resp.ExpiresAt)
		assert.True(t, resp.ExpiresAt.Equal(clock.now.Add(30*time.Minute)))
	})

	t.Run("Validation Errors As Field Map", func(t *testing.T) {
		router, _, _, _ := setupTest(t)

		w := postJSON(router, "/api/v1/links", gin.H{
			"long_url":    "not a url",
			"custom_code": "ab",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Errors map[string]string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "invalid URL", resp.Errors["url"])
		assert.Equal(t, "shortcode too short", resp.Errors["shortcode"])
	})

	t.Run("Non Numeric Validity Rejected By Binding", func(t *testing.T) {
		router, _, _, _ := setupTest(t)

		w := postJSON(router, "/api/v1/links", gin.H{
			"long_url":         "https://example.com",
			"validity_minutes": "soon",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Capacity Reached", func(t *testing.T) {
		router, reg, _, _ := setupTest(t)

		for i := 0; i < reg.Capacity(); i++ {
			w := postJSON(router, "/api/v1/links", gin.H{"long_url": fmt.Sprintf("https://example.com/%d", i)})
			require.Equal(t, http.StatusCreated, w.Code)
		}

		w := postJSON(router, "/api/v1/links", gin.H{"long_url": "https://example.com/one-too-many"})
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "maximum concurrent links reached")
	})
}

func TestCreateShortLinkBatch(t *testing.T) {
	t.Run("All Successful", func(t *testing.T) {
		router, _, _, _ := setupTest(t)

		w := postJSON(router, "/api/v1/links", gin.H{
			"long_urls": []string{"https://example.com/a", "https://example.com/b"},
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp CreateLinksResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Summary.Total)
		assert.Equal(t, 2, resp.Summary.Successful)
		assert.Equal(t, 0, resp.Summary.Failed)
		for _, result := range resp.Results {
			assert.True(t, result.Success)
			assert.Len(t, result.ShortCode, 6)
		}
	})

	t.Run("Mixed Results", func(t *testing.T) {
		router, _, _, _ := setupTest(t)

		w := postJSON(router, "/api/v1/links", gin.H{
			"long_urls": []string{"https://example.com/good", "not a url"},
		})
		require.Equal(t, http.StatusMultiStatus, w.Code)

		var resp CreateLinksResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Summary.Successful)
		assert.Equal(t, 1, resp.Summary.Failed)
	})

	t.Run("Cap Hit Mid Batch", func(t *testing.T) {
		router, reg, _, _ := setupTest(t)

		urls := make([]string, reg.Capacity()+2)
		for i := range urls {
			urls[i] = fmt.Sprintf("https://example.com/%d", i)
		}

		w := postJSON(router, "/api/v1/links", gin.H{"long_urls": urls})
		require.Equal(t, http.StatusMultiStatus, w.Code)

		var resp CreateLinksResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, reg.Capacity(), resp.Summary.Successful)
		assert.Equal(t, 2, resp.Summary.Failed)
		assert.Contains(t, resp.Results[len(resp.Results)-1].Error, "maximum concurrent links reached")
	})
}

func TestRedirect(t *testing.T) {
	t.Run("Not Found", func(t *testing.T) {
		router, _, _, _ := setupTest(t)

		w := get(router, "/nosuch")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Found And Click Queued", func(t *testing.T) {
		router, reg, _, _ := setupTest(t)

		_, err := reg.Create(registry.CreateLinkRequest{LongURL: "https://example.com/target", CustomCode: "hop"})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/hop", nil)
		req.Header.Set("User-Agent", "test-agent")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.com/target", w.Header().Get("Location"))

		select {
		case click := <-ClickQueue:
			assert.Equal(t, "hop", click.ShortCode)
			assert.Equal(t, models.ClickSourceDirect, click.Source)
			assert.Equal(t, "test-agent", click.UserAgent)
		default:
			t.Fatal("expected a click on the archive queue")
		}

		link, err := reg.Get("hop")
		require.NoError(t, err)
		assert.Equal(t, 1, link.Clicks)
	})

	t.Run("Referrer Host Becomes Source", func(t *testing.T) {
		router, reg, _, _ := setupTest(t)

		_, err := reg.Create(registry.CreateLinkRequest{LongURL: "https://example.com", CustomCode: "ref"})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ref", nil)
		req.Header.Set("Referer", "https://news.ycombinator.com/item?id=1")
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusFound, w.Code)

		click := <-ClickQueue
		assert.Equal(t, "news.ycombinator.com", click.Source)
	})

	t.Run("Expired Returns Gone And Freezes Counters", func(t *testing.T) {
		router, reg, _, clock := setupTest(t)

		validity := 1
		_, err := reg.Create(registry.CreateLinkRequest{
			LongURL:         "https://example.com",
			CustomCode:      "dead",
			ValidityMinutes: &validity,
		})
		require.NoError(t, err)

		clock.now = clock.now.Add(2 * time.Minute)

		w := get(router, "/dead")
		assert.Equal(t, http.StatusGone, w.Code)

		link, err := reg.Get("dead")
		require.NoError(t, err)
		assert.Equal(t, 0, link.Clicks)
		assert.Empty(t, link.ClickEvents)
		assert.Empty(t, ClickQueue, "rejected visits must not reach the archive queue")
	})
}

func TestListLinks(t *testing.T) {
	router, reg, _, clock := setupTest(t)

	_, err := reg.Create(registry.CreateLinkRequest{LongURL: "https://example.com/1", CustomCode: "one"})
	require.NoError(t, err)
	validity := 1
	_, err = reg.Create(registry.CreateLinkRequest{
		LongURL:         "https://example.com/2",
		CustomCode:      "two",
		ValidityMinutes: &validity,
	})
	require.NoError(t, err)
	clock.now = clock.now.Add(2 * time.Minute)

	w := get(router, "/api/v1/links")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Links []struct {
			ShortCode string `json:"short_code"`
			Expired   bool   `json:"expired"`
		} `json:"links"`
		Count    int `json:"count"`
		Capacity int `json:"capacity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, registry.DefaultMaxLinks, resp.Capacity)
	require.Len(t, resp.Links, 2)
	assert.Equal(t, "one", resp.Links[0].ShortCode)
	assert.False(t, resp.Links[0].Expired)
	assert.Equal(t, "two", resp.Links[1].ShortCode)
	assert.True(t, resp.Links[1].Expired)
}

func TestGetLinkStats(t *testing.T) {
	t.Run("Not Found", func(t *testing.T) {
		router, _, _, _ := setupTest(t)

		w := get(router, "/api/v1/links/nosuch/stats")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Registry Counters Plus Archive", func(t *testing.T) {
		router, reg, clickRepo, _ := setupTest(t)

		link, err := reg.Create(registry.CreateLinkRequest{LongURL: "https://example.com", CustomCode: "stats"})
		require.NoError(t, err)
		_, _, err = reg.RecordVisit("stats")
		require.NoError(t, err)
		_, _, err = reg.RecordVisit("stats")
		require.NoError(t, err)

		require.NoError(t, clickRepo.CreateClick(&models.Click{
			LinkID:    link.ID,
			ShortCode: "stats",
			Timestamp: time.Now(),
			Source:    "direct",
			Location:  "unknown",
			UserAgent: "test-agent",
		}))

		w := get(router, "/api/v1/links/stats/stats")
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			ShortCode    string              `json:"short_code"`
			TotalClicks  int                 `json:"total_clicks"`
			ClickEvents  []models.ClickEvent `json:"click_events"`
			RecentClicks []models.Click      `json:"recent_clicks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "stats", resp.ShortCode)
		assert.Equal(t, 2, resp.TotalClicks)
		assert.Len(t, resp.ClickEvents, 2)
		require.Len(t, resp.RecentClicks, 1)
		assert.Equal(t, "test-agent", resp.RecentClicks[0].UserAgent)
	})
}

func TestQRCode(t *testing.T) {
	t.Run("Not Found", func(t *testing.T) {
		router, _, _, _ := setupTest(t)

		w := get(router, "/api/v1/links/nosuch/qr")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Returns PNG", func(t *testing.T) {
		router, reg, _, _ := setupTest(t)

		_, err := reg.Create(registry.CreateLinkRequest{LongURL: "https://example.com", CustomCode: "qrcode"})
		require.NoError(t, err)

		w := get(router, "/api/v1/links/qrcode/qr?size=128")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
	})

	t.Run("Invalid Size", func(t *testing.T) {
		router, reg, _, _ := setupTest(t)

		_, err := reg.Create(registry.CreateLinkRequest{LongURL: "https://example.com", CustomCode: "qrbad"})
		require.NoError(t, err)

		w := get(router, "/api/v1/links/qrbad/qr?size=huge")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	router, _, _, _ := setupTest(t)

	t.Run("Generated When Absent", func(t *testing.T) {
		w := get(router, "/health")
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("Propagated When Present", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		router.ServeHTTP(w, req)
		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := NewIPRateLimiter(rate.Limit(1), 2)
	router := gin.New()
	router.Use(RateLimitMiddleware(limiter))
	router.GET("/health", HealthCheckHandler)

	// Burst of 2 passes, the third request in the same instant is rejected.
	for i := 0; i < 2; i++ {
		w := get(router, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := get(router, "/health")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
