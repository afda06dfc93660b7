package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

// Geocoder resolves coordinates into display addresses. Display names are
// cosmetic; callers treat failures as best-effort.
type Geocoder interface {
	IsConfigured() bool
	ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error)
}

// Client is a Nominatim-style reverse geocoder with a coordinate cache and
// a 1 req/s limiter, per the public usage policy.
type Client struct {
	baseURL    string
	email      string
	httpClient *http.Client
	logger     *zap.Logger

	// Cache keyed on coordinates rounded to ~11m precision.
	cache   map[string]*models.Address
	cacheMu sync.RWMutex

	lastRequest time.Time
	requestMu   sync.Mutex
}

// NewClient creates a reverse geocoding client. An empty baseURL leaves the
// client unconfigured and trips keep bare coordinates for display.
func NewClient(baseURL, email string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		email:   email,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
		cache:  make(map[string]*models.Address),
	}
}

// IsConfigured reports whether reverse geocoding is available.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road     string `json:"road"`
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		County   string `json:"county"`
		State    string `json:"state"`
		Postcode string `json:"postcode"`
		Country  string `json:"country"`
	} `json:"address"`
}

// ReverseGeocode resolves a coordinate to a structured address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error) {
	cacheKey := fmt.Sprintf("%.4f,%.4f", lat, lng)

	c.cacheMu.RLock()
	if addr, ok := c.cache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		return addr, nil
	}
	c.cacheMu.RUnlock()

	c.requestMu.Lock()
	if wait := time.Second - time.Since(c.lastRequest); wait > 0 {
		time.Sleep(wait)
	}
	c.lastRequest = time.Now()
	c.requestMu.Unlock()

	endpoint := fmt.Sprintf("%s/reverse?%s", c.baseURL, url.Values{
		"lat":    {fmt.Sprintf("%f", lat)},
		"lon":    {fmt.Sprintf("%f", lng)},
		"format": {"jsonv2"},
		"email":  {c.email},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "hoofdirect-mileage/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reverse geocode: status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	city := body.Address.City
	if city == "" {
		city = body.Address.Town
	}
	if city == "" {
		city = body.Address.Village
	}

	addr := &models.Address{
		FormattedAddress: body.DisplayName,
		Road:             body.Address.Road,
		City:             city,
		County:           body.Address.County,
		State:            body.Address.State,
		Postcode:         body.Address.Postcode,
		Country:          body.Address.Country,
	}

	c.cacheMu.Lock()
	c.cache[cacheKey] = addr
	if len(c.cache) > 10000 {
		c.cache = map[string]*models.Address{cacheKey: addr}
	}
	c.cacheMu.Unlock()

	c.logger.Debug("Reverse geocoded", zap.Float64("lat", lat), zap.Float64("lng", lng), zap.String("address", addr.FormattedAddress))
	return addr, nil
}
