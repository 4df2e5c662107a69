// Package geocoding resolves Swedish addresses through Google Maps and
// LocationIQ, falling back from one provider to the other.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	// MinQueryLength is the shortest autocomplete or search query accepted.
	MinQueryLength = 3

	countryCode = "se"
	language    = "sv"
)

var (
	ErrQueryTooShort  = errors.New("query must be at least 3 characters")
	ErrInvalidCoords  = errors.New("coordinates out of range")
	ErrNotFound       = errors.New("no geocoding result")
	ErrProviderFailed = errors.New("geocoding provider failed")
	ErrNotConfigured  = errors.New("no geocoding provider configured")
)

// Place is a resolved address.
type Place struct {
	FormattedAddress string  `json:"formatted_address"`
	Street           string  `json:"street,omitempty"`
	PostalCode       string  `json:"postal_code,omitempty"`
	City             string  `json:"city,omitempty"`
	Latitude         float64 `json:"lat"`
	Longitude        float64 `json:"lng"`
	PlaceID          string  `json:"place_id,omitempty"`
	Provider         string  `json:"provider"`
}

// Provider is one geocoding backend.
type Provider interface {
	Name() string
	Autocomplete(ctx context.Context, query string) ([]Place, error)
	Geocode(ctx context.Context, address string) (*Place, error)
	Reverse(ctx context.Context, lat, lng float64) (*Place, error)
}

func checkQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < MinQueryLength {
		return "", ErrQueryTooShort
	}
	return q, nil
}

func checkCoords(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidCoords
	}
	return nil
}

// httpProvider holds what both providers share: a client with timeout and a throttle.
type httpProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPProvider(baseURL, apiKey string, timeout time.Duration, rps float64, burst int) httpProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return httpProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// get waits for the throttle, performs the request and returns the parsed body and status code.
func (p *httpProvider) get(ctx context.Context, url string) (gjson.Result, int, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, 0, fmt.Errorf("%w: throttled: %v", ErrProviderFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return gjson.Result{}, 0, fmt.Errorf("%w: building request: %v", ErrProviderFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return gjson.Result{}, 0, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return gjson.Result{}, resp.StatusCode, fmt.Errorf("%w: reading body: %v", ErrProviderFailed, err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, resp.StatusCode, fmt.Errorf("%w: invalid JSON (status %d)", ErrProviderFailed, resp.StatusCode)
	}
	return gjson.ParseBytes(body), resp.StatusCode, nil
}
