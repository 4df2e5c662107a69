package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fitpass_backend/internal/config"
	"fitpass_backend/internal/metrics"
	"fitpass_backend/pkg/utils"
)

// Geocoder tries each provider in order and caches what it finds.
type Geocoder struct {
	providers []Provider
	cache     Cache
	ttl       time.Duration
}

// NewGeocoder creates a Geocoder over providers in priority order. cache may be nil.
func NewGeocoder(providers []Provider, cache Cache, ttl time.Duration) *Geocoder {
	return &Geocoder{providers: providers, cache: cache, ttl: ttl}
}

// NewFromConfig builds the provider chain with the configured primary first.
// Providers without an API key are left out.
func NewFromConfig(cfg config.GeocodingConfig, cache Cache) *Geocoder {
	var google, liq Provider
	if cfg.GoogleAPIKey != "" {
		google = NewGoogleProvider(cfg.GoogleAPIKey, "", cfg.Timeout)
	}
	if cfg.LocationIQAPIKey != "" {
		liq = NewLocationIQProvider(cfg.LocationIQAPIKey, "", cfg.Timeout)
	}
	order := []Provider{google, liq}
	if cfg.Primary == "locationiq" {
		order = []Provider{liq, google}
	}
	var providers []Provider
	for _, p := range order {
		if p != nil {
			providers = append(providers, p)
		}
	}
	return NewGeocoder(providers, cache, cfg.CacheTTL)
}

// Enabled reports whether at least one provider is configured.
func (g *Geocoder) Enabled() bool {
	return len(g.providers) > 0
}

// Autocomplete returns address suggestions for a partial query.
func (g *Geocoder) Autocomplete(ctx context.Context, query string) ([]Place, error) {
	q, err := checkQuery(query)
	if err != nil {
		return nil, err
	}
	var places []Place
	err = g.run(ctx, "autocomplete:"+utils.NormalizeQuery(q), &places, func(p Provider) (interface{}, error) {
		return p.Autocomplete(ctx, q)
	})
	return places, err
}

// Geocode resolves a full address to coordinates.
func (g *Geocoder) Geocode(ctx context.Context, address string) (*Place, error) {
	q, err := checkQuery(address)
	if err != nil {
		return nil, err
	}
	var place Place
	err = g.run(ctx, "search:"+utils.NormalizeQuery(q), &place, func(p Provider) (interface{}, error) {
		return p.Geocode(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return &place, nil
}

// Reverse resolves coordinates to the nearest address.
func (g *Geocoder) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	if err := checkCoords(lat, lng); err != nil {
		return nil, err
	}
	key := "reverse:" + strconv.FormatFloat(lat, 'f', 5, 64) + "," + strconv.FormatFloat(lng, 'f', 5, 64)
	var place Place
	err := g.run(ctx, key, &place, func(p Provider) (interface{}, error) {
		return p.Reverse(ctx, lat, lng)
	})
	if err != nil {
		return nil, err
	}
	return &place, nil
}

// run serves key from the cache or walks the providers. out must be a pointer.
// ErrNotFound is returned only when every provider reported not found; any failure wins over it.
func (g *Geocoder) run(ctx context.Context, key string, out interface{}, call func(Provider) (interface{}, error)) error {
	if len(g.providers) == 0 {
		return ErrNotConfigured
	}
	if g.cache != nil {
		if b, ok, err := g.cache.Get(ctx, key); err != nil {
			utils.LogWarn(err, "Geocoding cache read failed", map[string]interface{}{"key": key})
		} else if ok && json.Unmarshal(b, out) == nil {
			return nil
		}
	}

	var lastErr error
	for _, p := range g.providers {
		res, err := call(p)
		switch {
		case err == nil:
			metrics.RecordGeocodingCall(p.Name(), "ok")
			b, mErr := json.Marshal(res)
			if mErr != nil {
				return fmt.Errorf("encoding geocoding result: %w", mErr)
			}
			if err := json.Unmarshal(b, out); err != nil {
				return fmt.Errorf("decoding geocoding result: %w", err)
			}
			g.store(ctx, key, b)
			return nil
		case errors.Is(err, ErrNotFound):
			metrics.RecordGeocodingCall(p.Name(), "not_found")
		default:
			metrics.RecordGeocodingCall(p.Name(), "error")
			utils.LogWarn(err, "Geocoding provider failed, trying next", map[string]interface{}{"provider": p.Name()})
			lastErr = err
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return ErrNotFound
}

func (g *Geocoder) store(ctx context.Context, key string, b []byte) {
	if g.cache == nil || g.ttl <= 0 {
		return
	}
	if err := g.cache.Set(ctx, key, b, g.ttl); err != nil {
		utils.LogWarn(err, "Geocoding cache write failed", map[string]interface{}{"key": key})
	}
}
