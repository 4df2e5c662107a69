package geocoding

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const googleBaseURL = "https://maps.googleapis.com/maps/api"

// GoogleProvider uses the Places Autocomplete and Geocoding APIs.
type GoogleProvider struct {
	httpProvider
}

// NewGoogleProvider creates a provider; baseURL may be empty for the public endpoint.
func NewGoogleProvider(apiKey, baseURL string, timeout time.Duration) *GoogleProvider {
	if baseURL == "" {
		baseURL = googleBaseURL
	}
	return &GoogleProvider{httpProvider: newHTTPProvider(baseURL, apiKey, timeout, 25, 10)}
}

func (g *GoogleProvider) Name() string { return "google" }

func (g *GoogleProvider) Autocomplete(ctx context.Context, query string) ([]Place, error) {
	q := url.Values{}
	q.Set("input", query)
	q.Set("components", "country:"+countryCode)
	q.Set("language", language)
	q.Set("types", "address")
	q.Set("key", g.apiKey)

	res, err := g.call(ctx, "/place/autocomplete/json", q)
	if err != nil {
		return nil, err
	}

	var places []Place
	res.Get("predictions").ForEach(func(_, p gjson.Result) bool {
		place := Place{
			FormattedAddress: p.Get("description").String(),
			PlaceID:          p.Get("place_id").String(),
			Street:           p.Get("structured_formatting.main_text").String(),
			Provider:         g.Name(),
		}
		// secondary text is "postal code city, country" or "city, country"
		secondary := strings.Split(p.Get("structured_formatting.secondary_text").String(), ",")
		if len(secondary) > 0 {
			place.City = strings.TrimSpace(secondary[0])
		}
		places = append(places, place)
		return true
	})
	if len(places) == 0 {
		return nil, ErrNotFound
	}
	return places, nil
}

func (g *GoogleProvider) Geocode(ctx context.Context, address string) (*Place, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("components", "country:"+strings.ToUpper(countryCode))
	q.Set("language", language)
	q.Set("key", g.apiKey)
	return g.first(ctx, q)
}

func (g *GoogleProvider) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	q := url.Values{}
	q.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("language", language)
	q.Set("key", g.apiKey)
	return g.first(ctx, q)
}

func (g *GoogleProvider) first(ctx context.Context, q url.Values) (*Place, error) {
	res, err := g.call(ctx, "/geocode/json", q)
	if err != nil {
		return nil, err
	}
	r := res.Get("results.0")
	if !r.Exists() {
		return nil, ErrNotFound
	}
	place := parseGoogleResult(r)
	place.Provider = g.Name()
	return &place, nil
}

// call performs the request and maps the Google status field to errors.
func (g *GoogleProvider) call(ctx context.Context, path string, q url.Values) (gjson.Result, error) {
	res, code, err := g.get(ctx, g.baseURL+path+"?"+q.Encode())
	if err != nil {
		return res, err
	}
	switch status := res.Get("status").String(); status {
	case "OK":
		return res, nil
	case "ZERO_RESULTS":
		return res, ErrNotFound
	default:
		// OVER_QUERY_LIMIT, REQUEST_DENIED, INVALID_REQUEST, UNKNOWN_ERROR
		return res, fmt.Errorf("%w: google status %s (http %d): %s",
			ErrProviderFailed, status, code, res.Get("error_message").String())
	}
}

func parseGoogleResult(r gjson.Result) Place {
	place := Place{
		FormattedAddress: r.Get("formatted_address").String(),
		Latitude:         r.Get("geometry.location.lat").Float(),
		Longitude:        r.Get("geometry.location.lng").Float(),
		PlaceID:          r.Get("place_id").String(),
	}
	var route, number, locality string
	r.Get("address_components").ForEach(func(_, c gjson.Result) bool {
		for _, t := range c.Get("types").Array() {
			switch t.String() {
			case "route":
				route = c.Get("long_name").String()
			case "street_number":
				number = c.Get("long_name").String()
			case "postal_code":
				place.PostalCode = c.Get("long_name").String()
			case "postal_town":
				place.City = c.Get("long_name").String()
			case "locality":
				locality = c.Get("long_name").String()
			}
		}
		return true
	})
	if place.City == "" {
		place.City = locality
	}
	place.Street = strings.TrimSpace(route + " " + number)
	return place
}
