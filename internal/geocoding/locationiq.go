package geocoding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const locationIQBaseURL = "https://api.locationiq.com/v1"

// LocationIQProvider uses the LocationIQ autocomplete, search and reverse endpoints.
type LocationIQProvider struct {
	httpProvider
}

// NewLocationIQProvider creates a provider throttled to the free tier rate of 2 requests/second.
func NewLocationIQProvider(apiKey, baseURL string, timeout time.Duration) *LocationIQProvider {
	if baseURL == "" {
		baseURL = locationIQBaseURL
	}
	return &LocationIQProvider{httpProvider: newHTTPProvider(baseURL, apiKey, timeout, 2, 1)}
}

func (l *LocationIQProvider) Name() string { return "locationiq" }

func (l *LocationIQProvider) params() url.Values {
	q := url.Values{}
	q.Set("key", l.apiKey)
	q.Set("format", "json")
	q.Set("accept-language", language)
	return q
}

func (l *LocationIQProvider) Autocomplete(ctx context.Context, query string) ([]Place, error) {
	q := l.params()
	q.Set("q", query)
	q.Set("countrycodes", countryCode)
	q.Set("limit", "5")
	q.Set("tag", "place:house,highway:*")

	res, err := l.call(ctx, "/autocomplete", q)
	if err != nil {
		return nil, err
	}
	var places []Place
	res.ForEach(func(_, r gjson.Result) bool {
		places = append(places, l.parse(r))
		return true
	})
	if len(places) == 0 {
		return nil, ErrNotFound
	}
	return places, nil
}

func (l *LocationIQProvider) Geocode(ctx context.Context, address string) (*Place, error) {
	q := l.params()
	q.Set("q", address)
	q.Set("countrycodes", countryCode)
	q.Set("addressdetails", "1")
	q.Set("limit", "1")

	res, err := l.call(ctx, "/search", q)
	if err != nil {
		return nil, err
	}
	r := res.Get("0")
	if !r.Exists() {
		return nil, ErrNotFound
	}
	place := l.parse(r)
	return &place, nil
}

func (l *LocationIQProvider) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	q := l.params()
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))
	q.Set("addressdetails", "1")

	res, err := l.call(ctx, "/reverse", q)
	if err != nil {
		return nil, err
	}
	place := l.parse(res)
	return &place, nil
}

// call maps LocationIQ's HTTP status codes: 404 means no match, anything else non-2xx is a failure.
func (l *LocationIQProvider) call(ctx context.Context, path string, q url.Values) (gjson.Result, error) {
	res, code, err := l.get(ctx, l.baseURL+path+"?"+q.Encode())
	if err != nil {
		if code == http.StatusNotFound {
			return res, ErrNotFound
		}
		return res, err
	}
	switch {
	case code == http.StatusNotFound:
		return res, ErrNotFound
	case code >= 300:
		return res, fmt.Errorf("%w: locationiq http %d: %s", ErrProviderFailed, code, res.Get("error").String())
	}
	return res, nil
}

func (l *LocationIQProvider) parse(r gjson.Result) Place {
	addr := r.Get("address")
	city := addr.Get("city").String()
	for _, k := range []string{"town", "village", "municipality"} {
		if city != "" {
			break
		}
		city = addr.Get(k).String()
	}
	return Place{
		FormattedAddress: r.Get("display_name").String(),
		Street:           strings.TrimSpace(addr.Get("road").String() + " " + addr.Get("house_number").String()),
		PostalCode:       addr.Get("postcode").String(),
		City:             city,
		Latitude:         r.Get("lat").Float(), // LocationIQ sends coordinates as strings
		Longitude:        r.Get("lon").Float(),
		PlaceID:          r.Get("place_id").String(),
		Provider:         l.Name(),
	}
}
