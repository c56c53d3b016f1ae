// Package geocode resolves free-text addresses to coordinates through an
// OpenStreetMap Nominatim forward-geocoding service.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/ctmap/internal/model"
	"github.com/sells-group/ctmap/internal/resilience"
)

// DefaultBaseURL is the public Nominatim endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// DefaultLimit is how many candidates one query asks for.
const DefaultLimit = 5

// Client geocodes a single address.
type Client interface {
	// Geocode returns the chosen coordinate, or nil when the service has no
	// candidates. Transport, status, and decode failures are errors.
	Geocode(ctx context.Context, address string) (*model.Coordinate, error)
}

// Candidate is one search result as returned by Nominatim.
type Candidate struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Type        string `json:"type"`
	Class       string `json:"class"`
	DisplayName string `json:"display_name"`
}

// Coordinate parses the candidate's string lat/lon.
func (c Candidate) Coordinate() (model.Coordinate, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(c.Lat), 64)
	if err != nil {
		return model.Coordinate{}, eris.Wrapf(err, "geocode: parse lat %q", c.Lat)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(c.Lon), 64)
	if err != nil {
		return model.Coordinate{}, eris.Wrapf(err, "geocode: parse lon %q", c.Lon)
	}
	return model.Coordinate{Lat: lat, Lng: lng}, nil
}

// Option configures a Nominatim client.
type Option func(*Nominatim)

// WithBaseURL points the client at a different Nominatim-compatible service.
func WithBaseURL(u string) Option {
	return func(n *Nominatim) {
		n.baseURL = strings.TrimRight(u, "/")
	}
}

// WithUserAgent sets the User-Agent header. Nominatim rejects anonymous clients.
func WithUserAgent(ua string) Option {
	return func(n *Nominatim) {
		n.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *Nominatim) {
		n.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second ceiling.
func WithRateLimit(rps float64) Option {
	return func(n *Nominatim) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		n.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLimit sets how many candidates to request.
func WithLimit(limit int) Option {
	return func(n *Nominatim) {
		if limit > 0 {
			n.limit = limit
		}
	}
}

// WithPolicy sets the candidate ranking policy.
func WithPolicy(p RankPolicy) Option {
	return func(n *Nominatim) {
		if p != nil {
			n.policy = p
		}
	}
}

// WithCircuitBreaker stops calling the service after repeated failures.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(n *Nominatim) {
		n.breaker = cb
	}
}

// Nominatim implements Client against the Nominatim search API.
type Nominatim struct {
	baseURL    string
	userAgent  string
	limit      int
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     RankPolicy
	breaker    *resilience.CircuitBreaker
}

// NewNominatim creates a Nominatim client. Defaults: public endpoint, 5
// candidates, 1 request per second, DefaultPolicy.
func NewNominatim(opts ...Option) *Nominatim {
	n := &Nominatim{
		baseURL:    DefaultBaseURL,
		userAgent:  "ctmap/1.0",
		limit:      DefaultLimit,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
		policy:     DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Geocode implements Client.
func (n *Nominatim) Geocode(ctx context.Context, address string) (*model.Coordinate, error) {
	candidates, err := n.Candidates(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[n.policy.Choose(candidates)]
	c, err := best.Coordinate()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Candidates returns every candidate the service offers for address, in
// service order.
func (n *Nominatim) Candidates(ctx context.Context, address string) ([]Candidate, error) {
	if strings.TrimSpace(address) == "" {
		return nil, nil
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}
	if n.breaker == nil {
		return n.search(ctx, address)
	}
	return resilience.Execute(ctx, n.breaker, func(ctx context.Context) ([]Candidate, error) {
		return n.search(ctx, address)
	})
}

func (n *Nominatim) search(ctx context.Context, address string) ([]Candidate, error) {
	params := url.Values{
		"format": {"json"},
		"q":      {address},
		"limit":  {strconv.Itoa(n.limit)},
	}
	reqURL := n.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var candidates []Candidate
	if err := json.Unmarshal(body, &candidates); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	return candidates, nil
}

// Resolve geocodes address and never fails: any error is logged and reported
// as nil, the same as an address with no candidates.
func Resolve(ctx context.Context, c Client, address string) *model.Coordinate {
	coord, err := c.Geocode(ctx, address)
	if err != nil {
		zap.L().Warn("geocode failed",
			zap.String("address", address),
			zap.Error(err),
		)
		return nil
	}
	if coord == nil {
		zap.L().Debug("geocode: no candidates", zap.String("address", address))
	}
	return coord
}
