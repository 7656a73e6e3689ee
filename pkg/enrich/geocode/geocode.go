// Package geocode reverse-geocodes coordinates through the Nominatim API.
package geocode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fastjson"

	"github.com/asimzulfiqar/LifeLogger/pkg/config"
)

const (
	defaultEndpoint  = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "lifelogger-telegram-bot"
	defaultTimeout   = 5 * time.Second

	// maxResponseBytes bounds how much of a reverse-geocoding response is read.
	maxResponseBytes = 1 << 20
)

// Address holds the raw Nominatim address fields the classifier consumes.
// Absent fields are empty strings.
type Address struct {
	Amenity     string
	Shop        string
	Tourism     string
	Highway     string
	City        string
	Town        string
	Village     string
	Country     string
	DisplayName string
}

// Client is a reverse-geocoding client safe for concurrent use.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	parsers    fastjson.ParserPool
	log        *slog.Logger
}

// New constructs a Nominatim client from config, applying defaults.
func New(cfg config.GeocodeConfig, log *slog.Logger) *Client {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if log == nil {
		log = slog.Default()
	}

	return &Client{
		endpoint:   endpoint,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With("component", "enrich.geocode"),
	}
}

// Reverse resolves (lat, lon) into address fields.
//
// A response without an address object is not an error; it yields a zero
// Address and the caller falls back to its unknown defaults.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (Address, error) {
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("accept-language", "en")

	requestURL := c.endpoint + "/reverse?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return Address{}, fmt.Errorf("build reverse geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	startedAt := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Address{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Address{}, fmt.Errorf("reverse geocode request: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Address{}, fmt.Errorf("read reverse geocode response: %w", err)
	}

	address, err := parseReverseResponse(&c.parsers, body)
	if err != nil {
		return Address{}, err
	}
	c.log.Debug("Reverse geocode completed", "duration_ms", time.Since(startedAt).Milliseconds(), "resolved", address != (Address{}))

	return address, nil
}

func parseReverseResponse(pool *fastjson.ParserPool, body []byte) (Address, error) {
	parser := pool.Get()
	defer pool.Put(parser)

	value, err := parser.ParseBytes(body)
	if err != nil {
		return Address{}, fmt.Errorf("parse reverse geocode response: %w", err)
	}

	address := Address{
		DisplayName: string(value.GetStringBytes("display_name")),
	}

	addressValue := value.Get("address")
	if addressValue == nil {
		return address, nil
	}

	field := func(key string) string {
		return string(addressValue.GetStringBytes(key))
	}

	address.Amenity = field("amenity")
	address.Shop = field("shop")
	address.Tourism = field("tourism")
	address.Highway = field("highway")
	address.City = field("city")
	address.Town = field("town")
	address.Village = field("village")
	address.Country = field("country")

	return address, nil
}
