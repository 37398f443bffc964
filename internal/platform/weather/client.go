package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnavailable wraps every failure to obtain a report. Callers treat it as
// non-fatal.
var ErrUnavailable = errors.New("weather unavailable")

const DefaultBaseURL = "https://api.openweathermap.org"

const kelvinOffset = 273.15

// Report is the landing page view of the current conditions.
type Report struct {
	Location     string `json:"location"`
	Sunrise      string `json:"sunrise_time"`
	Sunset       string `json:"sunset_time"`
	TemperatureC int    `json:"temperature"`
	Humidity     int    `json:"humidity"`
	Description  string `json:"weather_description"`
}

// currentResponse matches data/2.5/weather.
type currentResponse struct {
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

type Config struct {
	APIKey   string
	Location string
	BaseURL  string
	Timeout  time.Duration
	// RPS caps outbound calls per second.
	RPS int
	// Zone renders sunrise and sunset; defaults to time.Local.
	Zone *time.Location
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	location   string
	limiter    *rate.Limiter
	zone       *time.Location
	timeout    time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	if cfg.Zone == nil {
		cfg.Zone = time.Local
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		location: cfg.Location,
		limiter:  rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.RPS)), 1),
		zone:     cfg.Zone,
		timeout:  cfg.Timeout,
	}
}

// Current fetches the present conditions. It never retries: the caller is an
// interactive page render. The limiter wait and the round trip share one
// timeout, so a throttled call fails fast instead of queueing.
func (c *Client) Current(ctx context.Context) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	q := url.Values{}
	q.Set("q", c.location)
	q.Set("appid", c.apiKey)
	u := fmt.Sprintf("%s/data/2.5/weather?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("%w: unexpected status code: %d", ErrUnavailable, resp.StatusCode)
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return c.report(body), nil
}

func (c *Client) report(body currentResponse) Report {
	r := Report{
		Location:     c.location,
		Sunrise:      clockTime(body.Sys.Sunrise, c.zone),
		Sunset:       clockTime(body.Sys.Sunset, c.zone),
		TemperatureC: int(math.Round(body.Main.Temp - kelvinOffset)),
		Humidity:     body.Main.Humidity,
	}
	if len(body.Weather) > 0 {
		r.Description = body.Weather[0].Main
	}
	return r
}

// clockTime renders an epoch as "15h04".
func clockTime(epoch int64, zone *time.Location) string {
	if epoch == 0 {
		return ""
	}
	return time.Unix(epoch, 0).In(zone).Format("15h04")
}
