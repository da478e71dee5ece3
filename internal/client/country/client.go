// Package country calls the countryinfo service on behalf of the blog.
package country

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/d60-Lab/travel-tales/internal/apperr"
	"github.com/d60-Lab/travel-tales/pkg/breaker"
	"github.com/d60-Lab/travel-tales/pkg/metrics"
)

// CountrySummary 下拉列表项
type CountrySummary struct {
	Name string `json:"name"`
	Flag string `json:"flag"`
}

type CountryDetails struct {
	Name      string            `json:"name"`
	Flag      string            `json:"flag"`
	Capital   string            `json:"capital"`
	Currency  string            `json:"currency"`
	Languages string            `json:"languages"`
	Code      string            `json:"code"`
	Spoken    map[string]string `json:"spoken_languages,omitempty"`
}

// wire format of the countryinfo service
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type rawDetails struct {
	Name       string                       `json:"name"`
	Capital    string                       `json:"capital"`
	Flags      string                       `json:"flags"`
	Languages  map[string]string            `json:"languages"`
	Currencies map[string]map[string]string `json:"currencies"`
	CCA2       string                       `json:"cca2"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		cb:      breaker.New[[]byte]("countryinfo", breaker.DefaultOptions()),
	}
}

func (c *Client) ListCountries(ctx context.Context) ([]CountrySummary, error) {
	data, err := c.get(ctx, "/api/v3.1/all")
	if err != nil {
		return nil, err
	}
	var out []CountrySummary
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode countries: %v", apperr.ErrUpstream, err)
	}
	return out, nil
}

func (c *Client) Details(ctx context.Context, name string) (*CountryDetails, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: country name is required", apperr.ErrInvalidInput)
	}
	data, err := c.get(ctx, "/api/v3.1/name/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	var raw rawDetails
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode country: %v", apperr.ErrUpstream, err)
	}
	return &CountryDetails{
		Name:      raw.Name,
		Flag:      raw.Flags,
		Capital:   raw.Capital,
		Currency:  firstCurrency(raw.Currencies),
		Languages: joinLanguages(raw.Languages),
		Code:      raw.CCA2,
		Spoken:    raw.Languages,
	}, nil
}

// get returns the envelope data. A 404 from the service is a plain not-found
// and does not count against the breaker.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	var notFound bool
	data, err := c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, breaker.CallerErr(ctx, err)
		}
		defer resp.Body.Close()

		var env envelope
		decErr := json.NewDecoder(resp.Body).Decode(&env)
		if resp.StatusCode == http.StatusNotFound {
			notFound = true
			return nil, nil
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("countryinfo %s: status %d %s", path, resp.StatusCode, env.Error)
		}
		if decErr != nil {
			return nil, fmt.Errorf("countryinfo %s: %w", path, decErr)
		}
		if !env.Success {
			return nil, fmt.Errorf("countryinfo %s: %s", path, env.Error)
		}
		return env.Data, nil
	})
	metrics.RecordUpstream("countryinfo", err)
	if err != nil {
		if breaker.Rejected(err) {
			return nil, fmt.Errorf("%w: circuit open", apperr.ErrUpstream)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, breaker.ErrCallerGone) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if notFound {
		return nil, fmt.Errorf("country %s: %w", path, apperr.ErrNotFound)
	}
	return data, nil
}

// firstCurrency 取排序后第一个币种的名称，没有名称时退回代码
func firstCurrency(cur map[string]map[string]string) string {
	if len(cur) == 0 {
		return "N/A"
	}
	codes := make([]string, 0, len(cur))
	for code := range cur {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	if name := cur[codes[0]]["name"]; name != "" {
		return name
	}
	return codes[0]
}

func joinLanguages(langs map[string]string) string {
	if len(langs) == 0 {
		return "N/A"
	}
	codes := make([]string, 0, len(langs))
	for code := range langs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	names := make([]string, len(codes))
	for i, code := range codes {
		names[i] = langs[code]
	}
	return strings.Join(names, ", ")
}
