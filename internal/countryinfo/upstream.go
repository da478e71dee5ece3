// Package countryinfo is the API-key protected proxy in front of the public
// restcountries API.
package countryinfo

import (
	"context"
	"encoding/json"
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

// Summary 国家列表项
type Summary struct {
	Name string `json:"name"`
	Flag string `json:"flag"`
}

type Details struct {
	Name       string                       `json:"name"`
	Capital    string                       `json:"capital"`
	Flags      string                       `json:"flags"`
	Languages  map[string]string            `json:"languages"`
	Currencies map[string]map[string]string `json:"currencies"`
	CCA2       string                       `json:"cca2"`
}

// restcountries v3.1 response item, only the fields we forward
type restCountry struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	Capital []string `json:"capital"`
	Flags   struct {
		PNG string `json:"png"`
	} `json:"flags"`
	Languages  map[string]string            `json:"languages"`
	Currencies map[string]map[string]string `json:"currencies"`
	CCA2       string                       `json:"cca2"`
}

// Upstream 访问 restcountries 的客户端
type Upstream struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]restCountry]
}

func NewUpstream(baseURL string, timeout time.Duration) *Upstream {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Upstream{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cb:      breaker.New[[]restCountry]("restcountries", breaker.DefaultOptions()),
	}
}

// All returns every country sorted by common name.
func (u *Upstream) All(ctx context.Context) ([]Summary, error) {
	items, err := u.fetch(ctx, "/v3.1/all?fields=name,flags")
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(items))
	for i, c := range items {
		out[i] = Summary{Name: orNA(c.Name.Common), Flag: c.Flags.PNG}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// ByName returns the first match for name.
func (u *Upstream) ByName(ctx context.Context, name string) (*Details, error) {
	items, err := u.fetch(ctx, "/v3.1/name/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("country %q: %w", name, apperr.ErrNotFound)
	}
	c := items[0]
	capital := "N/A"
	if len(c.Capital) > 0 {
		capital = c.Capital[0]
	}
	d := &Details{
		Name:       orNA(c.Name.Common),
		Capital:    capital,
		Flags:      orNA(c.Flags.PNG),
		Languages:  c.Languages,
		Currencies: c.Currencies,
		CCA2:       c.CCA2,
	}
	if d.Languages == nil {
		d.Languages = map[string]string{}
	}
	if d.Currencies == nil {
		d.Currencies = map[string]map[string]string{}
	}
	return d, nil
}

func (u *Upstream) fetch(ctx context.Context, path string) ([]restCountry, error) {
	var notFound bool
	items, err := u.cb.Execute(func() ([]restCountry, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := u.http.Do(req)
		if err != nil {
			return nil, breaker.CallerErr(ctx, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			notFound = true
			return nil, nil
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("restcountries %s: status %d", path, resp.StatusCode)
		}
		var out []restCountry
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("restcountries %s: %w", path, err)
		}
		return out, nil
	})
	metrics.RecordUpstream("restcountries", err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if notFound {
		return nil, fmt.Errorf("country %s: %w", path, apperr.ErrNotFound)
	}
	return items, nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
