// Package partsapi looks up electronic parts through the Nexar API,
// which fronts the Octopart parts database.
package partsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

const (
	// DefaultTokenURL issues OAuth client-credential tokens.
	DefaultTokenURL = "https://identity.nexar.com/connect/token"
	// DefaultSearchURL is the GraphQL endpoint for part searches.
	DefaultSearchURL = "https://api.nexar.com/graphql/"

	// Tokens are valid for 24 hours.
	tokenValidity = 24 * time.Hour
)

// PartRecord is the information returned for a matched part.
type PartRecord struct {
	Manufacturer string
	Name         string
	PartNumber   string
	Category     string
	Description  string
	DatasheetURL string
	PageURL      string
}

// Config holds the API credentials and endpoints. Endpoints default to
// the public Nexar URLs when empty.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	SearchURL    string
}

// Client is a parts lookup client. It caches the access token for its
// validity window and is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time

	mu        sync.Mutex
	token     string
	tokenTime time.Time
}

// NewClient creates a parts lookup client.
func NewClient(cfg Config) *Client {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.Logger = nil

	return &Client{
		cfg:  cfg,
		http: retry.StandardClient(),
		now:  time.Now,
	}
}

const searchQuery = `query partSearch {
  supSearch (
    q:%q,
    limit: %d
  ){
    hits
    results {
      part {
        name
        mpn
        category {
          id
          name
        }
        manufacturer {
          name
        }
        shortDescription
        bestDatasheet {
          url
        }
        octopartUrl
      }
    }
  }
}`

// searchResponse mirrors the GraphQL response shape.
type searchResponse struct {
	Data struct {
		SupSearch struct {
			Results []struct {
				Part struct {
					Name     string `json:"name"`
					MPN      string `json:"mpn"`
					Category *struct {
						Name string `json:"name"`
					} `json:"category"`
					Manufacturer *struct {
						Name string `json:"name"`
					} `json:"manufacturer"`
					ShortDescription string `json:"shortDescription"`
					BestDatasheet    *struct {
						URL string `json:"url"`
					} `json:"bestDatasheet"`
					OctopartURL string `json:"octopartUrl"`
				} `json:"part"`
			} `json:"results"`
		} `json:"supSearch"`
	} `json:"data"`
}

// Search looks up a part by its code. Returns (nil, nil) when the API
// answered but found nothing.
func (c *Client) Search(ctx context.Context, code string) (*PartRecord, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(searchQuery, code, 1)

	u, err := url.Parse(c.cfg.SearchURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search URL: %w", err)
	}
	params := url.Values{}
	params.Set("query", query)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("token", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("part search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("part search returned status %d: %s", resp.StatusCode, body)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := parsed.Data.SupSearch.Results
	if len(results) == 0 {
		log.WithField("code", code).Debug("No part found")
		return nil, nil
	}

	part := results[0].Part
	record := &PartRecord{
		Name:        part.Name,
		PartNumber:  part.MPN,
		Description: part.ShortDescription,
		PageURL:     part.OctopartURL,
	}
	if part.Manufacturer != nil {
		record.Manufacturer = part.Manufacturer.Name
	}
	if part.Category != nil {
		record.Category = part.Category.Name
	}
	if part.BestDatasheet != nil {
		record.DatasheetURL = part.BestDatasheet.URL
	}

	log.WithFields(logrus.Fields{
		"code": code,
		"mpn":  record.PartNumber,
	}).Debug("Part found")

	return record, nil
}

// ensureToken returns a cached access token or fetches a new one.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Sub(c.tokenTime) <= tokenValidity {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("scope", "supply.domain")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token request returned status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access token")
	}

	c.token = parsed.AccessToken
	c.tokenTime = c.now()
	log.Debug("Obtained parts API token")
	return c.token, nil
}

// wildcardChars are the characters the API commonly mismatches between a
// chip marking and the catalogued part number.
var wildcardChars = "8B0MX1IS5"

// InsertWildcards replaces easily-misread characters with single-char
// wildcards and brackets the string with multi-char wildcards, for a
// looser retry search. Returns the new string and how many characters
// were replaced.
func InsertWildcards(code string) (string, int) {
	count := 0
	var b strings.Builder
	b.WriteByte('*')
	for _, r := range code {
		if strings.ContainsRune(wildcardChars, toUpper(r)) {
			b.WriteByte('?')
			count++
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('*')
	return b.String(), count
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
