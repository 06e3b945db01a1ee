package opentdb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
)

const (
	DefaultBaseURL = "https://opentdb.com"

	responseOK              = 0
	responseInvalidCategory = 2
)

type Config struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CategoryTTL time.Duration `mapstructure:"category_ttl"`
	HTTPClient  *http.Client  `mapstructure:"-"`
}

// Client fetches questions from the Open Trivia Database.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	categoryTTL time.Duration

	mu         sync.RWMutex
	cachedAt   time.Time
	categories []domain.Category
}

func NewClient(c Config) *Client {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.CategoryTTL <= 0 {
		c.CategoryTTL = time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}

	return &Client{
		baseURL:     c.BaseURL,
		httpClient:  c.HTTPClient,
		categoryTTL: c.CategoryTTL,
	}
}

type questionResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Type             string   `json:"type"`
		Category         string   `json:"category"`
		Difficulty       string   `json:"difficulty"`
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

// FetchOne asks for a single base64 encoded question matching f and returns it decoded.
func (c *Client) FetchOne(ctx context.Context, f domain.Filters) (domain.RawQuestion, error) {
	q := url.Values{}
	q.Set("amount", "1")
	q.Set("encode", "base64")
	if f.CategoryID > 0 {
		q.Set("category", strconv.Itoa(f.CategoryID))
	}
	if f.Difficulty != "" {
		q.Set("difficulty", f.Difficulty)
	}
	if f.Kind != "" {
		q.Set("type", f.Kind)
	}

	var resp questionResponse
	if err := c.get(ctx, "/api.php?"+q.Encode(), &resp); err != nil {
		return domain.RawQuestion{}, err
	}

	switch {
	case resp.ResponseCode == responseInvalidCategory:
		return domain.RawQuestion{}, errors.New(errors.CodeInvalidCategory,
			errors.WithCause(fmt.Errorf("category %d rejected", f.CategoryID)))
	case resp.ResponseCode != responseOK, len(resp.Results) == 0:
		return domain.RawQuestion{}, errors.New(errors.CodeNoResults,
			errors.WithCause(fmt.Errorf("response code %d", resp.ResponseCode)))
	}

	r := resp.Results[0]
	raw := domain.RawQuestion{IncorrectAnswers: make([]string, 0, len(r.IncorrectAnswers))}

	fields := []struct {
		dst *string
		src string
	}{
		{&raw.Category, r.Category},
		{&raw.Difficulty, r.Difficulty},
		{&raw.Prompt, r.Question},
		{&raw.CorrectAnswer, r.CorrectAnswer},
	}
	for _, fd := range fields {
		s, err := decode(fd.src)
		if err != nil {
			return domain.RawQuestion{}, err
		}
		*fd.dst = s
	}

	for _, a := range r.IncorrectAnswers {
		s, err := decode(a)
		if err != nil {
			return domain.RawQuestion{}, err
		}
		raw.IncorrectAnswers = append(raw.IncorrectAnswers, s)
	}

	return raw, nil
}

type categoryResponse struct {
	TriviaCategories []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"trivia_categories"`
}

// Categories lists the categories the database offers. Results are cached for the configured TTL.
func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	c.mu.RLock()
	if len(c.categories) > 0 && time.Since(c.cachedAt) < c.categoryTTL {
		out := slices.Clone(c.categories)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	var resp categoryResponse
	if err := c.get(ctx, "/api_category.php", &resp); err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(resp.TriviaCategories))
	for _, tc := range resp.TriviaCategories {
		categories = append(categories, domain.Category{ID: tc.ID, Name: tc.Name})
	}

	c.mu.Lock()
	c.categories = categories
	c.cachedAt = time.Now()
	c.mu.Unlock()

	return slices.Clone(categories), nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.New(errors.CodeFetch, errors.WithCause(fmt.Errorf("create request: %w", err)))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "opentdb: request failed", "path", path, "error", err)
		return errors.New(errors.CodeFetch, errors.WithCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.ErrorContext(ctx, "opentdb: unexpected status", "path", path, "status", resp.StatusCode)
		return errors.New(errors.CodeFetch, errors.WithCause(fmt.Errorf("status %d", resp.StatusCode)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(errors.CodeFetch, errors.WithCause(fmt.Errorf("decode response: %w", err)))
	}

	return nil
}

func decode(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", errors.New(errors.CodeFetch, errors.WithCause(fmt.Errorf("decode field: %w", err)))
	}
	if !utf8.Valid(b) {
		return "", errors.New(errors.CodeFetch, errors.WithCause(fmt.Errorf("decode field: invalid UTF-8")))
	}
	return string(b), nil
}
