package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/freundallein/taskpoller/backend/task"
)

var (
	// ErrSourceUnavailable - the task source could not be reached or refused the request.
	ErrSourceUnavailable = errors.New("task source unavailable")
	// ErrMalformedResponse - the task source answered with something that is not a task mapping.
	ErrMalformedResponse = errors.New("malformed task source response")
)

// Config ...
type Config struct {
	URL     string
	Timeout time.Duration
}

// Client fetches pending tasks of one task type per call.
type Client interface {
	Fetch(ctx context.Context, endpoint string) (task.Batch, error)
}

// HTTPClient - Client over plain HTTP GET.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient ...
func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Fetch - GET <base url><endpoint> and parse the task mapping.
func (c *HTTPClient) Fetch(ctx context.Context, endpoint string) (task.Batch, error) {
	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, url, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrSourceUnavailable, url, resp.StatusCode)
	}
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrSourceUnavailable, url, err)
	}
	return Parse(body)
}

// Parse decodes a task mapping. The source emits raw CRLF pairs inside string values
// (script bodies), so they are escaped before decoding.
func Parse(body []byte) (task.Batch, error) {
	body = bytes.TrimSpace(bytes.ReplaceAll(body, []byte("\r\n"), []byte(`\r\n`)))
	if len(body) == 0 {
		return task.Batch{}, nil
	}
	var batch task.Batch
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if batch == nil {
		batch = task.Batch{}
	}
	return batch, nil
}
