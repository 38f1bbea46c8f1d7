// Package papi is a client for the Triton package API.
package papi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/errors"
	"github.com/couchbase/faultcheck/pkg/log"

	"github.com/go-ldap/ldap/v3"
	"github.com/golang/glog"
)

const (
	// defaultTimeout bounds a single request when the caller's context
	// carries no deadline of its own.
	defaultTimeout = 30 * time.Second
)

// Client talks to PAPI.
type Client struct {
	endpoint *url.URL
	client   *http.Client
}

// Option configures a client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client e.g. to add TLS.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// New returns a new PAPI client for the endpoint e.g. http://10.99.99.30.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.NewConfigurationError("PAPI endpoint %s malformed: %v", endpoint, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NewConfigurationError("PAPI endpoint %s must be http or https", endpoint)
	}

	c := &Client{
		endpoint: u,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// url returns the full URL for a path and query.
func (c *Client) url(path string, query url.Values) string {
	u := *c.endpoint
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = query.Encode()

	return u.String()
}

// do performs a request and decodes a JSON response into out, if not nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}, opts *api.RequestOptions) (http.Header, error) {
	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		glog.V(log.LevelTrace).Infof("PAPI req: %s", string(data))

		body = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.url(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("Accept", "application/json")

	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	if opts != nil {
		for name, values := range opts.Headers {
			for _, value := range values {
				request.Header.Add(name, value)
			}
		}
	}

	glog.V(log.LevelDebug).Infof("PAPI %s %s", method, request.URL)

	response, err := c.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("PAPI request failed: %w", err)
	}

	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read PAPI response: %w", err)
	}

	glog.V(log.LevelTrace).Infof("PAPI rsp: %d %s", response.StatusCode, string(data))

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, translateError(response.StatusCode, data)
	}

	if out != nil && len(data) != 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("failed to unmarshal PAPI response: %w", err)
		}
	}

	return response.Header, nil
}

// translateError maps a PAPI error response onto a typed error.
func translateError(status int, data []byte) error {
	e := &api.Error{}
	if err := json.Unmarshal(data, e); err != nil || e.Message == "" {
		e.Message = strings.TrimSpace(string(data))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
	}

	message := fmt.Sprintf("PAPI returned %d: %s", status, e.Message)

	switch {
	case e.Code == api.ErrorInvalidQuery:
		return errors.NewQueryError("%s", message)
	case e.Code == api.ErrorValidationFailed:
		return errors.NewValidationError("%s", message)
	case e.Code == api.ErrorConflict || status == http.StatusConflict:
		return errors.NewResourceConflictError("%s", message)
	case e.Code == api.ErrorResourceNotFound || status == http.StatusNotFound:
		return errors.NewResourceNotFoundError("%s", message)
	case status == http.StatusBadRequest:
		return errors.NewParameterError("%s", message)
	default:
		return errors.NewInternalError("%s", message)
	}
}

// Ping checks PAPI is responding.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/ping", nil, nil, nil, nil)

	return err
}

// List returns all packages matching the LDAP filter, and the total count
// reported by the server.
func (c *Client) List(ctx context.Context, filter string, opts *api.RequestOptions) ([]api.Record, int, error) {
	if _, err := ldap.CompileFilter(filter); err != nil {
		return nil, 0, errors.NewQueryError("filter %s malformed: %v", filter, err)
	}

	query := url.Values{}
	query.Set("filter", filter)

	records := []api.Record{}

	header, err := c.do(ctx, http.MethodGet, "/packages", query, nil, &records, opts)
	if err != nil {
		return nil, 0, err
	}

	count := len(records)

	if value := header.Get(api.HeaderResourceCount); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, 0, fmt.Errorf("PAPI resource count %s malformed: %w", value, err)
		}

		count = n
	}

	glog.V(log.LevelDebug).Infof("PAPI filter %s matched %d packages", filter, count)

	return records, count, nil
}

// Get returns a single package.
func (c *Client) Get(ctx context.Context, id string, opts *api.RequestOptions) (api.Record, error) {
	if id == "" {
		return nil, errors.NewParameterError("package identifier not specified")
	}

	record := api.Record{}

	if _, err := c.do(ctx, http.MethodGet, "/packages/"+url.PathEscape(id), nil, nil, &record, opts); err != nil {
		return nil, err
	}

	return record, nil
}

// Update replaces the top level fields of a package named in the patch.
func (c *Client) Update(ctx context.Context, id string, patch api.Record, opts *api.RequestOptions) error {
	if id == "" {
		return errors.NewParameterError("package identifier not specified")
	}

	if len(patch) == 0 {
		return errors.NewParameterError("package update for %s is empty", id)
	}

	if _, err := c.do(ctx, http.MethodPut, "/packages/"+url.PathEscape(id), nil, patch, nil, opts); err != nil {
		return err
	}

	glog.V(log.LevelDebug).Infof("PAPI updated package %s", id)

	return nil
}
