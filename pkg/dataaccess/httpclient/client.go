// Package httpclient implements dataaccess.Client against a JSON HTTP API.
//
// Routes are resolved against a base URL:
//
//	GET    {base}{resource}/{id}
//	GET    {source}                (absolute, or relative to base)
//	POST   {base}{resource}
//	PUT    {base}{resource}/{id}
//	DELETE {base}{resource}/{id}
//
// Params travel as the query string. Create and update send JSON unless the
// caller asks for multipart.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/filecodec"
	"github.com/goliatone/go-formbind/pkg/model"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultResultsPath = "data"
	defaultValueKey    = "value"
	defaultLabelKey    = "label"
	maxErrorBody       = 1 << 20
	defaultMaxBody     = 16 << 20
)

var _ dataaccess.Client = (*Client)(nil)

// ErrResponseTooLarge is returned when a successful response body exceeds the
// configured limit.
var ErrResponseTooLarge = errors.New("httpclient: response too large")

// Client is a net/http backed dataaccess.Client.
type Client struct {
	base       *url.URL
	http       *http.Client
	timeout    time.Duration
	headers    http.Header
	limiter    *rate.Limiter
	logger     logrus.FieldLogger
	entityPath string
	dict       DictionaryKeys
	maxBody    int64
}

// DictionaryKeys tells the client where option lists live inside dictionary
// responses. ResultsPath is a gjson path used when the payload is not a bare
// array.
type DictionaryKeys struct {
	ResultsPath string
	ValueKey    string
	LabelKey    string
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout bounds every request. Zero disables the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout >= 0 {
			c.timeout = timeout
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithLogger routes request logging to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxBodySize caps successful response bodies at limit bytes. Entities
// that embed files as data URLs may need more than the 16 MiB default.
func WithMaxBodySize(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxBody = limit
		}
	}
}

// WithEntityPath unwraps entity responses found under a gjson path, for APIs
// that answer {"data": {...}}.
func WithEntityPath(path string) Option {
	return func(c *Client) {
		c.entityPath = strings.TrimSpace(path)
	}
}

// WithDictionaryKeys overrides how dictionary payloads are read. Empty
// members keep their defaults.
func WithDictionaryKeys(keys DictionaryKeys) Option {
	return func(c *Client) {
		if keys.ResultsPath != "" {
			c.dict.ResultsPath = keys.ResultsPath
		}
		if keys.ValueKey != "" {
			c.dict.ValueKey = keys.ValueKey
		}
		if keys.LabelKey != "" {
			c.dict.LabelKey = keys.LabelKey
		}
	}
}

// New builds a client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("httpclient: base url is required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpclient: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("httpclient: base url %q must be absolute", baseURL)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := &Client{
		base:    base,
		http:    http.DefaultClient,
		timeout: defaultTimeout,
		headers: make(http.Header),
		logger:  logger,
		maxBody: defaultMaxBody,
		dict: DictionaryKeys{
			ResultsPath: defaultResultsPath,
			ValueKey:    defaultValueKey,
			LabelKey:    defaultLabelKey,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// GetEntity fetches resource/id.
func (c *Client) GetEntity(ctx context.Context, resource, id string) (model.Entity, error) {
	target, err := c.entityURL(resource, id, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, "get entity", http.MethodGet, target, nil, "")
	if err != nil {
		return nil, err
	}
	return c.decodeEntity("get entity", body)
}

// GetDictionary fetches an option list from source.
func (c *Client) GetDictionary(ctx context.Context, source string) ([]model.Option, error) {
	target, err := c.resolve(source)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, "get dictionary", http.MethodGet, target, nil, "")
	if err != nil {
		return nil, err
	}
	return ParseOptions(body, c.dict)
}

// CreateEntity posts payload to resource.
func (c *Client) CreateEntity(ctx context.Context, resource string, payload model.State, opts dataaccess.MutateOptions) (model.Entity, error) {
	target, err := c.entityURL(resource, "", opts.Params)
	if err != nil {
		return nil, err
	}
	return c.mutate(ctx, "create entity", http.MethodPost, target, payload, opts.Multipart)
}

// UpdateEntity puts payload to resource/id.
func (c *Client) UpdateEntity(ctx context.Context, resource, id string, payload model.State, opts dataaccess.MutateOptions) (model.Entity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("httpclient: update entity: id is required")
	}
	target, err := c.entityURL(resource, id, opts.Params)
	if err != nil {
		return nil, err
	}
	return c.mutate(ctx, "update entity", http.MethodPut, target, payload, opts.Multipart)
}

// DeleteEntity deletes resource/id.
func (c *Client) DeleteEntity(ctx context.Context, resource, id string, opts dataaccess.DeleteOptions) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("httpclient: delete entity: id is required")
	}
	target, err := c.entityURL(resource, id, opts.Params)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, "delete entity", http.MethodDelete, target, nil, "")
	return err
}

func (c *Client) mutate(ctx context.Context, op, method, target string, payload model.State, asMultipart bool) (model.Entity, error) {
	var (
		body        bytes.Buffer
		contentType string
	)
	if asMultipart {
		writer := multipart.NewWriter(&body)
		if err := filecodec.WriteMultipart(writer, payload); err != nil {
			return nil, fmt.Errorf("httpclient: %s: %w", op, err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("httpclient: %s: close multipart: %w", op, err)
		}
		contentType = writer.FormDataContentType()
	} else {
		if err := filecodec.CheckStructured(payload); err != nil {
			return nil, fmt.Errorf("httpclient: %s: %w", op, err)
		}
		values := payload.Values
		if values == nil {
			values = map[string]any{}
		}
		if err := json.NewEncoder(&body).Encode(values); err != nil {
			return nil, fmt.Errorf("httpclient: %s: encode payload: %w", op, err)
		}
		contentType = "application/json"
	}

	respBody, err := c.do(ctx, op, method, target, &body, contentType)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return model.Entity{}, nil
	}
	return c.decodeEntity(op, respBody)
}

func (c *Client) do(ctx context.Context, op, method, target string, body io.Reader, contentType string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("httpclient: %s: rate limit: %w", op, err)
		}
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	log := c.logger.WithFields(logrus.Fields{"op": op, "method": method, "url": target})
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return nil, fmt.Errorf("httpclient: %s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: read body: %w", op, err)
	}
	log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(started)}).Debug("request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, ParseStatusError(op, resp.StatusCode, data)
	}
	if int64(len(data)) > c.maxBody {
		log.WithField("limit", c.maxBody).Warn("response body over limit")
		return nil, fmt.Errorf("%w: %s: body exceeds %d bytes", ErrResponseTooLarge, op, c.maxBody)
	}
	return data, nil
}

func (c *Client) decodeEntity(op string, body []byte) (model.Entity, error) {
	raw := body
	if c.entityPath != "" {
		result := gjson.GetBytes(body, c.entityPath)
		if !result.Exists() {
			return nil, fmt.Errorf("httpclient: %s: path %q not found in response", op, c.entityPath)
		}
		raw = []byte(result.Raw)
	}
	var entity model.Entity
	if err := json.Unmarshal(raw, &entity); err != nil {
		return nil, fmt.Errorf("httpclient: %s: decode entity: %w", op, err)
	}
	if entity == nil {
		entity = model.Entity{}
	}
	return entity, nil
}

func (c *Client) entityURL(resource, id string, params dataaccess.Params) (string, error) {
	resource = strings.Trim(strings.TrimSpace(resource), "/")
	if resource == "" {
		return "", errors.New("httpclient: resource is required")
	}
	path := resource
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("httpclient: resource %q: %w", resource, err)
	}
	target := c.base.ResolveReference(ref)
	if len(params) > 0 {
		query := target.Query()
		for key, values := range params.Query() {
			query[key] = values
		}
		target.RawQuery = query.Encode()
	}
	return target.String(), nil
}

func (c *Client) resolve(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", errors.New("httpclient: dictionary source is required")
	}
	ref, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("httpclient: dictionary source %q: %w", source, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	ref.Path = strings.TrimPrefix(ref.Path, "/")
	return c.base.ResolveReference(ref).String(), nil
}
