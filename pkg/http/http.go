// Package http provides the fluent HTTP client used to talk to the catalog
// backend.
//
// Usage:
//
//	resp, err := http.Get(base + "/models/12/specs").
//	    Name("specs.list").
//	    Bearer(token).
//	    Timeout(5 * time.Second).
//	    Retry(3, time.Second).
//	    WithContext(ctx).
//	    Send()
//
//	var specs []models.Spec
//	err = resp.JSON(&specs)
//
//	// multipart upload
//	resp, err := http.Post(base + "/admin/models/12/photos").
//	    Multipart("file", "front.jpg", "image/jpeg", body).
//	    Send()
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	gohttp "net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/vmcmoto/motoportal/pkg/logger"
	"github.com/vmcmoto/motoportal/pkg/metrics"
	"github.com/vmcmoto/motoportal/pkg/reqid"
)

// defaultTransport is the connection-pooled transport used in production.
// Tests can replace DefaultClient.Transport to inject mocks.
var defaultTransport = &gohttp.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
}

// DefaultClient is the shared client used when a request has no client set.
//
//	http.DefaultClient.Transport = myMockTransport
var DefaultClient = &gohttp.Client{
	Transport: defaultTransport,
}

// ------------------- Request -------------------

type filePart struct {
	field       string
	filename    string
	contentType string
	body        io.Reader
}

// Request is a fluent HTTP request builder.
type Request struct {
	method    string
	url       string
	name      string
	headers   map[string]string
	body      interface{}
	file      *filePart
	timeout   time.Duration
	retries   int
	retryWait time.Duration
	ctx       context.Context
	client    *gohttp.Client
}

// Get starts a GET request.
func Get(url string) *Request { return newRequest(gohttp.MethodGet, url) }

// Post starts a POST request.
func Post(url string) *Request { return newRequest(gohttp.MethodPost, url) }

// Put starts a PUT request.
func Put(url string) *Request { return newRequest(gohttp.MethodPut, url) }

// Delete starts a DELETE request.
func Delete(url string) *Request { return newRequest(gohttp.MethodDelete, url) }

func newRequest(method, url string) *Request {
	return &Request{
		method:    method,
		url:       url,
		name:      method,
		headers:   map[string]string{"Accept": "application/json"},
		timeout:   30 * time.Second,
		retries:   1,
		retryWait: 500 * time.Millisecond,
		ctx:       context.Background(),
	}
}

// Name labels the request in logs and metrics. URLs carry ids, so they make
// poor metric labels.
func (r *Request) Name(name string) *Request {
	r.name = name
	return r
}

// Header adds a single header to the request.
func (r *Request) Header(key, value string) *Request {
	r.headers[key] = value
	return r
}

// Bearer sets the Authorization: Bearer <token> header. An empty token is
// ignored.
func (r *Request) Bearer(token string) *Request {
	if token == "" {
		return r
	}
	return r.Header("Authorization", "Bearer "+token)
}

// Body sets the request body. v is marshalled to JSON automatically.
// Pass a string or []byte to send raw bodies.
func (r *Request) Body(v interface{}) *Request {
	r.body = v
	return r
}

// Multipart sends body as a single multipart/form-data file field. The part
// is buffered in memory so the request can be built again on retry.
func (r *Request) Multipart(field, filename, contentType string, body io.Reader) *Request {
	r.file = &filePart{field: field, filename: filename, contentType: contentType, body: body}
	return r
}

// Timeout sets the per-attempt timeout.
func (r *Request) Timeout(d time.Duration) *Request {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Retry configures automatic retries on transport failure or a 5xx answer.
// n is total attempts (1 = no retry), wait is the initial backoff (doubles each attempt).
func (r *Request) Retry(n int, wait time.Duration) *Request {
	if n < 1 {
		n = 1
	}
	r.retries = n
	r.retryWait = wait
	return r
}

// WithContext sets a custom context.
func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// Using sends the request through c instead of DefaultClient.
func (r *Request) Using(c *gohttp.Client) *Request {
	r.client = c
	return r
}

// ------------------- Send -------------------

// Send executes the request and returns a Response. Transport failures are
// returned as errors; any HTTP status, including 4xx and 5xx, is a Response.
func (r *Request) Send() (*Response, error) {
	payload, ct, err := r.buildBody()
	if err != nil {
		return nil, err
	}
	if r.headers[reqid.Header] == "" {
		if id := reqid.FromCtx(r.ctx); id != "" {
			r.headers[reqid.Header] = id
		}
	}

	log := logger.WithCtx(r.ctx)
	var (
		resp    *Response
		lastErr error
	)
	for attempt := 1; attempt <= r.retries; attempt++ {
		start := time.Now()
		resp, lastErr = r.do(payload, ct)
		metrics.ObserveBackendCall(r.name, statusLabel(resp, lastErr), start)

		retryable := lastErr != nil || resp.StatusCode >= 500
		if !retryable || attempt == r.retries {
			break
		}
		if err := r.ctx.Err(); err != nil {
			lastErr = err
			break
		}
		backoff := time.Duration(float64(r.retryWait) * math.Pow(2, float64(attempt-1)))
		log.Warn("http: request failed, retrying",
			"op", r.name, "attempt", attempt, "backoff", backoff, "error", lastErr)
		time.Sleep(backoff)
	}

	if lastErr != nil {
		if r.retries > 1 {
			return nil, fmt.Errorf("http: all %d attempts failed for %s %s: %w", r.retries, r.method, r.url, lastErr)
		}
		return nil, fmt.Errorf("http: %s %s: %w", r.method, r.url, lastErr)
	}
	log.Debug("http: request done", "op", r.name, "status", resp.StatusCode)
	return resp, nil
}

func (r *Request) do(payload []byte, ct string) (*Response, error) {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := gohttp.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	client := r.client
	if client == nil {
		client = DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Raw:        raw,
		method:     r.method,
		url:        r.url,
	}, nil
}

func (r *Request) buildBody() ([]byte, string, error) {
	if r.file != nil {
		return r.buildMultipart()
	}
	if r.body == nil {
		return nil, "", nil
	}
	switch v := r.body.(type) {
	case string:
		return []byte(v), "text/plain", nil
	case []byte:
		return v, "application/octet-stream", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("http: marshal body: %w", err)
		}
		return b, "application/json", nil
	}
}

func (r *Request) buildMultipart() ([]byte, string, error) {
	if r.file.body == nil {
		return nil, "", fmt.Errorf("http: multipart: %s has no body", r.file.filename)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, r.file.field, r.file.filename))
	ct := r.file.contentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("http: multipart: %w", err)
	}
	if _, err := io.Copy(part, r.file.body); err != nil {
		return nil, "", fmt.Errorf("http: multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("http: multipart: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func statusLabel(resp *Response, err error) string {
	if err != nil || resp == nil {
		return "error"
	}
	return strconv.Itoa(resp.StatusCode)
}

// ------------------- Response -------------------

// Response wraps the HTTP response with convenience methods.
type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
	method     string
	url        string
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON unmarshals the response body into dest.
func (r *Response) JSON(dest interface{}) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

// Header returns a single response header value.
func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}

// Throw returns a *StatusError if the response status is not 2xx.
func (r *Response) Throw() error {
	if r.OK() {
		return nil
	}
	return &StatusError{
		Method: r.method,
		URL:    r.url,
		Code:   r.StatusCode,
		Detail: detailOf(r.Raw),
	}
}

// StatusError is a non-2xx backend answer.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("http: %s %s: status %d: %s", e.Method, e.URL, e.Code, e.Detail)
	}
	return fmt.Sprintf("http: %s %s: status %d", e.Method, e.URL, e.Code)
}

// IsStatus reports whether err wraps a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// detailOf extracts the backend's error message. The backend answers
// {"detail": "..."}; validation failures carry a list of objects with "msg".
func detailOf(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		if len(raw) > 200 {
			raw = raw[:200]
		}
		return string(bytes.TrimSpace(raw))
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &list); err == nil && len(list) > 0 {
		return list[0].Msg
	}
	return string(body.Detail)
}
