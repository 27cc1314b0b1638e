package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
)

// ─── MockTransport ────────────────────────────────────────────────────────────

// MockStep describes one intercepted outgoing call. Steps can be written
// inline or loaded from a testdata JSON file with LoadSteps.
type MockStep struct {
	// Method is the HTTP method to match; empty matches any.
	Method string `json:"method"`

	// MatchURL is matched as a prefix of the outgoing URL; empty matches any.
	MatchURL string `json:"matchUrl"`

	// Status defaults to 200.
	Status int `json:"status"`

	// Body is returned verbatim.
	Body string `json:"body"`

	// Err, when set, is returned instead of a response (transport failure).
	Err error `json:"-"`
}

// Call is one request seen by a MockTransport.
type Call struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// MockTransport implements http.RoundTrip against a list of MockSteps.
//
// Route a client through it for the test:
//
//	mt := testkit.NewMockTransport(steps...)
//	client := &http.Client{Transport: mt}
//	// ... run test with client ...
//	testkit.AssertAllCalled(t, mt)
type MockTransport struct {
	mu     sync.Mutex
	steps  []mockEntry
	calls  []Call
	Strict bool // fail on unmocked call
}

type mockEntry struct {
	step      MockStep
	callCount int
}

// NewMockTransport builds a strict MockTransport from steps.
func NewMockTransport(steps ...MockStep) *MockTransport {
	mt := &MockTransport{Strict: true}
	for _, s := range steps {
		mt.steps = append(mt.steps, mockEntry{step: s})
	}
	return mt
}

// LoadSteps reads a JSON array of MockSteps.
func LoadSteps(path string) ([]MockStep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", path, err)
	}
	var steps []MockStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", path, err)
	}
	return steps, nil
}

// RoundTrip intercepts the outgoing request and returns a synthetic response.
// The first step that matches and has not been used wins; when every matching
// step was used the last one repeats.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.calls = append(mt.calls, Call{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	var match *mockEntry
	for i := range mt.steps {
		e := &mt.steps[i]
		if !stepMatches(e.step, req) {
			continue
		}
		match = e
		if e.callCount == 0 {
			break
		}
	}

	if match == nil {
		if mt.Strict {
			return nil, fmt.Errorf("testkit: unexpected outgoing HTTP call %s %s, no matching mock step", req.Method, req.URL)
		}
		return buildHTTPResponse(req, MockStep{Status: http.StatusNotFound, Body: `{"detail":"no mock configured"}`}), nil
	}

	match.callCount++
	if match.step.Err != nil {
		return nil, match.step.Err
	}
	return buildHTTPResponse(req, match.step), nil
}

// Calls returns a copy of every request seen so far.
func (mt *MockTransport) Calls() []Call {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	out := make([]Call, len(mt.calls))
	copy(out, mt.calls)
	return out
}

// Uncalled returns an error for every step that was never triggered.
func (mt *MockTransport) Uncalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for _, e := range mt.steps {
		if e.callCount == 0 {
			errs = append(errs, fmt.Errorf(
				"testkit: mock step %s %q was never called", e.step.Method, e.step.MatchURL,
			))
		}
	}
	return errs
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func stepMatches(s MockStep, req *http.Request) bool {
	if s.Method != "" && !strings.EqualFold(s.Method, req.Method) {
		return false
	}
	return s.MatchURL == "" || strings.HasPrefix(req.URL.String(), s.MatchURL)
}

func buildHTTPResponse(req *http.Request, s MockStep) *http.Response {
	code := s.Status
	if code == 0 {
		code = http.StatusOK
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(s.Body))),
		Request:    req,
	}
}
