package testkit

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmcmoto/motoportal/pkg/http"
	"github.com/vmcmoto/motoportal/pkg/validate"
)

// AssertAllCalled fails the test if any mock step was never triggered.
func AssertAllCalled(t *testing.T, mt *MockTransport) {
	t.Helper()
	for _, err := range mt.Uncalled() {
		assert.NoError(t, err)
	}
}

// AssertStatusError checks that err wraps an *http.StatusError with code.
func AssertStatusError(t *testing.T, err error, code int) {
	t.Helper()
	var se *http.StatusError
	if assert.ErrorAs(t, err, &se) {
		assert.Equal(t, code, se.Code, "status code mismatch: %v", err)
	}
}

// AssertValidationFields checks that err is a *validate.Error naming exactly
// the given fields.
func AssertValidationFields(t *testing.T, err error, fields ...string) {
	t.Helper()
	var verr *validate.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validate.Error, got %T: %v", err, err)
	}
	got := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		got = append(got, f)
	}
	assert.ElementsMatch(t, fields, got, "validation fields: %v", verr.Fields)
}

// AssertJSONBody compares a captured request body against expected JSON,
// ignoring key order and whitespace.
func AssertJSONBody(t *testing.T, expected string, actual []byte) {
	t.Helper()
	var expVal, actVal interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expVal), "expected body is not valid JSON")
	if !assert.NoError(t, json.Unmarshal(actual, &actVal), "actual body is not valid JSON\nbody: %s", string(actual)) {
		return
	}
	assert.Equal(t, expVal, actVal, "request body mismatch")
}
