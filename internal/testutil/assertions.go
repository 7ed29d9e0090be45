// Package testutil provides common test assertions shared across packages.
package testutil

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/oneshot/domain/errors"
)

// AssertErrorType asserts that err classifies as the given ErrorDetail type
// ("link", "network", "timeout", "config", ...).
func AssertErrorType(t *testing.T, err error, wantType string, msgAndArgs ...interface{}) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	detail := errors.ToErrorDetail(err)
	require.NotNil(t, detail)
	assert.Equal(t, wantType, detail.Type, msgAndArgs...)
}

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}

// AssertValidJSON asserts that s parses as JSON and returns the decoded value.
func AssertValidJSON(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &v), "invalid JSON: %s", s)
	return v
}

// AssertLinesInOrder asserts that every want string appears in output, each
// after the previous one.
func AssertLinesInOrder(t *testing.T, output string, want ...string) {
	t.Helper()
	rest := output
	for _, w := range want {
		i := strings.Index(rest, w)
		if !assert.GreaterOrEqual(t, i, 0, "%q missing or out of order in:\n%s", w, output) {
			return
		}
		rest = rest[i+len(w):]
	}
}

// AssertDurationWithin asserts that a duration is within a tolerance of an expected value
func AssertDurationWithin(t *testing.T, expected, actual, tolerance time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	diff := expected - actual
	if diff < 0 {
		diff = -diff
	}

	assert.LessOrEqual(t, diff, tolerance, msgAndArgs...)
}
