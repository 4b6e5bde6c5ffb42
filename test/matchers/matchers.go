// Package matchers holds gomega matchers for JSON HTTP responses.
package matchers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"

	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/format"
	. "github.com/onsi/gomega/gstruct"
)

func jsonBytes(actual any) ([]byte, error) {
	switch actual := actual.(type) {
	case []byte:
		return actual, nil
	case string:
		return []byte(actual), nil
	case *httptest.ResponseRecorder:
		return actual.Body.Bytes(), nil
	default:
		return nil, fmt.Errorf("expected []byte, string or *httptest.ResponseRecorder. Got:\n%s", format.Object(actual, 1))
	}
}

func decodeJSON(actual any) (value any, err error) {
	data, err := jsonBytes(actual)
	if err != nil {
		return
	}
	err = json.Unmarshal(data, &value)
	if err != nil {
		err = fmt.Errorf("failed to parse JSON from actual value: %w", err)
	}
	return
}

// MatchJSONObject decodes the actual JSON document and matches it with
// expected when expected is a matcher, or compares it with the JSON encoding
// of expected otherwise.
func MatchJSONObject(expected any) OmegaMatcher {
	if matcher, ok := expected.(OmegaMatcher); ok {
		return WithTransform(decodeJSON, matcher)
	}
	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		panic(fmt.Sprintf("MatchJSONObject: cannot encode expected value: %s", err))
	}
	return WithTransform(jsonBytes, MatchJSON(expectedJSON))
}

// HaveApiError matches an error document of the given type. Details, when
// given, must all be present.
func HaveApiError(errType string, details ...any) OmegaMatcher {
	detailsMatcher := Ignore()
	if len(details) > 0 {
		detailsMatcher = ContainElements(details...)
	}
	return MatchJSONObject(MatchAllKeys(Keys{
		"error":             Equal(errType),
		"error_description": Not(BeEmpty()),
		"error_details":     detailsMatcher,
	}))
}

// JSONValue round-trips value through JSON so it compares equal to a
// decoded document.
func JSONValue(value any) (output any) {
	serializedValue, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	err = json.Unmarshal(serializedValue, &output)
	if err != nil {
		panic(err)
	}
	return output
}
