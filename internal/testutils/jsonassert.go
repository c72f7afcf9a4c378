package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mcuadros/go-defaults"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// PresencePlaceholder in expected JSON matches any value, as long as the key exists.
const PresencePlaceholder = "<<PRESENCE>>"

type JSONAssertOptions struct {
	IgnoreExtraKeys bool     `default:"true"`
	IgnoredFields   []string `default:""`
}

type JSONOption func(*JSONAssertOptions)

// JSONAsserter compares JSON documents structurally and reports a gojsondiff
// rendering on mismatch.
type JSONAsserter struct {
	t       TestingT
	options JSONAssertOptions
}

func NewJSONAsserter(t TestingT, opts ...JSONOption) *JSONAsserter {
	o := JSONAssertOptions{}
	defaults.SetDefaults(&o)
	for _, opt := range opts {
		opt(&o)
	}
	return &JSONAsserter{t: t, options: o}
}

func (ja *JSONAsserter) Assert(actualJSON, expectedJSON string) bool {
	ja.t.Helper()
	if diff := ja.Diff(actualJSON, expectedJSON); diff != "" {
		ja.t.Errorf("JSON assertion failed:\n%s", diff)
		return false
	}
	return true
}

// AssertKeyOrder checks that the top-level object of actualJSON lists
// exactly keys, in that order. Structural comparison ignores order, so this
// is how ordered output is verified.
func (ja *JSONAsserter) AssertKeyOrder(actualJSON string, keys ...string) bool {
	ja.t.Helper()
	got, err := TopLevelKeys(actualJSON)
	if err != nil {
		ja.t.Errorf("invalid actual JSON: %v", err)
		return false
	}
	if fmt.Sprint(got) != fmt.Sprint(keys) {
		ja.t.Errorf("JSON key order mismatch:\n  expected: %v\n  actual:   %v", keys, got)
		return false
	}
	return true
}

// Diff returns a human readable difference, or "" when the documents match.
func (ja *JSONAsserter) Diff(actualJSON, expectedJSON string) string {
	var expected, actual interface{}
	if err := json.Unmarshal([]byte(expectedJSON), &expected); err != nil {
		return fmt.Sprintf("invalid expected JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(actualJSON), &actual); err != nil {
		return fmt.Sprintf("invalid actual JSON: %v", err)
	}

	// gojsondiff compares objects only
	if _, ok := expected.([]interface{}); ok {
		expected = map[string]interface{}{"array": expected}
		actual = map[string]interface{}{"array": actual}
	}

	normalize(expected, actual, &ja.options)

	expectedBytes, _ := json.Marshal(expected)
	actualBytes, _ := json.Marshal(actual)
	diff, err := gojsondiff.New().Compare(expectedBytes, actualBytes)
	if err != nil {
		return fmt.Sprintf("JSON comparison failed: %v", err)
	}
	if !diff.Modified() {
		return ""
	}

	var base map[string]interface{}
	_ = json.Unmarshal(expectedBytes, &base)
	f := formatter.NewAsciiFormatter(base, formatter.AsciiFormatterConfig{ShowArrayIndex: true})
	out, err := f.Format(diff)
	if err != nil {
		return fmt.Sprintf("JSON documents differ (format failed: %v)", err)
	}
	return out
}

// normalize rewrites expected and actual in place according to opts.
func normalize(expected, actual interface{}, opts *JSONAssertOptions) {
	switch exp := expected.(type) {
	case map[string]interface{}:
		act, ok := actual.(map[string]interface{})
		if !ok {
			return
		}
		for _, field := range opts.IgnoredFields {
			delete(exp, field)
			delete(act, field)
		}
		for k, v := range exp {
			actVal, exists := act[k]
			if !exists {
				continue
			}
			if v == PresencePlaceholder {
				exp[k] = actVal
				continue
			}
			normalize(v, actVal, opts)
		}
		if opts.IgnoreExtraKeys {
			for k := range act {
				if _, wanted := exp[k]; !wanted {
					delete(act, k)
				}
			}
		}
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok {
			return
		}
		for i := range exp {
			if i < len(act) {
				normalize(exp[i], act[i], opts)
			}
		}
	}
}

// TopLevelKeys returns the keys of a JSON object in document order.
func TopLevelKeys(doc string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		keys = append(keys, tok.(string))

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return keys, nil
}

func WithIgnoreExtraKeys(ignore bool) JSONOption {
	return func(o *JSONAssertOptions) { o.IgnoreExtraKeys = ignore }
}

func WithIgnoredFields(fields ...string) JSONOption {
	return func(o *JSONAssertOptions) { o.IgnoredFields = fields }
}
