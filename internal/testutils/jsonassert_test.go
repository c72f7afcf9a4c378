package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONAsserter_Match(t *testing.T) {
	tests := []struct {
		name     string
		opts     []JSONOption
		actual   string
		expected string
		match    bool
	}{
		{
			name:     "equal objects in any key order",
			actual:   `{"b":2,"a":1}`,
			expected: `{"a":1,"b":2}`,
			match:    true,
		},
		{
			name:     "extra keys ignored by default",
			actual:   `{"name":"s","elapsed_ms":17}`,
			expected: `{"name":"s"}`,
			match:    true,
		},
		{
			name:     "extra keys reported when strict",
			opts:     []JSONOption{WithIgnoreExtraKeys(false)},
			actual:   `{"name":"s","elapsed_ms":17}`,
			expected: `{"name":"s"}`,
		},
		{
			name:     "presence placeholder",
			actual:   `{"name":"0b7c","state":"terminated"}`,
			expected: `{"name":"<<PRESENCE>>","state":"terminated"}`,
			match:    true,
		},
		{
			name:     "placeholder still requires the key",
			actual:   `{"state":"terminated"}`,
			expected: `{"name":"<<PRESENCE>>","state":"terminated"}`,
		},
		{
			name:     "ignored fields",
			opts:     []JSONOption{WithIgnoreExtraKeys(false), WithIgnoredFields("at")},
			actual:   `[{"frame":1,"at":"t1"},{"frame":2,"at":"t2"}]`,
			expected: `[{"frame":1,"at":"x"},{"frame":2,"at":"y"}]`,
			match:    true,
		},
		{
			name:     "value mismatch",
			actual:   `{"buffered":3}`,
			expected: `{"buffered":4}`,
		},
		{
			name:     "invalid actual",
			actual:   `{`,
			expected: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			ok := NewJSONAsserter(rec, tt.opts...).Assert(tt.actual, tt.expected)
			assert.Equal(t, tt.match, ok)
			if tt.match {
				assert.Empty(t, rec.errors)
			} else {
				assert.Len(t, rec.errors, 1)
			}
		})
	}
}

func TestTopLevelKeys(t *testing.T) {
	keys, err := TopLevelKeys(`{"name":"a","capacity":4,"nested":{"z":1,"y":[1,2]},"state":"running"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "capacity", "nested", "state"}, keys)

	_, err = TopLevelKeys(`[1,2]`)
	assert.Error(t, err)
}

func TestJSONAsserter_AssertKeyOrder(t *testing.T) {
	rec := &recorder{}
	ja := NewJSONAsserter(rec)

	assert.True(t, ja.AssertKeyOrder(`{"a":1,"b":2}`, "a", "b"))
	assert.False(t, ja.AssertKeyOrder(`{"b":2,"a":1}`, "a", "b"))
	assert.Len(t, rec.errors, 1)
}
