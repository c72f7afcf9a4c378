package testutils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recorder captures assertion failures instead of failing the enclosing test.
type recorder struct {
	errors []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestTextAsserter_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		opts  []TextOption
		input string
		want  string
	}{
		{
			name:  "strips colors by default",
			input: "\x1b[32mrunning\x1b[0m 12 B",
			want:  "running 12 B",
		},
		{
			name:  "keeps colors when disabled",
			opts:  []TextOption{WithStripANSI(false)},
			input: "\x1b[31mx\x1b[0m",
			want:  "\x1b[31mx\x1b[0m",
		},
		{
			name:  "status line keeps only the last redraw",
			opts:  []TextOption{WithLastCarriageReturn(true)},
			input: "\r\x1b[Kframe 1\r\x1b[Kframe 2\r\x1b[Kframe 3\nnext",
			want:  "frame 3\nnext",
		},
		{
			name:  "trailing whitespace",
			opts:  []TextOption{WithIgnoreTrailingWhitespace(true)},
			input: "a  \nb\t",
			want:  "a\nb",
		},
		{
			name:  "trim space",
			opts:  []TextOption{WithTrimSpace(true)},
			input: "\n\n  body \n",
			want:  "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := NewTextAsserter(t, tt.opts...)
			assert.Equal(t, tt.want, ta.Normalize(tt.input))
		})
	}
}

func TestTextAsserter_AssertReportsDiff(t *testing.T) {
	rec := &recorder{}
	ta := NewTextAsserter(rec)

	assert.True(t, ta.Assert("same\n", "same\n"))
	assert.Empty(t, rec.errors)

	assert.False(t, ta.Assert("00000000  61 62\n", "00000000  61 63\n"))
	assert.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "-00000000  61 63")
	assert.Contains(t, rec.errors[0], "+00000000  61 62")
}

func TestTextAsserter_ColoredDiff(t *testing.T) {
	ta := NewTextAsserter(t, WithEnableColors(true))

	diff := ta.Diff("a b\n", "a c\n")
	assert.Contains(t, diff, "\x1b[")
	assert.Contains(t, diff, "a·b", "whitespace MUST be visible in colored diffs")
	assert.Empty(t, ta.Diff("x", "x"))
}
