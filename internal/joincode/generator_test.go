package joincode

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	g := NewRandomGenerator()

	for i := 0; i < 1000; i++ {
		code := g.Generate()

		require.Len(t, code, 8)
		assert.True(t, Valid(code))

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, minCode)
		assert.LessOrEqual(t, n, maxCode)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{name: "well-formed", code: "12345678", valid: true},
		{name: "lower bound", code: "10000000", valid: true},
		{name: "upper bound", code: "99999999", valid: true},
		{name: "too short", code: "1234", valid: false},
		{name: "too long", code: "123456789", valid: false},
		{name: "letters", code: "1234abcd", valid: false},
		{name: "empty", code: "", valid: false},
		{name: "whitespace", code: " 12345678", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Valid(tt.code))
		})
	}
}
