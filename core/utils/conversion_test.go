package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToString(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want string
	}{
		{"String passthrough", "abc", "abc"},
		{"Nil is empty", nil, ""},
		{"Bytes", []byte("xyz"), "xyz"},
		{"JSON integer", float64(42), "42"},
		{"JSON fraction", 1.5, "1.5"},
		{"Bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToString(tt.val))
		})
	}
}

func TestToInt64(t *testing.T) {
	assert.Equal(t, int64(7), ToInt64(float64(7)))
	assert.Equal(t, int64(7), ToInt64("7"))
	assert.Equal(t, int64(7), ToInt64(int64(7)))
	assert.Equal(t, int64(0), ToInt64(nil))
	assert.Equal(t, int64(0), ToInt64("not a number"))
}

func TestToBool(t *testing.T) {
	assert.True(t, ToBool(true))
	assert.True(t, ToBool("true"))
	assert.True(t, ToBool("1"))
	assert.True(t, ToBool(float64(1)))
	assert.False(t, ToBool(float64(0)))
	assert.False(t, ToBool(nil))
	assert.False(t, ToBool("no"))
}
