package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsInt(t *testing.T) {
	opts := Map{"a": int64(5), "b": 7.0, "c": 2.5, "d": "x"}

	tests := []struct {
		key     string
		want    int
		wantErr bool
	}{
		{"a", 5, false},
		{"b", 7, false},
		{"c", 0, true},
		{"d", 0, true},
		{"missing", 42, false},
	}
	for _, tt := range tests {
		got, err := opts.Int(tt.key, 42)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalid, tt.key)
			continue
		}
		require.NoError(t, err, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}
}

func TestOptionsFloatBoolString(t *testing.T) {
	opts := Map{"f": int64(3), "b": true, "s": "XVID"}

	f, err := opts.Float("f", 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	b, err := opts.Bool("b", false)
	require.NoError(t, err)
	assert.True(t, b)

	s, err := opts.String("s", "")
	require.NoError(t, err)
	assert.Equal(t, "XVID", s)

	_, err = opts.Bool("s", false)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Map(nil).String("missing", "def")
	assert.NoError(t, err)
}

func TestOptionsInts(t *testing.T) {
	opts := Map{
		"rect":  []any{int64(10), int64(20), 30.0, int64(40)},
		"short": []any{int64(1)},
		"bad":   []any{"a", "b"},
		"plain": []int{1, 2},
	}

	vals, ok, err := opts.Ints("rect", 4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{10, 20, 30, 40}, vals)

	_, ok, err = opts.Ints("missing", 4)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = opts.Ints("short", 4)
	assert.ErrorIs(t, err, ErrInvalid)

	_, _, err = opts.Ints("bad", 2)
	assert.ErrorIs(t, err, ErrInvalid)

	vals, ok, err = opts.Ints("plain", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, vals)
}
