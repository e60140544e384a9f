package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCommand(t *testing.T) {
	assert.True(t, IsCommand("exchange"))
	assert.True(t, IsCommand("Exchange"))
	assert.True(t, IsCommand("EXCHANGE"))
	assert.False(t, IsCommand("exchanger"))
	assert.False(t, IsCommand("hello"))
	assert.False(t, IsCommand(""))
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Query
	}{
		{name: "no arguments means snapshot", args: nil, want: Query{Days: 0}},
		{name: "day count only", args: []string{"3"}, want: Query{Days: 3}},
		{name: "day count and currency", args: []string{"2", "EUR"}, want: Query{Days: 2, Currency: "EUR"}},
		{name: "zero days with currency", args: []string{"0", "USD"}, want: Query{Days: 0, Currency: "USD"}},
		{name: "extra tokens ignored", args: []string{"1", "USD", "please"}, want: Query{Days: 1, Currency: "USD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuery(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQueryMalformedDayCount(t *testing.T) {
	for _, args := range [][]string{
		{"abc"},
		{"2.5"},
		{"-1"},
		{"", "USD"},
	} {
		_, err := ParseQuery(args)
		assert.ErrorIs(t, err, ErrBadDayCount, "args %v", args)
	}
}
