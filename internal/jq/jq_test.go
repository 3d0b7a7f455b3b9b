package jq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatch(t *testing.T) {
	record := map[string]any{
		"lifecycle-state": "AVAILABLE",
		"display-name":    "prod-web",
		"defined-tags":    map[string]any{"Ops": map[string]any{"env": "prod"}},
	}

	testCases := []struct {
		expr string
		want bool
	}{
		{`."lifecycle-state" == "AVAILABLE"`, true},
		{`."lifecycle-state" == "TERMINATED"`, false},
		{`."display-name" | startswith("prod")`, true},
		{`."defined-tags".Ops.env`, true},
		{`."defined-tags".Finance`, false},
		{`empty`, false},
		{`halt`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			f, err := Compile(tc.expr)
			require.NoError(t, err)
			got, err := f.Match(record)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFilterErrors(t *testing.T) {
	_, err := Compile("")
	assert.EqualError(t, err, "jq query is empty")

	_, err = Compile(".[")
	assert.Error(t, err)

	f, err := Compile(`error("boom")`)
	require.NoError(t, err)
	_, err = f.Match(map[string]any{})
	assert.ErrorContains(t, err, "boom")
}
