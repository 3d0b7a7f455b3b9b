package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *Env) (int, error) { return 0, nil }

func names(stages []Stage) []string {
	out := make([]string, 0, len(stages))
	for _, s := range stages {
		out = append(out, s.Name)
	}
	return out
}

func TestNewPipelineOrdersByPrerequisites(t *testing.T) {
	p, err := NewPipeline(
		Stage{Name: "a/first", Run: noop},
		Stage{Name: "a/link", Requires: []string{"a/late"}, Run: noop},
		Stage{Name: "a/late", Run: noop},
		Stage{Name: "t/join", Scope: ScopeTenancy, Requires: []string{"a/first"}, Run: noop},
		Stage{Name: "a/other", Run: noop},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/first", "a/late", "a/link", "a/other", "t/join"}, names(p.Stages()))
}

func TestNewPipelineErrors(t *testing.T) {
	tests := []struct {
		name   string
		stages []Stage
		want   string
	}{
		{
			name:   "unknown prerequisite",
			stages: []Stage{{Name: "x", Requires: []string{"y"}, Run: noop}},
			want:   "requires unknown stage y",
		},
		{
			name: "cycle",
			stages: []Stage{
				{Name: "x", Requires: []string{"y"}, Run: noop},
				{Name: "y", Requires: []string{"x"}, Run: noop},
				{Name: "z", Run: noop},
			},
			want: "cycle among x, y",
		},
		{
			name: "regional after tenancy",
			stages: []Stage{
				{Name: "t", Scope: ScopeTenancy, Run: noop},
				{Name: "r", Requires: []string{"t"}, Run: noop},
			},
			want: "regional stage r cannot require tenancy stage t",
		},
		{
			name:   "duplicate",
			stages: []Stage{{Name: "x", Run: noop}, {Name: "x", Run: noop}},
			want:   "duplicate stage x",
		},
		{
			name:   "no run function",
			stages: []Stage{{Name: "x"}},
			want:   "no run function",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.stages...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDefaultPipeline(t *testing.T) {
	p := DefaultPipeline()
	order := names(p.Stages())
	require.Len(t, order, 20)

	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	for _, s := range p.Stages() {
		for _, req := range s.Requires {
			assert.Less(t, pos[req], pos[s.Name], "%s runs before %s", req, s.Name)
		}
	}
	assert.Equal(t, StagePolicyBucket, order[len(order)-2])
	assert.Equal(t, StageBucketRegion, order[len(order)-1])

	s, ok := p.Stage(StageBuckets)
	require.True(t, ok)
	assert.Equal(t, "bucket", s.Resource)
	assert.True(t, s.Matches("objectstorage"))
	assert.True(t, s.Matches("bucket"))
	assert.False(t, s.Matches("network"))
}
