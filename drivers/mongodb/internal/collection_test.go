package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFindOptions(t *testing.T) {
	tests := []struct {
		name       string
		projection map[string]any
		wantProj   any
	}{
		{name: "without projection", projection: nil, wantProj: nil},
		{name: "empty projection", projection: map[string]any{}, wantProj: nil},
		{name: "with projection", projection: map[string]any{"ts": float64(1)}, wantProj: map[string]any{"ts": float64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := findOptions(tt.projection, "ts", 250)
			assert.Equal(t, bson.D{{Key: "ts", Value: 1}}, opts.Sort)
			require.NotNil(t, opts.BatchSize)
			assert.Equal(t, int32(250), *opts.BatchSize)
			if tt.wantProj == nil {
				assert.Nil(t, opts.Projection)
				return
			}
			assert.Equal(t, tt.wantProj, opts.Projection)
		})
	}
}
