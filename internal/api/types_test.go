package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bokeh-viewer/internal/photo"
)

func TestRotationResultState(t *testing.T) {
	intp := func(v int) *int { return &v }

	tests := []struct {
		name      string
		result    RotationResult
		requested int
		want      photo.RotationState
	}{
		{"final rotation", RotationResult{RotationVersion: 4, FinalRotation: intp(90)}, 180, photo.RotationState{Version: 4, FinalRotation: 90}},
		{"final rotation zero", RotationResult{RotationVersion: 5, FinalRotation: intp(0)}, 90, photo.RotationState{Version: 5, FinalRotation: 0}},
		{"total rotation fallback", RotationResult{RotationVersion: 2, TotalRotation: intp(450)}, 0, photo.RotationState{Version: 2, FinalRotation: 90}},
		{"requested fallback", RotationResult{RotationVersion: 1}, 270, photo.RotationState{Version: 1, FinalRotation: 270}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.State(tt.requested))
		})
	}
}

func TestFlexID(t *testing.T) {
	var v struct {
		A FlexID `json:"a"`
		B FlexID `json:"b"`
		C FlexID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12, "b": "abc-1", "c": null}`), &v))

	n, ok := v.A.Int()
	assert.True(t, ok)
	assert.Equal(t, 12, n)
	assert.Equal(t, FlexID("abc-1"), v.B)
	_, ok = v.B.Int()
	assert.False(t, ok)
	assert.Equal(t, FlexID(""), v.C)
}

func TestJobDecode(t *testing.T) {
	raw := `[{"id":3,"type":"thumbnail_generation","status":"RUNNING","progress":42.5,
		"total_items":100,"processed_items":42,"error_message":null,
		"created_at":"2024-05-01T10:00:00.123456","started_at":null,"completed_at":null,
		"payload":{"workers":4,"completed":40,"failed":2}}]`

	var jobs []Job
	require.NoError(t, json.Unmarshal([]byte(raw), &jobs))
	require.Len(t, jobs, 1)
	j := jobs[0]
	assert.Equal(t, 3, j.ID)
	assert.Equal(t, 42.5, j.Progress)
	assert.Equal(t, "", j.ErrorMessage)
	require.NotNil(t, j.CreatedAt)
	assert.Equal(t, 2024, j.CreatedAt.Year())
	assert.Equal(t, float64(4), j.Payload["workers"])
}
