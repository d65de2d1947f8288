package photo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordUnmarshalBackendPayload(t *testing.T) {
	payload := `{
		"id": 42,
		"filename": "IMG_0042.jpg",
		"file_size": 2048,
		"mime_type": "image/jpeg",
		"width": 4000,
		"height": 3000,
		"date_taken": "2023-07-14T09:30:00",
		"created_at": "2024-01-02T03:04:05.123456",
		"camera_make": "Canon",
		"is_favorite": true,
		"relative_path": "2023/summer/IMG_0042.jpg",
		"rotation_version": 3,
		"final_rotation": 90,
		"thumbnails": {"400": "/api/v1/thumbnails/42/400"}
	}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	assert.Equal(t, 42, r.ID)
	assert.Equal(t, int64(2048), r.FileSize)
	assert.Equal(t, 3, r.RotationVersion)
	assert.Equal(t, 90, r.FinalRotation)
	assert.True(t, r.IsFavorite)
	require.NotNil(t, r.DateTaken)
	assert.Equal(t, time.Date(2023, 7, 14, 9, 30, 0, 0, time.UTC), r.DateTaken.Time)
	assert.Equal(t, 2024, r.CreatedAt.Year())
	assert.Equal(t, "2023/summer", r.Folder())
}

func TestRecordMissingOptionalFields(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"filename":"a.png","created_at":"2024-05-01T00:00:00Z","date_taken":null}`), &r))

	assert.Nil(t, r.DateTaken)
	assert.Equal(t, 0, r.RotationVersion)
	assert.Equal(t, 0, r.FinalRotation)
	assert.Equal(t, r.CreatedAt.Time, r.EffectiveDate(), "missing date_taken falls back to created_at")
	assert.Equal(t, ".", r.Folder())
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)

	var r Record
	assert.Error(t, json.Unmarshal([]byte(`{"id":1,"created_at":"not a date"}`), &r))
}

func TestTimestampMarshalRoundTrip(t *testing.T) {
	ts := NewTimestamp(time.Date(2022, 2, 3, 4, 5, 6, 0, time.UTC))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2022-02-03T04:05:06Z"`, string(data))

	data, err = json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestWithRotationNeverLowersVersion(t *testing.T) {
	r := Record{ID: 1, RotationVersion: 5, FinalRotation: 180}

	updated, ok := r.WithRotation(RotationState{Version: 6, FinalRotation: 270})
	assert.True(t, ok)
	assert.Equal(t, 6, updated.RotationVersion)
	assert.Equal(t, 270, updated.FinalRotation)

	stale, ok := updated.WithRotation(RotationState{Version: 4, FinalRotation: 0})
	assert.False(t, ok)
	assert.Equal(t, updated, stale)

	same, ok := updated.WithRotation(RotationState{Version: 6, FinalRotation: -90})
	assert.True(t, ok, "equal versions are last-write-wins")
	assert.Equal(t, 270, same.FinalRotation)
}

func TestDisplayDimensions(t *testing.T) {
	r := Record{Width: 4000, Height: 3000}

	w, h := r.DisplayDimensions(0)
	assert.Equal(t, [2]int{4000, 3000}, [2]int{w, h})

	w, h = r.DisplayDimensions(90)
	assert.Equal(t, [2]int{3000, 4000}, [2]int{w, h})

	w, h = r.DisplayDimensions(270)
	assert.Equal(t, [2]int{3000, 4000}, [2]int{w, h})
}

func TestFolderWindowsSeparators(t *testing.T) {
	r := Record{FilePath: `trips\japan\img.jpg`}
	assert.Equal(t, "trips/japan", r.Folder())
}
