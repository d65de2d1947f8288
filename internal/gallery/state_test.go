package gallery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/photo"
)

func rec(id int, taken string) photo.Record {
	t, err := time.Parse("2006-01-02", taken)
	if err != nil {
		panic(err)
	}
	ts := photo.NewTimestamp(t)
	return photo.Record{ID: id, Filename: "p.jpg", DateTaken: &ts, CreatedAt: photo.NewTimestamp(t.Add(time.Hour))}
}

func TestAppendPageDropsDuplicates(t *testing.T) {
	s := New(DefaultSort)
	page := []photo.Record{rec(1, "2024-03-01"), rec(2, "2024-02-01"), rec(3, "2024-01-01")}

	assert.Equal(t, 3, s.AppendPage(page))
	assert.Equal(t, 0, s.AppendPage(page), "same page twice adds nothing")
	assert.Equal(t, 3, s.Len())

	assert.Equal(t, 1, s.AppendPage([]photo.Record{rec(2, "1999-01-01"), rec(4, "2023-12-01"), rec(4, "2023-12-01")}))
	assert.Equal(t, []int{1, 2, 3, 4}, s.IDs())

	p, _ := s.Photo(2)
	assert.Equal(t, 2024, p.EffectiveDate().Year(), "first-seen record is kept")
}

func TestAppendPageNeverDuplicatesIDs(t *testing.T) {
	s := New(DefaultSort)
	for round := 0; round < 5; round++ {
		var page []photo.Record
		for id := round; id < round+10; id++ {
			page = append(page, rec(id, "2024-01-01"))
		}
		s.AppendPage(page)
	}

	seen := make(map[int]bool)
	for _, id := range s.IDs() {
		require.False(t, seen[id], "id %d appears twice", id)
		seen[id] = true
	}
	assert.Equal(t, 14, s.Len())
}

func TestMergeRotationUpdateUnknownIsNoop(t *testing.T) {
	s := New(DefaultSort)
	s.AppendPage([]photo.Record{rec(1, "2024-03-01"), rec(2, "2024-02-01")})
	before := s.Photos()
	gen := s.Generation()

	assert.False(t, s.MergeRotationUpdate(99, 5, 90))
	assert.Equal(t, before, s.Photos())
	assert.Equal(t, gen, s.Generation())
}

func TestMergeRotationUpdateVersionNeverDecreases(t *testing.T) {
	s := New(DefaultSort)
	s.AppendPage([]photo.Record{rec(1, "2024-03-01")})

	require.True(t, s.MergeRotationUpdate(1, 4, 90))
	assert.False(t, s.MergeRotationUpdate(1, 3, 180), "older version is ignored")

	p, _ := s.Photo(1)
	assert.Equal(t, 4, p.RotationVersion)
	assert.Equal(t, 90, p.FinalRotation)

	require.True(t, s.MergeRotationUpdate(1, 4, 450), "same version is last-write-wins")
	p, _ = s.Photo(1)
	assert.Equal(t, 90, p.FinalRotation)
}

func TestRotationDoesNotReorder(t *testing.T) {
	s := New(Sort{Field: api.SortDateTaken, Order: api.OrderDesc})
	s.AppendPage([]photo.Record{rec(10, "2024-05-01"), rec(11, "2024-04-01"), rec(12, "2024-03-01"), rec(13, "2024-02-01")})

	idx := s.Index(12)
	require.Equal(t, 2, idx)

	for v := 1; v <= 4; v++ {
		s.MergeRotationUpdate(12, v, v*90)
		assert.Equal(t, idx, s.Index(12))
	}
	assert.Equal(t, []int{10, 11, 12, 13}, s.IDs())
}

func TestMergeBatch(t *testing.T) {
	s := New(DefaultSort)
	s.AppendPage([]photo.Record{rec(1, "2024-03-01"), rec(2, "2024-02-01")})
	s.MergeRotationUpdate(2, 6, 180)

	applied := s.MergeBatch(map[int]photo.RotationState{
		1:  {Version: 1, FinalRotation: 270},
		2:  {Version: 5, FinalRotation: 90},
		77: {Version: 1, FinalRotation: 90},
	})
	assert.Equal(t, 1, applied)

	p1, _ := s.Photo(1)
	p2, _ := s.Photo(2)
	assert.Equal(t, 270, p1.FinalRotation)
	assert.Equal(t, 180, p2.FinalRotation)
}

func TestScopesShareRecords(t *testing.T) {
	s := New(DefaultSort)
	s.AppendPage([]photo.Record{rec(1, "2021-03-01"), rec(2, "2021-02-01")})

	year := s.Scope("year:2021")
	year.Replace([]photo.Record{rec(2, "2021-02-01"), rec(3, "2021-01-01"), rec(1, "2021-03-01")})
	assert.Equal(t, []int{2, 3, 1}, year.IDs())

	require.True(t, s.MergeRotationUpdate(2, 1, 90))
	require.True(t, s.MergeRotationUpdate(3, 1, 180), "scope-only photos can be merged")

	byID := map[int]photo.Record{}
	for _, p := range year.Photos() {
		byID[p.ID] = p
	}
	assert.Equal(t, 90, byID[2].FinalRotation, "scope sees grid merge")
	assert.Equal(t, 180, byID[3].FinalRotation)

	grid := s.Photos()
	assert.Equal(t, 90, grid[1].FinalRotation)
}

func TestScopeReplaceKeepsNewerVersion(t *testing.T) {
	s := New(DefaultSort)
	s.AppendPage([]photo.Record{rec(1, "2021-03-01")})
	s.MergeRotationUpdate(1, 4, 90)

	stale := rec(1, "2021-03-01")
	stale.RotationVersion = 3
	s.Scope("folder:x").Replace([]photo.Record{stale})

	p, _ := s.Photo(1)
	assert.Equal(t, 4, p.RotationVersion)
	assert.Equal(t, 90, p.FinalRotation)
}

func TestDropScopeCollectsRecords(t *testing.T) {
	s := New(DefaultSort)
	s.AppendPage([]photo.Record{rec(1, "2021-03-01")})
	s.Scope("folder:x").Replace([]photo.Record{rec(1, "2021-03-01"), rec(5, "2020-01-01")})

	s.DropScope("folder:x")
	_, ok := s.Photo(5)
	assert.False(t, ok)
	_, ok = s.Photo(1)
	assert.True(t, ok)
}

func TestReset(t *testing.T) {
	s := New(DefaultSort)
	s.AppendPage([]photo.Record{rec(1, "2021-03-01"), rec(2, "2021-02-01")})
	s.Scope("year:2021").Replace([]photo.Record{rec(2, "2021-02-01")})
	epoch := s.Epoch()

	s.Reset(Sort{Field: api.SortCreatedAt, Order: api.OrderAsc})

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, epoch+1, s.Epoch())
	assert.Equal(t, Sort{Field: api.SortCreatedAt, Order: api.OrderAsc}, s.Sort())
	_, ok := s.Photo(1)
	assert.False(t, ok)
	_, ok = s.Photo(2)
	assert.True(t, ok, "record referenced by a scope survives")
}

func TestInsertRecent(t *testing.T) {
	s := New(DefaultSort)
	s.AppendPage([]photo.Record{rec(1, "2024-01-01")})

	n := s.InsertRecent([]photo.Record{rec(3, "2024-03-01"), rec(1, "2024-01-01"), rec(2, "2024-02-01")})
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{3, 2, 1}, s.IDs())

	asc := New(Sort{Field: api.SortDateTaken, Order: api.OrderAsc})
	asc.AppendPage([]photo.Record{rec(1, "2024-01-01")})
	asc.InsertRecent([]photo.Record{rec(3, "2024-03-01"), rec(2, "2024-02-01")})
	assert.Equal(t, []int{1, 2, 3}, asc.IDs())
}

func TestYearAndMonthBuckets(t *testing.T) {
	s := New(DefaultSort)
	s.AppendPage([]photo.Record{
		rec(1, "2024-05-02"),
		rec(2, "2024-05-01"),
		rec(3, "2024-01-09"),
		rec(4, "2022-07-04"),
	})

	years := s.YearBuckets()
	require.Len(t, years, 2)
	assert.Equal(t, 2024, years[0].Year)
	assert.Len(t, years[0].Photos, 3)
	assert.Equal(t, 2022, years[1].Year)

	months := s.MonthBuckets(2024)
	require.Len(t, months, 2)
	assert.Equal(t, time.May, months[0].Month)
	assert.Equal(t, "May", months[0].Name())
	assert.Equal(t, []int{1, 2}, []int{months[0].Photos[0].ID, months[0].Photos[1].ID})
	assert.Equal(t, time.January, months[1].Month)

	s.MergeRotationUpdate(2, 1, 90)
	months = s.MonthBuckets(2024)
	assert.Equal(t, 90, months[0].Photos[1].FinalRotation, "buckets are derived from the store")
}

func TestFolderBuckets(t *testing.T) {
	s := New(DefaultSort)
	a := rec(1, "2024-01-01")
	a.RelativePath = "trips/rome/a.jpg"
	b := rec(2, "2024-01-02")
	b.RelativePath = "b.jpg"
	c := rec(3, "2024-01-03")
	c.RelativePath = "trips/rome/c.jpg"
	s.AppendPage([]photo.Record{a, b, c})

	buckets := s.FolderBuckets()
	require.Len(t, buckets, 2)
	assert.Equal(t, ".", buckets[0].Folder)
	assert.Equal(t, "trips/rome", buckets[1].Folder)
	assert.Len(t, buckets[1].Photos, 2)
}

func TestMissingDateTakenFallsBackToCreatedAt(t *testing.T) {
	s := New(DefaultSort)
	created := photo.NewTimestamp(time.Date(2019, 8, 1, 0, 0, 0, 0, time.UTC))
	s.AppendPage([]photo.Record{{ID: 1, CreatedAt: created}})

	years := s.YearBuckets()
	require.Len(t, years, 1)
	assert.Equal(t, 2019, years[0].Year)
}
