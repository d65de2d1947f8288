package gallery

import (
	"sort"
	"time"

	"bokeh-viewer/internal/photo"
)

// YearBucket groups grid photos by year.
type YearBucket struct {
	Year   int
	Photos []photo.Record
}

// MonthBucket groups photos of one year by month.
type MonthBucket struct {
	Month  time.Month
	Photos []photo.Record
}

// Name returns the English month name.
func (b MonthBucket) Name() string {
	return b.Month.String()
}

// FolderBucket groups grid photos by folder.
type FolderBucket struct {
	Folder string
	Photos []photo.Record
}

// YearBuckets groups the grid by year of the sort key. Years follow the sort
// direction; photos inside a bucket keep grid order.
func (s *State) YearBuckets() []YearBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	photos := s.resolveLocked(s.grid)
	byYear := make(map[int]*YearBucket)
	var years []int
	for _, p := range photos {
		y := s.sort.Key(p).Year()
		b, ok := byYear[y]
		if !ok {
			b = &YearBucket{Year: y}
			byYear[y] = b
			years = append(years, y)
		}
		b.Photos = append(b.Photos, p)
	}

	sortInts(years, s.sort.Descending())
	out := make([]YearBucket, 0, len(years))
	for _, y := range years {
		out = append(out, *byYear[y])
	}
	return out
}

// MonthBuckets groups grid photos of year by month.
func (s *State) MonthBuckets(year int) []MonthBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return monthBuckets(s.resolveLocked(s.grid), year, s.sort)
}

// FolderBuckets groups the grid by folder, folders in name order.
func (s *State) FolderBuckets() []FolderBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byFolder := make(map[string]*FolderBucket)
	var names []string
	for _, p := range s.resolveLocked(s.grid) {
		f := p.Folder()
		b, ok := byFolder[f]
		if !ok {
			b = &FolderBucket{Folder: f}
			byFolder[f] = b
			names = append(names, f)
		}
		b.Photos = append(b.Photos, p)
	}

	sort.Strings(names)
	out := make([]FolderBucket, 0, len(names))
	for _, n := range names {
		out = append(out, *byFolder[n])
	}
	return out
}

// monthBuckets groups photos in year by month, ordering both months and the
// photos inside each month by srt.
func monthBuckets(photos []photo.Record, year int, srt Sort) []MonthBucket {
	var inYear []photo.Record
	for _, p := range photos {
		if srt.Key(p).Year() == year {
			inYear = append(inYear, p)
		}
	}
	sortRecords(inYear, srt)

	byMonth := make(map[time.Month]*MonthBucket)
	var months []int
	for _, p := range inYear {
		m := srt.Key(p).Month()
		b, ok := byMonth[m]
		if !ok {
			b = &MonthBucket{Month: m}
			byMonth[m] = b
			months = append(months, int(m))
		}
		b.Photos = append(b.Photos, p)
	}

	sortInts(months, srt.Descending())
	out := make([]MonthBucket, 0, len(months))
	for _, m := range months {
		out = append(out, *byMonth[time.Month(m)])
	}
	return out
}

func sortRecords(photos []photo.Record, srt Sort) {
	desc := srt.Descending()
	sort.SliceStable(photos, func(i, j int) bool {
		a, b := srt.Key(photos[i]), srt.Key(photos[j])
		if desc {
			return a.After(b)
		}
		return a.Before(b)
	})
}

func sortInts(v []int, desc bool) {
	if desc {
		sort.Sort(sort.Reverse(sort.IntSlice(v)))
		return
	}
	sort.Ints(v)
}
