package engine

import (
	"fmt"
	"time"
)

// fakeHistory is an in-memory HistorySource keyed by "typeID:stationID".
type fakeHistory map[string][]HistoryPoint

func histKey(typeID int32, stationID int64) string {
	return fmt.Sprintf("%d:%d", typeID, stationID)
}

func (f fakeHistory) History(typeID int32, stationID int64, maxDays int) []HistoryPoint {
	points := f[histKey(typeID, stationID)]
	if maxDays > 0 && len(points) > maxDays {
		points = points[len(points)-maxDays:]
	}
	return points
}

func (f fakeHistory) add(typeID int32, stationID int64, points ...HistoryPoint) {
	key := histKey(typeID, stationID)
	f[key] = append(f[key], points...)
}

// day builds a single HistoryPoint for a date offset from base.
func day(base time.Time, offset int, volume int64, avg, low, high float64) HistoryPoint {
	return HistoryPoint{
		Date:      base.AddDate(0, 0, offset).Format("2006-01-02"),
		Volume:    volume,
		AvgPrice:  avg,
		LowPrice:  low,
		HighPrice: high,
	}
}

// series builds n consecutive uniform days starting at base.
func series(base time.Time, n int, volume int64, avg, low, high float64) []HistoryPoint {
	points := make([]HistoryPoint, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, day(base, i, volume, avg, low, high))
	}
	return points
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
