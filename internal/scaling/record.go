package scaling

import (
	"slices"
	"time"
)

// BetaObservation is one row of a draw's beta regression series.
type BetaObservation struct {
	Location int
	Date     time.Time
	Beta     float64
	BetaPred float64
}

// DrawInput carries everything ComputeDraw needs for one draw.
type DrawInput struct {
	Draw            int
	Locations       []int
	TotalDeaths     map[int]float64
	TransitionDates map[int]time.Time
	Beta            []BetaObservation
}

// Record is one location's scaling parameters for one draw. Offset,
// AdjustedLogBetaResidualMean and ScaleFinal are only meaningful once Adjusted
// is set.
type Record struct {
	Location            int
	Deaths              float64
	WindowSize          int
	FitFinal            float64
	PredStart           float64
	ScaleInit           float64
	HistoryDaysStart    int
	HistoryDaysEnd      int
	LogBetaResidualMean float64
	Draw                int

	Adjusted                    bool
	Offset                      float64
	AdjustedLogBetaResidualMean float64
	ScaleFinal                  float64
}

// RecordSet holds one draw's records in location order.
type RecordSet struct {
	Draw    int
	Records []Record
}

// Locations returns the location ids in record order.
func (s RecordSet) Locations() []int {
	ids := make([]int, len(s.Records))
	for i, r := range s.Records {
		ids[i] = r.Location
	}
	return ids
}

// Clone returns a copy that shares no memory with s.
func (s RecordSet) Clone() RecordSet {
	return RecordSet{Draw: s.Draw, Records: slices.Clone(s.Records)}
}

// Find returns the record for location.
func (s RecordSet) Find(location int) (Record, bool) {
	for _, r := range s.Records {
		if r.Location == location {
			return r, true
		}
	}
	return Record{}, false
}
