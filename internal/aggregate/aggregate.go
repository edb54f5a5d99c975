// Package aggregate derives summary and time-series statistics from the
// observations currently loaded in a fetch cache.
package aggregate

import (
	"math"
	"sort"

	"github.com/i474232898/solar-fits-dashboard/internal/cache"
	"github.com/i474232898/solar-fits-dashboard/internal/observation"
)

// Summarize projects the loaded entries of year into a View. Entries that are
// loading, failed or belong to other years are ignored. The result depends only
// on its inputs.
//
// Series points are ordered by observation time, then filename.
func Summarize(snapshot map[observation.Key]cache.State, year string) View {
	keys := make([]observation.Key, 0, len(snapshot))
	for k, st := range snapshot {
		if k.Year == year && st.Status == cache.StatusLoaded {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Filename < keys[j].Filename })

	view := View{Year: year, Series: []Point{}}

	var (
		n       int
		sumMean float64
		maxMax  = math.Inf(-1)
		minMin  = math.Inf(1)
	)

	for _, k := range keys {
		stats := snapshot[k].Record.Stats
		if !stats.Finite() {
			view.Warnings = append(view.Warnings, Warning{
				Key:    k,
				Kind:   observation.KindMalformedData,
				Reason: "non-finite statistic; excluded from aggregate",
			})
			continue
		}

		n++
		sumMean += stats.Mean
		maxMax = math.Max(maxMax, stats.Max)
		minMin = math.Min(minMin, stats.Min)

		ts, err := observation.ParseTimestamp(k.Filename)
		if err != nil {
			view.Warnings = append(view.Warnings, Warning{
				Key:    k,
				Kind:   observation.KindMalformedKey,
				Reason: err.Error(),
			})
			continue
		}

		view.Series = append(view.Series, Point{
			Filename:  k.Filename,
			Timestamp: ts,
			Label:     ts.Format(observation.LabelLayout),
			Min:       stats.Min,
			Max:       stats.Max,
			Mean:      stats.Mean,
			Stdev:     stats.Stdev,
		})
	}

	if n == 0 {
		view.Empty = true
		return view
	}

	sort.SliceStable(view.Series, func(i, j int) bool {
		return view.Series[i].Timestamp.Before(view.Series[j].Timestamp)
	})

	view.Summary = &Summary{
		Count:   n,
		AvgMean: sumMean / float64(n),
		MaxMax:  maxMax,
		MinMin:  minMin,
	}
	return view
}
