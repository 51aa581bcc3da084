package history

import (
	"fmt"
	"math"
	"time"
)

// BuildStat is one build row joined with the repository counts its
// snapshot recorded. Failed builds persist no snapshot, so their counts
// are zero and HasSnapshot is false.
type BuildStat struct {
	BuildID        string
	StartedAt      time.Time
	FinishedAt     time.Time
	Status         string
	FilesChanged   int
	ModulesOrdered int
	ModulesDeleted int
	TypesInserted  int
	ValuesInserted int
	ErrorCount     int
	ModuleCount    int
	TypeCount      int
	ValueCount     int
	HasSnapshot    bool
}

func (b BuildStat) Duration() time.Duration {
	if b.StartedAt.IsZero() || b.FinishedAt.IsZero() {
		return 0
	}
	return b.FinishedAt.Sub(b.StartedAt)
}

// TrendPoint is one build in a trend series: its own metrics, deltas
// against the previous build and moving averages over the window.
type TrendPoint struct {
	BuildID         string    `json:"build_id"`
	Timestamp       time.Time `json:"timestamp"`
	Status          string    `json:"status"`
	DurationMS      int64     `json:"duration_ms"`
	FilesChanged    int       `json:"files_changed"`
	ModulesOrdered  int       `json:"modules_ordered"`
	ModulesDeleted  int       `json:"modules_deleted"`
	TypesInserted   int       `json:"types_inserted"`
	ValuesInserted  int       `json:"values_inserted"`
	ErrorCount      int       `json:"error_count"`
	ModuleCount     int       `json:"module_count"`
	TypeCount       int       `json:"type_count"`
	ValueCount      int       `json:"value_count"`
	DeltaModules    int       `json:"delta_modules"`
	DeltaTypes      int       `json:"delta_types"`
	DeltaValues     int       `json:"delta_values"`
	DeltaErrors     int       `json:"delta_errors"`
	ModuleGrowthPct float64   `json:"module_growth_pct"`
	AvgErrors       float64   `json:"avg_errors"`
	AvgDurationMS   float64   `json:"avg_duration_ms"`
	WindowHours     float64   `json:"window_hours"`
}

type TrendReport struct {
	SchemaVersion int          `json:"schema_version"`
	ProjectKey    string       `json:"project_key"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	BuildCount    int          `json:"build_count"`
	FailureCount  int          `json:"failure_count"`
	Points        []TrendPoint `json:"points"`
}

// BuildTrendReport turns an ascending build series into a trend report.
// Builds without a snapshot inherit the repository counts of the last
// build that has one: a failed build leaves no record of the state it
// left behind, and the next clean snapshot trues the series up.
func BuildTrendReport(projectKey string, stats []BuildStat, window time.Duration) (TrendReport, error) {
	if len(stats) == 0 {
		return TrendReport{}, fmt.Errorf("no build history available")
	}

	var lastModules, lastTypes, lastValues int
	failures := 0
	points := make([]TrendPoint, 0, len(stats))
	for i, current := range stats {
		if current.HasSnapshot {
			lastModules = current.ModuleCount
			lastTypes = current.TypeCount
			lastValues = current.ValueCount
		}
		if current.Status == BuildFailed {
			failures++
		}

		point := TrendPoint{
			BuildID:        current.BuildID,
			Timestamp:      current.StartedAt,
			Status:         current.Status,
			DurationMS:     current.Duration().Milliseconds(),
			FilesChanged:   current.FilesChanged,
			ModulesOrdered: current.ModulesOrdered,
			ModulesDeleted: current.ModulesDeleted,
			TypesInserted:  current.TypesInserted,
			ValuesInserted: current.ValuesInserted,
			ErrorCount:     current.ErrorCount,
			ModuleCount:    lastModules,
			TypeCount:      lastTypes,
			ValueCount:     lastValues,
		}

		if i > 0 {
			prev := points[i-1]
			point.DeltaModules = point.ModuleCount - prev.ModuleCount
			point.DeltaTypes = point.TypeCount - prev.TypeCount
			point.DeltaValues = point.ValueCount - prev.ValueCount
			point.DeltaErrors = point.ErrorCount - prev.ErrorCount
			if prev.ModuleCount > 0 {
				point.ModuleGrowthPct = round2((float64(point.DeltaModules) / float64(prev.ModuleCount)) * 100)
			}
		}

		avgErrors, avgDuration := movingAverages(stats, i, window)
		point.AvgErrors = round2(avgErrors)
		point.AvgDurationMS = round2(avgDuration)
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		SchemaVersion: SchemaVersion,
		ProjectKey:    normalizeProjectKey(projectKey),
		Since:         stats[0].StartedAt,
		Until:         stats[len(stats)-1].StartedAt,
		Window:        window.String(),
		BuildCount:    len(points),
		FailureCount:  failures,
		Points:        points,
	}, nil
}

func movingAverages(stats []BuildStat, index int, window time.Duration) (float64, float64) {
	if window <= 0 {
		return float64(stats[index].ErrorCount), float64(stats[index].Duration().Milliseconds())
	}

	cutoff := stats[index].StartedAt.Add(-window)
	var errorsTotal int
	var durationTotal int64
	count := 0
	for i := index; i >= 0; i-- {
		if stats[i].StartedAt.Before(cutoff) {
			break
		}
		errorsTotal += stats[i].ErrorCount
		durationTotal += stats[i].Duration().Milliseconds()
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return float64(errorsTotal) / float64(count), float64(durationTotal) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
