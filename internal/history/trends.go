package history

import (
	"fmt"
	"math"
	"time"
)

// BuildTrendReport derives per-run deltas and windowed moving averages
// from a chronologically ordered run list.
func BuildTrendReport(runs []Run, window time.Duration) (TrendReport, error) {
	if len(runs) == 0 {
		return TrendReport{}, fmt.Errorf("no runs available")
	}

	points := make([]TrendPoint, 0, len(runs))
	for i, current := range runs {
		point := TrendPoint{
			Timestamp:       current.Timestamp,
			CommitHash:      current.CommitHash,
			Range:           current.Range,
			ChangedCount:    current.ChangedCount,
			ImpactedModules: current.ImpactedModules,
			ImpactedTests:   current.ImpactedTests,
			SuggestedJobs:   current.SuggestedJobs,
			ModuleCount:     current.ModuleCount,
			EdgeCount:       current.EdgeCount,
			CycleCount:      current.CycleCount,
			DiagnosticCount: current.DiagnosticCount,
		}

		if i > 0 {
			prev := runs[i-1]
			point.DeltaModules = current.ModuleCount - prev.ModuleCount
			point.DeltaEdges = current.EdgeCount - prev.EdgeCount
			point.DeltaCycles = current.CycleCount - prev.CycleCount
			point.DeltaTests = current.ImpactedTests - prev.ImpactedTests
		}

		// Share of the graph a typical change drags into the test set;
		// creeping growth here usually means coupling is getting worse.
		if current.ModuleCount > 0 {
			point.TestShare = round2(float64(current.ImpactedTests) / float64(current.ModuleCount) * 100)
		}

		avgTests, avgModules := movingAverages(runs, i, window)
		point.AvgImpactedTests = round2(avgTests)
		point.AvgImpactedModules = round2(avgModules)
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		SchemaVersion: SchemaVersion,
		Since:         runs[0].Timestamp,
		Until:         runs[len(runs)-1].Timestamp,
		Window:        window.String(),
		RunCount:      len(points),
		Points:        points,
	}, nil
}

func movingAverages(runs []Run, index int, window time.Duration) (float64, float64) {
	if window <= 0 {
		return float64(runs[index].ImpactedTests), float64(runs[index].ImpactedModules)
	}

	cutoff := runs[index].Timestamp.Add(-window)
	var testsTotal, modulesTotal int
	count := 0
	for i := index; i >= 0; i-- {
		if runs[i].Timestamp.Before(cutoff) {
			break
		}
		testsTotal += runs[i].ImpactedTests
		modulesTotal += runs[i].ImpactedModules
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return float64(testsTotal) / float64(count), float64(modulesTotal) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
