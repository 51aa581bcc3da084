package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"loom/internal/data/history"
)

func RenderTrendTSV(report history.TrendReport) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Timestamp\tBuild\tStatus\tDurationMS\tFiles\tModulesOrdered\tModulesDeleted\tTypesInserted\tValuesInserted\tErrors\tModules\tTypes\tValues\tDeltaModules\tDeltaTypes\tDeltaValues\tDeltaErrors\tModuleGrowthPct\tAvgErrors\tAvgDurationMS\tWindowHours\n")
	for _, point := range report.Points {
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
			point.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			point.BuildID,
			point.Status,
			point.DurationMS,
			point.FilesChanged,
			point.ModulesOrdered,
			point.ModulesDeleted,
			point.TypesInserted,
			point.ValuesInserted,
			point.ErrorCount,
			point.ModuleCount,
			point.TypeCount,
			point.ValueCount,
			point.DeltaModules,
			point.DeltaTypes,
			point.DeltaValues,
			point.DeltaErrors,
			point.ModuleGrowthPct,
			point.AvgErrors,
			point.AvgDurationMS,
			point.WindowHours,
		))
	}

	return []byte(buf.String()), nil
}

func RenderTrendJSON(report history.TrendReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
