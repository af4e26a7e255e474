package ranking

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bizrank/review-service/internal/types"
)

// ReportSheet is the worksheet holding the ranking rows
const ReportSheet = "Rankings"

var reportHeader = []interface{}{
	"Category",
	"City",
	"Position",
	"Previous",
	"Business",
	"Overall",
	"Quality",
	"Service",
	"Experience",
	"Technical",
	"Competitive",
	"Operational",
	"Reviews",
	"Confidence",
	"Calculated At",
}

// WriteReport renders rankings as an XLSX workbook. Rows are written in the
// given order; callers sort by cohort and position first.
func WriteReport(w io.Writer, rankings []types.Ranking, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetSheetRow(ReportSheet, "A1", &reportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(reportHeader))
	if err := f.SetCellStyle(ReportSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range rankings {
		prev := interface{}("")
		if r.PreviousPosition != nil {
			prev = *r.PreviousPosition
		}
		row := []interface{}{
			r.CategoryID,
			r.City,
			r.RankingPosition,
			prev,
			r.BusinessID,
			r.OverallScore,
			r.CategoryScores.Quality,
			r.CategoryScores.ServiceExcellence,
			r.CategoryScores.CustomerExperience,
			r.CategoryScores.TechnicalMastery,
			r.CategoryScores.CompetitiveAdvantage,
			r.CategoryScores.OperationalExcellence,
			r.ReviewsAnalyzed,
			r.ConfidenceScore,
			r.LastCalculated.UTC().Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ReportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Business rankings",
		Created: generatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("failed to set properties: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
