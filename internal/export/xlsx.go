package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/vitals/internal/model"
)

// Sheet names in the XLSX report.
const (
	InsightsSheet = "Insights"
	ScoresSheet   = "Habit Scores"
)

// WriteXLSX saves a workbook with an Insights sheet and a Habit Scores sheet.
func WriteXLSX(path string, insights []model.SmartInsight, scores []model.HabitQualityScore) error {
	f := xlsx.NewFile()

	insightRows := [][]string{InsightHeader}
	for _, in := range insights {
		insightRows = append(insightRows, insightRow(in))
	}
	if err := addSheet(f, InsightsSheet, insightRows); err != nil {
		return err
	}

	scoreRows := [][]string{ScoreHeader}
	for _, s := range scores {
		scoreRows = append(scoreRows, scoreRow(s))
	}
	if err := addSheet(f, ScoresSheet, scoreRows); err != nil {
		return err
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func addSheet(f *xlsx.File, name string, rows [][]string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}
	for _, data := range rows {
		row := sheet.AddRow()
		for _, v := range data {
			row.AddCell().SetString(v)
		}
	}
	return nil
}

// ReadMetricsXLSX parses metric observations from the named sheet, or the
// first sheet when sheetName is empty. The layout matches ReadMetricsCSV.
func ReadMetricsXLSX(path, sheetName string) ([]model.MetricObservation, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open xlsx")
	}
	sheet, err := getSheet(f, sheetName)
	if err != nil {
		return nil, err
	}
	return parseMetricRows(sheetRows(sheet))
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("export: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("export: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func sheetRows(sheet *xlsx.Sheet) [][]string {
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows
}
