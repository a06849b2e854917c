package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/qualitysquare/fieldops-backend/internal/jobs"
	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
)

const (
	jobsSheet       = "Jobs"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Export is a generated file ready to be streamed to the client.
type Export struct {
	Filename    string
	ContentType string
	Data        *bytes.Buffer
}

var jobColumns = []struct {
	header string
	width  float64
	value  func(jobs.StatusView) any
}{
	{"Job #", 14, func(v jobs.StatusView) any { return v.JobNumber }},
	{"Doc #", 12, func(v jobs.StatusView) any { return v.DoliNumber }},
	{"Client", 24, func(v jobs.StatusView) any { return v.ClientName }},
	{"Address", 36, func(v jobs.StatusView) any { return v.ClientAddress }},
	{"Phone", 16, func(v jobs.StatusView) any { return v.ClientPhone }},
	{"Store", 18, func(v jobs.StatusView) any { return v.StoreCompany }},
	{"Install Type", 16, func(v jobs.StatusView) any { return v.InstallType }},
	{"Items", 30, func(v jobs.StatusView) any { return v.Items }},
	{"Time", 10, func(v jobs.StatusView) any { return v.ScheduledTime }},
	{"Time Frame", 14, func(v jobs.StatusView) any { return v.TimeFrame }},
	{"Status", 14, func(v jobs.StatusView) any { return v.StatusLabel }},
	{"Assigned To", 20, func(v jobs.StatusView) any { return v.AssignedEmployeeName }},
	{"Team", 18, func(v jobs.StatusView) any { return v.AssignedTeamName }},
	{"Team Members", 30, func(v jobs.StatusView) any { return strings.Join(v.AssignedTeamMembers, ", ") }},
	{"Reschedule", 12, func(v jobs.StatusView) any { return string(v.RescheduleState) }},
}

// ExportJobs renders the day's jobs as a single-sheet workbook.
func (s *service) ExportJobs(ctx context.Context, day time.Time) (*Export, error) {
	list, err := s.jobs.ListAllOnDay(ctx, day)
	if err != nil {
		return nil, err
	}
	date := day.In(s.loc).Format(docstore.DateLayout)

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(jobsSheet)
	if err != nil {
		return nil, s.exportFailed(ctx, err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, s.exportFailed(ctx, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, s.exportFailed(ctx, err)
	}

	for i, col := range jobColumns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(jobsSheet, name, name, col.width); err != nil {
			return nil, s.exportFailed(ctx, err)
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(jobsSheet, cell, col.header); err != nil {
			return nil, s.exportFailed(ctx, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(jobColumns), 1)
	if err := f.SetCellStyle(jobsSheet, "A1", last, headerStyle); err != nil {
		return nil, s.exportFailed(ctx, err)
	}

	for r, view := range jobs.StatusViews(list) {
		for c, col := range jobColumns {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(jobsSheet, cell, col.value(view)); err != nil {
				return nil, s.exportFailed(ctx, err)
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, s.exportFailed(ctx, err)
	}
	return &Export{
		Filename:    fmt.Sprintf("jobs_%s.xlsx", date),
		ContentType: xlsxContentType,
		Data:        buf,
	}, nil
}

func (s *service) exportFailed(ctx context.Context, err error) error {
	s.logg.Error(ctx, "failed to build job export", err)
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate job export")
}
