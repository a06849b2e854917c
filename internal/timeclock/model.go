package timeclock

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
)

const (
	fieldEmployeeID  = "employeeId"
	fieldClockIn     = "clockIn"
	fieldClockOut    = "clockOut"
	fieldDuration    = "duration"
	fieldPayPeriodID = "payPeriodId"

	unassignedPayPeriod = "unassigned"
	hoursPrecision      = 2
)

// TimeEntry is one clock-in/clock-out pair. Duration is in hours and only set
// once the entry is closed.
type TimeEntry struct {
	ID          string           `json:"id"`
	EmployeeID  string           `json:"employee_id"`
	ClockIn     time.Time        `json:"clock_in"`
	ClockOut    *time.Time       `json:"clock_out,omitempty"`
	Duration    *decimal.Decimal `json:"duration,omitempty"`
	PayPeriodID string           `json:"pay_period_id"`
}

// IsActive reports whether the employee is still on the clock.
func (e TimeEntry) IsActive() bool {
	return e.ClockOut == nil
}

// HoursAt returns the stored duration, or the running duration at now for an
// open entry.
func (e TimeEntry) HoursAt(now time.Time) decimal.Decimal {
	if e.Duration != nil {
		return *e.Duration
	}
	end := now
	if e.ClockOut != nil {
		end = *e.ClockOut
	}
	return HoursBetween(e.ClockIn, end)
}

// ClockRecord is a time entry joined with the employee's name and calendar day.
type ClockRecord struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employee_id"`
	EmployeeName string     `json:"employee_name"`
	ClockInTime  time.Time  `json:"clock_in_time"`
	ClockOutTime *time.Time `json:"clock_out_time,omitempty"`
	Date         string     `json:"date"`
}

// IsClocked reports whether the record is still open.
func (r ClockRecord) IsClocked() bool {
	return r.ClockOutTime == nil
}

// Status is the employee's current clock state.
type Status struct {
	State  enums.ClockState `json:"state"`
	Record *ClockRecord     `json:"record,omitempty"`
}

// HoursBetween is the elapsed time in hours rounded to two decimals. Negative
// spans yield zero.
func HoursBetween(start, end time.Time) decimal.Decimal {
	elapsed := end.Sub(start)
	if elapsed <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(elapsed)).
		Div(decimal.NewFromInt(int64(time.Hour))).
		Round(hoursPrecision)
}

func decodeEntry(raw docstore.Document) (TimeEntry, bool) {
	clockIn := raw.Time(fieldClockIn, time.UTC)
	employeeID := raw.String(fieldEmployeeID)
	if clockIn == nil || employeeID == "" {
		return TimeEntry{}, false
	}
	entry := TimeEntry{
		ID:          raw.ID(),
		EmployeeID:  employeeID,
		ClockIn:     *clockIn,
		ClockOut:    raw.Time(fieldClockOut, time.UTC),
		PayPeriodID: raw.String(fieldPayPeriodID),
	}
	if hours := raw.Float(fieldDuration); hours != nil {
		d := decimal.NewFromFloat(*hours).Round(hoursPrecision)
		entry.Duration = &d
	}
	if entry.PayPeriodID == "" {
		entry.PayPeriodID = unassignedPayPeriod
	}
	return entry, true
}

func newRecord(entry TimeEntry, name string, loc *time.Location) ClockRecord {
	return ClockRecord{
		ID:           entry.ID,
		EmployeeID:   entry.EmployeeID,
		EmployeeName: name,
		ClockInTime:  entry.ClockIn,
		ClockOutTime: entry.ClockOut,
		Date:         entry.ClockIn.In(loc).Format(docstore.DateLayout),
	}
}
