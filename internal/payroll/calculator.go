// Package payroll derives monthly salary deductions from attendance.
package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"hrattendance/internal/attendance"
	"hrattendance/internal/tenant"
)

// Remarks.
const (
	RemarkDeductions   = "Deductions applied for absences and late arrivals"
	RemarkNoDeductions = "No deductions"
)

// Result is a computed payroll for one employee and month.
type Result struct {
	EmployeeID  string          `json:"employeeId"`
	Month       time.Month      `json:"month"`
	Year        int             `json:"year"`
	BaseSalary  decimal.Decimal `json:"baseSalary"`
	TotalDays   int             `json:"totalDays"`
	AbsentDays  int             `json:"absentDays"`
	LateDays    int             `json:"lateDays"`
	DailySalary decimal.Decimal `json:"dailySalary"`
	Deduction   decimal.Decimal `json:"deduction"`
	NetSalary   decimal.Decimal `json:"netSalary"`
	Remarks     string          `json:"remarks"`
}

// Tally counts absent and late days in recs.
func Tally(recs []attendance.Record) (absent, late int) {
	for _, r := range recs {
		switch r.Status {
		case attendance.StatusAbsent:
			absent++
		case attendance.StatusLate, attendance.StatusLateLogin:
			late++
		}
	}
	return absent, late
}

// Compute applies rules to the counts. The deduction and net salary are
// rounded to whole currency units.
func Compute(base decimal.Decimal, totalDays, absentDays, lateDays int, rules tenant.PayrollRules) Result {
	res := Result{
		BaseSalary: base,
		TotalDays:  totalDays,
		AbsentDays: absentDays,
		LateDays:   lateDays,
		Remarks:    RemarkNoDeductions,
	}
	if totalDays > 0 {
		res.DailySalary = base.Div(decimal.NewFromInt(int64(totalDays)))
	}
	absent := decimal.NewFromInt(int64(absentDays)).Mul(res.DailySalary).Mul(rules.AbsentDayRate)
	late := decimal.NewFromInt(int64(lateDays)).Mul(res.DailySalary).Mul(rules.LateDayRate)
	res.Deduction = absent.Add(late).Add(rules.FixedDeduction).Round(0)
	res.NetSalary = base.Sub(res.Deduction).Round(0)
	if res.Deduction.IsPositive() {
		res.Remarks = RemarkDeductions
	}
	return res
}
