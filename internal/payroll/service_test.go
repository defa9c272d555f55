package payroll

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/attendance"
	"hrattendance/internal/org"
	"hrattendance/internal/tenant"
)

type mockScope struct {
	mock.Mock
}

func (m *mockScope) TenantOf(ctx context.Context, ident org.Identity) (string, error) {
	args := m.Called(ctx, ident)
	return args.String(0), args.Error(1)
}

func (m *mockScope) AuthorizeEmployee(ctx context.Context, ident org.Identity, id string) (*org.Employee, error) {
	args := m.Called(ctx, ident, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*org.Employee), args.Error(1)
}

type defaultSettings struct{}

func (defaultSettings) Get(_ context.Context, tenantID string) (tenant.Settings, error) {
	return tenant.Defaults(tenantID), nil
}

type memSlips struct {
	mu    sync.Mutex
	slips map[string]Slip
}

func slipKey(employeeID string, month time.Month, year int) string {
	return fmt.Sprintf("%s/%d/%d", employeeID, month, year)
}

func (m *memSlips) SaveSlip(_ context.Context, s Slip) (Slip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := slipKey(s.EmployeeID, s.Month, s.Year)
	if prev, ok := m.slips[k]; ok {
		s.ID = prev.ID
	} else {
		s.ID = uuid.NewString()
	}
	s.GeneratedAt = time.Now().UTC()
	m.slips[k] = s
	return s, nil
}

func (m *memSlips) FindSlip(_ context.Context, employeeID string, month time.Month, year int) (*Slip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slips[slipKey(employeeID, month, year)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type PayrollServiceSuite struct {
	suite.Suite
	ctx     context.Context
	scope   *mockScope
	records *attendance.MemoryStore
	slips   *memSlips
	service *Service
}

var (
	hrAdmin  = org.Identity{ID: "hr1", Role: org.RoleHR, CreatedBy: "root"}
	employee = org.Identity{ID: "emp-1", Role: org.RoleEmployee, CreatedBy: "hr1"}
	emp1     = &org.Employee{ID: "emp-1", CreatedBy: "hr1", Salary: dec("30000")}
)

func TestPayrollServiceSuite(t *testing.T) {
	suite.Run(t, new(PayrollServiceSuite))
}

func (s *PayrollServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.scope = new(mockScope)
	s.records = attendance.NewMemoryStore()
	s.slips = &memSlips{slips: map[string]Slip{}}
	s.service = NewService(s.scope, s.records, defaultSettings{}, s.slips, nil, time.UTC)
}

func (s *PayrollServiceSuite) put(day int, status string) {
	s.records.Put(attendance.Record{
		SubjectID:   "emp-1",
		SubjectKind: attendance.KindEmployee,
		TenantID:    "root",
		WorkDate:    time.Date(2026, time.April, day, 0, 0, 0, 0, time.UTC),
		Status:      status,
		Remark:      status,
	})
}

func (s *PayrollServiceSuite) TestCalculateFromAttendance() {
	s.put(1, attendance.StatusAbsent)
	s.put(2, attendance.StatusAbsent)
	s.put(3, attendance.StatusLate)
	s.put(6, attendance.StatusLateLogin)
	s.put(7, attendance.StatusLateLogin)
	s.put(8, attendance.StatusPresent)
	// outside the month
	s.records.Put(attendance.Record{SubjectID: "emp-1", SubjectKind: attendance.KindEmployee, TenantID: "root",
		WorkDate: time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC), Status: attendance.StatusAbsent})

	s.scope.On("AuthorizeEmployee", s.ctx, hrAdmin, "emp-1").Return(emp1, nil)
	s.scope.On("TenantOf", s.ctx, hrAdmin).Return("root", nil)

	res, err := s.service.Calculate(s.ctx, hrAdmin, "emp-1", time.April, 2026)
	s.Require().NoError(err)
	s.Equal(30, res.TotalDays)
	s.Equal(2, res.AbsentDays)
	s.Equal(3, res.LateDays)
	s.True(res.Deduction.Equal(dec("3500")), res.Deduction.String())
	s.True(res.NetSalary.Equal(dec("26500")), res.NetSalary.String())
	s.Equal("emp-1", res.EmployeeID)
}

func (s *PayrollServiceSuite) TestCalculateOutsideScope() {
	s.scope.On("AuthorizeEmployee", s.ctx, hrAdmin, "emp-9").
		Return(nil, apperrors.New(apperrors.ErrForbidden, "employee is outside your organization scope"))

	_, err := s.service.Calculate(s.ctx, hrAdmin, "emp-9", time.April, 2026)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *PayrollServiceSuite) TestCalculateValidatesPeriod() {
	_, err := s.service.Calculate(s.ctx, hrAdmin, "emp-1", 13, 2026)
	s.ErrorIs(err, apperrors.ErrValidation)
	_, err = s.service.Calculate(s.ctx, hrAdmin, "emp-1", time.April, 1999)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.scope.AssertNotCalled(s.T(), "AuthorizeEmployee", mock.Anything, mock.Anything, mock.Anything)
}

func (s *PayrollServiceSuite) TestGenerateAndGetSlip() {
	s.put(1, attendance.StatusAbsent)
	s.scope.On("AuthorizeEmployee", s.ctx, hrAdmin, "emp-1").Return(emp1, nil)
	s.scope.On("AuthorizeEmployee", s.ctx, employee, "emp-1").Return(emp1, nil)
	s.scope.On("TenantOf", s.ctx, hrAdmin).Return("root", nil)

	_, err := s.service.GenerateSlip(s.ctx, employee, "emp-1", time.April, 2026)
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.service.GetSlip(s.ctx, employee, "emp-1", time.April, 2026)
	s.ErrorIs(err, apperrors.ErrNotFound)

	first, err := s.service.GenerateSlip(s.ctx, hrAdmin, "emp-1", time.April, 2026)
	s.Require().NoError(err)
	s.Equal("root", first.TenantID)
	s.Equal("hr1", first.GeneratedBy)
	s.True(first.Deduction.Equal(dec("1000")))

	s.put(2, attendance.StatusAbsent)
	second, err := s.service.GenerateSlip(s.ctx, hrAdmin, "emp-1", time.April, 2026)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)

	got, err := s.service.GetSlip(s.ctx, employee, "emp-1", time.April, 2026)
	s.Require().NoError(err)
	s.Equal(2, got.AbsentDays)
	s.True(got.NetSalary.Equal(dec("28000")))
}
