package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/attendance"
	"hrattendance/internal/auth"
	"hrattendance/internal/org"
	"hrattendance/internal/payroll"
	"hrattendance/internal/queue"
	"hrattendance/internal/sweep"
	"hrattendance/internal/tenant"
)

// AttendanceService is the attendance use-case surface.
type AttendanceService interface {
	CheckIn(ctx context.Context, ident org.Identity) (attendance.Record, error)
	CheckOut(ctx context.Context, ident org.Identity) (attendance.Record, error)
	Today(ctx context.Context, ident org.Identity) (attendance.Record, error)
	List(ctx context.Context, ident org.Identity, from, to time.Time) ([]attendance.Record, error)
	MarkAbsent(ctx context.Context, ident org.Identity, employeeID string, day time.Time) (attendance.Record, error)
}

// SettingsService reads and updates tenant settings.
type SettingsService interface {
	Get(ctx context.Context, tenantID string) (tenant.Settings, error)
	Update(ctx context.Context, tenantID string, p tenant.Patch) (tenant.Settings, error)
}

// PayrollService computes and stores payroll.
type PayrollService interface {
	Calculate(ctx context.Context, ident org.Identity, employeeID string, month time.Month, year int) (payroll.Result, error)
	GenerateSlip(ctx context.Context, ident org.Identity, employeeID string, month time.Month, year int) (payroll.Slip, error)
	GetSlip(ctx context.Context, ident org.Identity, employeeID string, month time.Month, year int) (payroll.Slip, error)
}

// OrgService manages the tenant hierarchy.
type OrgService interface {
	CreateSubAdmin(ctx context.Context, ident org.Identity, in org.NewSubAdmin) (org.Node, error)
	CreateEmployee(ctx context.Context, ident org.Identity, in org.NewEmployee) (org.Employee, error)
	DeleteEmployee(ctx context.Context, ident org.Identity, employeeID string) error
	ListEmployees(ctx context.Context, ident org.Identity) ([]org.Employee, error)
}

// TenantResolver maps a caller to its tenant.
type TenantResolver interface {
	TenantOf(ctx context.Context, ident org.Identity) (string, error)
}

// Handler serves the /v1 API.
type Handler struct {
	Attendance AttendanceService
	Settings   SettingsService
	Payroll    PayrollService
	Org        OrgService
	Tenants    TenantResolver
	Sweeps     queue.Queue
	Location   *time.Location
	Now        func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) loc() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.UTC
}

// Register mounts the routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	att := g.Group("/attendance")
	att.POST("/check-in", h.checkIn)
	att.POST("/check-out", h.checkOut)
	att.GET("/today", h.today)
	att.GET("", h.listAttendance)
	att.POST("/absences", h.markAbsent)

	g.GET("/settings", h.getSettings)
	g.PATCH("/settings", h.patchSettings)

	pay := g.Group("/payroll/:employeeID")
	pay.GET("", h.calculatePayroll)
	pay.POST("/slips", h.generateSlip)
	pay.GET("/slips", h.getSlip)

	g.GET("/employees", h.listEmployees)
	g.POST("/employees", h.createEmployee)
	g.DELETE("/employees/:id", h.deleteEmployee)
	g.POST("/sub-admins", h.createSubAdmin)

	g.POST("/sweeps", h.requestSweep)
}

func identity(c *gin.Context) (org.Identity, bool) {
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errorBody{Kind: "unauthenticated", Message: "missing identity"}})
	}
	return ident, ok
}

func (h *Handler) parseDay(raw string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", raw, h.loc())
	if err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.ErrValidation, err, "dates must be YYYY-MM-DD")
	}
	return d, nil
}

func (h *Handler) checkIn(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	rec, err := h.Attendance.CheckIn(c.Request.Context(), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) checkOut(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	rec, err := h.Attendance.CheckOut(c.Request.Context(), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) today(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	rec, err := h.Attendance.Today(c.Request.Context(), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) listAttendance(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	now := h.now().In(h.loc())
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc())
	to := now
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = h.parseDay(raw); err != nil {
			writeError(c, err)
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = h.parseDay(raw); err != nil {
			writeError(c, err)
			return
		}
	}
	recs, err := h.Attendance.List(c.Request.Context(), ident, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

type absenceRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Date       string `json:"date" binding:"required"`
}

func (h *Handler) markAbsent(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	var req absenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}
	day, err := h.parseDay(req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	rec, err := h.Attendance.MarkAbsent(c.Request.Context(), ident, req.EmployeeID, day)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) getSettings(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	tenantID, err := h.Tenants.TenantOf(c.Request.Context(), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	st, err := h.Settings.Get(c.Request.Context(), tenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) patchSettings(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	if !ident.CanManageTenant() {
		writeError(c, apperrors.New(apperrors.ErrForbidden, "only a main admin or hr can change settings"))
		return
	}
	patch, err := tenant.DecodePatch(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	tenantID, err := h.Tenants.TenantOf(c.Request.Context(), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	st, err := h.Settings.Update(c.Request.Context(), tenantID, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type periodQuery struct {
	Month int `form:"month" binding:"required,min=1,max=12"`
	Year  int `form:"year" binding:"required,min=2000"`
}

func bindPeriod(c *gin.Context) (periodQuery, bool) {
	var q periodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, bindError(err))
		return q, false
	}
	return q, true
}

func (h *Handler) calculatePayroll(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	q, ok := bindPeriod(c)
	if !ok {
		return
	}
	res, err := h.Payroll.Calculate(c.Request.Context(), ident, c.Param("employeeID"), time.Month(q.Month), q.Year)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) generateSlip(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	q, ok := bindPeriod(c)
	if !ok {
		return
	}
	slip, err := h.Payroll.GenerateSlip(c.Request.Context(), ident, c.Param("employeeID"), time.Month(q.Month), q.Year)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slip)
}

func (h *Handler) getSlip(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	q, ok := bindPeriod(c)
	if !ok {
		return
	}
	slip, err := h.Payroll.GetSlip(c.Request.Context(), ident, c.Param("employeeID"), time.Month(q.Month), q.Year)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slip)
}

func (h *Handler) listEmployees(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	emps, err := h.Org.ListEmployees(c.Request.Context(), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": emps})
}

func (h *Handler) createEmployee(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	var in org.NewEmployee
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, bindError(err))
		return
	}
	emp, err := h.Org.CreateEmployee(c.Request.Context(), ident, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, emp)
}

func (h *Handler) deleteEmployee(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Org.DeleteEmployee(c.Request.Context(), ident, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createSubAdmin(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	var in org.NewSubAdmin
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, bindError(err))
		return
	}
	node, err := h.Org.CreateSubAdmin(c.Request.Context(), ident, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

type sweepRequest struct {
	Date string `json:"date"`
}

func (h *Handler) requestSweep(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	if !ident.IsMainAdmin {
		writeError(c, apperrors.New(apperrors.ErrForbidden, "only a main admin can request a sweep"))
		return
	}
	// an empty body sweeps today
	var body sweepRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, bindError(err))
		return
	}
	if body.Date != "" {
		if _, err := h.parseDay(body.Date); err != nil {
			writeError(c, err)
			return
		}
	}
	msg, err := queue.NewMessage(queue.TypeSweep, sweep.Request{Day: body.Date, RequestedBy: ident.ID})
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.Sweeps.Publish(c.Request.Context(), msg); err != nil {
		writeError(c, apperrors.Transient(err, "enqueue sweep"))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message_id": msg.ID})
}
