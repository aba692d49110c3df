package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/school"
)

// AttendanceHandler serves the teacher-facing attendance entry flow.
type AttendanceHandler struct {
	school     *school.Service
	attendance *attendance.Service
}

// NewAttendanceHandler creates the handler.
func NewAttendanceHandler(schoolSvc *school.Service, attSvc *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{school: schoolSvc, attendance: attSvc}
}

// Roster handles GET /v1/classes/:id/roster.
func (h *AttendanceHandler) Roster(c *gin.Context) {
	students, err := h.school.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// Sheet handles GET /v1/attendance/sheet. It returns the roster merged with
// the entries already persisted for the requested day, plus the record ids
// behind them so clients can tell saved marks from fresh ones. When class_id
// is omitted the teacher's default class is used.
func (h *AttendanceHandler) Sheet(c *gin.Context) {
	classID := c.Query("class_id")
	date := c.Query("date")
	claims, _ := auth.FromContext(c)

	if classID == "" {
		profile, err := h.school.ResolveProfile(c.Request.Context(), claims.Subject)
		if err == nil && profile != nil && profile.DefaultClassID != nil {
			classID = *profile.DefaultClassID
		}
	}

	sheet, err := h.attendance.LoadSheet(c.Request.Context(), claims.Subject, classID, date)
	if err != nil {
		status := http.StatusInternalServerError
		if classID == "" || !attendance.ValidDate(date) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"class_id":     sheet.ClassID,
		"date":         sheet.Date,
		"roster":       sheet.Roster(),
		"entries":      sheet.Entries(),
		"existing_ids": sheet.ExistingIDs(),
		"unmarked":     sheet.Unmarked(),
	})
}

// Submit handles POST /v1/attendance/submit.
func (h *AttendanceHandler) Submit(c *gin.Context) {
	var req struct {
		ClassID string                      `json:"class_id" binding:"required"`
		Date    string                      `json:"date" binding:"required"`
		Entries map[string]attendance.Entry `json:"entries" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, _ := auth.FromContext(c)

	result, err := h.attendance.Submit(c.Request.Context(), claims.Subject, req.ClassID, req.Date, req.Entries)
	switch {
	case errors.Is(err, attendance.ErrDuplicateRecord):
		c.JSON(http.StatusConflict, gin.H{"error": "attendance changed underneath you, please reload and retry", "result": result})
		return
	case errors.Is(err, attendance.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		// Partial writes stand; the result tells the client how far it got.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Summary handles GET /v1/attendance/summary.
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.attendance.Summary(c.Request.Context(), c.Query("class_id"), c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no summary for class and date"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
