package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/school"
)

// AdminHandler serves the admin record management endpoints.
type AdminHandler struct {
	school *school.Service
}

// NewAdminHandler creates the handler.
func NewAdminHandler(svc *school.Service) *AdminHandler {
	return &AdminHandler{school: svc}
}

func writeServiceError(c *gin.Context, err error) {
	if errors.Is(err, school.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// CreateClass handles POST /v1/admin/classes.
func (h *AdminHandler) CreateClass(c *gin.Context) {
	var req struct {
		Name      string  `json:"name" binding:"required"`
		YearLevel int     `json:"year_level" binding:"required"`
		Section   *string `json:"section"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	class, err := h.school.CreateClass(c.Request.Context(), req.Name, req.YearLevel, req.Section)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, class)
}

// UpdateClass handles PUT /v1/admin/classes/:id.
func (h *AdminHandler) UpdateClass(c *gin.Context) {
	var req school.Class
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ID = c.Param("id")
	class, err := h.school.UpdateClass(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, class)
}

// ListClasses handles GET /v1/admin/classes.
func (h *AdminHandler) ListClasses(c *gin.Context) {
	classes, err := h.school.ListClasses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

// CreateStudent handles POST /v1/admin/students.
func (h *AdminHandler) CreateStudent(c *gin.Context) {
	var req struct {
		StudentNumber string  `json:"student_number" binding:"required"`
		FirstName     string  `json:"first_name" binding:"required"`
		LastName      string  `json:"last_name" binding:"required"`
		ClassID       string  `json:"class_id" binding:"required"`
		DateOfBirth   *string `json:"date_of_birth"`
		EnrolledOn    string  `json:"enrolled_on"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	student, err := h.school.CreateStudent(c.Request.Context(), school.Student{
		StudentNumber: req.StudentNumber,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ClassID:       req.ClassID,
		DateOfBirth:   req.DateOfBirth,
		EnrolledOn:    req.EnrolledOn,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, student)
}

// UpdateStudent handles PUT /v1/admin/students/:id.
func (h *AdminHandler) UpdateStudent(c *gin.Context) {
	var req school.Student
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ID = c.Param("id")
	student, err := h.school.UpdateStudent(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

// DeactivateStudent handles DELETE /v1/admin/students/:id. Students are soft
// deleted; historical attendance rows keep referencing them.
func (h *AdminHandler) DeactivateStudent(c *gin.Context) {
	if err := h.school.DeactivateStudent(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListStudents handles GET /v1/admin/students with optional class filter.
func (h *AdminHandler) ListStudents(c *gin.Context) {
	students, err := h.school.ListStudents(c.Request.Context(), c.Query("class_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// CreateProfile handles POST /v1/admin/profiles.
func (h *AdminHandler) CreateProfile(c *gin.Context) {
	var req struct {
		ID             string  `json:"id"`
		Email          string  `json:"email" binding:"required,email"`
		FullName       string  `json:"full_name" binding:"required"`
		Role           string  `json:"role" binding:"required,oneof=teacher admin"`
		DefaultClassID *string `json:"default_class_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, err := h.school.CreateProfile(c.Request.Context(), school.Profile{
		ID:             req.ID,
		Email:          req.Email,
		FullName:       req.FullName,
		Role:           school.Role(req.Role),
		DefaultClassID: req.DefaultClassID,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// UpdateProfile handles PUT /v1/admin/profiles/:id. Pausing happens here by
// setting status; profiles are never deleted.
func (h *AdminHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		FullName       string  `json:"full_name" binding:"required"`
		Role           string  `json:"role" binding:"required,oneof=teacher admin"`
		Status         string  `json:"status" binding:"required,oneof=active paused"`
		DefaultClassID *string `json:"default_class_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, err := h.school.UpdateProfile(c.Request.Context(), school.Profile{
		ID:             c.Param("id"),
		FullName:       req.FullName,
		Role:           school.Role(req.Role),
		Status:         school.ProfileStatus(req.Status),
		DefaultClassID: req.DefaultClassID,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListProfiles handles GET /v1/admin/profiles.
func (h *AdminHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.school.ListProfiles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}
