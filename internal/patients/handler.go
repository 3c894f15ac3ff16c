package patients

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/shared/server/middleware"
	"labreport-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the patients service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches patient routes. The group must require auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/patients", h.list)
	rg.POST("/patients", h.create)
	rg.GET("/patients/:id", h.get)
	rg.PATCH("/patients/:id", h.update)
	rg.DELETE("/patients/:id", h.delete)
}

type patientRequest struct {
	FullName  string `json:"fullName"`
	BirthDate string `json:"birthDate"`
	Gender    string `json:"gender"`
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	profiles, err := h.Svc.List(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list patients", nil)
		return
	}
	if profiles == nil {
		profiles = []Patient{}
	}
	respond.OK(c, profiles)
}

func (h *Handler) create(c *gin.Context) {
	var req patientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	birthDate, ok := parseBirthDate(req.BirthDate)
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "birthDate must be YYYY-MM-DD", nil)
		return
	}

	patient, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), req.FullName, birthDate, req.Gender)
	if err != nil {
		switch {
		case errors.Is(err, ErrNameTaken):
			respond.Error(c, http.StatusConflict, "name_taken", "a profile with this name already exists", nil)
		default:
			respond.Error(c, http.StatusBadRequest, "validation_error", "could not create patient", nil)
		}
		return
	}
	respond.JSON(c, http.StatusCreated, patient)
}

func (h *Handler) get(c *gin.Context) {
	patient, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		respondPatientError(c, err, "failed to fetch patient")
		return
	}
	respond.OK(c, patient)
}

// patientUpdateRequest uses pointer fields so PATCH can tell an omitted field
// from an explicitly empty one.
type patientUpdateRequest struct {
	FullName  *string `json:"fullName"`
	BirthDate *string `json:"birthDate"`
	Gender    *string `json:"gender"`
}

func (h *Handler) update(c *gin.Context) {
	var req patientUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	params := UpdateParams{FullName: req.FullName, Gender: req.Gender}
	if req.BirthDate != nil {
		birthDate, ok := parseBirthDate(*req.BirthDate)
		if !ok {
			respond.Error(c, http.StatusBadRequest, "validation_error", "birthDate must be YYYY-MM-DD", nil)
			return
		}
		params.BirthDate = birthDate
		params.BirthDateSet = true
	}

	patient, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), params)
	if err != nil {
		respondPatientError(c, err, "failed to update patient")
		return
	}
	respond.OK(c, patient)
}

func (h *Handler) delete(c *gin.Context) {
	err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		respondPatientError(c, err, "failed to delete patient")
		return
	}
	c.Status(http.StatusNoContent)
}

func respondPatientError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "patient not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "patient belongs to another user", nil)
	case errors.Is(err, ErrMainProfile):
		respond.Error(c, http.StatusConflict, "main_profile", "main profile cannot be renamed or deleted", nil)
	case errors.Is(err, ErrNameTaken):
		respond.Error(c, http.StatusConflict, "name_taken", "a profile with this name already exists", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func parseBirthDate(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
