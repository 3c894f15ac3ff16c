package indicators

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/patients"
	"labreport-backend/internal/shared/server/middleware"
	"labreport-backend/internal/shared/server/respond"
)

// Handler serves indicator history for charting.
type Handler struct {
	Repo     Repo
	Patients *patients.Service
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo, patientsSvc *patients.Service) *Handler {
	return &Handler{Repo: repo, Patients: patientsSvc}
}

// RegisterRoutes attaches chart routes. The group must require auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/patients/:id/chart", h.chart)
}

func (h *Handler) chart(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	patientID := c.Param("id")

	if _, err := h.Patients.Get(c.Request.Context(), userID, patientID); err != nil {
		switch {
		case errors.Is(err, patients.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "patient not found", nil)
		case errors.Is(err, patients.ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "patient belongs to another user", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch patient", nil)
		}
		return
	}

	var slugs []string
	if raw := c.Query("slugs"); raw != "" {
		for _, slug := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(slug); trimmed != "" {
				slugs = append(slugs, trimmed)
			}
		}
	}

	rows, err := h.Repo.HistoryByPatient(c.Request.Context(), patientID, slugs)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load history", nil)
		return
	}

	respond.OK(c, gin.H{"series": BuildSeries(rows)})
}

// BuildSeries groups history rows into per-slug series. Input must already be
// ordered by slug then date.
func BuildSeries(rows []AnalysisIndicator) []Series {
	out := []Series{}
	for _, row := range rows {
		if row.Value == nil {
			continue
		}
		if len(out) == 0 || out[len(out)-1].Slug != row.Slug {
			out = append(out, Series{Slug: row.Slug, Name: row.Name})
		}
		s := &out[len(out)-1]
		s.Points = append(s.Points, Point{
			Date:       row.Date,
			Value:      *row.Value,
			Unit:       row.Unit,
			AnalysisID: row.AnalysisID,
		})
	}
	return out
}
