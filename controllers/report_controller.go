package controllers

import (
	"context"
	"net/http"
	"strconv"

	"lifeline/models"
	"lifeline/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReportStore reads archived post-emergency reports
type ReportStore interface {
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.IncidentReportRecord, error)
}

type ReportController struct {
	store ReportStore
}

func NewReportController(store ReportStore) *ReportController {
	return &ReportController{
		store: store,
	}
}

// GetReports lists the caller's post-emergency reports, newest first
// @Summary List incident reports
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Maximum reports" default(20)
// @Success 200 {object} models.APIResponse{data=[]models.IncidentReportRecord}
// @Router /reports [get]
func (rc *ReportController) GetReports(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}
	if rc.store == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Report storage is not configured", nil)
		return
	}

	limit := int64(20)
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.ParseInt(limitStr, 10, 64); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	reports, err := rc.store.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		logrus.Errorf("List reports failed for user %s: %v", userID, err)
		utils.InternalServerErrorResponse(c, "Failed to get reports")
		return
	}
	utils.SuccessResponse(c, "Reports retrieved", reports)
}
