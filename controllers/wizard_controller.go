package controllers

import (
	"errors"

	"lifeline/models"
	"lifeline/services"
	"lifeline/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WizardController struct {
	sessions  *services.SessionService
	validator *utils.ValidationService
}

func NewWizardController(sessions *services.SessionService, validator *utils.ValidationService) *WizardController {
	return &WizardController{
		sessions:  sessions,
		validator: validator,
	}
}

// CreateSession starts a new emergency session
// @Summary Start emergency session
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Success 201 {object} models.APIResponse{data=models.WizardSnapshot}
// @Failure 401 {object} models.APIResponse
// @Router /sessions [post]
func (wc *WizardController) CreateSession(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	session, snapshot := wc.sessions.Create(userID)
	logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"user_id":    userID,
	}).Info("Emergency session started")

	utils.CreatedResponse(c, "Session started", snapshot)
}

// GetSession returns the current wizard snapshot
// @Summary Get session
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=models.WizardSnapshot}
// @Failure 403 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /sessions/{sessionId} [get]
func (wc *WizardController) GetSession(c *gin.Context) {
	session, ok := wc.session(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, "Session retrieved", session.Wizard.Snapshot())
}

// SelectCategory chooses the emergency type
// @Summary Select emergency category
// @Tags Sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body models.SelectCategoryRequest true "Category"
// @Success 200 {object} models.APIResponse{data=models.WizardSnapshot}
// @Failure 400 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Router /sessions/{sessionId}/category [post]
func (wc *WizardController) SelectCategory(c *gin.Context) {
	session, ok := wc.session(c)
	if !ok {
		return
	}

	var req models.SelectCategoryRequest
	if !wc.bind(c, &req) {
		return
	}

	snapshot, err := session.Wizard.SelectCategory(models.CategoryID(req.CategoryID))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Category selected", snapshot)
}

// Advance moves the wizard to its next stage
// @Summary Advance wizard
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=models.WizardSnapshot}
// @Failure 409 {object} models.APIResponse
// @Router /sessions/{sessionId}/advance [post]
func (wc *WizardController) Advance(c *gin.Context) {
	session, ok := wc.session(c)
	if !ok {
		return
	}

	snapshot, err := session.Wizard.Advance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Stage advanced", snapshot)
}

// Back returns to the previous stage
// @Summary Go back
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=models.WizardSnapshot}
// @Router /sessions/{sessionId}/back [post]
func (wc *WizardController) Back(c *gin.Context) {
	session, ok := wc.session(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, "Stage rolled back", session.Wizard.Back())
}

// Cancel cancels the session, or asks for confirmation when an emergency is under way
// @Summary Cancel emergency
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=models.WizardSnapshot}
// @Success 202 {object} models.APIResponse{data=models.WizardSnapshot}
// @Router /sessions/{sessionId}/cancel [post]
func (wc *WizardController) Cancel(c *gin.Context) {
	session, ok := wc.session(c)
	if !ok {
		return
	}

	snapshot, err := session.Wizard.Cancel()
	if errors.Is(err, services.ErrCancelConfirmationRequired) {
		utils.AcceptedResponse(c, "Cancelling an active emergency needs confirmation", snapshot)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Session reset", snapshot)
}

// ConfirmCancel resets the session after a pending cancel
// @Summary Confirm cancel
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=models.WizardSnapshot}
// @Failure 409 {object} models.APIResponse
// @Router /sessions/{sessionId}/cancel/confirm [post]
func (wc *WizardController) ConfirmCancel(c *gin.Context) {
	session, ok := wc.session(c)
	if !ok {
		return
	}

	snapshot, err := session.Wizard.ConfirmCancel()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Session reset", snapshot)
}

// DismissCancel keeps the emergency going
// @Summary Dismiss cancel
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=models.WizardSnapshot}
// @Router /sessions/{sessionId}/cancel/dismiss [post]
func (wc *WizardController) DismissCancel(c *gin.Context) {
	session, ok := wc.session(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, "Cancel dismissed", session.Wizard.DismissCancel())
}

// StepTracker moves the simulated ambulance one status forward
// @Summary Step ambulance status
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=models.WizardSnapshot}
// @Failure 409 {object} models.APIResponse
// @Router /sessions/{sessionId}/tracker/step [post]
func (wc *WizardController) StepTracker(c *gin.Context) {
	session, ok := wc.session(c)
	if !ok {
		return
	}

	snapshot, err := session.Wizard.StepAmbulance()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Ambulance status updated", snapshot)
}

// UpdatePreferences toggles audio or switches the guidance language
// @Summary Update audio preferences
// @Tags Sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body models.WizardPreferencesRequest true "Preferences"
// @Success 200 {object} models.APIResponse{data=models.WizardSnapshot}
// @Router /sessions/{sessionId}/preferences [put]
func (wc *WizardController) UpdatePreferences(c *gin.Context) {
	session, ok := wc.session(c)
	if !ok {
		return
	}

	var req models.WizardPreferencesRequest
	if !wc.bind(c, &req) {
		return
	}

	snapshot := session.Wizard.Snapshot()
	if req.AudioEnabled != nil {
		snapshot = session.Wizard.SetAudioEnabled(*req.AudioEnabled)
	}
	if req.Language != nil {
		snapshot = session.Wizard.SetLanguage(models.Language(*req.Language))
	}
	utils.SuccessResponse(c, "Preferences updated", snapshot)
}

// ReportLocation feeds a device position or a permission denial into the session
// @Summary Report device location
// @Tags Sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body models.ReportLocationRequest true "Location"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /sessions/{sessionId}/location [post]
func (wc *WizardController) ReportLocation(c *gin.Context) {
	session, ok := wc.session(c)
	if !ok {
		return
	}

	var req models.ReportLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if req.PermissionGranted {
		if errs := wc.validator.ValidateStruct(req); len(errs) > 0 {
			utils.ValidationErrorResponse(c, errs)
			return
		}
	}

	session.ReportLocation(req)
	utils.SuccessResponse(c, "Location recorded", nil)
}

// StartCountdown speaks a countdown on the session's devices
// @Summary Start spoken countdown
// @Tags Sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body models.CountdownRequest true "Countdown"
// @Success 202 {object} models.APIResponse
// @Router /sessions/{sessionId}/countdown [post]
func (wc *WizardController) StartCountdown(c *gin.Context) {
	session, ok := wc.session(c)
	if !ok {
		return
	}

	var req models.CountdownRequest
	if !wc.bind(c, &req) {
		return
	}

	session.StartCountdown(req.Count)
	utils.AcceptedResponse(c, "Countdown started", gin.H{"count": req.Count})
}

func (wc *WizardController) session(c *gin.Context) (*services.Session, bool) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return nil, false
	}

	session, err := wc.sessions.Get(c.Param("sessionId"), userID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return session, true
}

func (wc *WizardController) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return false
	}
	if errs := wc.validator.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs)
		return false
	}
	return true
}

// respondError renders service errors with their own status; anything else is logged as a 500
func respondError(c *gin.Context, err error) {
	if _, ok := utils.GetServiceError(err); !ok {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Errorf("Request failed: %v", err)
	}
	utils.ServiceErrorResponse(c, err)
}

// deviceInput applies WebSocket frames to sessions with the same ownership
// rules as the HTTP endpoints.
type deviceInput struct {
	sessions *services.SessionService
}

func (d deviceInput) ReportLocation(userID, sessionID string, req models.ReportLocationRequest) error {
	session, err := d.sessions.Get(sessionID, userID)
	if err != nil {
		return err
	}
	session.ReportLocation(req)
	return nil
}

func (d deviceInput) ReportPermission(userID, sessionID string, granted bool) error {
	session, err := d.sessions.Get(sessionID, userID)
	if err != nil {
		return err
	}
	session.ReportPermission(granted)
	return nil
}
