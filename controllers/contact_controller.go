package controllers

import (
	"context"
	"errors"
	"net/http"

	"lifeline/models"
	"lifeline/repositories"
	"lifeline/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// ContactStore persists a user's family contacts
type ContactStore interface {
	Create(ctx context.Context, contact *models.EmergencyContact) error
	ListByUser(ctx context.Context, userID string) ([]models.EmergencyContact, error)
	Delete(ctx context.Context, userID, contactID string) error
}

type ContactController struct {
	store     ContactStore
	validator *utils.ValidationService
}

// NewContactController accepts a nil store when no database is configured; every
// endpoint then answers 503.
func NewContactController(store ContactStore, validator *utils.ValidationService) *ContactController {
	return &ContactController{
		store:     store,
		validator: validator,
	}
}

// GetContacts lists the caller's emergency contacts
// @Summary List emergency contacts
// @Tags Contacts
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.EmergencyContact}
// @Router /contacts [get]
func (cc *ContactController) GetContacts(c *gin.Context) {
	userID, ok := cc.ready(c)
	if !ok {
		return
	}

	contacts, err := cc.store.ListByUser(c.Request.Context(), userID)
	if err != nil {
		logrus.Errorf("List contacts failed for user %s: %v", userID, err)
		utils.InternalServerErrorResponse(c, "Failed to get contacts")
		return
	}
	utils.SuccessResponse(c, "Contacts retrieved", contacts)
}

// AddContact registers a family contact who is alerted during emergencies
// @Summary Add emergency contact
// @Tags Contacts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.AddEmergencyContactRequest true "Contact"
// @Success 201 {object} models.APIResponse{data=models.EmergencyContact}
// @Failure 400 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Router /contacts [post]
func (cc *ContactController) AddContact(c *gin.Context) {
	userID, ok := cc.ready(c)
	if !ok {
		return
	}

	var req models.AddEmergencyContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := cc.validator.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs)
		return
	}
	if req.Phone == "" && req.Email == "" && req.DeviceToken == "" {
		utils.BadRequestResponse(c, "A contact needs a phone number, email or device token")
		return
	}

	contact := &models.EmergencyContact{
		UserID:       userID,
		Name:         req.Name,
		Relationship: req.Relationship,
		Phone:        utils.NormalizePhoneNumber(req.Phone),
		Email:        req.Email,
		DeviceToken:  req.DeviceToken,
	}

	err := cc.store.Create(c.Request.Context(), contact)
	switch {
	case err == nil:
		utils.CreatedResponse(c, "Contact added", contact)
	case errors.Is(err, repositories.ErrTooManyContacts):
		utils.ErrorResponse(c, http.StatusConflict, "Emergency contact limit reached", nil)
	case mongo.IsDuplicateKeyError(err):
		utils.ErrorResponse(c, http.StatusConflict, "A contact with this phone number already exists", nil)
	default:
		logrus.Errorf("Add contact failed for user %s: %v", userID, err)
		utils.InternalServerErrorResponse(c, "Failed to add contact")
	}
}

// DeleteContact removes one of the caller's contacts
// @Summary Delete emergency contact
// @Tags Contacts
// @Security BearerAuth
// @Produce json
// @Param contactId path string true "Contact ID"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /contacts/{contactId} [delete]
func (cc *ContactController) DeleteContact(c *gin.Context) {
	userID, ok := cc.ready(c)
	if !ok {
		return
	}

	err := cc.store.Delete(c.Request.Context(), userID, c.Param("contactId"))
	switch {
	case err == nil:
		utils.SuccessResponse(c, "Contact deleted", nil)
	case errors.Is(err, repositories.ErrContactNotFound):
		utils.NotFoundResponse(c, "Contact")
	default:
		logrus.Errorf("Delete contact failed for user %s: %v", userID, err)
		utils.InternalServerErrorResponse(c, "Failed to delete contact")
	}
}

func (cc *ContactController) ready(c *gin.Context) (string, bool) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return "", false
	}
	if cc.store == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Contact storage is not configured", nil)
		return "", false
	}
	return userID, true
}
