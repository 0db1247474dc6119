package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/conversahq/conversa_api/dto"
	"github.com/conversahq/conversa_api/model"
	"github.com/conversahq/conversa_api/shared"
)

// ContactHandler accepts contact form submissions: notify the support inbox,
// then keep a best-effort log row. The email is the delivery mechanism, so
// its failure fails the request; a failed row write never does.
type ContactHandler struct {
	emailSvc     EmailServiceInterface
	analyticsSvc AnalyticsServiceInterface
	monitoring   MonitoringInterface
	limiter      RateLimiterInterface
}

func NewContactHandler(emailSvc EmailServiceInterface, analyticsSvc AnalyticsServiceInterface, monitoring MonitoringInterface, limiter RateLimiterInterface) *ContactHandler {
	return &ContactHandler{
		emailSvc:     emailSvc,
		analyticsSvc: analyticsSvc,
		monitoring:   monitoring,
		limiter:      limiter,
	}
}

// @Summary Submit contact form
// @Description Stores the submission and notifies the support inbox
// @Tags contact
// @Accept json
// @Produce json
// @Param contactRequest body dto.ContactRequest true "Contact form fields"
// @Success 200 {object} shared.Response{data=dto.ContactResponse}
// @Router /api/v1/contact [post]
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req dto.ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	if err := h.limiter.Check(c, "contact"); err != nil {
		return err
	}

	if !h.emailSvc.Configured() {
		return shared.NewConfigError(fmt.Errorf("contact email not configured"))
	}

	id, _ := uuid.NewV7()
	submission := &model.ContactSubmission{
		ID:        id.String(),
		Name:      req.Name,
		Email:     req.Email,
		Company:   req.Company,
		Subject:   req.Subject,
		Message:   req.Message,
		ClientIP:  shared.ClientIP(c),
		CreatedAt: time.Now(),
	}

	sendErr := h.emailSvc.SendContactNotification(submission)
	if h.monitoring != nil {
		h.monitoring.RecordEmailSent(sendErr == nil)
	}

	// The log row is recorded either way; a write failure is invisible to
	// the caller.
	if _, err := h.analyticsSvc.RecordContactSubmission(submission); err != nil {
		log.WithError(err).WithField("submission_id", submission.ID).Error("Failed to store contact submission")
	}

	if sendErr != nil {
		log.WithError(sendErr).WithField("submission_id", submission.ID).Error("Failed to send contact notification")
		return shared.NewUpstreamError(sendErr, "Failed to deliver your message. Please try again later.")
	}

	return shared.ResponseJSON(c, http.StatusOK, "Submission received", dto.ContactResponse{
		Success:      true,
		SubmissionID: submission.ID,
	})
}
