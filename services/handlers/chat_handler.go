package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/conversahq/conversa_api/dto"
	"github.com/conversahq/conversa_api/model"
	"github.com/conversahq/conversa_api/shared"
)

// ChatHandler proxies chat and FAQ prompts to the AI upstream. Each request
// makes exactly one upstream call; the usage row is recorded off the request
// path and never affects the response.
type ChatHandler struct {
	llmSvc       LLMServiceInterface
	analyticsSvc AnalyticsServiceInterface
	monitoring   MonitoringInterface
	limiter      RateLimiterInterface
}

const chatApology = "Sorry, I'm having trouble responding right now. Please try again in a moment."

func NewChatHandler(llmSvc LLMServiceInterface, analyticsSvc AnalyticsServiceInterface, monitoring MonitoringInterface, limiter RateLimiterInterface) *ChatHandler {
	return &ChatHandler{
		llmSvc:       llmSvc,
		analyticsSvc: analyticsSvc,
		monitoring:   monitoring,
		limiter:      limiter,
	}
}

// @Summary Chat completion
// @Description Sends a customer message to the AI assistant and returns its reply
// @Tags chat
// @Accept json
// @Produce json
// @Param chatRequest body dto.ChatRequest true "Customer message"
// @Success 200 {object} shared.Response{data=dto.ChatResponse}
// @Router /api/v1/chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	// Quota is only spent on well-formed requests.
	if err := h.limiter.Check(c, "chat"); err != nil {
		return err
	}

	if !h.llmSvc.Configured() {
		return shared.NewConfigError(fmt.Errorf("chat upstream not configured"))
	}

	result, err := h.llmSvc.Chat(c.Context(), req.Message)

	h.record(c, shared.AnalyticsKindChat, req.Message, result, err)

	if err != nil {
		log.WithError(err).Error("Chat completion failed")
		return shared.ResponseJSON(c, http.StatusInternalServerError, "AI service request failed", dto.ChatResponse{
			Response: chatApology,
		})
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", dto.ChatResponse{
		Response: result.Text,
	})
}

// @Summary FAQ answer
// @Description Answers a frequently-asked question via the AI assistant
// @Tags chat
// @Accept json
// @Produce json
// @Param faqRequest body dto.FAQRequest true "Question"
// @Success 200 {object} shared.Response{data=dto.FAQResponse}
// @Router /api/v1/faq [post]
func (h *ChatHandler) FAQ(c *fiber.Ctx) error {
	var req dto.FAQRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	if err := h.limiter.Check(c, "faq"); err != nil {
		return err
	}

	if !h.llmSvc.Configured() {
		return shared.NewConfigError(fmt.Errorf("chat upstream not configured"))
	}

	result, err := h.llmSvc.AnswerFAQ(c.Context(), req.Question)

	h.record(c, shared.AnalyticsKindFAQ, req.Question, result, err)

	if err != nil {
		log.WithError(err).Error("FAQ completion failed")
		return shared.ResponseJSON(c, http.StatusInternalServerError, "AI service request failed", dto.FAQResponse{
			Answer: chatApology,
		})
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", dto.FAQResponse{
		Answer: result.Text,
	})
}

// record queues the usage row and the upstream metric. Failures here are
// invisible to the caller.
func (h *ChatHandler) record(c *fiber.Ctx, kind, prompt string, result *dto.CompletionResult, err error) {
	record := &model.ChatAnalyticsRecord{
		Kind:         kind,
		ClientIP:     shared.ClientIP(c),
		MessageChars: len(prompt),
		Success:      err == nil,
		CreatedAt:    time.Now(),
	}
	if userID, ok := c.Locals(shared.UserID).(string); ok {
		record.UserID = userID
	}
	if result != nil {
		record.ResponseChars = len(result.Text)
		record.Model = result.Model
		record.DurationMs = result.DurationMs
	}

	h.analyticsSvc.RecordChat(record)

	if h.monitoring != nil {
		duration := time.Duration(record.DurationMs) * time.Millisecond
		h.monitoring.RecordLLMRequest(kind, duration, err == nil)
	}
}
