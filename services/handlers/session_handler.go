package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/conversahq/conversa_api/dto"
	"github.com/conversahq/conversa_api/shared"
)

// SessionHandler serves bearer-token validation and profile management.
type SessionHandler struct {
	authSvc  AuthServiceInterface
	mediaSvc MediaServiceInterface
}

func NewSessionHandler(authSvc AuthServiceInterface, mediaSvc MediaServiceInterface) *SessionHandler {
	return &SessionHandler{
		authSvc:  authSvc,
		mediaSvc: mediaSvc,
	}
}

// @Summary Session gateway
// @Description Dispatches token validation, profile retrieval and logout based on the action query parameter
// @Tags session
// @Accept json
// @Produce json
// @Param action query string true "One of: validate, profile, logout"
// @Success 200 {object} shared.Response
// @Router /api/v1/session [post]
func (h *SessionHandler) Dispatch(c *fiber.Ctx) error {
	switch c.Query("action") {
	case shared.ActionValidate:
		return h.validate(c)
	case shared.ActionProfile:
		return h.profile(c)
	case shared.ActionLogout:
		return h.logout(c)
	default:
		return shared.NewBadRequestError(nil, "Unknown session action")
	}
}

// validate answers {authenticated, user} for the presented token. A bad or
// absent token is a 200 with authenticated=false, never a 401, so clients
// can poll it without error handling.
func (h *SessionHandler) validate(c *fiber.Ctx) error {
	result, err := h.authSvc.ValidateBearer(c.Get("Authorization"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", result)
}

func (h *SessionHandler) profile(c *fiber.Ctx) error {
	result, err := h.authSvc.ValidateBearer(c.Get("Authorization"))
	if err != nil {
		return err
	}
	if !result.Authenticated {
		return shared.NewUnauthorizedError(nil, "Authentication required")
	}

	profile, err := h.authSvc.GetProfile(result.User.ID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", profile)
}

func (h *SessionHandler) logout(c *fiber.Ctx) error {
	auth := c.Get("Authorization")
	if auth != "" {
		token := strings.TrimPrefix(auth, "Bearer ")
		if err := h.authSvc.Logout(token); err != nil {
			return err
		}
	}

	return shared.ResponseJSON(c, http.StatusOK, "Logged out successfully", nil)
}

// @Summary Get profile
// @Description Returns the authenticated user's profile
// @Tags profile
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.ProfileResponse}
// @Router /api/v1/profile [get]
func (h *SessionHandler) GetProfile(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	profile, err := h.authSvc.GetProfile(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", profile)
}

// @Summary Update profile
// @Description Updates the authenticated user's display name or avatar URL
// @Tags profile
// @Accept json
// @Produce json
// @Security Bearer
// @Param updateRequest body dto.UpdateProfileRequest true "Profile fields to update"
// @Success 200 {object} shared.Response{data=dto.ProfileResponse}
// @Router /api/v1/profile [put]
func (h *SessionHandler) UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	profile, err := h.authSvc.UpdateProfile(userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Profile updated successfully", profile)
}

// @Summary Upload avatar
// @Description Stores a profile image and links it to the authenticated user
// @Tags profile
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param avatar formData file true "Avatar image (JPG, PNG or WEBP, max 2MB)"
// @Success 200 {object} shared.Response{data=dto.AvatarUploadResponse}
// @Router /api/v1/profile/avatar [post]
func (h *SessionHandler) UploadAvatar(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	file, err := c.FormFile("avatar")
	if err != nil {
		return shared.NewBadRequestError(err, "Avatar file is required")
	}

	resp, err := h.mediaSvc.UploadAvatar(userID, file)
	if err != nil {
		return err
	}

	if err := h.authSvc.SetAvatarURL(userID, resp.URL); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Avatar uploaded successfully", resp)
}
