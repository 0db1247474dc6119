package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/conversahq/conversa_api/dto"
	"github.com/conversahq/conversa_api/shared"
)

// AuthHandler multiplexes the /auth endpoint. The action query parameter
// selects the operation, mirroring the hosted auth gateway contract.
type AuthHandler struct {
	authSvc AuthServiceInterface
	jwtSvc  JWTServiceInterface
}

func NewAuthHandler(authSvc AuthServiceInterface, jwtSvc JWTServiceInterface) *AuthHandler {
	return &AuthHandler{
		authSvc: authSvc,
		jwtSvc:  jwtSvc,
	}
}

// @Summary Auth gateway
// @Description Dispatches signup, signin, signout and session retrieval based on the action query parameter
// @Tags auth
// @Accept json
// @Produce json
// @Param action query string true "One of: signup, signin, signout, session"
// @Success 200 {object} shared.Response
// @Router /api/v1/auth [post]
func (h *AuthHandler) Dispatch(c *fiber.Ctx) error {
	switch c.Query("action") {
	case shared.ActionSignUp:
		return h.signUp(c)
	case shared.ActionSignIn:
		return h.signIn(c)
	case shared.ActionSignOut:
		return h.signOut(c)
	case shared.ActionSession:
		return h.session(c)
	default:
		return shared.NewBadRequestError(nil, "Unknown auth action")
	}
}

func (h *AuthHandler) signUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.authSvc.Register(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "Account created successfully", resp)
}

func (h *AuthHandler) signIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.authSvc.Login(c, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Signed in successfully", resp)
}

func (h *AuthHandler) signOut(c *fiber.Ctx) error {
	token := h.jwtSvc.ExtractTokenFromHeader(c.Get("Authorization"))

	// Signout always succeeds so a client with a stale token still ends in a
	// signed-out state.
	if token != "" {
		if err := h.authSvc.Logout(token); err != nil {
			return err
		}
	}

	return shared.ResponseJSON(c, http.StatusOK, "Signed out successfully", nil)
}

func (h *AuthHandler) session(c *fiber.Ctx) error {
	result, err := h.authSvc.GetSession(c.Get("Authorization"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", result)
}
