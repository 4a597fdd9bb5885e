package authflow

import (
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// localsUserIDKey is where RequireAuth stashes the validated account id.
const localsUserIDKey = "authflow_user_id"

// AuthController binds the lifecycle manager and token service to a JSON
// HTTP surface. Route-to-operation mapping is 1:1; failures map to status
// codes through the error taxonomy.
type AuthController struct {
	Manager *Manager
	Tokens  TokenService
	Config  Config
	Logger  Logger
}

func NewAuthController(manager *Manager, tokens TokenService, cfg Config) *AuthController {
	return &AuthController{
		Manager: manager,
		Tokens:  tokens,
		Config:  cfg,
		Logger:  defLogger{},
	}
}

func (a *AuthController) WithLogger(logger Logger) *AuthController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// RegisterAuthRoutes mounts the module's endpoints on the given router.
func RegisterAuthRoutes(app fiber.Router, controller *AuthController) {
	app.Post("/signup", controller.Signup)
	app.Post("/verify-email", controller.VerifyEmail)
	app.Post("/login", controller.Login)
	app.Post("/forgot-password", controller.ForgotPassword)
	app.Post("/reset-password/:token", controller.ResetPassword)

	app.Post("/logout", controller.RequireAuth, controller.Logout)
	app.Get("/check-auth", controller.RequireAuth, controller.CheckAuth)
}

// RequireAuth validates the session cookie and stores the account id in
// request locals. Missing, tampered, and expired tokens get the same 401.
func (a *AuthController) RequireAuth(c *fiber.Ctx) error {
	token := c.Cookies(a.Config.GetCookieName())
	if token == "" {
		return a.respondError(c, ErrNotAuthenticated)
	}

	session, err := a.Tokens.Validate(token)
	if err != nil {
		return a.respondError(c, ErrNotAuthenticated)
	}

	c.Locals(localsUserIDKey, session.GetUserID())
	return c.Next()
}

func (a *AuthController) Signup(c *fiber.Ctx) error {
	var payload SignupInput
	if err := c.BodyParser(&payload); err != nil {
		return a.respondError(c, invalidBodyError(err))
	}

	user, err := a.Manager.Signup(c.Context(), payload)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User created successfully. Verification OTP sent to email.",
		"user":    user,
	})
}

func (a *AuthController) VerifyEmail(c *fiber.Ctx) error {
	var payload struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return a.respondError(c, invalidBodyError(err))
	}

	user, err := a.Manager.VerifyEmail(c.Context(), payload.Email, payload.OTP)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Email verified successfully",
		"user":    user,
	})
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return a.respondError(c, invalidBodyError(err))
	}

	user, err := a.Manager.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.respondError(c, err)
	}

	token, err := a.Tokens.Issue(user.ID)
	if err != nil {
		return a.respondError(c, err)
	}

	a.setSessionCookie(c, token)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"user":    user,
	})
}

func (a *AuthController) Logout(c *fiber.Ctx) error {
	a.clearSessionCookie(c)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	var payload struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return a.respondError(c, invalidBodyError(err))
	}

	if err := a.Manager.RequestPasswordReset(c.Context(), payload.Email); err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "If an account exists, a reset link will be sent",
	})
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	var payload struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return a.respondError(c, invalidBodyError(err))
	}

	if _, err := a.Manager.ResetPassword(c.Context(), c.Params("token"), payload.Password); err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password reset successfully",
	})
}

func (a *AuthController) CheckAuth(c *fiber.Ctx) error {
	rawID, _ := c.Locals(localsUserIDKey).(string)
	accountID, err := uuid.Parse(rawID)
	if err != nil {
		return a.respondError(c, ErrNotAuthenticated)
	}

	user, err := a.Manager.CheckAuth(c.Context(), accountID)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

func (a *AuthController) setSessionCookie(c *fiber.Ctx, token string) {
	maxAge := a.Config.GetCookieMaxAge()
	c.Cookie(&fiber.Cookie{
		Name:     a.Config.GetCookieName(),
		Value:    token,
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		HTTPOnly: a.Config.GetCookieHTTPOnly(),
		Secure:   a.Config.GetCookieSecure(),
		SameSite: a.Config.GetCookieSameSite(),
	})
}

func (a *AuthController) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     a.Config.GetCookieName(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: a.Config.GetCookieHTTPOnly(),
		Secure:   a.Config.GetCookieSecure(),
		SameSite: a.Config.GetCookieSameSite(),
	})
}

func (a *AuthController) respondError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status <= 0 {
		status = fiber.StatusInternalServerError
	}

	if status >= fiber.StatusInternalServerError {
		a.Logger.Error("request failed: %s %s", richErr.Message, print.MaybePrettyJSON(richErr.Metadata))
	} else {
		a.Logger.Debug("request rejected: %s", richErr.Message)
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": richErr.Message,
	})
}

func invalidBodyError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request body").
		WithCode(goerrors.CodeBadRequest)
}
