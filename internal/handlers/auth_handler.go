package handlers

import (
	"errors"
	"log"
	"time"

	"gymflow/internal/middleware"
	"gymflow/internal/services"

	"github.com/gofiber/fiber/v2"
)

// landingPage is where successful logins, registrations and logouts land.
const landingPage = "/"

// AuthHandler handles HTTP requests for registration, login and logout.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
// Logout is POST-only so a crafted link cannot log a user out.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/login", h.ShowLoginForm)
	router.Post("/login", h.HandleLogin)
	router.Post("/logout", h.HandleLogout)
	router.Get("/register", h.ShowRegisterForm)
	router.Post("/register", h.HandleRegister)
}

// RegisterRequest represents the registration form submission.
type RegisterRequest struct {
	Email     string `json:"email" form:"email"`
	Password1 string `json:"password1" form:"password1"`
	Password2 string `json:"password2" form:"password2"`
}

// LoginRequest represents the login form submission. The identifier field
// is named username for historical reasons but holds the email address.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// identifier returns the submitted login identifier, whichever field name
// the client used.
func (r *LoginRequest) identifier() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Email
}

// ShowRegisterForm handles GET /register.
func (h *AuthHandler) ShowRegisterForm(c *fiber.Ctx) error {
	return renderForm(c, "register", fiber.Map{"email": ""}, nil)
}

// HandleRegister handles POST /register. On success the user and its
// profile are created, a session is established and the client is
// redirected to the landing page. On validation failure the form is
// re-rendered with field errors and the submitted email echoed back.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	_, token, err := h.authService.Register(c.Context(), req.Email, req.Password1, req.Password2)
	if err != nil {
		var fieldErrors services.ValidationErrors
		if errors.As(err, &fieldErrors) {
			return renderForm(c, "register", fiber.Map{"email": req.Email}, fieldErrors)
		}
		log.Printf("Error registering user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not register user",
		})
	}

	setSessionCookie(c, token)
	return c.Redirect(landingPage, fiber.StatusFound)
}

// ShowLoginForm handles GET /login.
func (h *AuthHandler) ShowLoginForm(c *fiber.Ctx) error {
	return renderForm(c, "login", fiber.Map{"username": ""}, nil)
}

// HandleLogin handles POST /login. The failure message is generic and the
// submitted identifier is echoed back into the re-rendered form; no
// session is established on failure.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	_, token, err := h.authService.Login(c.Context(), req.identifier(), req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return renderForm(c, "login", fiber.Map{"username": req.identifier()}, services.ValidationErrors{
				"__all__": "Please enter a correct email and password. Note that both fields may be case-sensitive.",
			})
		}
		log.Printf("Error during login for %s: %v", req.identifier(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not log in",
		})
	}

	setSessionCookie(c, token)
	return c.Redirect(landingPage, fiber.StatusFound)
}

// HandleLogout handles POST /logout. It terminates the session and
// redirects to the landing page whether or not a session existed, so
// repeated logouts are harmless.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if token := middleware.SessionToken(c); token != "" {
		if err := h.authService.Logout(c.Context(), token); err != nil {
			log.Printf("Error terminating session: %v", err)
		}
	}

	clearSessionCookie(c)
	return c.Redirect(landingPage, fiber.StatusFound)
}

// renderForm answers with the form payload the client re-renders: field
// values to repopulate and field errors to display. Always a 200 so the
// browser stays on the form.
func renderForm(c *fiber.Ctx, name string, values fiber.Map, errs services.ValidationErrors) error {
	body := fiber.Map{
		"form":   name,
		"values": values,
	}
	if len(errs) > 0 {
		body["errors"] = errs
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

// setSessionCookie attaches the session token to the response.
func setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie on the client.
func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
