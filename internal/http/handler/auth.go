package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"digilocker/internal/http/middleware"
)

const oauthStateCookie = "oauth_state"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func registerAuthRoutes(app *fiber.App, deps Deps) {
	auth := app.Group("/auth")

	auth.Post("/register", func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		res, err := deps.Auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	auth.Post("/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		tokens, user, err := deps.Auth.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(fiber.Map{"tokens": tokens, "user": user})
	})

	auth.Post("/refresh", func(c *fiber.Ctx) error {
		var req refreshRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		tokens, err := deps.Auth.Refresh(c.UserContext(), req.RefreshToken)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(tokens)
	})

	// Logout discards the refresh token and drops the identity's vault,
	// clearing all identity-scoped state.
	auth.Post("/logout", middleware.RequireAuth(deps.JWTSecret), func(c *fiber.Ctx) error {
		var req refreshRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		userID := middleware.UserIDFromCtx(c)
		if err := deps.Auth.Logout(c.UserContext(), userID, req.RefreshToken); err != nil {
			return writeDomainError(c, err)
		}
		deps.Vaults.Drop(userID)
		return c.SendStatus(fiber.StatusNoContent)
	})

	auth.Get("/me", middleware.RequireAuth(deps.JWTSecret), func(c *fiber.Ctx) error {
		user, err := deps.Auth.User(c.UserContext(), middleware.UserIDFromCtx(c))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(user)
	})

	// Federated sign-in: redirect to the provider's consent page with a
	// state nonce bound to this browser via cookie.
	auth.Get("/oauth/:provider", func(c *fiber.Ctx) error {
		state := uuid.NewString()
		u, err := deps.OAuth.AuthURL(c.Params("provider"), state)
		if err != nil {
			return writeDomainError(c, err)
		}
		c.Cookie(&fiber.Cookie{
			Name:     oauthStateCookie,
			Value:    state,
			HTTPOnly: true,
			Expires:  time.Now().Add(10 * time.Minute),
		})
		return c.Redirect(u, fiber.StatusTemporaryRedirect)
	})

	auth.Get("/oauth/:provider/callback", func(c *fiber.Ctx) error {
		if c.Query("state") == "" || c.Query("state") != c.Cookies(oauthStateCookie) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_STATE", "oauth state mismatch")
		}
		code := c.Query("code")
		if code == "" {
			return writeError(c, fiber.StatusBadRequest, "CODE_REQUIRED", "authorization code is required")
		}
		tokens, user, err := deps.OAuth.Exchange(c.UserContext(), c.Params("provider"), code)
		if err != nil {
			return writeDomainError(c, err)
		}
		c.ClearCookie(oauthStateCookie)
		return c.JSON(fiber.Map{"tokens": tokens, "user": user})
	})
}
