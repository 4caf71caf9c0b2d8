package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"digilocker/internal/http/middleware"
	"digilocker/internal/service"
	"digilocker/internal/vault"
)

// Deps bundles everything the HTTP layer needs. Handlers stay minimal and
// free of business logic; all document semantics live in the vault.
type Deps struct {
	DB        *sql.DB
	Auth      *service.AuthService
	OAuth     *service.OAuthService
	Vaults    *vault.Manager
	JWTSecret string
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: checks DB connectivity only
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := deps.DB.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	registerAuthRoutes(app, deps)
	registerDocumentRoutes(app, deps)
}

func registerDocumentRoutes(app *fiber.App, deps Deps) {
	docs := app.Group("/documents", middleware.RequireAuth(deps.JWTSecret))

	// List documents: re-fetches the mirror so every response carries
	// freshly signed URLs.
	docs.Get("/", func(c *fiber.Ctx) error {
		store := deps.Vaults.Store(middleware.UserIDFromCtx(c))
		if err := store.Refresh(c.UserContext()); err != nil {
			return writeDomainError(c, err)
		}
		items := store.Documents()
		return c.JSON(fiber.Map{"data": items, "total": len(items)})
	})

	// Summary statistics over the current mirror.
	docs.Get("/stats", func(c *fiber.Ctx) error {
		store := deps.Vaults.Store(middleware.UserIDFromCtx(c))
		// A store created for this request has an empty mirror; populate it once.
		if len(store.Documents()) == 0 {
			if err := store.Refresh(c.UserContext()); err != nil {
				return writeDomainError(c, err)
			}
		}
		return c.JSON(store.Stats())
	})

	// Upload document (multipart/form-data, field name: file)
	docs.Post("/", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		store := deps.Vaults.Store(middleware.UserIDFromCtx(c))
		doc, err := store.Upload(c.UserContext(), f, fh.Filename, ct, fh.Size)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	})

	// Delete document by ID
	docs.Delete("/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		store := deps.Vaults.Store(middleware.UserIDFromCtx(c))
		if err := store.Delete(c.UserContext(), id); err != nil {
			return writeDomainError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Share document: marks it shared and returns the sharing descriptor.
	docs.Post("/:id/share", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		store := deps.Vaults.Store(middleware.UserIDFromCtx(c))
		link, err := store.Share(c.UserContext(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(link)
	})

	// Toggle the verification badge.
	docs.Post("/:id/verify", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		store := deps.Vaults.Store(middleware.UserIDFromCtx(c))
		verified, err := store.ToggleVerify(c.UserContext(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(fiber.Map{"id": id, "verified": verified})
	})

	// Stream document content directly.
	docs.Get("/:id/download", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		store := deps.Vaults.Store(middleware.UserIDFromCtx(c))
		rc, doc, err := store.Open(c.UserContext(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		c.Set(fiber.HeaderContentType, doc.ContentType)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+doc.Name+`"`)
		return c.SendStream(rc, int(doc.Size))
	})
}
