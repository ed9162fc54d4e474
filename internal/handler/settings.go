package handler

import (
	"io"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/mediagrab/api/internal/model"
	"github.com/mediagrab/api/pkg/response"
)

// 10 MB sanity cap for an uploaded cookie file.
const maxCookiesBytes = 10 * 1024 * 1024

// SettingsHandler manages the engine cookie file used for
// age-restricted and member-only sources.
type SettingsHandler struct {
	cookiesFile string
}

func NewSettingsHandler(cookiesFile string) *SettingsHandler {
	return &SettingsHandler{cookiesFile: cookiesFile}
}

// CookiesStatus handles GET /api/settings/cookies
func (h *SettingsHandler) CookiesStatus(c *fiber.Ctx) error {
	fi, err := os.Stat(h.cookiesFile)
	if err != nil || fi.Size() == 0 {
		return response.OK(c, model.CookiesStatusResponse{Present: false})
	}
	return response.OK(c, model.CookiesStatusResponse{
		Present: true,
		Size:    fi.Size(),
	})
}

// UploadCookies handles POST /api/settings/cookies (multipart field
// "cookies").
func (h *SettingsHandler) UploadCookies(c *fiber.Ctx) error {
	fh, err := c.FormFile("cookies")
	if err != nil {
		return response.ValidationError(c, "Missing cookies file", nil)
	}
	if fh.Size > maxCookiesBytes {
		return response.ValidationError(c, "Cookies file too large", nil)
	}

	src, err := fh.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to read upload")
	}
	defer src.Close()

	dst, err := os.OpenFile(h.cookiesFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return response.ServiceError(c, "Failed to store cookies file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return response.ServiceError(c, "Failed to store cookies file")
	}

	return response.OK(c, fiber.Map{"saved": true})
}

// ClearCookies handles DELETE /api/settings/cookies
func (h *SettingsHandler) ClearCookies(c *fiber.Ctx) error {
	if err := os.Remove(h.cookiesFile); err != nil && !os.IsNotExist(err) {
		return response.ServiceError(c, "Failed to remove cookies file")
	}
	return response.NoContent(c)
}
