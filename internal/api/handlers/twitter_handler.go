package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/GapJohn23/profferex/internal/service"
	"github.com/GapJohn23/profferex/internal/transfer"
)

type TwitterHandler struct {
	link     service.TwitterLinkService
	accounts service.AccountService
	media    service.MediaService
}

func NewTwitterHandler(link service.TwitterLinkService, accounts service.AccountService, media service.MediaService) *TwitterHandler {
	return &TwitterHandler{
		link:     link,
		accounts: accounts,
		media:    media,
	}
}

func (h *TwitterHandler) CreateLink(c *fiber.Ctx) error {
	userID := GetUserID(c)

	authURL, err := h.link.CreateLink(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"url": authURL,
	})
}

func (h *TwitterHandler) Callback(c *fiber.Ctx) error {
	requestToken := c.Query("oauth_token")
	verifier := c.Query("oauth_verifier")

	if requestToken == "" || verifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing oauth_token or oauth_verifier",
		})
	}

	err := h.link.Callback(c.Context(), requestToken, verifier)
	if err != nil {
		slog.Info(err.Error())
		if errors.Is(err, service.ErrLinkExpired) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to link Twitter account",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Twitter account linked successfully",
	})
}

func (h *TwitterHandler) ListAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accounts, err := h.accounts.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *TwitterHandler) GetActiveAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)

	account, err := h.accounts.GetActive(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get active account",
		})
	}

	return c.Status(fiber.StatusOK).JSON(account)
}

func (h *TwitterHandler) SetActiveAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.SetActiveAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	err := h.accounts.SetActive(c.Context(), userID, req.AccountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to set active account",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Active account updated",
	})
}

func (h *TwitterHandler) RemoveAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	err := h.accounts.Delete(c.Context(), userID, int64(accountID))
	if err != nil {
		if errors.Is(err, service.ErrAccountDeleteDenied) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *TwitterHandler) UploadMedia(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.UploadMediaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.R2Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing r2_key",
		})
	}

	mediaID, err := h.media.UploadFromR2(c.Context(), userID, req.R2Key)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"media_id": mediaID,
	})
}
