package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GapJohn23/profferex/internal/service"
	"github.com/GapJohn23/profferex/internal/transfer"
)

type TweetHandler struct {
	s service.TweetService
}

func NewTweetHandler(service service.TweetService) *TweetHandler {
	return &TweetHandler{s: service}
}

func tweetErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrTweetEmpty),
		errors.Is(err, service.ErrTweetTooLong),
		errors.Is(err, service.ErrScheduleTooSoon),
		errors.Is(err, service.ErrScheduleTooFar),
		errors.Is(err, service.ErrNoAccounts),
		errors.Is(err, service.ErrSelectedAccountNotFound),
		errors.Is(err, service.ErrAccountMissingCredentials):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrScheduledTweetNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrConcurrentModification):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *TweetHandler) PostNow(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.PostNowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	tweetID, err := h.s.PostNow(c.Context(), userID, &req)
	if err != nil {
		return c.Status(tweetErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"tweet_id": tweetID,
	})
}

func (h *TweetHandler) Schedule(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.s.Schedule(c.Context(), userID, &req)
	if err != nil {
		return c.Status(tweetErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *TweetHandler) ListScheduled(c *fiber.Ctx) error {
	userID := GetUserID(c)

	tweets, err := h.s.ListScheduled(c.Context(), userID)
	if err != nil {
		return c.Status(tweetErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(tweets)
}

func (h *TweetHandler) UpdateScheduled(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.UpdateScheduledRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.s.UpdateScheduled(c.Context(), userID, &req)
	if err != nil {
		return c.Status(tweetErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *TweetHandler) CancelScheduled(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.CancelScheduledRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	err := h.s.CancelScheduled(c.Context(), userID, req.TweetID)
	if err != nil {
		return c.Status(tweetErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Scheduled tweet cancelled",
	})
}

func (h *TweetHandler) PublishHistory(c *fiber.Ctx) error {
	userID := GetUserID(c)
	tweetID := c.Query("id")

	attempts, err := h.s.PublishHistory(c.Context(), userID, tweetID)
	if err != nil {
		return c.Status(tweetErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(attempts)
}
