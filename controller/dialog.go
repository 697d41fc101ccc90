package controller

import (
	"strconv"

	"dm-service/exception"
	"dm-service/model"
	"dm-service/service"
	"dm-service/socketio"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func claimedUserID(c *fiber.Ctx) (uint, error) {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)

	id, ok := claims["id"].(string)
	if !ok {
		return 0, fiber.ErrUnauthorized
	}

	parsed, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, fiber.ErrUnauthorized
	}
	return uint(parsed), nil
}

// apiErrorResponse maps service errors onto the response envelope.
func apiErrorResponse(c *fiber.Ctx, err error) error {
	if apiErr, ok := err.(*exception.ApiError); ok {
		return c.Status(apiErr.Status).JSON(fiber.Map{
			"status":  "error",
			"message": apiErr.Message,
			"data":    nil,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status":  "error",
		"message": "Internal server error",
		"data":    nil,
	})
}

func notifyDialogLists(dialogs []model.Dialog) {
	seen := make(map[uint]bool)
	for _, dialog := range dialogs {
		if !seen[dialog.UserID] {
			seen[dialog.UserID] = true
			socketio.Emit(service.UserRoom(dialog.UserID), service.EventDialogsNeedToUpdate)
		}
	}
}

func DialogGetAll(c *fiber.Ctx) error {
	userID, err := claimedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  "error",
			"message": "Unauthorized",
			"data":    nil,
		})
	}

	lists, err := dialogs().GetAll(userID)
	if err != nil {
		return apiErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data":    lists,
	})
}

func DialogPin(c *fiber.Ctx) error {
	return dialogPinAction(c, true)
}

func DialogUnpin(c *fiber.Ctx) error {
	return dialogPinAction(c, false)
}

func dialogPinAction(c *fiber.Ctx, pin bool) error {
	userID, err := claimedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  "error",
			"message": "Unauthorized",
			"data":    nil,
		})
	}

	dialogID, err := c.ParamsInt("id")
	if err != nil || dialogID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Malformed dialog id",
			"data":    nil,
		})
	}

	svc := dialogs()
	if pin {
		err = svc.Pin(userID, uint(dialogID))
	} else {
		err = svc.Unpin(userID, uint(dialogID))
	}
	if err != nil {
		return apiErrorResponse(c, err)
	}

	socketio.Emit(service.UserRoom(userID), service.EventDialogsNeedToUpdate)

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data":    nil,
	})
}
