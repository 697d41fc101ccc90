package controller

import (
	"strconv"

	"dm-service/dto"
	"dm-service/service"

	"github.com/gofiber/fiber/v2"
)

func Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Query is required",
			"data":    nil,
		})
	}

	userModel, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Internal server error",
			"data":    nil,
		})
	}

	switch c.Query("type", "dialog") {
	case "dialog":
		page, _ := strconv.Atoi(c.Query("page", "1"))

		found, err := dialogs().Search(service.SearchDialogsParams{
			UserID: userModel.ID,
			Query:  query,
			Page:   page,
		})
		if err != nil {
			return apiErrorResponse(c, err)
		}

		return c.JSON(fiber.Map{
			"status":  "success",
			"message": nil,
			"data": fiber.Map{
				"dialogs": found,
			},
		})

	case "user":
		found, err := searchUsers(query, userModel)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Internal server error",
				"data":    nil,
			})
		}

		// Users the caller already has a dialog with show up in the dialog
		// search instead.
		partners := make(map[uint]bool)
		if memberDialogs, err := dialogs().MemberDialogs(userModel.ID); err == nil {
			for _, dialog := range memberDialogs {
				if dialog.UserID == userModel.ID {
					partners[dialog.PartnerID] = true
				}
			}
		}

		users := make([]dto.User, 0, len(found))
		for _, user := range found {
			if partners[user.ID] {
				continue
			}
			users = append(users, dto.NewUser(user))
		}

		return c.JSON(fiber.Map{
			"status":  "success",
			"message": nil,
			"data": fiber.Map{
				"users": users,
			},
		})

	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Unknown search type",
			"data":    nil,
		})
	}
}
