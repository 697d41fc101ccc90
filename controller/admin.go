package controller

import (
	"strconv"

	"dm-service/database"
	"dm-service/dto"
	"dm-service/model"

	"github.com/gofiber/fiber/v2"
)

func AdminUsers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	var users []model.User
	if err := database.Postgres.
		Order("id asc").
		Limit(50).
		Offset((page - 1) * 50).
		Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Internal server error",
			"data":    nil,
		})
	}

	out := make([]dto.User, 0, len(users))
	for _, user := range users {
		out = append(out, dto.NewUser(user))
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data": fiber.Map{
			"users": out,
		},
	})
}
