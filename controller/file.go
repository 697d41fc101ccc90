package controller

import (
	"dm-service/database"
	"dm-service/model"

	"github.com/gofiber/fiber/v2"
)

// ImageGet returns a stored message attachment. Images are kept as data URIs
// so the client can render them directly.
func ImageGet(c *fiber.Ctx) error {
	imageID, err := c.ParamsInt("id")
	if err != nil || imageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Malformed image id",
			"data":    nil,
		})
	}

	image := new(model.Image)
	if err := database.Postgres.First(&image, imageID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "Image isn't exist",
			"data":    nil,
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data": fiber.Map{
			"id":   image.ID,
			"data": image.Data,
		},
	})
}
