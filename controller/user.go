package controller

import (
	"strings"

	"dm-service/database"
	"dm-service/model"
	"dm-service/service"

	"github.com/gofiber/fiber/v2"
)

type UserUpdateInput struct {
	Name     *string `json:"name"`
	Lastname *string `json:"lastname"`
	Bio      *string `json:"bio"`
	Avatar   *string `json:"avatar"`
}

func dialogs() *service.DialogService {
	messages := service.NewMessageService(database.Postgres)
	return service.NewDialogService(database.Postgres, messages)
}

func UserProfile(c *fiber.Ctx) error {
	userModel, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Internal server error",
			"data":    nil,
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data": fiber.Map{
			"id":       userModel.ID,
			"created":  userModel.CreatedAt.Unix(),
			"username": userModel.Username,
			"email":    userModel.Email,
			"name":     userModel.Name,
			"lastname": userModel.Lastname,
			"bio":      userModel.Bio,
			"avatar":   userModel.Avatar,
			"status":   userModel.Status,
			"role":     userModel.Role,
			"verified": userModel.IsVerified,
			"otp":      userModel.Otp_enabled,
		},
	})
}

func UserUpdate(c *fiber.Ctx) error {
	input := new(UserUpdateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Review your input",
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

	renamed := false
	if input.Name != nil && *input.Name != userModel.Name {
		userModel.Name = *input.Name
		renamed = true
	}
	if input.Lastname != nil && *input.Lastname != userModel.Lastname {
		userModel.Lastname = *input.Lastname
		renamed = true
	}
	if input.Bio != nil {
		userModel.Bio = *input.Bio
	}
	if input.Avatar != nil {
		userModel.Avatar = *input.Avatar
	}

	if err := database.Postgres.Save(&userModel).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Internal server error",
			"data":    nil,
		})
	}

	// Partner dialogs carry the display name as their title
	if renamed {
		title := strings.TrimSpace(userModel.Name + " " + userModel.Lastname)
		if title == "" {
			title = userModel.Username
		}

		svc := dialogs()
		if err := svc.RenameForPartners(userModel.ID, title); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Internal server error",
				"data":    nil,
			})
		}
		if members, err := svc.MemberDialogs(userModel.ID); err == nil {
			notifyDialogLists(members)
		}
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data": fiber.Map{
			"id":       userModel.ID,
			"username": userModel.Username,
			"name":     userModel.Name,
			"lastname": userModel.Lastname,
			"bio":      userModel.Bio,
			"avatar":   userModel.Avatar,
		},
	})
}

func searchUsers(query string, self *model.User) ([]model.User, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	var users []model.User
	err := database.Postgres.
		Where("id <> ?", self.ID).
		Where("is_verified = ?", true).
		Where(
			database.Postgres.
				Where("LOWER(username) LIKE ?", pattern).
				Or("LOWER(email) LIKE ?", pattern).
				Or("LOWER(name) LIKE ?", pattern),
		).
		Limit(50).
		Find(&users).Error
	return users, err
}
