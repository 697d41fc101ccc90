package router

import (
	"dm-service/controller"
	"dm-service/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func Rest(app *fiber.App) {
	api := app.Group("/v1", logger.New())

	// Auth
	auth := api.Group("/auth")
	auth.Post("/signup", controller.AuthSignup)
	auth.Post("/signin", controller.AuthSignin)
	auth.Post("/signout", middleware.JWT(), controller.AuthSignout)
	auth.Post("/token/renew", controller.AuthTokenRenew)
	auth.Post("/verify", middleware.JWT(), middleware.OTP(), controller.AuthVerify)
	auth.Post("/verify/resend", middleware.JWT(), middleware.OTP(), controller.AuthVerificationResend)
	auth.Post("/2fa/secret", middleware.JWT(), middleware.OTP(), controller.AuthOtpSecret)
	auth.Post("/2fa/verify", middleware.JWT(), middleware.OTP(), controller.AuthOtpVerify)
	auth.Post("/2fa/validate", middleware.JWT(), controller.AuthOtpValidate)
	auth.Post("/2fa/disable", middleware.JWT(), middleware.OTP(), controller.AuthOtpDisable)

	// User
	user := api.Group("/user", middleware.JWT(), middleware.OTP())
	user.Get("/profile", controller.UserProfile)
	user.Patch("/profile", middleware.Verified(), controller.UserUpdate)

	// Search
	api.Get("/search", middleware.JWT(), middleware.OTP(), middleware.Verified(), controller.Search)

	// Dialogs
	api.Get("/dialogs", middleware.JWT(), middleware.OTP(), middleware.Verified(), controller.DialogGetAll)
	dialog := api.Group("/dialogs", middleware.JWT(), middleware.OTP(), middleware.Verified())
	dialog.Post("/:id/pin", controller.DialogPin)
	dialog.Post("/:id/unpin", controller.DialogUnpin)

	// Messenger
	messenger := api.Group("/messenger", middleware.JWT(), middleware.OTP(), middleware.Verified())
	messenger.Get("/image/:id", controller.ImageGet)

	// Admin
	admin := api.Group("/admin", middleware.JWT(), middleware.OTP(), middleware.RBAC())
	admin.Get("/users", controller.AdminUsers)
}
