package socketio

import (
	"context"
	"strconv"
	"time"

	"dm-service/database"
	"dm-service/service"
	"dm-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/socket.io-go-redis/adapter"
	r_type "github.com/zishang520/socket.io-go-redis/types"
	"github.com/zishang520/socket.io/v2/socket"
)

var server *socket.Server

func Init(app *fiber.App) *socket.Server {
	log.DEBUG = true

	options := socket.DefaultServerOptions()
	options.SetServeClient(true)
	options.SetAllowEIO3(true)
	options.SetPingInterval(300 * time.Millisecond)
	options.SetPingTimeout(200 * time.Millisecond)
	options.SetMaxHttpBufferSize(100000000)
	options.SetConnectTimeout(1000 * time.Millisecond)
	options.SetAdapter(&adapter.RedisAdapterBuilder{
		Redis: r_type.NewRedisClient(context.Background(), database.Redis[1]),
		Opts:  &adapter.RedisAdapterOptions{},
	})

	server = socket.NewServer(nil, nil)

	// Handshake: either an access token or the explicit id/email/isVerified
	// triple. Invalid handshakes get an explicit connect error instead of a
	// silently ignored socket.
	server.Use(func(client *socket.Socket, next func(*socket.ExtendedError)) {
		query := client.Conn().Request().Query()

		if token, ok := query.Get("token"); ok {
			claims, err := utils.CheckAndExtractTokenMetadata(token, "JWT_ACCESS_KEY")
			if err != nil || claims.Otp || !claims.Verified {
				next(socket.NewExtendedError("handshake: invalid token", nil))
				return
			}
			id, err := claims.UserID()
			if err != nil {
				next(socket.NewExtendedError("handshake: invalid token", nil))
				return
			}
			client.SetData(&service.Session{User: service.UserClaims{
				Id:       id,
				Email:    claims.Email,
				Verified: true,
			}})
			next(nil)
			return
		}

		id, okId := query.Get("id")
		email, okEmail := query.Get("email")
		isVerified, okVerified := query.Get("isVerified")

		if !okId || !okEmail || !okVerified || id == "" || email == "" {
			next(socket.NewExtendedError("handshake: id, email and isVerified are required", nil))
			return
		}
		if isVerified != "true" {
			next(socket.NewExtendedError("handshake: user isn't verified", nil))
			return
		}

		userID, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			next(socket.NewExtendedError("handshake: malformed id", nil))
			return
		}

		client.SetData(&service.Session{User: service.UserClaims{
			Id:       uint(userID),
			Email:    email,
			Verified: true,
		}})
		next(nil)
	})

	app.Get("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))
	app.Post("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))

	return server
}

// Rooms adapts the socket server to the presence coordinator's emitter port.
type Rooms struct {
	server *socket.Server
}

func NewRooms(server *socket.Server) *Rooms {
	return &Rooms{server: server}
}

func (r *Rooms) EmitTo(room string, event string, data ...any) {
	r.server.To(socket.Room(room)).Emit(event, data...)
}

// Emit sends an event to a room on the shared server. Used by HTTP handlers
// that need to push updates to connected clients.
func Emit(room string, event string, data ...any) {
	if server == nil {
		return
	}
	server.To(socket.Room(room)).Emit(event, data...)
}
