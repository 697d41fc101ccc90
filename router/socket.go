package router

import (
	"errors"
	"log"

	"dm-service/dto"
	"dm-service/exception"
	"dm-service/service"
	"dm-service/socketio"

	"github.com/zishang520/socket.io/v2/socket"
	"gorm.io/gorm"
)

// socketRouter is the realtime event router: it decodes client events, calls
// the dialog directory / message store, and fans server events out to the
// rooms each event affects.
type socketRouter struct {
	dialogs  *service.DialogService
	messages *service.MessageService
	presence *service.PresenceService
	rooms    service.RoomEmitter
}

// sessionSocket is the slice of one connection the handlers touch: event
// registration, direct emits and room membership.
type sessionSocket interface {
	service.RoomMember
	On(event string, fn func(args []any))
	Emit(event string, data ...any)
}

// socketClient adapts one connection to the handlers and to the presence
// coordinator's room port.
type socketClient struct {
	*socket.Socket
}

func (c socketClient) JoinRoom(room string) {
	c.Join(socket.Room(room))
}

func (c socketClient) LeaveRoom(room string) {
	c.Leave(socket.Room(room))
}

func (c socketClient) On(event string, fn func(args []any)) {
	c.Socket.On(event, func(args ...interface{}) {
		fn(args)
	})
}

func (c socketClient) Emit(event string, data ...any) {
	c.Socket.Emit(event, data...)
}

func Socket(server *socket.Server, db *gorm.DB) {
	messages := service.NewMessageService(db)
	dialogs := service.NewDialogService(db, messages)
	rooms := socketio.NewRooms(server)
	presence := service.NewPresenceService(db, dialogs, rooms)

	r := &socketRouter{
		dialogs:  dialogs,
		messages: messages,
		presence: presence,
		rooms:    rooms,
	}

	server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		sess, ok := client.Data().(*service.Session)
		if !ok || sess == nil {
			client.Disconnect(true)
			return
		}

		r.onConnection(socketClient{client}, sess)
	})
}

func (r *socketRouter) onConnection(client sessionSocket, sess *service.Session) {
	r.presence.Connected(client, sess.User.Id)

	r.dialogHandlers(client, sess)
	r.messageHandlers(client, sess)

	client.On("disconnect", func([]any) {
		r.presence.Disconnected(sess.User.Id)
	})
}

// handle registers an event handler with the shared failure policy: any error
// or panic becomes a SERVER:ERROR on the offending connection, never a dead
// socket.
func (r *socketRouter) handle(client sessionSocket, event string, fn func(args []any) error) {
	client.On(event, func(args []any) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("socket: %s panic: %v", event, rec)
				emitError(client, event, "Unexpected error")
			}
		}()

		if err := fn(args); err != nil {
			var apiErr *exception.ApiError
			if errors.As(err, &apiErr) {
				emitError(client, event, apiErr.Message)
				return
			}
			log.Printf("socket: %s: %v", event, err)
			emitError(client, event, "Unexpected error")
		}
	})
}

type errorResponse struct {
	Event  string `json:"event"`
	Reason string `json:"reason,omitempty"`
}

func emitError(client sessionSocket, event string, reason string) {
	client.Emit(ServerError, errorResponse{Event: event, Reason: reason})
}

// activeDialog guards operations that require a joined dialog.
func activeDialog(sess *service.Session) (*dto.Dialog, error) {
	if !sess.InDialog() {
		return nil, exception.BadRequest("No active dialog")
	}
	return sess.Dialog, nil
}
