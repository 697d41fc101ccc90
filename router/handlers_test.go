package router

import (
	"testing"

	"dm-service/model"
	"dm-service/service"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type roomEvent struct {
	room  string
	event string
}

type recordingRooms struct {
	emits []roomEvent
}

func (r *recordingRooms) EmitTo(room string, event string, data ...any) {
	r.emits = append(r.emits, roomEvent{room: room, event: event})
}

func (r *recordingRooms) reset() { r.emits = nil }

type clientEvent struct {
	event string
	data  []any
}

// recordingClient stands in for one connection: handlers register through On,
// direct emits and room membership are captured for assertions.
type recordingClient struct {
	handlers map[string]func(args []any)
	emits    []clientEvent
	rooms    map[string]bool
}

func newRecordingClient() *recordingClient {
	return &recordingClient{
		handlers: map[string]func(args []any){},
		rooms:    map[string]bool{},
	}
}

func (c *recordingClient) On(event string, fn func(args []any)) { c.handlers[event] = fn }

func (c *recordingClient) Emit(event string, data ...any) {
	c.emits = append(c.emits, clientEvent{event: event, data: data})
}

func (c *recordingClient) JoinRoom(room string)  { c.rooms[room] = true }
func (c *recordingClient) LeaveRoom(room string) { delete(c.rooms, room) }

func (c *recordingClient) fire(t *testing.T, event string, payload any) {
	t.Helper()

	fn, ok := c.handlers[event]
	require.True(t, ok, "no handler registered for %s", event)
	if payload == nil {
		fn(nil)
		return
	}
	fn([]any{payload})
}

func (c *recordingClient) events() []string {
	events := make([]string, 0, len(c.emits))
	for _, e := range c.emits {
		events = append(events, e.event)
	}
	return events
}

func (c *recordingClient) reset() { c.emits = nil }

func newTestRouter(t *testing.T) (*socketRouter, *recordingRooms, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Chat{},
		&model.Dialog{},
		&model.Message{},
		&model.Image{},
	))

	messages := service.NewMessageService(db)
	dialogs := service.NewDialogService(db, messages)
	rooms := &recordingRooms{}
	presence := service.NewPresenceService(db, dialogs, rooms)

	return &socketRouter{
		dialogs:  dialogs,
		messages: messages,
		presence: presence,
		rooms:    rooms,
	}, rooms, db
}

func addUser(t *testing.T, db *gorm.DB, username string) model.User {
	t.Helper()

	user := model.User{
		Username:   username,
		Email:      username + "@example.com",
		Password:   "secret",
		Role:       "user",
		Status:     model.StatusOffline,
		IsVerified: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func connectUser(t *testing.T, r *socketRouter, user model.User) (*recordingClient, *service.Session) {
	t.Helper()

	client := newRecordingClient()
	sess := &service.Session{User: service.UserClaims{
		Id:       user.ID,
		Email:    user.Email,
		Verified: true,
	}}
	r.onConnection(client, sess)
	return client, sess
}

// joinedPair connects alice with an open dialog to bob and clears the
// recorders, so tests see only the emissions of the event under test.
func joinedPair(t *testing.T, r *socketRouter, rooms *recordingRooms, db *gorm.DB) (model.User, model.User, *recordingClient, *service.Session) {
	t.Helper()

	alice := addUser(t, db, "alice")
	bob := addUser(t, db, "bob")
	_, err := r.dialogs.Create(service.CreateDialogParams{UserID: alice.ID, PartnerID: bob.ID})
	require.NoError(t, err)

	client, sess := connectUser(t, r, alice)
	client.fire(t, ClientDialogJoin, map[string]any{
		"partner": map[string]any{"id": bob.ID},
	})
	require.True(t, sess.InDialog())

	rooms.reset()
	client.reset()
	return alice, bob, client, sess
}

func TestDialogJoinRepliesAndEntersChatRoom(t *testing.T) {
	r, _, db := newTestRouter(t)

	alice := addUser(t, db, "alice")
	bob := addUser(t, db, "bob")
	_, err := r.dialogs.Create(service.CreateDialogParams{UserID: alice.ID, PartnerID: bob.ID})
	require.NoError(t, err)

	client, sess := connectUser(t, r, alice)
	assert.True(t, client.rooms[service.UserRoom(alice.ID)])
	client.reset()

	client.fire(t, ClientDialogJoin, map[string]any{
		"partner": map[string]any{"id": bob.ID},
	})

	require.True(t, sess.InDialog())
	assert.Equal(t, []string{ServerDialogJoinResponse}, client.events())
	assert.True(t, client.rooms[service.ChatRoom(sess.Dialog.ChatId)])
}

func TestMessageAddFansOutToChatAndLists(t *testing.T) {
	r, rooms, db := newTestRouter(t)
	alice, bob, client, sess := joinedPair(t, r, rooms, db)

	client.fire(t, ClientMessageAdd, map[string]any{
		"message": map[string]any{"type": model.MessageTypeText, "text": "hi"},
	})

	chat := service.ChatRoom(sess.Dialog.ChatId)
	assert.ElementsMatch(t, []roomEvent{
		{chat, ServerMessageAdd},
		{chat, service.EventDialogNeedToUpdate},
		{service.UserRoom(alice.ID), service.EventDialogsNeedToUpdate},
		{service.UserRoom(bob.ID), service.EventDialogsNeedToUpdate},
	}, rooms.emits)
	assert.Empty(t, client.events())
}

func TestMessageReadRepliesAndNotifiesChat(t *testing.T) {
	r, rooms, db := newTestRouter(t)
	_, bob, client, sess := joinedPair(t, r, rooms, db)

	text := "hello"
	message, err := r.messages.Send(service.SendParams{
		UserID:  bob.ID,
		ChatID:  sess.Dialog.ChatId,
		Message: service.MessageInput{Text: &text},
	})
	require.NoError(t, err)
	rooms.reset()

	client.fire(t, ClientMessageRead, map[string]any{
		"readMessage": map[string]any{"id": message.Id},
	})

	chat := service.ChatRoom(sess.Dialog.ChatId)
	assert.Equal(t, []string{ServerMessageReadResponse}, client.events())
	assert.Equal(t, []roomEvent{
		{chat, ServerMessageRead},
		{chat, service.EventDialogsNeedToUpdate},
	}, rooms.emits)
}

func TestMessageDeleteForEveryoneFansOutToChat(t *testing.T) {
	r, rooms, db := newTestRouter(t)
	alice, bob, client, sess := joinedPair(t, r, rooms, db)

	text := "gone"
	message, err := r.messages.Send(service.SendParams{
		UserID:  alice.ID,
		ChatID:  sess.Dialog.ChatId,
		Message: service.MessageInput{Text: &text},
	})
	require.NoError(t, err)
	rooms.reset()

	client.fire(t, ClientMessageDelete, map[string]any{
		"messageId":         message.Id,
		"deleteForEveryone": true,
	})

	chat := service.ChatRoom(sess.Dialog.ChatId)
	assert.ElementsMatch(t, []roomEvent{
		{chat, service.EventDialogNeedToUpdate},
		{chat, ServerMessageDelete},
		{service.UserRoom(alice.ID), service.EventDialogsNeedToUpdate},
		{service.UserRoom(bob.ID), service.EventDialogsNeedToUpdate},
	}, rooms.emits)
	assert.Empty(t, client.events())
}

func TestMessageDeleteForMeStaysOnCaller(t *testing.T) {
	r, rooms, db := newTestRouter(t)
	alice, _, client, sess := joinedPair(t, r, rooms, db)

	text := "just for me"
	message, err := r.messages.Send(service.SendParams{
		UserID:  alice.ID,
		ChatID:  sess.Dialog.ChatId,
		Message: service.MessageInput{Text: &text},
	})
	require.NoError(t, err)
	rooms.reset()

	client.fire(t, ClientMessageDelete, map[string]any{
		"messageId": message.Id,
	})

	assert.Empty(t, rooms.emits)
	assert.Equal(t, []string{
		service.EventDialogNeedToUpdate,
		service.EventDialogsNeedToUpdate,
		ServerMessageDelete,
	}, client.events())
}

func TestMessagesGetRepliesToOwnRoom(t *testing.T) {
	r, rooms, db := newTestRouter(t)
	alice, _, client, _ := joinedPair(t, r, rooms, db)

	client.fire(t, ClientMessagesGet, map[string]any{})
	assert.Equal(t, []roomEvent{
		{service.UserRoom(alice.ID), ServerMessagesPatch},
	}, rooms.emits)

	rooms.reset()
	client.fire(t, ClientMessagesGet, map[string]any{"method": "PUT"})
	assert.Equal(t, []roomEvent{
		{service.UserRoom(alice.ID), ServerMessagesPut},
	}, rooms.emits)
	assert.Empty(t, client.events())
}

func TestDialogUpdateStatusNotifiesChat(t *testing.T) {
	r, rooms, db := newTestRouter(t)
	_, _, client, sess := joinedPair(t, r, rooms, db)

	client.fire(t, ClientDialogUpdateStatus, map[string]any{"status": "TYPING"})

	assert.Equal(t, []roomEvent{
		{service.ChatRoom(sess.Dialog.ChatId), service.EventDialogNeedToUpdate},
	}, rooms.emits)
}

func TestDialogPinTouchesOwnListOnly(t *testing.T) {
	r, rooms, db := newTestRouter(t)
	alice, _, client, sess := joinedPair(t, r, rooms, db)

	client.fire(t, ClientDialogPin, map[string]any{"dialogId": sess.Dialog.Id})
	assert.Equal(t, []roomEvent{
		{service.UserRoom(alice.ID), service.EventDialogsNeedToUpdate},
	}, rooms.emits)

	rooms.reset()
	client.fire(t, ClientDialogUnpin, map[string]any{"dialogId": sess.Dialog.Id})
	assert.Equal(t, []roomEvent{
		{service.UserRoom(alice.ID), service.EventDialogsNeedToUpdate},
	}, rooms.emits)
}

func TestDialogDeleteForEveryoneNotifiesEveryone(t *testing.T) {
	r, rooms, db := newTestRouter(t)
	alice, bob, client, sess := joinedPair(t, r, rooms, db)

	chatID := sess.Dialog.ChatId
	client.fire(t, ClientDialogDelete, map[string]any{
		"dialogId":          sess.Dialog.Id,
		"deleteForEveryone": true,
	})

	// The caller drops out of the deleted chat's room.
	assert.False(t, sess.InDialog())
	assert.False(t, client.rooms[service.ChatRoom(chatID)])

	assert.ElementsMatch(t, []roomEvent{
		{service.ChatRoom(chatID), service.EventDialogNeedToUpdate},
		{service.UserRoom(alice.ID), service.EventDialogsNeedToUpdate},
		{service.UserRoom(bob.ID), service.EventDialogsNeedToUpdate},
	}, rooms.emits)
}

func TestDialogDeleteForMeNotifiesCallerOnly(t *testing.T) {
	r, rooms, db := newTestRouter(t)
	alice, _, client, sess := joinedPair(t, r, rooms, db)

	chatID := sess.Dialog.ChatId
	client.fire(t, ClientDialogDelete, map[string]any{
		"dialogId": sess.Dialog.Id,
	})

	assert.False(t, sess.InDialog())
	assert.False(t, client.rooms[service.ChatRoom(chatID)])
	assert.Equal(t, []roomEvent{
		{service.UserRoom(alice.ID), service.EventDialogsNeedToUpdate},
	}, rooms.emits)
}

func TestDialogBlockNotifiesBothSides(t *testing.T) {
	r, rooms, db := newTestRouter(t)
	alice, bob, client, sess := joinedPair(t, r, rooms, db)

	client.fire(t, ClientDialogBlock, map[string]any{"partnerId": bob.ID})
	assert.Equal(t, []roomEvent{
		{service.ChatRoom(sess.Dialog.ChatId), service.EventDialogNeedToUpdate},
		{service.UserRoom(alice.ID), service.EventDialogsNeedToUpdate},
		{service.UserRoom(bob.ID), service.EventDialogsNeedToUpdate},
	}, rooms.emits)

	rooms.reset()
	client.fire(t, ClientDialogUnblock, map[string]any{"partnerId": bob.ID})
	assert.Equal(t, []roomEvent{
		{service.ChatRoom(sess.Dialog.ChatId), service.EventDialogNeedToUpdate},
		{service.UserRoom(alice.ID), service.EventDialogsNeedToUpdate},
		{service.UserRoom(bob.ID), service.EventDialogsNeedToUpdate},
	}, rooms.emits)
}

func TestHandlerErrorStaysOnOffendingConnection(t *testing.T) {
	r, rooms, db := newTestRouter(t)

	alice := addUser(t, db, "alice")
	client, _ := connectUser(t, r, alice)
	rooms.reset()
	client.reset()

	// No active dialog: the failure goes back as SERVER:ERROR, nothing
	// reaches any room.
	client.fire(t, ClientMessageAdd, map[string]any{
		"message": map[string]any{"type": model.MessageTypeText, "text": "hi"},
	})

	require.Equal(t, []string{ServerError}, client.events())
	require.Len(t, client.emits[0].data, 1)
	failure, ok := client.emits[0].data[0].(errorResponse)
	require.True(t, ok)
	assert.Equal(t, ClientMessageAdd, failure.Event)
	assert.Equal(t, "No active dialog", failure.Reason)
	assert.Empty(t, rooms.emits)
}
