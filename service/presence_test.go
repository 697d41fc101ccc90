package service

import (
	"testing"
	"time"

	"dm-service/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmitter struct {
	emits []emittedEvent
}

type emittedEvent struct {
	room  string
	event string
}

func (f *fakeEmitter) EmitTo(room string, event string, data ...any) {
	f.emits = append(f.emits, emittedEvent{room: room, event: event})
}

func (f *fakeEmitter) received(room, event string) bool {
	for _, e := range f.emits {
		if e.room == room && e.event == event {
			return true
		}
	}
	return false
}

type fakeMember struct {
	rooms map[string]bool
}

func newFakeMember() *fakeMember {
	return &fakeMember{rooms: map[string]bool{}}
}

func (f *fakeMember) JoinRoom(room string)  { f.rooms[room] = true }
func (f *fakeMember) LeaveRoom(room string) { delete(f.rooms, room) }

func TestConnectedJoinsRoomAndGoesOnline(t *testing.T) {
	db, messages, dialogs := newTestServices(t)
	io := &fakeEmitter{}
	presence := NewPresenceService(db, dialogs, io)

	alice, bob, aliceDialog := createPair(t, db, dialogs)
	sendText(t, messages, bob.ID, aliceDialog.ChatId, "hi", time.Now())

	member := newFakeMember()
	presence.Connected(member, alice.ID)

	assert.True(t, member.rooms[UserRoom(alice.ID)])

	var stored model.User
	require.NoError(t, db.First(&stored, alice.ID).Error)
	assert.Equal(t, model.StatusOnline, stored.Status)

	// Both participants are told to refresh their lists and open dialogs.
	assert.True(t, io.received(UserRoom(alice.ID), EventDialogsNeedToUpdate))
	assert.True(t, io.received(UserRoom(bob.ID), EventDialogsNeedToUpdate))
	assert.True(t, io.received(ChatRoom(aliceDialog.ChatId), EventDialogNeedToUpdate))
}

func TestDisconnectedGoesOffline(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	io := &fakeEmitter{}
	presence := NewPresenceService(db, dialogs, io)

	alice := createUser(t, db, "alice")

	member := newFakeMember()
	presence.Connected(member, alice.ID)
	presence.Disconnected(alice.ID)

	var stored model.User
	require.NoError(t, db.First(&stored, alice.ID).Error)
	assert.Equal(t, model.StatusOffline, stored.Status)
}

func TestJoinDialogSwitchesChatRoom(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	io := &fakeEmitter{}
	presence := NewPresenceService(db, dialogs, io)

	alice, _, aliceDialog := createPair(t, db, dialogs)

	carol := createUser(t, db, "carol")
	carolDialog, err := dialogs.Create(CreateDialogParams{UserID: alice.ID, PartnerID: carol.ID})
	require.NoError(t, err)

	member := newFakeMember()
	sess := &Session{User: UserClaims{Id: alice.ID, Email: "alice@example.com", Verified: true}}

	presence.Connected(member, alice.ID)
	assert.False(t, sess.InDialog())

	presence.JoinDialog(member, sess, aliceDialog)
	assert.True(t, sess.InDialog())
	assert.True(t, member.rooms[ChatRoom(aliceDialog.ChatId)])

	// Joining another dialog leaves the previous chat room first.
	presence.JoinDialog(member, sess, carolDialog)
	assert.False(t, member.rooms[ChatRoom(aliceDialog.ChatId)])
	assert.True(t, member.rooms[ChatRoom(carolDialog.ChatId)])
	assert.Equal(t, carolDialog.Id, sess.Dialog.Id)

	presence.LeaveDialog(member, sess)
	assert.False(t, sess.InDialog())
	assert.False(t, member.rooms[ChatRoom(carolDialog.ChatId)])

	// Leaving twice is a no-op.
	presence.LeaveDialog(member, sess)
	assert.False(t, sess.InDialog())
}

func TestNotifyDialogListsDeduplicates(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	io := &fakeEmitter{}
	presence := NewPresenceService(db, dialogs, io)

	presence.NotifyDialogLists([]uint{7, 7, 9})

	require.Len(t, io.emits, 2)
	assert.Equal(t, UserRoom(7), io.emits[0].room)
	assert.Equal(t, UserRoom(9), io.emits[1].room)
}
