package service

import (
	"testing"
	"time"

	"dm-service/exception"
	"dm-service/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDialogPair(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	alice, bob, aliceDialog := createPair(t, db, dialogs)

	assert.Equal(t, alice.ID, aliceDialog.UserId)
	assert.Equal(t, bob.ID, aliceDialog.PartnerId)
	assert.Equal(t, "bob", aliceDialog.Title)

	// The counterpart row exists, shares the chat and swaps the direction.
	bobDialog, err := dialogs.Get(DialogQuery{UserID: bob.ID, PartnerID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, aliceDialog.ChatId, bobDialog.ChatId)
	assert.Equal(t, bob.ID, bobDialog.UserId)
	assert.Equal(t, alice.ID, bobDialog.PartnerId)
	assert.Equal(t, "alice", bobDialog.Title)
	assert.NotEqual(t, aliceDialog.Id, bobDialog.Id)
}

func TestCreateDialogTitleUsesDisplayName(t *testing.T) {
	db, _, dialogs := newTestServices(t)

	alice := createUser(t, db, "alice")
	bob := model.User{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "secret",
		Name:     "Bob",
		Lastname: "Miller",
	}
	require.NoError(t, db.Create(&bob).Error)

	dialog, err := dialogs.Create(CreateDialogParams{UserID: alice.ID, PartnerUsername: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "Bob Miller", dialog.Title)
}

func TestCreateDialogDuplicate(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	alice, bob, _ := createPair(t, db, dialogs)

	_, err := dialogs.Create(CreateDialogParams{UserID: alice.ID, PartnerID: bob.ID})
	require.Error(t, err)

	apiErr, ok := err.(*exception.ApiError)
	require.True(t, ok)
	assert.Equal(t, 409, apiErr.Status)
}

func TestCreateDialogMissingSideOnly(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	alice, bob, aliceDialog := createPair(t, db, dialogs)

	// Bob soft-deletes his side, then recreates it. The chat must survive.
	bobDialog, err := dialogs.Get(DialogQuery{UserID: bob.ID, PartnerID: alice.ID})
	require.NoError(t, err)

	_, _, err = dialogs.Delete(bob.ID, bobDialog.Id, false)
	require.NoError(t, err)

	recreated, err := dialogs.Create(CreateDialogParams{UserID: bob.ID, PartnerID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, aliceDialog.ChatId, recreated.ChatId)
}

func TestCreateDialogUnknownPartner(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	alice := createUser(t, db, "alice")

	_, err := dialogs.Create(CreateDialogParams{UserID: alice.ID, PartnerUsername: "nobody"})
	require.Error(t, err)

	apiErr, ok := err.(*exception.ApiError)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.Status)
}

func TestCreateSelfChat(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	alice := createUser(t, db, "alice")

	dialog, err := dialogs.Create(CreateDialogParams{UserID: alice.ID, PartnerID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, "Saved Messages", dialog.Title)
	assert.Equal(t, alice.ID, dialog.PartnerId)

	// Exactly one dialog row, no counterpart.
	var count int64
	require.NoError(t, db.Model(&model.Dialog{}).Where("chat_id = ?", dialog.ChatId).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetAllPartitionsAndHidesEmpty(t *testing.T) {
	db, messages, dialogs := newTestServices(t)
	alice, bob, aliceDialog := createPair(t, db, dialogs)

	carol := createUser(t, db, "carol")
	_, err := dialogs.Create(CreateDialogParams{UserID: alice.ID, PartnerID: carol.ID})
	require.NoError(t, err)

	self, err := dialogs.Create(CreateDialogParams{UserID: alice.ID, PartnerID: alice.ID})
	require.NoError(t, err)

	sendText(t, messages, bob.ID, aliceDialog.ChatId, "hi", time.Now())

	lists, err := dialogs.GetAll(alice.ID)
	require.NoError(t, err)

	// Empty carol dialog hidden, empty self chat kept.
	assert.Empty(t, lists.Pinned)
	require.Len(t, lists.Unpinned, 2)

	ids := []uint{lists.Unpinned[0].Id, lists.Unpinned[1].Id}
	assert.Contains(t, ids, aliceDialog.Id)
	assert.Contains(t, ids, self.Id)
}

func TestGetAllOrdersUnpinnedByLastMessage(t *testing.T) {
	db, messages, dialogs := newTestServices(t)
	alice, bob, aliceDialog := createPair(t, db, dialogs)

	carol := createUser(t, db, "carol")
	carolDialog, err := dialogs.Create(CreateDialogParams{UserID: alice.ID, PartnerID: carol.ID})
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sendText(t, messages, bob.ID, aliceDialog.ChatId, "older", base)
	sendText(t, messages, carol.ID, carolDialog.ChatId, "newer", base.Add(time.Hour))

	lists, err := dialogs.GetAll(alice.ID)
	require.NoError(t, err)
	require.Len(t, lists.Unpinned, 2)
	assert.Equal(t, carolDialog.Id, lists.Unpinned[0].Id)
	assert.Equal(t, aliceDialog.Id, lists.Unpinned[1].Id)
}

func TestPinUnpinKeepsOrderContiguous(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	alice := createUser(t, db, "alice")

	partners := []string{"bob", "carol", "dave"}
	dialogIDs := make([]uint, 0, len(partners))
	for _, name := range partners {
		partner := createUser(t, db, name)
		dialog, err := dialogs.Create(CreateDialogParams{UserID: alice.ID, PartnerID: partner.ID})
		require.NoError(t, err)
		dialogIDs = append(dialogIDs, dialog.Id)
	}

	// Pin D1, D2, D3 in order: each new pin lands at the front.
	for _, id := range dialogIDs {
		require.NoError(t, dialogs.Pin(alice.ID, id))
	}

	orderOf := func(dialogID uint) int {
		var dialog model.Dialog
		require.NoError(t, db.First(&dialog, dialogID).Error)
		require.NotNil(t, dialog.PinnedOrder)
		return *dialog.PinnedOrder
	}

	assert.Equal(t, 3, orderOf(dialogIDs[0]))
	assert.Equal(t, 2, orderOf(dialogIDs[1]))
	assert.Equal(t, 1, orderOf(dialogIDs[2]))

	// Unpin the middle one: the gap closes.
	require.NoError(t, dialogs.Unpin(alice.ID, dialogIDs[1]))
	assert.Equal(t, 2, orderOf(dialogIDs[0]))
	assert.Equal(t, 1, orderOf(dialogIDs[2]))

	var unpinned model.Dialog
	require.NoError(t, db.First(&unpinned, dialogIDs[1]).Error)
	assert.False(t, unpinned.IsPinned)
	assert.Nil(t, unpinned.PinnedOrder)
}

func TestPinTwiceFails(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	alice, _, aliceDialog := createPair(t, db, dialogs)

	require.NoError(t, dialogs.Pin(alice.ID, aliceDialog.Id))

	err := dialogs.Pin(alice.ID, aliceDialog.Id)
	require.Error(t, err)
	assert.Equal(t, "Dialog is already pinned", err.Error())

	err = dialogs.Unpin(alice.ID, aliceDialog.Id)
	require.NoError(t, err)

	err = dialogs.Unpin(alice.ID, aliceDialog.Id)
	require.Error(t, err)
	assert.Equal(t, "Dialog isn't pinned", err.Error())
}

func TestPinForeignDialogFails(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	_, bob, aliceDialog := createPair(t, db, dialogs)

	err := dialogs.Pin(bob.ID, aliceDialog.Id)
	require.Error(t, err)

	apiErr, ok := err.(*exception.ApiError)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.Status)
}

func TestPinMessage(t *testing.T) {
	db, messages, dialogs := newTestServices(t)
	alice, bob, aliceDialog := createPair(t, db, dialogs)

	messageID := sendText(t, messages, bob.ID, aliceDialog.ChatId, "pin me", time.Now())

	require.NoError(t, dialogs.PinMessage(alice.ID, aliceDialog.Id, &messageID))

	view, err := dialogs.Get(DialogQuery{UserID: alice.ID, DialogID: aliceDialog.Id})
	require.NoError(t, err)
	require.NotNil(t, view.PinnedMessage)
	assert.Equal(t, messageID, view.PinnedMessage.Id)

	require.NoError(t, dialogs.PinMessage(alice.ID, aliceDialog.Id, nil))

	view, err = dialogs.Get(DialogQuery{UserID: alice.ID, DialogID: aliceDialog.Id})
	require.NoError(t, err)
	assert.Nil(t, view.PinnedMessage)
}

func TestUpdatePartnerDialogStatus(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	alice, bob, _ := createPair(t, db, dialogs)

	typing := "TYPING"
	view, err := dialogs.UpdatePartnerDialogStatus(alice.ID, bob.ID, &typing)
	require.NoError(t, err)

	// The status lands on bob's row, where bob sees it.
	assert.Equal(t, bob.ID, view.UserId)
	require.NotNil(t, view.Status)
	assert.Equal(t, "TYPING", *view.Status)

	view, err = dialogs.UpdatePartnerDialogStatus(alice.ID, bob.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, view.Status)
}

func TestSearchDialogs(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	alice, _, aliceDialog := createPair(t, db, dialogs)

	carol := createUser(t, db, "carol")
	_, err := dialogs.Create(CreateDialogParams{UserID: alice.ID, PartnerID: carol.ID})
	require.NoError(t, err)

	found, err := dialogs.Search(SearchDialogsParams{UserID: alice.ID, Query: "BOB"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, aliceDialog.Id, found[0].Id)

	found, err = dialogs.Search(SearchDialogsParams{UserID: alice.ID, Query: ""})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDeleteForMeKeepsPartnerSide(t *testing.T) {
	db, messages, dialogs := newTestServices(t)
	alice, bob, aliceDialog := createPair(t, db, dialogs)

	sendText(t, messages, bob.ID, aliceDialog.ChatId, "hello", time.Now())

	chatID, members, err := dialogs.Delete(alice.ID, aliceDialog.Id, false)
	require.NoError(t, err)
	assert.Equal(t, aliceDialog.ChatId, chatID)
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID}, members)

	_, err = dialogs.Get(DialogQuery{UserID: alice.ID, DialogID: aliceDialog.Id})
	require.Error(t, err)

	// Bob's side and his message history survive.
	bobDialog, err := dialogs.Get(DialogQuery{UserID: bob.ID, PartnerID: alice.ID})
	require.NoError(t, err)
	require.NotNil(t, bobDialog.LastMessage)
}

func TestDeleteForEveryoneRemovesChat(t *testing.T) {
	db, messages, dialogs := newTestServices(t)
	alice, bob, aliceDialog := createPair(t, db, dialogs)

	sendText(t, messages, bob.ID, aliceDialog.ChatId, "hello", time.Now())

	_, _, err := dialogs.Delete(alice.ID, aliceDialog.Id, true)
	require.NoError(t, err)

	_, err = dialogs.Get(DialogQuery{UserID: bob.ID, PartnerID: alice.ID})
	require.Error(t, err)

	var chats, msgs int64
	require.NoError(t, db.Model(&model.Chat{}).Count(&chats).Error)
	require.NoError(t, db.Model(&model.Message{}).Count(&msgs).Error)
	assert.EqualValues(t, 0, chats)
	assert.EqualValues(t, 0, msgs)
}

func TestBlockUnblock(t *testing.T) {
	db, _, dialogs := newTestServices(t)
	alice, bob, aliceDialog := createPair(t, db, dialogs)

	chatID, err := dialogs.Block(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, aliceDialog.ChatId, chatID)

	view, err := dialogs.Get(DialogQuery{UserID: alice.ID, DialogID: aliceDialog.Id})
	require.NoError(t, err)
	assert.True(t, view.PartnerBlocked)
	assert.False(t, view.UserBlocked)

	// From bob's side the same fact shows as "I am blocked".
	bobView, err := dialogs.Get(DialogQuery{UserID: bob.ID, PartnerID: alice.ID})
	require.NoError(t, err)
	assert.True(t, bobView.UserBlocked)

	_, err = dialogs.Unblock(alice.ID, bob.ID)
	require.NoError(t, err)

	view, err = dialogs.Get(DialogQuery{UserID: alice.ID, DialogID: aliceDialog.Id})
	require.NoError(t, err)
	assert.False(t, view.PartnerBlocked)
}

func TestJoinCreatesDialogAndReturnsTail(t *testing.T) {
	db, messages, dialogs := newTestServices(t)

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	dialog, history, err := dialogs.Join(JoinDialogParams{UserID: alice.ID, PartnerUsername: "bob"})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, dialog.PartnerId)
	assert.Empty(t, history)

	// On rejoin the window is the tail of the history, ascending.
	ids := seedHistory(t, messages, alice.ID, bob.ID, dialog.ChatId, 6)
	for _, id := range ids {
		_, err := messages.ReadOne(id)
		require.NoError(t, err)
	}

	_, history, err = dialogs.Join(JoinDialogParams{UserID: alice.ID, PartnerID: bob.ID, MessagesLimit: 4})
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, ids[2], history[0].Id)
	assert.Equal(t, ids[5], history[3].Id)
}

func TestJoinPositionsOnFirstUnread(t *testing.T) {
	db, messages, dialogs := newTestServices(t)
	alice, bob, aliceDialog := createPair(t, db, dialogs)

	ids := seedHistory(t, messages, alice.ID, bob.ID, aliceDialog.ChatId, 8)

	// Alice has read everything up to ids[2]; ids[3] is bob's first unread.
	require.NoError(t, messages.Read(aliceDialog.ChatId, alice.ID, ids[2]))

	_, history, err := dialogs.Join(JoinDialogParams{UserID: alice.ID, PartnerID: bob.ID, MessagesLimit: 4})
	require.NoError(t, err)
	require.NotEmpty(t, history)

	found := false
	for _, message := range history {
		if message.Id == ids[3] {
			found = true
		}
	}
	assert.True(t, found, "window must include the first unread message")
}
