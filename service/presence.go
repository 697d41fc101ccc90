package service

import (
	"fmt"
	"log"

	"dm-service/dto"
	"dm-service/model"

	"gorm.io/gorm"
)

const (
	EventDialogsNeedToUpdate = "SERVER:DIALOGS_NEED_TO_UPDATE"
	EventDialogNeedToUpdate  = "SERVER:DIALOG_NEED_TO_UPDATE"
)

// RoomEmitter multicasts an event to a room. Implemented by the socketio
// server wrapper; faked in tests.
type RoomEmitter interface {
	EmitTo(room string, event string, data ...any)
}

// RoomMember is one connection's room membership.
type RoomMember interface {
	JoinRoom(room string)
	LeaveRoom(room string)
}

func UserRoom(userID uint) string {
	return fmt.Sprintf("user-%d", userID)
}

func ChatRoom(chatID uint) string {
	return fmt.Sprintf("chat-%d", chatID)
}

// PresenceService owns the connection lifecycle: the user's online status, the
// user and chat room memberships, and the counterpart refresh notifications.
type PresenceService struct {
	db      *gorm.DB
	dialogs *DialogService
	io      RoomEmitter
}

func NewPresenceService(db *gorm.DB, dialogs *DialogService, io RoomEmitter) *PresenceService {
	return &PresenceService{db: db, dialogs: dialogs, io: io}
}

// Connected transitions a fresh connection into the Authenticated state: join
// the user's mailbox room, flip presence, tell every counterpart to refresh.
func (s *PresenceService) Connected(member RoomMember, userID uint) {
	member.JoinRoom(UserRoom(userID))
	s.setStatus(userID, model.StatusOnline)
	s.NotifyCounterparts(userID)
}

// Disconnected runs presence teardown. In-flight handler writes have already
// completed by the time socket.io dispatches the disconnect event.
func (s *PresenceService) Disconnected(userID uint) {
	s.setStatus(userID, model.StatusOffline)
	s.NotifyCounterparts(userID)
}

// JoinDialog moves the connection between chat rooms: exactly one active chat
// room per connection, so the previous one is left first.
func (s *PresenceService) JoinDialog(member RoomMember, sess *Session, dialog *dto.Dialog) {
	if sess.Dialog != nil {
		member.LeaveRoom(ChatRoom(sess.Dialog.ChatId))
	}
	member.JoinRoom(ChatRoom(dialog.ChatId))
	sess.Dialog = dialog
}

// LeaveDialog drops the active dialog, returning the session to the plain
// Authenticated state.
func (s *PresenceService) LeaveDialog(member RoomMember, sess *Session) {
	if sess.Dialog == nil {
		return
	}
	member.LeaveRoom(ChatRoom(sess.Dialog.ChatId))
	sess.Dialog = nil
}

// NotifyCounterparts tells every participant of every chat the user is in that
// their dialog list, and any open dialog, may be stale.
func (s *PresenceService) NotifyCounterparts(userID uint) {
	dialogs, err := s.dialogs.MemberDialogs(userID)
	if err != nil {
		log.Printf("presence: notify counterparts of user %d: %v", userID, err)
		return
	}

	users := map[uint]struct{}{}
	chats := map[uint]struct{}{}
	for _, dialog := range dialogs {
		users[dialog.UserID] = struct{}{}
		chats[dialog.ChatID] = struct{}{}
	}

	for id := range users {
		s.io.EmitTo(UserRoom(id), EventDialogsNeedToUpdate)
	}
	for id := range chats {
		s.io.EmitTo(ChatRoom(id), EventDialogNeedToUpdate)
	}
}

// NotifyChat marks the open dialog stale for everyone currently viewing it.
func (s *PresenceService) NotifyChat(chatID uint) {
	s.io.EmitTo(ChatRoom(chatID), EventDialogNeedToUpdate)
}

// NotifyDialogLists marks the dialog list stale for the given users.
func (s *PresenceService) NotifyDialogLists(userIDs []uint) {
	seen := map[uint]struct{}{}
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		s.io.EmitTo(UserRoom(id), EventDialogsNeedToUpdate)
	}
}

func (s *PresenceService) setStatus(userID uint, status string) {
	err := s.db.Model(&model.User{}).Where("id = ?", userID).Update("status", status).Error
	if err != nil {
		log.Printf("presence: set status of user %d: %v", userID, err)
	}
}
