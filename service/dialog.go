package service

import (
	"errors"
	"sort"
	"strings"

	"dm-service/dto"
	"dm-service/exception"
	"dm-service/model"

	"gorm.io/gorm"
)

const selfChatTitle = "Saved Messages"

// DialogService resolves and mutates the paired per-user dialog rows that
// represent one chat from each participant's point of view.
type DialogService struct {
	db       *gorm.DB
	messages *MessageService
}

func NewDialogService(db *gorm.DB, messages *MessageService) *DialogService {
	return &DialogService{db: db, messages: messages}
}

// DialogQuery selects a dialog by id, partner id or partner username. UserID
// is mandatory: a dialog is only ever resolved for its owner.
type DialogQuery struct {
	UserID          uint
	DialogID        uint
	PartnerID       uint
	PartnerUsername string
}

type CreateDialogParams struct {
	UserID          uint
	PartnerID       uint
	PartnerUsername string
}

type SearchDialogsParams struct {
	UserID uint
	Query  string
	Limit  int
	Page   int
}

type JoinDialogParams struct {
	UserID          uint
	PartnerID       uint
	PartnerUsername string
	MessagesLimit   int
}

// Get resolves the caller's own dialog row and computes its denormalized view.
func (s *DialogService) Get(q DialogQuery) (*dto.Dialog, error) {
	if q.UserID == 0 {
		return nil, exception.BadRequest("User id is required")
	}

	query := s.db.Preload("User").Preload("Partner").
		Where("dialogs.user_id = ?", q.UserID)

	switch {
	case q.DialogID != 0:
		query = query.Where("dialogs.id = ?", q.DialogID)
	case q.PartnerUsername != "":
		query = query.Joins(
			"JOIN users partners ON partners.id = dialogs.partner_id AND partners.username = ?",
			q.PartnerUsername,
		)
	case q.PartnerID != 0:
		query = query.Where("dialogs.partner_id = ?", q.PartnerID)
	default:
		return nil, exception.BadRequest("Dialog selector is required")
	}

	var dialog model.Dialog
	err := query.First(&dialog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.NotFound("Dialog isn't exist")
	}
	if err != nil {
		return nil, err
	}

	return s.toDTO(dialog)
}

// GetAll returns the user's dialogs partitioned into pinned and unpinned
// lists. Dialogs without a single message are hidden except the self chat.
func (s *DialogService) GetAll(userID uint) (*dto.DialogLists, error) {
	var rows []model.Dialog
	err := s.db.Preload("User").Preload("Partner").
		Where("user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	lists := &dto.DialogLists{
		Pinned:   []dto.Dialog{},
		Unpinned: []dto.Dialog{},
	}

	for _, row := range rows {
		view, err := s.toDTO(row)
		if err != nil {
			return nil, err
		}

		selfChat := row.UserID == row.PartnerID
		if view.LastMessage == nil && !selfChat {
			continue
		}

		if view.IsPinned {
			lists.Pinned = append(lists.Pinned, *view)
		} else {
			lists.Unpinned = append(lists.Unpinned, *view)
		}
	}

	sort.SliceStable(lists.Pinned, func(i, j int) bool {
		return pinnedOrderOf(lists.Pinned[i]) < pinnedOrderOf(lists.Pinned[j])
	})
	sort.SliceStable(lists.Unpinned, func(i, j int) bool {
		left, right := lists.Unpinned[i].LastMessage, lists.Unpinned[j].LastMessage
		switch {
		case left == nil:
			return false
		case right == nil:
			return true
		default:
			return left.CreatedAt.After(right.CreatedAt)
		}
	})

	return lists, nil
}

// Create resolves the partner and creates the chat with its dialog pair, or
// only the missing side when the chat already exists. Atomic either way.
func (s *DialogService) Create(p CreateDialogParams) (*dto.Dialog, error) {
	var user model.User
	if err := s.db.First(&user, p.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, exception.NotFound("User isn't exist")
		}
		return nil, err
	}

	partner, err := s.findPartner(p.PartnerID, p.PartnerUsername)
	if err != nil {
		return nil, err
	}

	var existing model.Dialog
	err = s.db.Where("user_id = ? AND partner_id = ?", user.ID, partner.ID).First(&existing).Error
	if err == nil {
		return nil, exception.Conflict("Dialog already exist")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if user.ID == partner.ID {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			chat := model.Chat{Users: []model.User{user}}
			if err := tx.Create(&chat).Error; err != nil {
				return err
			}
			return tx.Create(&model.Dialog{
				UserID:    user.ID,
				PartnerID: user.ID,
				ChatID:    chat.ID,
				Title:     selfChatTitle,
			}).Error
		})
		if err != nil {
			return nil, err
		}
		return s.Get(DialogQuery{UserID: user.ID, PartnerID: partner.ID})
	}

	chatID, err := s.chatBetween(user.ID, partner.ID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if chatID == 0 {
			chat := model.Chat{Users: []model.User{user, *partner}}
			if err := tx.Create(&chat).Error; err != nil {
				return err
			}
			chatID = chat.ID

			if err := tx.Create(&model.Dialog{
				UserID:    user.ID,
				PartnerID: partner.ID,
				ChatID:    chat.ID,
				Title:     displayName(*partner),
			}).Error; err != nil {
				return err
			}
			return tx.Create(&model.Dialog{
				UserID:    partner.ID,
				PartnerID: user.ID,
				ChatID:    chat.ID,
				Title:     displayName(user),
			}).Error
		}

		// The chat exists but this direction's row is missing.
		return tx.Create(&model.Dialog{
			UserID:    user.ID,
			PartnerID: partner.ID,
			ChatID:    chatID,
			Title:     displayName(*partner),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return s.Get(DialogQuery{UserID: user.ID, PartnerID: partner.ID})
}

// Search matches the user's dialogs by title or partner username/email,
// case-insensitive, paginated 1-indexed.
func (s *DialogService) Search(p SearchDialogsParams) ([]dto.Dialog, error) {
	if p.Query == "" {
		return []dto.Dialog{}, nil
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}

	pattern := "%" + strings.ToLower(p.Query) + "%"

	var rows []model.Dialog
	err := s.db.Preload("User").Preload("Partner").
		Joins("JOIN users partners ON partners.id = dialogs.partner_id").
		Where("dialogs.user_id = ?", p.UserID).
		Where(
			"LOWER(dialogs.title) LIKE ? OR LOWER(partners.username) LIKE ? OR LOWER(partners.email) LIKE ?",
			pattern, pattern, pattern,
		).
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]dto.Dialog, 0, len(rows))
	for _, row := range rows {
		view, err := s.toDTO(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *view)
	}
	return out, nil
}

// Join is the "enter a conversation" operation: resolve or create the dialog,
// then load a message window positioned on the first unread message when one
// exists, or on the tail of the history otherwise.
func (s *DialogService) Join(p JoinDialogParams) (*dto.Dialog, []dto.Message, error) {
	limit := p.MessagesLimit
	if limit <= 0 {
		limit = DefaultMessagesLimit
	}

	dialog, err := s.Get(DialogQuery{
		UserID:          p.UserID,
		PartnerID:       p.PartnerID,
		PartnerUsername: p.PartnerUsername,
	})

	var apiErr *exception.ApiError
	if errors.As(err, &apiErr) && apiErr.Status == 404 {
		dialog, err = s.Create(CreateDialogParams{
			UserID:          p.UserID,
			PartnerID:       p.PartnerID,
			PartnerUsername: p.PartnerUsername,
		})
	}
	if err != nil {
		return nil, nil, err
	}

	firstUnread, err := s.messages.FindFirstUnread(p.UserID, dialog.Id)
	if err != nil {
		return nil, nil, err
	}

	var messages []dto.Message
	if firstUnread != nil {
		messages, _, err = s.messages.GetByMessage(dialog.Id, firstUnread.ID, limit)
	} else {
		messages, err = s.messages.Get(dialog.Id, MessageFilter{Take: -limit})
	}
	if err != nil {
		return nil, nil, err
	}

	return dialog, messages, nil
}

// Pin inserts the dialog at the front of the user's pinned list. The bulk
// shift and the row update run in one transaction so the order sequence stays
// contiguous.
func (s *DialogService) Pin(userID, dialogID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var dialog model.Dialog
		err := tx.Where("id = ? AND user_id = ?", dialogID, userID).First(&dialog).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return exception.NotFound("Dialog isn't exist")
		}
		if err != nil {
			return err
		}
		if dialog.IsPinned {
			return exception.BadRequest("Dialog is already pinned")
		}

		err = tx.Model(&model.Dialog{}).
			Where("user_id = ? AND is_pinned = ?", userID, true).
			Update("pinned_order", gorm.Expr("pinned_order + 1")).Error
		if err != nil {
			return err
		}

		return tx.Model(&dialog).Updates(map[string]interface{}{
			"is_pinned":    true,
			"pinned_order": 1,
		}).Error
	})
}

// Unpin removes the dialog from the pinned list and closes the gap it leaves.
func (s *DialogService) Unpin(userID, dialogID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var dialog model.Dialog
		err := tx.Where("id = ? AND user_id = ?", dialogID, userID).First(&dialog).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return exception.NotFound("Dialog isn't exist")
		}
		if err != nil {
			return err
		}
		if !dialog.IsPinned || dialog.PinnedOrder == nil {
			return exception.BadRequest("Dialog isn't pinned")
		}

		err = tx.Model(&model.Dialog{}).
			Where("user_id = ? AND is_pinned = ? AND pinned_order > ?", userID, true, *dialog.PinnedOrder).
			Update("pinned_order", gorm.Expr("pinned_order - 1")).Error
		if err != nil {
			return err
		}

		return tx.Model(&dialog).Updates(map[string]interface{}{
			"is_pinned":    false,
			"pinned_order": nil,
		}).Error
	})
}

// PinMessage sets or clears the dialog's pinned message reference.
func (s *DialogService) PinMessage(userID, dialogID uint, messageID *uint) error {
	var dialog model.Dialog
	err := s.db.Where("id = ? AND user_id = ?", dialogID, userID).First(&dialog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return exception.NotFound("Dialog isn't exist")
	}
	if err != nil {
		return err
	}

	if messageID != nil {
		if _, err := s.messages.anchor(dialogID, *messageID); err != nil {
			return err
		}
	}

	return s.db.Model(&dialog).Update("pinned_message_id", messageID).Error
}

// UpdatePartnerDialogStatus writes a status onto the counterpart's dialog row,
// where it is visible to the viewer it matters to.
func (s *DialogService) UpdatePartnerDialogStatus(userID, partnerID uint, status *string) (*dto.Dialog, error) {
	var dialog model.Dialog
	err := s.db.Where("user_id = ? AND partner_id = ?", partnerID, userID).First(&dialog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.NotFound("Dialog isn't exist")
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&dialog).Update("status", status).Error; err != nil {
		return nil, err
	}

	return s.Get(DialogQuery{UserID: partnerID, DialogID: dialog.ID})
}

// RenameForPartners retitles every counterpart dialog that points at the user,
// used when the user's display name changes.
func (s *DialogService) RenameForPartners(userID uint, title string) error {
	return s.db.Model(&model.Dialog{}).
		Where("partner_id = ? AND user_id <> ?", userID, userID).
		Update("title", title).Error
}

// Delete removes the caller's own dialog row, or the whole chat with both
// rows and the shared message pool when deleteForEveryone is set. Returns the
// chat id and the owner ids of the affected dialog rows for fan-out.
func (s *DialogService) Delete(userID, dialogID uint, deleteForEveryone bool) (uint, []uint, error) {
	var dialog model.Dialog
	err := s.db.Where("id = ? AND user_id = ?", dialogID, userID).First(&dialog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil, exception.NotFound("Dialog isn't exist")
	}
	if err != nil {
		return 0, nil, err
	}

	var siblings []model.Dialog
	if err := s.db.Where("chat_id = ?", dialog.ChatID).Find(&siblings).Error; err != nil {
		return 0, nil, err
	}

	memberIDs := make([]uint, 0, len(siblings))
	for _, sibling := range siblings {
		memberIDs = append(memberIDs, sibling.UserID)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Hard deletes throughout: a soft-deleted row would keep holding
		// the unique (user_id, partner_id) slot.
		if !deleteForEveryone {
			if err := tx.Exec("DELETE FROM dialog_messages WHERE dialog_id = ?", dialog.ID).Error; err != nil {
				return err
			}
			return tx.Unscoped().Delete(&model.Dialog{}, dialog.ID).Error
		}

		for _, sibling := range siblings {
			if err := tx.Exec("DELETE FROM dialog_messages WHERE dialog_id = ?", sibling.ID).Error; err != nil {
				return err
			}
		}
		if err := tx.Unscoped().Where("chat_id = ?", dialog.ChatID).Delete(&model.Dialog{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("chat_id = ?", dialog.ChatID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM chat_users WHERE chat_id = ?", dialog.ChatID).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM chat_blocked_users WHERE chat_id = ?", dialog.ChatID).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.Chat{}, dialog.ChatID).Error
	})
	if err != nil {
		return 0, nil, err
	}

	return dialog.ChatID, memberIDs, nil
}

// Block adds the partner to the chat's blocked set. Returns the chat id.
func (s *DialogService) Block(userID, partnerID uint) (uint, error) {
	return s.setBlocked(userID, partnerID, true)
}

// Unblock removes the partner from the chat's blocked set.
func (s *DialogService) Unblock(userID, partnerID uint) (uint, error) {
	return s.setBlocked(userID, partnerID, false)
}

func (s *DialogService) setBlocked(userID, partnerID uint, blocked bool) (uint, error) {
	var dialog model.Dialog
	err := s.db.Where("user_id = ? AND partner_id = ?", userID, partnerID).First(&dialog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, exception.NotFound("Dialog isn't exist")
	}
	if err != nil {
		return 0, err
	}

	var chat model.Chat
	if err := s.db.First(&chat, dialog.ChatID).Error; err != nil {
		return 0, err
	}
	var partner model.User
	if err := s.db.First(&partner, partnerID).Error; err != nil {
		return 0, err
	}

	assoc := s.db.Model(&chat).Association("Blocked")
	if blocked {
		err = assoc.Append(&partner)
	} else {
		err = assoc.Delete(&partner)
	}
	if err != nil {
		return 0, err
	}

	return chat.ID, nil
}

// DialogsInChat lists every dialog row of a chat.
func (s *DialogService) DialogsInChat(chatID uint) ([]model.Dialog, error) {
	var rows []model.Dialog
	err := s.db.Where("chat_id = ?", chatID).Find(&rows).Error
	return rows, err
}

// MemberDialogs lists every dialog row of every chat the user participates
// in, both sides included. Used to address presence fan-out.
func (s *DialogService) MemberDialogs(userID uint) ([]model.Dialog, error) {
	var rows []model.Dialog
	err := s.db.
		Joins("JOIN chat_users cu ON cu.chat_id = dialogs.chat_id AND cu.user_id = ?", userID).
		Find(&rows).Error
	return rows, err
}

func (s *DialogService) toDTO(dialog model.Dialog) (*dto.Dialog, error) {
	last, err := s.messages.LastMessage(dialog.ID)
	if err != nil {
		return nil, err
	}

	unreaded, err := s.messages.UnreadedCount(dialog)
	if err != nil {
		return nil, err
	}

	var pinned *dto.Message
	if dialog.PinnedMessageID != nil {
		pinned, err = s.messages.Resolve(*dialog.PinnedMessageID)
		var apiErr *exception.ApiError
		if err != nil && !errors.As(err, &apiErr) {
			return nil, err
		}
	}

	var chat model.Chat
	if err := s.db.Preload("Blocked").First(&chat, dialog.ChatID).Error; err != nil {
		return nil, err
	}

	out := dto.NewDialog(dialog, last, pinned, unreaded, chat.Blocked)
	return &out, nil
}

func (s *DialogService) findPartner(partnerID uint, partnerUsername string) (*model.User, error) {
	var partner model.User

	query := s.db
	switch {
	case partnerID != 0:
		query = query.Where("id = ?", partnerID)
	case partnerUsername != "":
		query = query.Where("username = ?", partnerUsername)
	default:
		return nil, exception.BadRequest("Partner selector is required")
	}

	err := query.First(&partner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.NotFound("User isn't exist")
	}
	if err != nil {
		return nil, err
	}

	return &partner, nil
}

func (s *DialogService) chatBetween(userID, partnerID uint) (uint, error) {
	var chatID uint
	err := s.db.Raw(
		`SELECT cu.chat_id FROM chat_users cu
		 JOIN chat_users cp ON cp.chat_id = cu.chat_id AND cp.user_id = ?
		 WHERE cu.user_id = ? LIMIT 1`,
		partnerID, userID,
	).Scan(&chatID).Error
	return chatID, err
}

func pinnedOrderOf(d dto.Dialog) int {
	if d.PinnedOrder == nil {
		return int(^uint(0) >> 1)
	}
	return *d.PinnedOrder
}

func displayName(u model.User) string {
	name := strings.TrimSpace(strings.TrimSpace(u.Name) + " " + strings.TrimSpace(u.Lastname))
	if name == "" {
		return u.Username
	}
	return name
}
