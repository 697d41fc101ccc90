package service

import (
	"errors"
	"time"

	"dm-service/dto"
	"dm-service/exception"
	"dm-service/model"

	"gorm.io/gorm"
)

const DefaultMessagesLimit = 40

// MessageService is the message store of a chat: creation, read accounting,
// per-side deletion and keyset pagination over the dialog visibility relation.
type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// MessageInput is the tagged union carried by CLIENT:MESSAGE_ADD: a plain
// text/image message (optionally a reply, optionally backdated) or a forwarded
// reference to an existing message.
type MessageInput struct {
	Type           string
	Text           *string
	Image          *string
	CreatedAt      *time.Time
	ReplyMessageID *uint
	ForwardedID    *uint
}

type SendParams struct {
	UserID  uint
	ChatID  uint
	Message MessageInput
}

// MessageFilter mirrors the CLIENT:MESSAGES_GET filter. A negative Take pages
// backwards from the cursor; the cursor itself is exclusive.
type MessageFilter struct {
	OrderDesc bool
	Take      int
	Cursor    *uint
	Skip      int
}

// visible scopes a query to messages attached to the given dialog.
func (s *MessageService) visible(dialogID uint) *gorm.DB {
	return s.db.Model(&model.Message{}).
		Select("messages.*").
		Joins("JOIN dialog_messages dm ON dm.message_id = messages.id AND dm.dialog_id = ?", dialogID)
}

func withResolved(q *gorm.DB) *gorm.DB {
	return q.Preload("User").Preload("ReplyMessage.User").Preload("Forwarded.User")
}

// Send creates a message in the chat's shared pool and attaches it to every
// dialog of the chat. The whole operation is one transaction.
func (s *MessageService) Send(p SendParams) (*dto.Message, error) {
	var created model.Message

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var dialogs []model.Dialog
		if err := tx.Where("chat_id = ?", p.ChatID).Find(&dialogs).Error; err != nil {
			return err
		}
		if len(dialogs) == 0 {
			return exception.NotFound("Dialog isn't exist")
		}

		message := model.Message{
			UserID: p.UserID,
			ChatID: p.ChatID,
			Type:   model.MessageTypeText,
		}

		switch p.Message.Type {
		case model.MessageTypeForwarded:
			if p.Message.ForwardedID == nil {
				return exception.BadRequest("Forwarded message id is required")
			}
			var source model.Message
			if err := tx.First(&source, *p.Message.ForwardedID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return exception.NotFound("Message isn't exist")
				}
				return err
			}
			message.Type = model.MessageTypeForwarded
			message.ForwardedID = &source.ID

		case model.MessageTypeText, "":
			if p.Message.Text == nil && p.Message.Image == nil {
				return exception.BadRequest("Message is empty")
			}
			message.Text = p.Message.Text
			if p.Message.Image != nil {
				image := model.Image{Data: *p.Message.Image}
				if err := tx.Create(&image).Error; err != nil {
					return err
				}
				message.ImageID = &image.ID
			}
			if p.Message.ReplyMessageID != nil {
				var reply model.Message
				err := tx.Where("chat_id = ?", p.ChatID).First(&reply, *p.Message.ReplyMessageID).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return exception.NotFound("Reply message isn't exist")
				}
				if err != nil {
					return err
				}
				message.ReplyMessageID = &reply.ID
			}

		default:
			return exception.BadRequest("Unknown message type")
		}

		if p.Message.CreatedAt != nil {
			message.CreatedAt = *p.Message.CreatedAt
		}

		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		for _, dialog := range dialogs {
			err := tx.Exec(
				"INSERT INTO dialog_messages (dialog_id, message_id) VALUES (?, ?)",
				dialog.ID, message.ID,
			).Error
			if err != nil {
				return err
			}
		}

		created = message
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Resolve(created.ID)
}

// Resolve loads a message with its author and one level of reply/forward
// target resolved.
func (s *MessageService) Resolve(messageID uint) (*dto.Message, error) {
	var message model.Message
	err := withResolved(s.db).First(&message, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.NotFound("Message isn't exist")
	}
	if err != nil {
		return nil, err
	}

	out := dto.NewMessage(message)
	return &out, nil
}

// Delete detaches a message from the caller's dialog, or removes it from both
// sides when deleteForEveryone is set.
func (s *MessageService) Delete(messageID, dialogID uint, deleteForEveryone bool) (*dto.Message, error) {
	var message model.Message
	err := withResolved(s.visible(dialogID)).
		Where("messages.id = ?", messageID).
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.NotFound("Message isn't exist")
	}
	if err != nil {
		return nil, err
	}

	out := dto.NewMessage(message)

	if deleteForEveryone {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("DELETE FROM dialog_messages WHERE message_id = ?", message.ID).Error; err != nil {
				return err
			}
			return tx.Unscoped().Delete(&model.Message{}, message.ID).Error
		})
	} else {
		err = s.db.Exec(
			"DELETE FROM dialog_messages WHERE dialog_id = ? AND message_id = ?",
			dialogID, message.ID,
		).Error
	}
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// ReadOne flips the read flag of a single message. A no-op when already read.
func (s *MessageService) ReadOne(messageID uint) (*dto.Message, error) {
	res := s.db.Model(&model.Message{}).Where("id = ?", messageID).Update("read", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, exception.NotFound("Message isn't exist")
	}

	return s.Resolve(messageID)
}

// Read marks every chat message up to and including lastReadMessageID that was
// authored by someone else as read. Idempotent.
func (s *MessageService) Read(chatID, userID, lastReadMessageID uint) error {
	return s.db.Model(&model.Message{}).
		Where("chat_id = ? AND id <= ? AND user_id <> ? AND read = ?", chatID, lastReadMessageID, userID, false).
		Update("read", true).Error
}

// Get returns an ordered page of the dialog's messages. With a cursor the page
// is keyset-anchored strictly before (Take < 0) or after (Take > 0) the cursor
// message; without one it is a plain ordered window.
func (s *MessageService) Get(dialogID uint, f MessageFilter) ([]dto.Message, error) {
	take := f.Take
	if take == 0 {
		take = DefaultMessagesLimit
	}

	var page []model.Message

	if f.Cursor != nil {
		anchor, err := s.anchor(dialogID, *f.Cursor)
		if err != nil {
			return nil, err
		}

		if take < 0 {
			page, err = s.pageBefore(dialogID, anchor, -take, f.Skip, false)
		} else {
			page, err = s.pageAfter(dialogID, anchor, take, f.Skip, false)
		}
		if err != nil {
			return nil, err
		}

		if f.OrderDesc {
			reverseMessages(page)
		}
		return messageDTOs(page), nil
	}

	// No anchor: negative take means "from the end of the history".
	desc := f.OrderDesc
	if take < 0 {
		take = -take
		desc = true
	}

	order := "messages.created_at ASC, messages.id ASC"
	if desc {
		order = "messages.created_at DESC, messages.id DESC"
	}

	err := withResolved(s.visible(dialogID)).
		Order(order).
		Offset(f.Skip).
		Limit(take).
		Find(&page).Error
	if err != nil {
		return nil, err
	}

	if desc && !f.OrderDesc {
		reverseMessages(page)
	}
	return messageDTOs(page), nil
}

// GetByDate returns a window of up to take messages centered on a timestamp,
// merged ascending, plus the boundary message the client should scroll to.
func (s *MessageService) GetByDate(dialogID uint, timestamp time.Time, take int) ([]dto.Message, *dto.Message, error) {
	if take <= 0 {
		take = DefaultMessagesLimit
	}
	half := take / 2

	var after, before []model.Message

	err := withResolved(s.visible(dialogID)).
		Where("messages.created_at >= ?", timestamp).
		Order("messages.created_at ASC, messages.id ASC").
		Limit(half).
		Find(&after).Error
	if err != nil {
		return nil, nil, err
	}

	err = withResolved(s.visible(dialogID)).
		Where("messages.created_at < ?", timestamp).
		Order("messages.created_at DESC, messages.id DESC").
		Limit(half).
		Find(&before).Error
	if err != nil {
		return nil, nil, err
	}

	var firstFound *dto.Message
	if len(after) > 0 {
		found := dto.NewMessage(after[0])
		firstFound = &found
	} else if len(before) > 0 {
		found := dto.NewMessage(before[0])
		firstFound = &found
	}

	reverseMessages(before)
	return messageDTOs(append(before, after...)), firstFound, nil
}

// GetByMessage returns a window of up to limit messages around the anchor
// message, ascending, always including the anchor itself. The after side tops
// the window up when there is not enough history before the anchor.
func (s *MessageService) GetByMessage(dialogID, messageID uint, limit int) ([]dto.Message, *dto.Message, error) {
	if limit <= 0 {
		limit = DefaultMessagesLimit
	}

	anchor, err := s.anchor(dialogID, messageID)
	if err != nil {
		return nil, nil, err
	}

	before, err := s.pageBefore(dialogID, anchor, limit/2, 0, false)
	if err != nil {
		return nil, nil, err
	}

	after, err := s.pageAfter(dialogID, anchor, limit-len(before), 0, true)
	if err != nil {
		return nil, nil, err
	}

	target := dto.NewMessage(anchor)
	return messageDTOs(append(before, after...)), &target, nil
}

// FindFirstUnread returns the oldest unread message in the dialog authored by
// the partner, or nil when everything is read.
func (s *MessageService) FindFirstUnread(userID, dialogID uint) (*model.Message, error) {
	var message model.Message
	err := s.visible(dialogID).
		Where("messages.read = ? AND messages.user_id <> ?", false, userID).
		Order("messages.created_at ASC, messages.id ASC").
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// UnreadedCount counts messages visible in the dialog that are unread for its
// owner.
func (s *MessageService) UnreadedCount(dialog model.Dialog) (int64, error) {
	var count int64
	err := s.visible(dialog.ID).
		Where("messages.read = ? AND messages.user_id <> ?", false, dialog.UserID).
		Count(&count).Error
	return count, err
}

// LastMessage resolves the most recent message visible in the dialog, nil when
// the dialog has none yet.
func (s *MessageService) LastMessage(dialogID uint) (*dto.Message, error) {
	var message model.Message
	err := withResolved(s.visible(dialogID)).
		Order("messages.created_at DESC, messages.id DESC").
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := dto.NewMessage(message)
	return &out, nil
}

func (s *MessageService) anchor(dialogID, messageID uint) (model.Message, error) {
	var anchor model.Message
	err := withResolved(s.visible(dialogID)).
		Where("messages.id = ?", messageID).
		First(&anchor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return anchor, exception.NotFound("Message isn't exist")
	}
	return anchor, err
}

// pageBefore fetches up to n messages strictly older than the anchor, returned
// ascending.
func (s *MessageService) pageBefore(dialogID uint, anchor model.Message, n, skip int, inclusive bool) ([]model.Message, error) {
	cmp := "<"
	if inclusive {
		cmp = "<="
	}

	var page []model.Message
	err := withResolved(s.visible(dialogID)).
		Where("(messages.created_at < ?) OR (messages.created_at = ? AND messages.id "+cmp+" ?)",
			anchor.CreatedAt, anchor.CreatedAt, anchor.ID).
		Order("messages.created_at DESC, messages.id DESC").
		Offset(skip).
		Limit(n).
		Find(&page).Error
	if err != nil {
		return nil, err
	}

	reverseMessages(page)
	return page, nil
}

// pageAfter fetches up to n messages newer than the anchor, ascending. With
// inclusive set the anchor itself is the first candidate.
func (s *MessageService) pageAfter(dialogID uint, anchor model.Message, n, skip int, inclusive bool) ([]model.Message, error) {
	cmp := ">"
	if inclusive {
		cmp = ">="
	}

	var page []model.Message
	err := withResolved(s.visible(dialogID)).
		Where("(messages.created_at > ?) OR (messages.created_at = ? AND messages.id "+cmp+" ?)",
			anchor.CreatedAt, anchor.CreatedAt, anchor.ID).
		Order("messages.created_at ASC, messages.id ASC").
		Offset(skip).
		Limit(n).
		Find(&page).Error
	if err != nil {
		return nil, err
	}

	return page, nil
}

func reverseMessages(messages []model.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

func messageDTOs(messages []model.Message) []dto.Message {
	out := make([]dto.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, dto.NewMessage(m))
	}
	return out
}
