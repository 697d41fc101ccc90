package model

import "gorm.io/gorm"

// Chat binds two participants (or one, for the self chat) to a shared pool of
// messages. Exactly one Dialog row exists per (chat, viewing user) direction.
type Chat struct {
	gorm.Model
	Users    []User    `gorm:"many2many:chat_users" json:"users"`
	Blocked  []User    `gorm:"many2many:chat_blocked_users" json:"blocked"`
	Dialogs  []Dialog  `json:"dialogs"`
	Messages []Message `json:"messages"`
}

// Dialog is one participant's directional view of a Chat. The two rows of a
// two-party chat carry swapped (UserID, PartnerID); the pair is unique.
type Dialog struct {
	gorm.Model
	UserID          uint    `gorm:"not null;uniqueIndex:idx_dialog_pair" json:"userId"`
	PartnerID       uint    `gorm:"not null;uniqueIndex:idx_dialog_pair" json:"partnerId"`
	ChatID          uint    `gorm:"not null" json:"chatId"`
	Title           string  `gorm:"not null" json:"title"`
	Status          *string `json:"status"`
	IsPinned        bool    `gorm:"not null;default:false" json:"isPinned"`
	PinnedOrder     *int    `json:"pinnedOrder"`
	PinnedMessageID *uint   `json:"pinnedMessageId"`

	User          User      `gorm:"foreignKey:UserID" json:"-"`
	Partner       User      `gorm:"foreignKey:PartnerID" json:"-"`
	PinnedMessage *Message  `gorm:"foreignKey:PinnedMessageID" json:"-"`
	Messages      []Message `gorm:"many2many:dialog_messages" json:"-"`
}
