package model

import "gorm.io/gorm"

const (
	MessageTypeText      = "MESSAGE"
	MessageTypeForwarded = "FORWARDED"
)

// Message belongs to a Chat's shared pool and is visible to each side through
// the dialog_messages relation, which is what per-side delete detaches.
// A row is unread for user U iff Read is false and UserID != U.
type Message struct {
	gorm.Model
	UserID         uint    `gorm:"not null" json:"userId"`
	ChatID         uint    `gorm:"not null" json:"chatId"`
	Type           string  `gorm:"not null;default:MESSAGE" json:"type"`
	Text           *string `json:"text"`
	ImageID        *uint   `json:"imageId"`
	ReplyMessageID *uint   `json:"replyMessageId"`
	ForwardedID    *uint   `json:"forwardedId"`
	Read           bool    `gorm:"not null;default:false" json:"read"`

	User         User     `gorm:"foreignKey:UserID" json:"-"`
	ReplyMessage *Message `gorm:"foreignKey:ReplyMessageID" json:"-"`
	Forwarded    *Message `gorm:"foreignKey:ForwardedID" json:"-"`
	Dialogs      []Dialog `gorm:"many2many:dialog_messages" json:"-"`
}

type Image struct {
	gorm.Model
	Data string `gorm:"not null" json:"data"`
}
