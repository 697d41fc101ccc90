package dto

import (
	"time"

	"dm-service/model"
)

// Wire projections. These are computed from the stored rows on every read and
// never persisted.

type User struct {
	Id         uint      `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Lastname   string    `json:"lastname"`
	Bio        string    `json:"bio"`
	Avatar     string    `json:"avatar"`
	Status     string    `json:"status"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func NewUser(u model.User) User {
	return User{
		Id:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Name:       u.Name,
		Lastname:   u.Lastname,
		Bio:        u.Bio,
		Avatar:     u.Avatar,
		Status:     u.Status,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type Message struct {
	Id             uint      `json:"id"`
	ChatId         uint      `json:"chatId"`
	UserId         uint      `json:"userId"`
	Type           string    `json:"type"`
	Text           *string   `json:"text"`
	ImageId        *uint     `json:"imageId"`
	ReplyMessageId *uint     `json:"replyMessageId"`
	ForwardedId    *uint     `json:"forwardedId"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	User           User      `json:"user"`

	// Resolved one level deep only. A reply to a reply carries the inner
	// message without its own reply target.
	ReplyMessage     *Message `json:"replyMessage,omitempty"`
	ForwardedMessage *Message `json:"forwardedMessage,omitempty"`
}

// NewMessage projects a stored message. The row's User, ReplyMessage and
// Forwarded associations must already be loaded; nested targets are cut off
// after one level.
func NewMessage(m model.Message) Message {
	out := newBareMessage(m)

	if m.ReplyMessage != nil {
		reply := newBareMessage(*m.ReplyMessage)
		out.ReplyMessage = &reply
	}
	if m.Forwarded != nil {
		forwarded := newBareMessage(*m.Forwarded)
		out.ForwardedMessage = &forwarded
	}

	return out
}

func newBareMessage(m model.Message) Message {
	return Message{
		Id:             m.ID,
		ChatId:         m.ChatID,
		UserId:         m.UserID,
		Type:           m.Type,
		Text:           m.Text,
		ImageId:        m.ImageID,
		ReplyMessageId: m.ReplyMessageID,
		ForwardedId:    m.ForwardedID,
		Read:           m.Read,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		User:           NewUser(m.User),
	}
}

type Dialog struct {
	Id                    uint      `json:"id"`
	UserId                uint      `json:"userId"`
	PartnerId             uint      `json:"partnerId"`
	ChatId                uint      `json:"chatId"`
	Title                 string    `json:"title"`
	Status                *string   `json:"status"`
	IsPinned              bool      `json:"isPinned"`
	PinnedOrder           *int      `json:"pinnedOrder"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
	User                  User      `json:"user"`
	Partner               User      `json:"partner"`
	LastMessage           *Message  `json:"lastMessage"`
	PinnedMessage         *Message  `json:"pinnedMessage"`
	UnreadedMessagesCount int64     `json:"unreadedMessagesCount"`
	UserBlocked           bool      `json:"userBlocked"`
	PartnerBlocked        bool      `json:"partnerBlocked"`
}

// NewDialog assembles the denormalized dialog view. The blocked slice is the
// parent chat's blocked set.
func NewDialog(d model.Dialog, lastMessage, pinnedMessage *Message, unreaded int64, blocked []model.User) Dialog {
	userBlocked := false
	partnerBlocked := false
	for _, u := range blocked {
		if u.ID == d.UserID {
			userBlocked = true
		}
		if u.ID == d.PartnerID {
			partnerBlocked = true
		}
	}

	return Dialog{
		Id:                    d.ID,
		UserId:                d.UserID,
		PartnerId:             d.PartnerID,
		ChatId:                d.ChatID,
		Title:                 d.Title,
		Status:                d.Status,
		IsPinned:              d.IsPinned,
		PinnedOrder:           d.PinnedOrder,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
		User:                  NewUser(d.User),
		Partner:               NewUser(d.Partner),
		LastMessage:           lastMessage,
		PinnedMessage:         pinnedMessage,
		UnreadedMessagesCount: unreaded,
		UserBlocked:           userBlocked,
		PartnerBlocked:        partnerBlocked,
	}
}

// DialogLists is the pinned/unpinned partition returned by getAll.
type DialogLists struct {
	Pinned   []Dialog `json:"pinned"`
	Unpinned []Dialog `json:"unpinned"`
}
