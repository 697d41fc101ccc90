package router

import (
	"time"

	"dm-service/dto"
	"dm-service/exception"
	"dm-service/model"
	"dm-service/service"
)

type messageAddPayload struct {
	Message messageUnion `json:"message"`
}

// messageUnion is the tagged MESSAGE_ADD variant: a plain message with text
// and/or image, or a FORWARDED reference carrying only the source id.
type messageUnion struct {
	Type           string  `json:"type"`
	Text           *string `json:"text"`
	Image          *string `json:"image"`
	CreatedAt      *int64  `json:"createdAt"`
	ReplyMessageId *uint   `json:"replyMessageId"`
	Id             uint    `json:"id"`
}

type messageReadPayload struct {
	ReadMessage struct {
		Id uint `json:"id"`
	} `json:"readMessage"`
}

type messageDeletePayload struct {
	MessageId         uint `json:"messageId"`
	DeleteForEveryone bool `json:"deleteForEveryone"`
}

type messagesGetPayload struct {
	Filter *messagesFilter `json:"filter"`
	Method string          `json:"method"`
}

type messagesFilter struct {
	OrderBy *struct {
		CreatedAt string `json:"createdAt"`
	} `json:"orderBy"`
	Take   *int `json:"take"`
	Cursor *struct {
		Id uint `json:"id"`
	} `json:"cursor"`
	Skip *int `json:"skip"`
}

type jumpToDatePayload struct {
	Timestamp int64 `json:"timestamp"`
	Take      *int  `json:"take"`
}

type jumpToMessagePayload struct {
	MessageId uint `json:"messageId"`
	Take      *int `json:"take"`
}

type messageResponse struct {
	Message *dto.Message `json:"message"`
}

type messagesResponse struct {
	Messages []dto.Message `json:"messages"`
}

type readResponse struct {
	UnreadedMessagesCount int64 `json:"unreadedMessagesCount"`
}

type jumpToDateResponse struct {
	Messages          []dto.Message `json:"messages"`
	FirstFoundMessage *dto.Message  `json:"firstFoundMessage,omitempty"`
}

type jumpToMessageResponse struct {
	Messages []dto.Message `json:"messages"`
	Target   *dto.Message  `json:"target,omitempty"`
}

func (r *socketRouter) messageHandlers(client sessionSocket, sess *service.Session) {
	r.handle(client, ClientMessageAdd, func(args []any) error {
		active, err := activeDialog(sess)
		if err != nil {
			return err
		}

		var payload messageAddPayload
		if err := bind(&payload, args); err != nil {
			return err
		}

		input := service.MessageInput{
			Type:           payload.Message.Type,
			Text:           payload.Message.Text,
			Image:          payload.Message.Image,
			ReplyMessageID: payload.Message.ReplyMessageId,
		}
		if payload.Message.Type == model.MessageTypeForwarded {
			forwarded := payload.Message.Id
			input.ForwardedID = &forwarded
		}
		if payload.Message.CreatedAt != nil {
			createdAt := time.UnixMilli(*payload.Message.CreatedAt)
			input.CreatedAt = &createdAt
		}

		message, err := r.messages.Send(service.SendParams{
			UserID:  sess.User.Id,
			ChatID:  active.ChatId,
			Message: input,
		})
		if err != nil {
			return err
		}

		members, err := r.chatMembers(active.ChatId)
		if err != nil {
			return err
		}

		r.rooms.EmitTo(service.ChatRoom(active.ChatId), ServerMessageAdd, messageResponse{Message: message})
		r.presence.NotifyChat(active.ChatId)
		r.presence.NotifyDialogLists(members)
		return nil
	})

	r.handle(client, ClientMessageRead, func(args []any) error {
		active, err := activeDialog(sess)
		if err != nil {
			return err
		}

		var payload messageReadPayload
		if err := bind(&payload, args); err != nil {
			return err
		}
		if payload.ReadMessage.Id == 0 {
			return exception.BadRequest("Message id is required")
		}

		if err := r.messages.Read(active.ChatId, sess.User.Id, payload.ReadMessage.Id); err != nil {
			return err
		}

		message, err := r.messages.Resolve(payload.ReadMessage.Id)
		if err != nil {
			return err
		}

		dialog, err := r.dialogs.Get(service.DialogQuery{
			UserID:   sess.User.Id,
			DialogID: active.Id,
		})
		if err != nil {
			return err
		}

		client.Emit(ServerMessageReadResponse, readResponse{
			UnreadedMessagesCount: dialog.UnreadedMessagesCount,
		})
		r.rooms.EmitTo(service.ChatRoom(active.ChatId), ServerMessageRead, messageResponse{Message: message})
		r.rooms.EmitTo(service.ChatRoom(active.ChatId), service.EventDialogsNeedToUpdate)
		return nil
	})

	r.handle(client, ClientMessageDelete, func(args []any) error {
		active, err := activeDialog(sess)
		if err != nil {
			return err
		}

		var payload messageDeletePayload
		if err := bind(&payload, args); err != nil {
			return err
		}

		message, err := r.messages.Delete(payload.MessageId, active.Id, payload.DeleteForEveryone)
		if err != nil {
			return err
		}

		if payload.DeleteForEveryone {
			members, err := r.chatMembers(active.ChatId)
			if err != nil {
				return err
			}
			r.presence.NotifyChat(active.ChatId)
			r.rooms.EmitTo(service.ChatRoom(active.ChatId), ServerMessageDelete, messageResponse{Message: message})
			r.presence.NotifyDialogLists(members)
		} else {
			client.Emit(service.EventDialogNeedToUpdate)
			client.Emit(service.EventDialogsNeedToUpdate)
			client.Emit(ServerMessageDelete, messageResponse{Message: message})
		}
		return nil
	})

	r.handle(client, ClientMessagesGet, func(args []any) error {
		active, err := activeDialog(sess)
		if err != nil {
			return err
		}

		var payload messagesGetPayload
		if err := bind(&payload, args); err != nil {
			return err
		}

		method := payload.Method
		if method == "" {
			method = "PATCH"
		}
		if method != "PUT" && method != "PATCH" {
			return exception.BadRequest("Unknown messages method")
		}

		var filter service.MessageFilter
		if payload.Filter != nil {
			if payload.Filter.OrderBy != nil {
				filter.OrderDesc = payload.Filter.OrderBy.CreatedAt == "desc"
			}
			if payload.Filter.Take != nil {
				filter.Take = *payload.Filter.Take
			}
			if payload.Filter.Cursor != nil {
				cursor := payload.Filter.Cursor.Id
				filter.Cursor = &cursor
			}
			if payload.Filter.Skip != nil {
				filter.Skip = *payload.Filter.Skip
			}
		}

		messages, err := r.messages.Get(active.Id, filter)
		if err != nil {
			return err
		}

		event := ServerMessagesPatch
		if method == "PUT" {
			event = ServerMessagesPut
		}
		r.rooms.EmitTo(service.UserRoom(sess.User.Id), event, messagesResponse{Messages: messages})
		return nil
	})

	r.handle(client, ClientJumpToDate, func(args []any) error {
		active, err := activeDialog(sess)
		if err != nil {
			return err
		}

		var payload jumpToDatePayload
		if err := bind(&payload, args); err != nil {
			return err
		}
		if payload.Timestamp == 0 {
			return exception.BadRequest("Timestamp is required")
		}

		take := 0
		if payload.Take != nil {
			take = *payload.Take
		}

		messages, firstFound, err := r.messages.GetByDate(active.Id, time.UnixMilli(payload.Timestamp), take)
		if err != nil {
			return err
		}

		r.rooms.EmitTo(service.UserRoom(sess.User.Id), ServerJumpToDateResponse, jumpToDateResponse{
			Messages:          messages,
			FirstFoundMessage: firstFound,
		})
		return nil
	})

	r.handle(client, ClientJumpToMessage, func(args []any) error {
		active, err := activeDialog(sess)
		if err != nil {
			return err
		}

		var payload jumpToMessagePayload
		if err := bind(&payload, args); err != nil {
			return err
		}
		if payload.MessageId == 0 {
			return exception.BadRequest("Message id is required")
		}

		take := 0
		if payload.Take != nil {
			take = *payload.Take
		}

		messages, target, err := r.messages.GetByMessage(active.Id, payload.MessageId, take)
		if err != nil {
			return err
		}

		r.rooms.EmitTo(service.UserRoom(sess.User.Id), ServerJumpToMessageResponse, jumpToMessageResponse{
			Messages: messages,
			Target:   target,
		})
		return nil
	})
}

func (r *socketRouter) chatMembers(chatID uint) ([]uint, error) {
	dialogs, err := r.dialogs.DialogsInChat(chatID)
	if err != nil {
		return nil, err
	}

	members := make([]uint, 0, len(dialogs))
	for _, dialog := range dialogs {
		members = append(members, dialog.UserID)
	}
	return members, nil
}
