package router

import (
	"dm-service/dto"
	"dm-service/service"
)

type partnerRef struct {
	Id       *uint   `json:"id"`
	Username *string `json:"username"`
}

type dialogJoinPayload struct {
	Partner       partnerRef `json:"partner"`
	MessagesLimit *int       `json:"messagesLimit"`
}

type dialogStatusPayload struct {
	Status *string `json:"status"`
}

type dialogPinPayload struct {
	DialogId uint `json:"dialogId"`
}

type dialogDeletePayload struct {
	DialogId          uint `json:"dialogId"`
	DeleteForEveryone bool `json:"deleteForEveryone"`
}

type dialogBlockPayload struct {
	PartnerId uint `json:"partnerId"`
}

type messagePinPayload struct {
	MessageId *uint `json:"messageId"`
}

type dialogJoinResponse struct {
	Dialog   *dto.Dialog   `json:"dialog"`
	Messages []dto.Message `json:"messages"`
}

type dialogResponse struct {
	Dialog *dto.Dialog `json:"dialog"`
}

type dialogsResponse struct {
	Dialogs *dto.DialogLists `json:"dialogs"`
}

func (r *socketRouter) dialogHandlers(client sessionSocket, sess *service.Session) {
	r.handle(client, ClientDialogJoin, func(args []any) error {
		var payload dialogJoinPayload
		if err := bind(&payload, args); err != nil {
			return err
		}

		params := service.JoinDialogParams{UserID: sess.User.Id}
		if payload.Partner.Id != nil {
			params.PartnerID = *payload.Partner.Id
		} else if payload.Partner.Username != nil {
			params.PartnerUsername = *payload.Partner.Username
		}
		if payload.MessagesLimit != nil {
			params.MessagesLimit = *payload.MessagesLimit
		}

		dialog, messages, err := r.dialogs.Join(params)
		if err != nil {
			return err
		}

		r.presence.JoinDialog(client, sess, dialog)

		client.Emit(ServerDialogJoinResponse, dialogJoinResponse{
			Dialog:   dialog,
			Messages: messages,
		})
		return nil
	})

	r.handle(client, ClientDialogGet, func([]any) error {
		active, err := activeDialog(sess)
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

		sess.Dialog = dialog
		client.Emit(ServerDialogGetResponse, dialogResponse{Dialog: dialog})
		return nil
	})

	r.handle(client, ClientDialogsGet, func([]any) error {
		dialogs, err := r.dialogs.GetAll(sess.User.Id)
		if err != nil {
			return err
		}

		client.Emit(ServerDialogsPut, dialogsResponse{Dialogs: dialogs})
		return nil
	})

	r.handle(client, ClientDialogUpdateStatus, func(args []any) error {
		active, err := activeDialog(sess)
		if err != nil {
			return err
		}

		var payload dialogStatusPayload
		if err := bind(&payload, args); err != nil {
			return err
		}

		partnerDialog, err := r.dialogs.UpdatePartnerDialogStatus(sess.User.Id, active.PartnerId, payload.Status)
		if err != nil {
			return err
		}

		r.presence.NotifyChat(partnerDialog.ChatId)
		return nil
	})

	r.handle(client, ClientMessagePin, func(args []any) error {
		active, err := activeDialog(sess)
		if err != nil {
			return err
		}

		var payload messagePinPayload
		if err := bind(&payload, args); err != nil {
			return err
		}

		if err := r.dialogs.PinMessage(sess.User.Id, active.Id, payload.MessageId); err != nil {
			return err
		}

		r.presence.NotifyChat(active.ChatId)
		return nil
	})

	r.handle(client, ClientDialogPin, func(args []any) error {
		var payload dialogPinPayload
		if err := bind(&payload, args); err != nil {
			return err
		}

		if err := r.dialogs.Pin(sess.User.Id, payload.DialogId); err != nil {
			return err
		}

		r.presence.NotifyDialogLists([]uint{sess.User.Id})
		return nil
	})

	r.handle(client, ClientDialogUnpin, func(args []any) error {
		var payload dialogPinPayload
		if err := bind(&payload, args); err != nil {
			return err
		}

		if err := r.dialogs.Unpin(sess.User.Id, payload.DialogId); err != nil {
			return err
		}

		r.presence.NotifyDialogLists([]uint{sess.User.Id})
		return nil
	})

	r.handle(client, ClientDialogDelete, func(args []any) error {
		var payload dialogDeletePayload
		if err := bind(&payload, args); err != nil {
			return err
		}

		chatID, members, err := r.dialogs.Delete(sess.User.Id, payload.DialogId, payload.DeleteForEveryone)
		if err != nil {
			return err
		}

		if sess.InDialog() && sess.Dialog.Id == payload.DialogId {
			r.presence.LeaveDialog(client, sess)
		}

		if payload.DeleteForEveryone {
			r.presence.NotifyChat(chatID)
			r.presence.NotifyDialogLists(members)
		} else {
			r.presence.NotifyDialogLists([]uint{sess.User.Id})
		}
		return nil
	})

	r.handle(client, ClientDialogLeave, func([]any) error {
		r.presence.LeaveDialog(client, sess)
		return nil
	})

	r.handle(client, ClientDialogBlock, func(args []any) error {
		var payload dialogBlockPayload
		if err := bind(&payload, args); err != nil {
			return err
		}

		chatID, err := r.dialogs.Block(sess.User.Id, payload.PartnerId)
		if err != nil {
			return err
		}

		r.presence.NotifyChat(chatID)
		r.presence.NotifyDialogLists([]uint{sess.User.Id, payload.PartnerId})
		return nil
	})

	r.handle(client, ClientDialogUnblock, func(args []any) error {
		var payload dialogBlockPayload
		if err := bind(&payload, args); err != nil {
			return err
		}

		chatID, err := r.dialogs.Unblock(sess.User.Id, payload.PartnerId)
		if err != nil {
			return err
		}

		r.presence.NotifyChat(chatID)
		r.presence.NotifyDialogLists([]uint{sess.User.Id, payload.PartnerId})
		return nil
	})
}
