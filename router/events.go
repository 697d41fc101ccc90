package router

// Client to server events.
const (
	ClientDialogJoin         = "CLIENT:DIALOG_JOIN"
	ClientDialogGet          = "CLIENT:DIALOG_GET"
	ClientDialogsGet         = "CLIENT:DIALOGS_GET"
	ClientDialogUpdateStatus = "CLIENT:DIALOG_UPDATE_STATUS"
	ClientDialogPin          = "CLIENT:DIALOG_PIN"
	ClientDialogUnpin        = "CLIENT:DIALOG_UNPIN"
	ClientDialogDelete       = "CLIENT:DIALOG_DELETE"
	ClientDialogLeave        = "CLIENT:DIALOG_LEAVE"
	ClientDialogBlock        = "CLIENT:DIALOG_BLOCK"
	ClientDialogUnblock      = "CLIENT:DIALOG_UNBLOCK"
	ClientMessagePin         = "CLIENT:MESSAGE_PIN"
	ClientMessageAdd         = "CLIENT:MESSAGE_ADD"
	ClientMessageRead        = "CLIENT:MESSAGE_READ"
	ClientMessageDelete      = "CLIENT:MESSAGE_DELETE"
	ClientMessagesGet        = "CLIENT:MESSAGES_GET"
	ClientJumpToDate         = "CLIENT:JUMP_TO_DATE"
	ClientJumpToMessage      = "CLIENT:JUMP_TO_MESSAGE"
)

// Server to client events.
const (
	ServerDialogJoinResponse    = "SERVER:DIALOG_JOIN_RESPONSE"
	ServerDialogGetResponse     = "SERVER:DIALOG_GET_RESPONSE"
	ServerDialogsPut            = "SERVER:DIALOGS_PUT"
	ServerMessageAdd            = "SERVER:MESSAGE_ADD"
	ServerMessageRead           = "SERVER:MESSAGE_READ"
	ServerMessageReadResponse   = "SERVER:MESSAGE_READ_RESPONSE"
	ServerMessageDelete         = "SERVER:MESSAGE_DELETE"
	ServerMessagesPut           = "SERVER:MESSAGES_PUT"
	ServerMessagesPatch         = "SERVER:MESSAGES_PATCH"
	ServerJumpToDateResponse    = "SERVER:JUMP_TO_DATE_RESPONSE"
	ServerJumpToMessageResponse = "SERVER:JUMP_TO_MESSAGE_RESPONSE"
	ServerError                 = "SERVER:ERROR"
)
