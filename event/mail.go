package event

// MailQueue publishes outbound mail events to the "mail" queue. The mailer
// service consumes them and sends the actual emails.
type MailQueue struct{}

func (MailQueue) Publish(action string, data []byte) {
	Emit("mail", action, data, true)
}
