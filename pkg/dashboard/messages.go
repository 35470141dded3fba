package dashboard

// Envelope types sent over /ws.
const (
	MessageStatus          = "status"
	MessageAlert           = "alert"
	MessageBackgroundAlert = "BACKGROUND_ALERT"
)
