package types

// NotificationPayload is what the push service receives for a system notification.
// A notification with the same Tag replaces the previous one.
type NotificationPayload struct {
	Title              string         `json:"title"`
	Body               string         `json:"body"`
	Icon               string         `json:"icon,omitempty"`
	Badge              string         `json:"badge,omitempty"`
	RequireInteraction bool           `json:"requireInteraction"`
	Tag                string         `json:"tag"`
	Vibrate            []int          `json:"vibrate,omitempty"`
	Data               map[string]any `json:"data,omitempty"`
}
