package tankdb

// Record keys. Each holds one JSON document (or a bare word for the permission state).
const (
	SessionConfigKey          = "tank-config"
	AlertConfigKey            = "alert-config"
	NotificationPermissionKey = "notification-permission"
)
