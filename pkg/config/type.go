package config

type TankMonitorConfig struct {
	// Base URL of the sensor feed. http(s) selects the SSE transport,
	// ws(s) selects the websocket transport.
	FeedBaseURL        string `toml:"feed_base_url"`
	FeedPath           string `toml:"feed_path"`
	ReconnectDelayMs   int    `toml:"reconnect_delay_ms"`
	FeedIdleTimeoutSec int    `toml:"feed_idle_timeout_sec"`

	AlertCheckURL string `toml:"alert_check_url"`

	// Push service for system notifications. Empty disables notifications.
	NotificationServiceURL string `toml:"notification_service_url"`
	NotificationIcon       string `toml:"notification_icon"`
	NotificationBadge      string `toml:"notification_badge"`

	// Empty player disables sound.
	SoundPlayer string `toml:"sound_player"`
	SoundFile   string `toml:"sound_file"`

	// "serial", "mqtt" or empty to disable vibration.
	BuzzerDriver       string `toml:"buzzer_driver"`
	BuzzerSerialDevice string `toml:"buzzer_serial_device"`
	BuzzerBaudrate     uint   `toml:"buzzer_baudrate"`
	BuzzerMQTTBroker   string `toml:"buzzer_mqtt_broker"`
	BuzzerMQTTTopic    string `toml:"buzzer_mqtt_topic"`

	// Redis backs periodic background registration and page messaging.
	// Empty address disables background sync.
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}
