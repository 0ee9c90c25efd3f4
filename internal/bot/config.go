package bot

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Admins may sync, export and import
	AdminUserIDs []int64
	// Reminder hour for new users
	DefaultNotificationHour int
	// Cap on topics per reminder for new users
	DefaultTopicsPerDay int
	// Number of topics shown by /topics
	TopicListLimit int
	// Telegram rejects longer messages
	MaxMessageLength int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		DefaultNotificationHour: 9,
		DefaultTopicsPerDay:     5,
		TopicListLimit:          30,
		MaxMessageLength:        4000,
	}
}
