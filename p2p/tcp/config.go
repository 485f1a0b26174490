package tcp

import "time"

// Config for the tcp transport.
type Config struct {
	// Peers are host:port addresses this node dials and broadcasts to.
	Peers          []string      `mapstructure:"-"`
	DialTimeout    time.Duration `mapstructure:"dial-timeout"`
	WriteTimeout   time.Duration `mapstructure:"write-timeout"`
	RedialInterval time.Duration `mapstructure:"redial-interval"`
	MaxMessageSize int           `mapstructure:"max-message-size"`
	InboxSize      int           `mapstructure:"inbox-size"`
}

// DefaultConfig for the tcp transport.
func DefaultConfig() Config {
	return Config{
		DialTimeout:    2 * time.Second,
		WriteTimeout:   5 * time.Second,
		RedialInterval: time.Second,
		MaxMessageSize: 8 << 20,
		InboxSize:      1024,
	}
}
