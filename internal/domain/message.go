package domain

import "strings"

// Level is a PSR-3 style log level used as the message label.
type Level string

const (
	LevelEmergency Level = "emergency"
	LevelAlert     Level = "alert"
	LevelCritical  Level = "critical"
	LevelError     Level = "error"
	LevelWarning   Level = "warning"
	LevelNotice    Level = "notice"
	LevelInfo      Level = "info"
	LevelDebug     Level = "debug"
)

// ParseLevel converts a level name to a Level. Unknown names are kept as-is
// so custom labels still show up in the toolbar.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "emergency":
		return LevelEmergency
	case "alert":
		return LevelAlert
	case "critical":
		return LevelCritical
	case "error":
		return LevelError
	case "warn", "warning":
		return LevelWarning
	case "notice":
		return LevelNotice
	case "", "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return Level(s)
	}
}

// MessageEntry is one appended log message.
type MessageEntry struct {
	Message     string  `json:"message"`
	MessageHTML *string `json:"message_html"`
	IsString    bool    `json:"is_string"`
	Label       Level   `json:"label"`
	Time        float64 `json:"time"`
	Filename    *string `json:"filename"`
	OriginLink  *Link   `json:"origin_link"`
	Collector   string  `json:"collector,omitempty"`
	Origin      *Frame  `json:"-"`
}
