package assist

import "time"

const (
	DefaultLanguage = "English"
	DefaultCooldown = 2 * time.Second
)
