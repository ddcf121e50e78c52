package screen

import "time"

const (
	QueryTimeout     = 3 * time.Second
	ScreenshotPrefix = "pushtalk_screenshot_"
)
