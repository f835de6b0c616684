package seminar

import (
	"strings"
	"time"
)

const (
	namePlaceholder = "__seminar.name__"
	datePlaceholder = "__seminar.dateTime__"
)

// RenderMessage substitutes the item name and formatted date-time into an
// SMS template body. Each placeholder is replaced once, matching how the
// templates are authored.
func RenderMessage(body, itemName string, dt time.Time) string {
	body = strings.Replace(body, namePlaceholder, itemName, 1)
	return strings.Replace(body, datePlaceholder, FormatJapanese(dt), 1)
}

// RenderMessageOnHold substitutes the item name and marks the date as
// undecided, for reminders registered without a date-time.
func RenderMessageOnHold(body, itemName string) string {
	body = strings.Replace(body, namePlaceholder, itemName, 1)
	return strings.Replace(body, datePlaceholder, "未定", 1)
}
