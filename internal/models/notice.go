package models

import "time"

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeInfo    NoticeLevel = "info"
)

// Notice is a transient, user-visible message. It is never stored on an Item.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	ItemID  string      `json:"itemId,omitempty"`
	At      time.Time   `json:"at"`
}
