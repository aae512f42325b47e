package mykafka

import "time"

const (
	EventUserRegistered = "user_registered"
	EventUserLoggedIn   = "user_logged_in"
	EventFileUploaded   = "file_uploaded"
	EventFileDownloaded = "file_downloaded"
)

type UserEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

type FileEvent struct {
	Type       string    `json:"type"`
	FileID     string    `json:"file_id"`
	StorageKey string    `json:"storage_key"`
	UserID     string    `json:"user_id,omitempty"`
	Size       int64     `json:"size,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
