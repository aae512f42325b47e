package models

import (
	"time"
)

type User struct {
	ID             string    `gorm:"type:varchar(36);primaryKey"             json:"id"`
	Username       string    `gorm:"size:20;not null;uniqueIndex"            json:"username"`
	Email          string    `gorm:"size:320;not null;uniqueIndex"           json:"email"`
	FirstName      string    `gorm:"size:30"                                 json:"first_name"`
	LastName       string    `gorm:"size:30"                                 json:"last_name"`
	HashedPassword string    `gorm:"not null"                                json:"-"`
	IsActive       bool      `gorm:"not null"                                json:"is_active"`
	IsVerified     bool      `gorm:"not null"                                json:"is_verified"`
	IsSuperuser    bool      `gorm:"not null"                                json:"is_superuser"`
	CreatedAt      time.Time `gorm:"not null"                                json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null"                                json:"updated_at"`
}

type FileStatus string

const (
	FileStatusPending   FileStatus = "pending"
	FileStatusCommitted FileStatus = "committed"
)

type File struct {
	ID               string     `gorm:"type:varchar(36);primaryKey"                                json:"id"`
	Name             string     `gorm:"size:255;not null;index"                                    json:"name"`
	Size             int64      `gorm:"not null"                                                   json:"size"`
	ContentType      string     `gorm:"size:255;not null"                                          json:"content_type"`
	StorageKey       string     `gorm:"size:32;not null;uniqueIndex"                               json:"storage_key"`
	UploaderID       string     `gorm:"type:varchar(36);not null;index"                            json:"uploader_id"`
	Uploader         *User      `gorm:"foreignKey:UploaderID;constraint:OnDelete:CASCADE"          json:"-"`
	AccessCodeHash   *string    `gorm:"column:access_code_hash"                                    json:"-"`
	ExpirationDate   *time.Time `gorm:"index"                                                      json:"expiration_date"`
	IsPublic         bool       `gorm:"not null"                                                   json:"is_public"`
	DownloadsCount   int64      `gorm:"not null"                                                   json:"downloads_count"`
	LastDownloadedAt *time.Time `json:"last_downloaded_at"`
	Status           FileStatus `gorm:"size:16;not null;index"                                     json:"-"`
	CreatedAt        time.Time  `gorm:"not null"                                                   json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null"                                                   json:"updated_at"`
}

// HasAccessCode reports whether downloads may be unlocked with a shared code.
func (f *File) HasAccessCode() bool {
	return f.AccessCodeHash != nil && *f.AccessCodeHash != ""
}

func (f *File) IsExpired(now time.Time) bool {
	return f.ExpirationDate != nil && !f.ExpirationDate.After(now)
}
