package transport

import "time"

type RegisterRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Password       string `json:"password"`
	HashedPassword string `json:"hashed_password"`
}

// PlainPassword prefers password over the legacy hashed_password field.
func (r RegisterRequest) PlainPassword() string {
	if r.Password != "" {
		return r.Password
	}
	return r.HashedPassword
}

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

type UserResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsVerified  bool      `json:"is_verified"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type FileResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Size             int64      `json:"size"`
	ContentType      string     `json:"content_type"`
	StorageKey       string     `json:"storage_key"`
	ExpirationDate   *time.Time `json:"expiration_date"`
	IsPublic         bool       `json:"is_public"`
	HasAccessCode    bool       `json:"has_access_code"`
	DownloadsCount   int64      `json:"downloads_count"`
	LastDownloadedAt *time.Time `json:"last_downloaded_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type FileListResponse struct {
	Data []FileResponse `json:"data"`
	Meta PageMeta       `json:"meta"`
}
