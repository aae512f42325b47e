package service

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failed"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is returned by every service operation. Detail is safe to show
// to the caller, Err is only logged.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func internalError(detail string, err error) *Error {
	return &Error{Kind: KindInternal, Detail: detail, Err: err}
}

// KindOf reports the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func DetailOf(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Kind != KindInternal {
		return se.Detail
	}
	return MsgInternal
}

const (
	MsgInternal = "Internal server error."

	MsgIncorrectCredentials = "Incorrect username or password."
	MsgInvalidCredentials   = "Invalid credentials."
	MsgUsernameTaken        = "User with this username is already exist."
	MsgEmailTaken           = "User with this email is already exist."
	MsgUserNotFound         = "User not found."
	MsgUserInactive         = "User is not active."
	MsgOldPasswordIncorrect = "Old password is incorrect."
	MsgPasswordUnchanged    = "New password must be different from the old one."

	MsgStorageKeyUnknown  = "Storage key is unknown."
	MsgFileKeyNotFound    = "File with this storage key is not found."
	MsgFileKeyExists      = "File with this storage key is already exist."
	MsgFileExpired        = "File with this storage key is expired."
	MsgFileAccessDenied   = "Access to this file is denied."
	MsgFileNotFound       = "File not found."
	MsgFilesNotFound      = "Files not found."
	MsgFileUploadFailed   = "File could not be stored."
	MsgFileDownloadFailed = "File could not be read."
)
