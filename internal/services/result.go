package services

import "errors"

// ErrUserNotFound is returned when an operation targets an unknown user
var ErrUserNotFound = errors.New("user not found")

// Status classifies the outcome of a user-facing operation
type Status int

const (
	StatusOK Status = iota
	StatusCreated
	StatusNoop
	StatusInvalid
	StatusQuotaExceeded
	StatusForbidden
	StatusNotFound
	StatusInternal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCreated:
		return "created"
	case StatusNoop:
		return "noop"
	case StatusInvalid:
		return "invalid"
	case StatusQuotaExceeded:
		return "quota_exceeded"
	case StatusForbidden:
		return "forbidden"
	case StatusNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Result is the uniform outcome of a user-facing operation.
// Policy rejections are results, not errors.
type Result[T any] struct {
	Success bool
	Message string
	Data    T
	Status  Status
}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data, Status: StatusOK}
}

func created[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data, Status: StatusCreated}
}

func fail[T any](status Status, message string) Result[T] {
	return Result[T]{Message: message, Status: status}
}
