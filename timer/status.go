package timer

import "errors"

// Status is a timer error code. Operations return it as an error; OK is
// never returned as an error value (success is nil).
type Status int8

const (
	OK            Status = 0
	InvalidHandle Status = -1 // handle out of range or not allocated
	InvalidParam  Status = -2 // zero/oversized period or unknown mode
	PoolFull      Status = -3 // no free slot at create time
	NotRunning    Status = -4 // query against an inactive timer
)

var (
	ErrInvalidHandle error = InvalidHandle
	ErrInvalidParam  error = InvalidParam
	ErrPoolFull      error = PoolFull
	ErrNotRunning    error = NotRunning
)

// Code returns the numeric status code
func (s Status) Code() int8 {
	return int8(s)
}

// String returns the status name
func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case InvalidHandle:
		return "INVALID_HANDLE"
	case InvalidParam:
		return "INVALID_PARAM"
	case PoolFull:
		return "POOL_FULL"
	case NotRunning:
		return "NOT_RUNNING"
	default:
		return "UNKNOWN"
	}
}

func (s Status) Error() string {
	return "timer: " + s.String()
}

// StatusOf maps an error returned by this package (possibly wrapped) back
// to its Status. nil maps to OK; ok is false for foreign errors.
func StatusOf(err error) (s Status, ok bool) {
	if err == nil {
		return OK, true
	}
	if errors.As(err, &s) {
		return s, true
	}
	return OK, false
}
