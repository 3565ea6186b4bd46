package store

import "fmt"

// RequestStatus is the fetch lifecycle state of one collection.
//
// RequestStatus 是单个集合的获取生命周期状态。
type RequestStatus int

const (
	// StatusIdle means no fetch has been issued yet. It is the zero value.
	// StatusIdle 表示尚未发起任何获取，是零值。
	StatusIdle RequestStatus = iota

	// StatusLoading means a fetch is in flight.
	// StatusLoading 表示有获取正在进行。
	StatusLoading

	// StatusSucceeded means the last applied settlement was a success.
	// StatusSucceeded 表示最后应用的结算是成功的。
	StatusSucceeded

	// StatusFailed means the last applied settlement was a failure.
	// StatusFailed 表示最后应用的结算是失败的。
	StatusFailed
)

var statusNames = [...]string{"idle", "loading", "succeeded", "failed"}

// String returns the lower case name of the status.
func (s RequestStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("RequestStatus(%d)", int(s))
	}
	return statusNames[s]
}

// IsLoading reports whether a view should treat the collection as loading:
// true for idle and loading.
//
// IsLoading 报告视图是否应将集合视为加载中：idle 和 loading 时为 true。
func (s RequestStatus) IsLoading() bool {
	return s == StatusIdle || s == StatusLoading
}

// IsSettled reports whether the status is succeeded or failed.
func (s RequestStatus) IsSettled() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// MarshalText encodes the status as its name.
func (s RequestStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *RequestStatus) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = RequestStatus(i)
			return nil
		}
	}
	return fmt.Errorf("store: unknown request status %q", text)
}
