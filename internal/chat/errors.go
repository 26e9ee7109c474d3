package chat

import "errors"

var (
	// ErrInvalidArgument marks a malformed send request. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a referenced user that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDependencyFailure marks a failed store or blob call. The send is
	// aborted with no partial state.
	ErrDependencyFailure = errors.New("dependency failure")
)
