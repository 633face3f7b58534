package node

import "errors"

var (
	// ErrOperationInProgress is returned when a deploy or uninstall arrives
	// while another one is still running on the same node.
	ErrOperationInProgress = errors.New("another deploy or uninstall is in progress")

	// ErrServiceCallsUnsupported is returned for service calls and token
	// requests on kinds without an identity provider.
	ErrServiceCallsUnsupported = errors.New("node kind does not support service calls")
)
