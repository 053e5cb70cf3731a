package errors

import stderrors "errors"

// IsTransport reports whether err is a bridge transport failure.
func IsTransport(err error) bool {
	return stderrors.Is(err, Transport)
}

// IsSystem reports whether err means the engine could not be invoked.
func IsSystem(err error) bool {
	return stderrors.Is(err, System)
}

// IsConfiguration reports whether err is a configuration rejection.
func IsConfiguration(err error) bool {
	return stderrors.Is(err, Configuration)
}
