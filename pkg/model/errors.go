package model

import "errors"

// Sentinel error kinds, matched via errors.Is/errors.As at call sites.
var (
	// ErrPermissionDenied means the caller lacks privilege to read a kernel
	// table or attach a probe.
	ErrPermissionDenied = errors.New("model: permission denied")

	// ErrNotSupported means a backend is unavailable on the current host.
	ErrNotSupported = errors.New("model: backend not supported")

	// ErrCollectionFailed means a top-level read of a kernel/proc table failed.
	ErrCollectionFailed = errors.New("model: collection failed")

	// ErrResourceUnavailable means a bounded channel is full beyond its
	// safety threshold.
	ErrResourceUnavailable = errors.New("model: resource unavailable")

	// ErrSignatureLoad means one or more signature regexes failed to compile.
	ErrSignatureLoad = errors.New("model: signature load failed")

	// ErrStorage means a persistence call failed.
	ErrStorage = errors.New("model: storage error")

	// ErrConfigInvalid means a malformed protection config was supplied.
	ErrConfigInvalid = errors.New("model: invalid config")

	// ErrBackendUnavailable means every collector backend failed to start.
	ErrBackendUnavailable = errors.New("model: no collector backend available")
)
