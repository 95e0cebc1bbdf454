package types

import (
	"errors"
	"fmt"
)

// Kind classifies a StatusError so callers can branch on cause without
// string matching, the way frostdb's ErrWriteRow/ErrReadRow wrap an
// underlying error behind a fixed, greppable label.
type Kind int

const (
	KindUnknown Kind = iota
	KindBadInput
	KindTabletNotFound
	KindDirNotExist
	KindCannotCreateDir
	KindVersionNotFound
	KindSelectionFailed
	KindLinkFailed
	KindConversionFailed
	KindInvalidSnapshotVersion
	KindInitFailed
	KindAllocationFailed
	KindIllegalPath
)

func (k Kind) String() string {
	switch k {
	case KindBadInput:
		return "bad_input"
	case KindTabletNotFound:
		return "tablet_not_found"
	case KindDirNotExist:
		return "dir_not_exist"
	case KindCannotCreateDir:
		return "cannot_create_dir"
	case KindVersionNotFound:
		return "version_not_found"
	case KindSelectionFailed:
		return "selection_failed"
	case KindLinkFailed:
		return "link_failed"
	case KindConversionFailed:
		return "conversion_failed"
	case KindInvalidSnapshotVersion:
		return "invalid_snapshot_version"
	case KindInitFailed:
		return "init_failed"
	case KindAllocationFailed:
		return "allocation_failed"
	case KindIllegalPath:
		return "illegal_path"
	default:
		return "unknown"
	}
}

// StatusError is the error type the Manager's operations build for their
// own failures. Two errors are passed through untagged: whatever a
// TabletSource.GetTablet implementation returns, and a failure of the
// final directory removal in ReleaseSnapshot.
type StatusError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's Kind, so callers can
// write errors.Is(err, types.ErrIllegalPath) instead of inspecting Kind.
func (e *StatusError) Is(target error) bool {
	sentinel, ok := target.(*sentinelError)
	return ok && sentinel.kind == e.Kind
}

type sentinelError struct{ kind Kind }

func (s *sentinelError) Error() string { return s.kind.String() }

// New builds a StatusError, wrapping err if present.
func New(op string, kind Kind, err error) *StatusError {
	return &StatusError{Op: op, Kind: kind, Err: err}
}

// Newf builds a StatusError from a format string, the way fmt.Errorf
// builds a wrapped error.
func Newf(op string, kind Kind, format string, args ...any) *StatusError {
	return &StatusError{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Sentinels for errors.Is comparisons against a Kind.
var (
	ErrBadInput               = &sentinelError{KindBadInput}
	ErrTabletNotFound         = &sentinelError{KindTabletNotFound}
	ErrDirNotExist            = &sentinelError{KindDirNotExist}
	ErrCannotCreateDir        = &sentinelError{KindCannotCreateDir}
	ErrVersionNotFound        = &sentinelError{KindVersionNotFound}
	ErrSelectionFailed        = &sentinelError{KindSelectionFailed}
	ErrLinkFailed             = &sentinelError{KindLinkFailed}
	ErrConversionFailed       = &sentinelError{KindConversionFailed}
	ErrInvalidSnapshotVersion = &sentinelError{KindInvalidSnapshotVersion}
	ErrInitFailed             = &sentinelError{KindInitFailed}
	ErrAllocationFailed       = &sentinelError{KindAllocationFailed}
	ErrIllegalPath            = &sentinelError{KindIllegalPath}
)

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *StatusError, defaulting to KindUnknown otherwise.
func KindOf(err error) Kind {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
