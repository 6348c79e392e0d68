package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/uvyne-rop/movie-watchlist/internal/app"
	"github.com/uvyne-rop/movie-watchlist/internal/config"
	"github.com/uvyne-rop/movie-watchlist/internal/crypto"
	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

const (
	ExitCodeSuccess    = 0
	ExitCodeGeneric    = 1
	ExitCodeUsage      = 2
	ExitCodeNotFound   = 3
	ExitCodePermission = 4
	ExitCodeAuthFailed = 5
	ExitCodeConflict   = 6
	ExitCodeIO         = 7
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func asExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

func mapCommandError(err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}

	switch {
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, config.ErrInvalidConfig):
		return asExitError(ExitCodeUsage, err)
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrInvalidReference):
		return asExitError(ExitCodeNotFound, err)
	case errors.Is(err, app.ErrPermissionDenied):
		return asExitError(ExitCodePermission, err)
	case errors.Is(err, app.ErrAuthFailed),
		errors.Is(err, app.ErrAuthRequired),
		errors.Is(err, crypto.ErrMalformedHash):
		return asExitError(ExitCodeAuthFailed, err)
	case errors.Is(err, app.ErrDuplicateName):
		return asExitError(ExitCodeConflict, err)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrSchemaTooNew) {
		return asExitError(ExitCodeIO, err)
	}
	return asExitError(ExitCodeGeneric, err)
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{
		Code: ExitCodeUsage,
		Err:  fmt.Errorf(format, args...),
	}
}
