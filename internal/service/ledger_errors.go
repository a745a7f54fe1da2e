package service

import (
	"errors"

	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

// internalError keeps typed errors raised inside a transaction and wraps anything else.
func internalError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return appErrors.Code(err)
}
