package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"storymapper/api/internal/ordering"
	"storymapper/api/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func notFoundError(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

func validationError(message string, details any) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION", message, details)
}

func conflictError(message string) *DomainError {
	return domainError(http.StatusConflict, "CONFLICT", message, nil)
}

func unauthorizedError(message string) *DomainError {
	return domainError(http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

// accessDeniedError covers requesters with no standing on the story map
// at all; permissionDeniedError covers members whose role is too low.
func accessDeniedError() *DomainError {
	return domainError(http.StatusForbidden, "ACCESS_DENIED", "no access to this story map", nil)
}

func permissionDeniedError(action string) *DomainError {
	return domainError(http.StatusForbidden, "PERMISSION_DENIED", "role does not allow "+action, nil)
}

// translateStoreError maps storage failures onto domain errors. Unknown
// errors pass through for the transport layer to report as 500s.
func translateStoreError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundError(entity + " not found")
	}
	if errors.Is(err, store.ErrUnassignedReleaseMissing) {
		return domainError(http.StatusConflict, "INVARIANT", err.Error(), nil)
	}
	if errors.Is(err, ordering.ErrTargetNotFound) {
		return notFoundError(entity + " not found")
	}
	var bounds *ordering.BoundsError
	if errors.As(err, &bounds) {
		return validationError(bounds.Error(), map[string]any{"max": bounds.Max})
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return conflictError(entity + " already exists")
		case "23503":
			return validationError("referenced entity does not exist", nil)
		}
	}
	return err
}
