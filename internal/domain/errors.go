package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrNoFile          = fmt.Errorf("no file attached: %w", ErrNotFound)
	ErrNotFree         = fmt.Errorf("not a free product: %w", ErrBadRequest)
	ErrNoFileAttached  = fmt.Errorf("no file attached: %w", ErrConflict)
	ErrInvalidPayload  = fmt.Errorf("invalid payload: %w", ErrBadRequest)
)
