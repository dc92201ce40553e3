package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/model"
	"go-inventory-sales/internal/ws"
	"go-inventory-sales/pkg/validator"
)

// EventPublisher receives best-effort live notifications.
type EventPublisher interface {
	Publish(event ws.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(ws.Event) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	UserID   uuid.UUID  `json:"id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// Authorize fails with an authorization error unless the identity holds the required role.
func Authorize(identity Identity, required model.Role) error {
	if !identity.Role.Satisfies(required) {
		return apperror.Authorization(fmt.Sprintf("Forbidden: requires '%s' role", required))
	}
	return nil
}

// validateRequest runs struct validation and reports every failed field.
func validateRequest(req interface{}) error {
	errs := validator.ValidateStruct(req)
	if len(errs) == 0 {
		return nil
	}

	fields := make([]apperror.FieldError, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, apperror.FieldError{Field: e.FailedField, Tag: e.Tag, Param: e.Value})
	}
	first := errs[0]
	msg := fmt.Sprintf("Validation failed: Field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	return apperror.Validation(msg, fields...)
}

// notFoundAs replaces a missing-row error with a NotFound carrying a resource specific message.
func notFoundAs(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(message)
	}
	return apperror.FromDB(err)
}
