package service

import (
	"errors"

	"github.com/partnerdesk/partnerdesk/internal/apperr"
	"github.com/partnerdesk/partnerdesk/internal/domain"
	"github.com/partnerdesk/partnerdesk/internal/repository"
)

// Fine-grained business-rule codes raised by the service layer.
const (
	CodeIllegalTransition = "ILLEGAL_STATUS_TRANSITION"
	CodeDuplicateMember   = "DUPLICATE_MEMBER_ID"
	CodeOrdersNotAllowed  = "ORDERS_NOT_ALLOWED"
	CodeOrderNotEditable  = "ORDER_NOT_EDITABLE"
)

func duplicateMemberError(memberID string) error {
	return apperr.Newf(apperr.CategoryBusinessRule, "member %s is already linked to a partner", memberID).
		WithCode(CodeDuplicateMember).
		WithUser("This member already has a partner account.").
		WithLayer(apperr.LayerService).
		WithContext("memberId", memberID)
}

func transitionError(cause error, from, to string) error {
	var verr domain.ValidationError
	if errors.As(cause, &verr) {
		return validationError(cause, "status")
	}
	return apperr.Wrap(cause, apperr.CategoryBusinessRule, "illegal status transition").
		WithCode(CodeIllegalTransition).
		WithUser("This status change is not allowed.").
		WithLayer(apperr.LayerService).
		WithContext("from", from).
		WithContext("to", to)
}

func validationError(cause error, label string) error {
	e := apperr.Wrap(cause, apperr.CategoryValidation, label+" failed validation").
		WithUser("The submitted " + label + " is invalid.").
		WithLayer(apperr.LayerService)

	var verrs domain.ValidationErrors
	var verr domain.ValidationError
	switch {
	case errors.As(cause, &verrs):
		for field, msg := range verrs.FieldMap() {
			e.WithContext("field:"+field, msg)
		}
	case errors.As(cause, &verr):
		e.WithContext("field:"+verr.Field, verr.Message)
	}
	return e
}

// notFoundAsError converts a data-layer item-not-found into a not-found
// application error: missing entities discovered mid-operation are errors,
// unlike direct by-id fetches.
func notFoundAsError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if apperr.RootCode(err) == repository.CodeItemNotFound {
		return apperr.Wrap(err, apperr.CategoryNotFound, entity+" "+id+" does not exist").
			WithSeverity(apperr.SeverityLow).
			WithUser("The " + entity + " no longer exists.").
			WithLayer(apperr.LayerService)
	}
	return err
}
