package repository

import (
	"errors"
	"fmt"

	"github.com/partnerdesk/partnerdesk/internal/apperr"
	"github.com/partnerdesk/partnerdesk/internal/datastore"
)

// Domain error codes produced by the data layer. Every backend store code
// maps to exactly one of these.
const (
	CodeCollectionNotFound  = "DS_COLLECTION_NOT_FOUND"
	CodeItemNotFound        = "DS_ITEM_NOT_FOUND"
	CodeDuplicateItem       = "DS_DUPLICATE_ITEM"
	CodeItemTooLarge        = "DS_ITEM_TOO_LARGE"
	CodeInvalidItem         = "DS_INVALID_ITEM"
	CodeFieldValidation     = "DS_FIELD_VALIDATION"
	CodeInvalidQuery        = "DS_INVALID_QUERY"
	CodeInvalidPagination   = "DS_INVALID_PAGINATION"
	CodeQueryTimeout        = "DS_QUERY_TIMEOUT"
	CodeQuotaExceeded       = "DS_QUOTA_EXCEEDED"
	CodePermissionDenied    = "DS_PERMISSION_DENIED"
	CodeConflict            = "DS_CONFLICT"
	CodeReferenceIntegrity  = "DS_REFERENCE_INTEGRITY"
	CodeExternalConnection  = "DS_EXTERNAL_CONNECTION"
	CodeMultilingualField   = "DS_MULTILINGUAL_FIELD"
	CodeHookFailed          = "DS_HOOK_FAILED"
	CodeUnknown             = "DS_UNKNOWN"
)

// codeTable maps backend store codes to data-layer domain codes.
var codeTable = map[string]string{
	datastore.CodeCollectionNotFound: CodeCollectionNotFound,
	datastore.CodeItemNotFound:       CodeItemNotFound,
	datastore.CodeItemAlreadyExists:  CodeDuplicateItem,
	datastore.CodeItemTooLarge:       CodeItemTooLarge,
	datastore.CodeInvalidItem:        CodeInvalidItem,
	datastore.CodeFieldInvalid:       CodeFieldValidation,
	datastore.CodeInvalidQuery:       CodeInvalidQuery,
	datastore.CodeInvalidPagination:  CodeInvalidPagination,
	datastore.CodeQueryTimeout:       CodeQueryTimeout,
	datastore.CodeQuotaExceeded:      CodeQuotaExceeded,
	datastore.CodePermissionDenied:   CodePermissionDenied,
	datastore.CodeVersionMismatch:    CodeConflict,
	datastore.CodeReferenceBroken:    CodeReferenceIntegrity,
	datastore.CodeExternalConnection: CodeExternalConnection,
	datastore.CodeMultilingualField:  CodeMultilingualField,
	datastore.CodeHookFailed:         CodeHookFailed,
	datastore.CodeUnknown:            CodeUnknown,
}

// severityTable assigns severities by backend store code: not-found is low,
// permission and validation issues are medium, capacity and conflict issues
// are high, unclassified system failures are fatal. Everything else
// defaults to medium.
var severityTable = map[string]apperr.Severity{
	datastore.CodeItemNotFound:       apperr.SeverityLow,
	datastore.CodeCollectionNotFound: apperr.SeverityLow,
	datastore.CodePermissionDenied:   apperr.SeverityMedium,
	datastore.CodeInvalidItem:        apperr.SeverityMedium,
	datastore.CodeFieldInvalid:       apperr.SeverityMedium,
	datastore.CodeQuotaExceeded:      apperr.SeverityHigh,
	datastore.CodeQueryTimeout:       apperr.SeverityHigh,
	datastore.CodeVersionMismatch:    apperr.SeverityHigh,
	datastore.CodeUnknown:            apperr.SeverityFatal,
}

// translate wraps a store failure into the application error model. The
// collection, method and item id are embedded in the technical message for
// diagnosability. Raw store errors never cross this boundary untranslated.
func translate(err error, collection, method, itemID string) error {
	if err == nil {
		return nil
	}

	code := datastore.CodeUnknown
	var storeErr *datastore.Error
	if errors.As(err, &storeErr) {
		code = storeErr.Code
	}

	domainCode, ok := codeTable[code]
	if !ok {
		domainCode = CodeUnknown
	}
	severity, ok := severityTable[code]
	if !ok {
		severity = apperr.SeverityMedium
	}

	msg := fmt.Sprintf("datastore %s failed (collection=%s", method, collection)
	if itemID != "" {
		msg += ", item=" + itemID
	}
	msg += ")"

	return apperr.Wrap(err, apperr.CategoryDataLayer, msg).
		WithCode(domainCode).
		WithSeverity(severity).
		WithLayer(apperr.LayerRepository).
		WithContext("collection", collection).
		WithContext("method", method)
}

// isNotFound reports whether a store failure is one of the two codes
// treated as the not-found case on direct lookups.
func isNotFound(err error) bool {
	switch datastore.CodeOf(err) {
	case datastore.CodeItemNotFound, datastore.CodeCollectionNotFound:
		return true
	}
	return false
}
