package repository

import (
	"errors"
	"testing"

	"github.com/partnerdesk/partnerdesk/internal/apperr"
	"github.com/partnerdesk/partnerdesk/internal/datastore"
)

func storeErr(code string) error {
	return &datastore.Error{Code: code, Collection: "partners", Op: "insert"}
}

func TestTranslateCodeMapping(t *testing.T) {
	tests := []struct {
		storeCode  string
		domainCode string
	}{
		{datastore.CodeItemNotFound, CodeItemNotFound},
		{datastore.CodeCollectionNotFound, CodeCollectionNotFound},
		{datastore.CodeItemAlreadyExists, CodeDuplicateItem},
		{datastore.CodeItemTooLarge, CodeItemTooLarge},
		{datastore.CodeInvalidItem, CodeInvalidItem},
		{datastore.CodeFieldInvalid, CodeFieldValidation},
		{datastore.CodeInvalidQuery, CodeInvalidQuery},
		{datastore.CodeInvalidPagination, CodeInvalidPagination},
		{datastore.CodeQueryTimeout, CodeQueryTimeout},
		{datastore.CodeQuotaExceeded, CodeQuotaExceeded},
		{datastore.CodePermissionDenied, CodePermissionDenied},
		{datastore.CodeVersionMismatch, CodeConflict},
		{datastore.CodeReferenceBroken, CodeReferenceIntegrity},
		{datastore.CodeExternalConnection, CodeExternalConnection},
		{datastore.CodeUnknown, CodeUnknown},
	}
	for _, tt := range tests {
		err := translate(storeErr(tt.storeCode), "partners", "create", "")
		e := apperr.From(err)
		if e == nil {
			t.Fatalf("%s: expected *apperr.Error", tt.storeCode)
		}
		if e.Category != apperr.CategoryDataLayer {
			t.Errorf("%s: category = %q", tt.storeCode, e.Category)
		}
		if e.Code != tt.domainCode {
			t.Errorf("%s: code = %q, want %q", tt.storeCode, e.Code, tt.domainCode)
		}
	}
}

func TestTranslateSeverities(t *testing.T) {
	tests := []struct {
		storeCode string
		severity  apperr.Severity
	}{
		{datastore.CodeItemNotFound, apperr.SeverityLow},
		{datastore.CodeCollectionNotFound, apperr.SeverityLow},
		{datastore.CodePermissionDenied, apperr.SeverityMedium},
		{datastore.CodeInvalidItem, apperr.SeverityMedium},
		{datastore.CodeFieldInvalid, apperr.SeverityMedium},
		{datastore.CodeQuotaExceeded, apperr.SeverityHigh},
		{datastore.CodeQueryTimeout, apperr.SeverityHigh},
		{datastore.CodeVersionMismatch, apperr.SeverityHigh},
		{datastore.CodeUnknown, apperr.SeverityFatal},
		// Codes without an explicit severity default to medium.
		{datastore.CodeItemAlreadyExists, apperr.SeverityMedium},
		{datastore.CodeReferenceBroken, apperr.SeverityMedium},
	}
	for _, tt := range tests {
		e := apperr.From(translate(storeErr(tt.storeCode), "partners", "create", ""))
		if e.Severity != tt.severity {
			t.Errorf("%s: severity = %q, want %q", tt.storeCode, e.Severity, tt.severity)
		}
	}
}

func TestTranslateEmbedsLocation(t *testing.T) {
	err := translate(storeErr(datastore.CodeItemNotFound), "partners", "update", "p-1")
	e := apperr.From(err)
	if e.Context["collection"] != "partners" || e.Context["method"] != "update" {
		t.Errorf("Context = %v", e.Context)
	}
	want := "datastore update failed (collection=partners, item=p-1)"
	if e.Message != want {
		t.Errorf("Message = %q, want %q", e.Message, want)
	}
	// The raw store error stays reachable for diagnostics.
	var se *datastore.Error
	if !errors.As(err, &se) {
		t.Error("store error not preserved in the chain")
	}
}

func TestTranslateUnrecognizedError(t *testing.T) {
	e := apperr.From(translate(errors.New("socket closed"), "partners", "query", ""))
	if e.Code != CodeUnknown {
		t.Errorf("code = %q, want unknown", e.Code)
	}
	if e.Severity != apperr.SeverityFatal {
		t.Errorf("severity = %q, want fatal", e.Severity)
	}
}

func TestTranslateNil(t *testing.T) {
	if err := translate(nil, "partners", "create", ""); err != nil {
		t.Errorf("translate(nil) = %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(storeErr(datastore.CodeItemNotFound)) {
		t.Error("ITEM_NOT_FOUND must be a not-found case")
	}
	if !isNotFound(storeErr(datastore.CodeCollectionNotFound)) {
		t.Error("COLLECTION_NOT_FOUND must be a not-found case")
	}
	if isNotFound(storeErr(datastore.CodeQuotaExceeded)) {
		t.Error("QUOTA_EXCEEDED is not a not-found case")
	}
	if isNotFound(errors.New("plain")) {
		t.Error("plain errors are not a not-found case")
	}
}
