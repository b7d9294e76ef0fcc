package request

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type joinBody struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Status string `json:"status" validate:"omitempty,oneof=closed cancelled"`
}

func TestReadAndValidate(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   string
		wantField string
	}{
		{name: "valid", body: `{"user_id": 4}`},
		{name: "empty", body: ``, wantErr: "request body is empty"},
		{name: "malformed", body: `{"user_id": `, wantErr: "malformed JSON"},
		{name: "unknown field", body: `{"user_id": 4, "seat": 2}`, wantErr: `unknown field "seat"`},
		{name: "wrong type", body: `{"user_id": "four"}`, wantErr: "invalid JSON type for field user_id"},
		{name: "missing", body: `{}`, wantField: "user_id"},
		{name: "bad enum", body: `{"user_id": 4, "status": "open"}`, wantField: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var dst joinBody
			err := ReadAndValidate(w, r, &dst)

			switch {
			case tt.wantErr != "":
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
			case tt.wantField != "":
				var valErr *ValidationError
				if !errors.As(err, &valErr) {
					t.Fatalf("err = %v, want ValidationError", err)
				}
				if valErr.Details[0].Field != tt.wantField {
					t.Fatalf("field = %s, want %s", valErr.Details[0].Field, tt.wantField)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestHandleErrorWritesValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	handled := HandleError(w, Validate(&joinBody{}))
	if !handled || w.Code != http.StatusBadRequest {
		t.Fatalf("handled=%v code=%d", handled, w.Code)
	}
	if !strings.Contains(w.Body.String(), `"VALIDATION_FAILED"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
