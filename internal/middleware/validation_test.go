package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type restockRequest struct {
	Name     string `json:"name" validate:"required"`
	Contact  string `json:"contact" validate:"omitempty,email"`
	Quantity int    `json:"quantity" validate:"required,gte=1,lte=1000"`
}

func decodeBody(t *testing.T, body string, v interface{}) error {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	return DecodeAndValidate(req, v)
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid payload", `{"name":"Flour 2kg","quantity":10}`, false},
		{"valid with optional email", `{"name":"Flour 2kg","contact":"buyer@example.com","quantity":10}`, false},
		{"missing required name", `{"quantity":10}`, true},
		{"missing required quantity", `{"name":"Flour 2kg"}`, true},
		{"quantity below range", `{"name":"Flour 2kg","quantity":-1}`, true},
		{"quantity above range", `{"name":"Flour 2kg","quantity":5000}`, true},
		{"malformed email", `{"name":"Flour 2kg","contact":"not-an-email","quantity":10}`, true},
		{"malformed json", `{"name":`, true},
		{"wrong field type", `{"name":"Flour 2kg","quantity":"ten"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req restockRequest
			err := decodeBody(t, tt.body, &req)
			if tt.wantErr && err == nil {
				t.Fatal("expected an error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestFormatValidationErrors_FieldMessages(t *testing.T) {
	var req restockRequest
	err := decodeBody(t, `{"contact":"not-an-email","quantity":5000}`, &req)
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	fields := FormatValidationErrors(err)
	if len(fields) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %v", len(fields), fields)
	}

	byField := map[string]string{}
	for _, fe := range fields {
		if fe.Field == "" || fe.Message == "" {
			t.Fatalf("field error missing field or message: %+v", fe)
		}
		byField[fe.Field] = fe.Message
	}

	if byField["Name"] != "This field is required" {
		t.Errorf("unexpected message for Name: %q", byField["Name"])
	}
	if byField["Contact"] != "Invalid email format" {
		t.Errorf("unexpected message for Contact: %q", byField["Contact"])
	}
	if !strings.Contains(byField["Quantity"], "less than or equal to 1000") {
		t.Errorf("unexpected message for Quantity: %q", byField["Quantity"])
	}
}

func TestFormatValidationErrors_NonValidatorErrorsYieldNil(t *testing.T) {
	var req restockRequest
	decodeErr := decodeBody(t, `{"name":`, &req)
	if decodeErr == nil {
		t.Fatal("expected a decode error")
	}

	if fields := FormatValidationErrors(decodeErr); fields != nil {
		t.Errorf("expected nil for a decode error, got %v", fields)
	}
	if fields := FormatValidationErrors(errors.New("something else")); fields != nil {
		t.Errorf("expected nil for a plain error, got %v", fields)
	}
}
