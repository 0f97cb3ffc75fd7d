package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	apperrors "staybook/pkg/errors"
	"testing"
	"time"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperrors.ValidationFailed("invalid", []string{"a"}), http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"conflict", apperrors.Conflict("taken"), http.StatusConflict, apperrors.CodeConflict},
		{"not found", apperrors.NotFound("Reservation"), http.StatusNotFound, apperrors.CodeNotFound},
		{"guest deletion", apperrors.GuestDeletionFailed("r1", errors.New("boom")), http.StatusInternalServerError, apperrors.CodeGuestDeletion},
		{"storage", apperrors.Storage("write", errors.New("boom")), http.StatusInternalServerError, apperrors.CodeStorage},
		{"unauthorized", apperrors.Unauthorized("no token"), http.StatusUnauthorized, apperrors.CodeUnauthorized},
		{"too many requests", apperrors.TooManyRequests("slow down"), http.StatusTooManyRequests, apperrors.CodeTooManyRequest},
		{"plain error", errors.New("secret detail"), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Error == "secret detail" {
				t.Error("plain error text leaked into response")
			}
		})
	}
}

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{"", 10, 0, false},
		{"limit=25&offset=50", 25, 50, false},
		{"limit=500", 100, 0, false},
		{"limit=-3&offset=-9", 10, 0, false},
		{"limit=abc", 0, 0, true},
		{"offset=1.5", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractLimitOffset() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("ExtractLimitOffset() = (%d, %d), want (%d, %d)", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestExtractTime(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?check_in=2030-01-02T10:00:00Z&bad=yesterday", nil)

	got, err := ExtractTime(r, "check_in")
	if err != nil {
		t.Fatalf("ExtractTime() error = %v", err)
	}
	if want := time.Date(2030, 1, 2, 10, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ExtractTime() = %v, want %v", got, want)
	}

	if _, err := ExtractTime(r, "bad"); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("ExtractTime(bad) error = %v, want INVALID_INPUT", err)
	}
	if _, err := ExtractTime(r, "missing"); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("ExtractTime(missing) error = %v, want INVALID_INPUT", err)
	}
}
