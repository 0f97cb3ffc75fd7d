package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"staybook/pkg/auth"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

type mockReservationService struct {
	createFunc       func(ctx context.Context, input *model.ReservationInput, ownerID string) (*model.Reservation, error)
	getAllFunc       func(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error)
	getByIDFunc      func(ctx context.Context, id string) (*model.Reservation, error)
	updateFunc       func(ctx context.Context, id string, update *model.ReservationUpdate) (*model.Reservation, error)
	deleteFunc       func(ctx context.Context, id string) (*model.Reservation, error)
	findByWindowFunc func(ctx context.Context, checkIn, checkOut time.Time) ([]*model.Reservation, error)
}

func (m *mockReservationService) Create(ctx context.Context, input *model.ReservationInput, ownerID string) (*model.Reservation, error) {
	return m.createFunc(ctx, input, ownerID)
}

func (m *mockReservationService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error) {
	return m.getAllFunc(ctx, limit, offset)
}

func (m *mockReservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockReservationService) Update(ctx context.Context, id string, update *model.ReservationUpdate) (*model.Reservation, error) {
	return m.updateFunc(ctx, id, update)
}

func (m *mockReservationService) Delete(ctx context.Context, id string) (*model.Reservation, error) {
	return m.deleteFunc(ctx, id)
}

func (m *mockReservationService) FindByWindow(ctx context.Context, checkIn, checkOut time.Time) ([]*model.Reservation, error) {
	return m.findByWindowFunc(ctx, checkIn, checkOut)
}

func newRouter(svc *mockReservationService) *httprouter.Router {
	router := httprouter.New()
	NewReservationHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body, owner string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req = req.WithContext(auth.WithOwner(req.Context(), owner))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Code
}

func TestCreate_UsesAuthenticatedOwner(t *testing.T) {
	var gotOwner string
	var gotInput *model.ReservationInput
	svc := &mockReservationService{
		createFunc: func(_ context.Context, input *model.ReservationInput, ownerID string) (*model.Reservation, error) {
			gotOwner, gotInput = ownerID, input
			return &model.Reservation{ID: "res-1", OwnerID: ownerID, UnitLabel: input.UnitLabel}, nil
		},
	}

	body := `{"unit_label":"Suite A","owner_id":"intruder","check_in":"2030-01-10T14:00:00Z","check_out":"2030-01-12T10:00:00Z","guest_count":1,"guests":[{"name":"A","email":"a@x.com"}]}`
	rec := serve(newRouter(svc), http.MethodPost, "/api/v1/reservations", body, "owner-1")

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotOwner != "owner-1" {
		t.Errorf("expected owner from token, got %q", gotOwner)
	}
	if len(gotInput.Guests) != 1 || gotInput.Guests[0].Email != "a@x.com" {
		t.Errorf("unexpected guests: %+v", gotInput.Guests)
	}

	var resp struct {
		Data model.Reservation `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.OwnerID != "owner-1" {
		t.Errorf("expected owner-1 in response, got %q", resp.Data.OwnerID)
	}
}

func TestCreate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "malformed body", body: `{"unit_label":`, wantStatus: http.StatusBadRequest, wantCode: apperrors.CodeInvalidInput},
		{name: "validation", body: `{}`, err: apperrors.ValidationFailed("reservation validation failed", []string{"guests must be provided"}), wantStatus: http.StatusUnprocessableEntity, wantCode: apperrors.CodeValidation},
		{name: "conflict", body: `{}`, err: apperrors.Conflict("the requested dates are already booked"), wantStatus: http.StatusConflict, wantCode: apperrors.CodeConflict},
		{name: "storage", body: `{}`, err: apperrors.Storage("write", errors.New("boom")), wantStatus: http.StatusInternalServerError, wantCode: apperrors.CodeStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockReservationService{
				createFunc: func(context.Context, *model.ReservationInput, string) (*model.Reservation, error) {
					return nil, tt.err
				},
			}

			rec := serve(newRouter(svc), http.MethodPost, "/api/v1/reservations", tt.body, "owner-1")
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
		})
	}
}

func TestGetAll_Pagination(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantStatus  int
		wantLimit   int
		wantOffset  int64
		wantService bool
	}{
		{name: "defaults", query: "", wantStatus: http.StatusOK, wantLimit: 10, wantOffset: 0, wantService: true},
		{name: "explicit", query: "?limit=5&offset=20", wantStatus: http.StatusOK, wantLimit: 5, wantOffset: 20, wantService: true},
		{name: "clamped", query: "?limit=500&offset=-3", wantStatus: http.StatusOK, wantLimit: 100, wantOffset: 0, wantService: true},
		{name: "invalid limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "invalid offset", query: "?offset=xyz", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var gotLimit int
			var gotOffset int64
			svc := &mockReservationService{
				getAllFunc: func(_ context.Context, limit int, offset int64) ([]*model.Reservation, int64, error) {
					called, gotLimit, gotOffset = true, limit, offset
					return []*model.Reservation{{ID: "res-1"}}, 42, nil
				},
			}

			rec := serve(newRouter(svc), http.MethodGet, "/api/v1/reservations"+tt.query, "", "owner-1")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if called != tt.wantService {
				t.Fatalf("service called = %v, want %v", called, tt.wantService)
			}
			if !tt.wantService {
				return
			}
			if gotLimit != tt.wantLimit || gotOffset != tt.wantOffset {
				t.Errorf("expected limit=%d offset=%d, got limit=%d offset=%d", tt.wantLimit, tt.wantOffset, gotLimit, gotOffset)
			}

			var resp struct {
				TotalCount int64 `json:"total_count"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.TotalCount != 42 {
				t.Errorf("expected total_count 42, got %d", resp.TotalCount)
			}
		})
	}
}

func TestGetByID(t *testing.T) {
	svc := &mockReservationService{
		getByIDFunc: func(_ context.Context, id string) (*model.Reservation, error) {
			if id == "res-1" {
				return &model.Reservation{ID: id}, nil
			}
			return nil, apperrors.NotFoundWithID("Reservation", id)
		},
	}
	router := newRouter(svc)

	if rec := serve(router, http.MethodGet, "/api/v1/reservations/id/res-1", "", "owner-1"); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec := serve(router, http.MethodGet, "/api/v1/reservations/id/res-2", "", "owner-1")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != apperrors.CodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", code)
	}
}

func TestUpdate(t *testing.T) {
	var gotID string
	var gotUpdate *model.ReservationUpdate
	svc := &mockReservationService{
		updateFunc: func(_ context.Context, id string, update *model.ReservationUpdate) (*model.Reservation, error) {
			gotID, gotUpdate = id, update
			return &model.Reservation{ID: id, GuestCount: *update.GuestCount}, nil
		},
	}

	rec := serve(newRouter(svc), http.MethodPatch, "/api/v1/reservations/id/res-7", `{"guest_count":3}`, "owner-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotID != "res-7" {
		t.Errorf("expected id res-7, got %q", gotID)
	}
	if gotUpdate.GuestCount == nil || *gotUpdate.GuestCount != 3 || gotUpdate.UnitLabel != nil || gotUpdate.CheckIn != nil {
		t.Errorf("unexpected update: %+v", gotUpdate)
	}
}

func TestDelete_ReturnsSnapshot(t *testing.T) {
	svc := &mockReservationService{
		deleteFunc: func(_ context.Context, id string) (*model.Reservation, error) {
			return &model.Reservation{ID: id, Guests: []model.Guest{{ID: "g-1", Name: "A"}}}, nil
		},
	}

	rec := serve(newRouter(svc), http.MethodDelete, "/api/v1/reservations/id/res-3", "", "owner-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data model.Reservation `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.ID != "res-3" || len(resp.Data.Guests) != 1 {
		t.Errorf("unexpected snapshot: %+v", resp.Data)
	}
}

func TestDelete_GuestDeletionFailed(t *testing.T) {
	svc := &mockReservationService{
		deleteFunc: func(_ context.Context, id string) (*model.Reservation, error) {
			return nil, apperrors.GuestDeletionFailed(id, errors.New("boom"))
		},
	}

	rec := serve(newRouter(svc), http.MethodDelete, "/api/v1/reservations/id/res-3", "", "owner-1")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != apperrors.CodeGuestDeletion {
		t.Errorf("expected GUEST_DELETION_FAILED, got %s", code)
	}
}

func TestFindByWindow(t *testing.T) {
	var gotIn, gotOut time.Time
	svc := &mockReservationService{
		findByWindowFunc: func(_ context.Context, checkIn, checkOut time.Time) ([]*model.Reservation, error) {
			gotIn, gotOut = checkIn, checkOut
			return []*model.Reservation{}, nil
		},
	}
	router := newRouter(svc)

	rec := serve(router, http.MethodGet, "/api/v1/reservations/window?check_in=2030-01-01T00:00:00Z&check_out=2030-02-01T00:00:00Z", "", "owner-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !gotIn.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) || !gotOut.Equal(time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected window %v - %v", gotIn, gotOut)
	}

	for _, query := range []string{"?check_in=2030-01-01T00:00:00Z", "?check_in=yesterday&check_out=2030-02-01T00:00:00Z"} {
		rec := serve(router, http.MethodGet, "/api/v1/reservations/window"+query, "", "owner-1")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %s: expected 400, got %d", query, rec.Code)
		}
	}
}
