package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamclerk/internal/apperror"
	"dreamclerk/internal/domain"
	"dreamclerk/internal/middleware"
	"dreamclerk/internal/service"
)

type fakeRegistrar struct {
	registered  []service.RegisterRequest
	adminReq    *service.CreateAdminRequest
	updated     *service.UpdateProfileRequest
	signup      *domain.SignupResult
	login       *service.LoginResult
	stats       *domain.RegistrationStats
	err         error
	profileUser string
}

func (f *fakeRegistrar) Register(ctx context.Context, req service.RegisterRequest) (*domain.SignupResult, error) {
	f.registered = append(f.registered, req)
	return f.signup, f.err
}

func (f *fakeRegistrar) AtomicRegister(ctx context.Context, req service.RegisterRequest) (*domain.SignupResult, error) {
	f.registered = append(f.registered, req)
	return f.signup, f.err
}

func (f *fakeRegistrar) CreateAdmin(ctx context.Context, req service.CreateAdminRequest) (*domain.SignupResult, error) {
	f.adminReq = &req
	return f.signup, f.err
}

func (f *fakeRegistrar) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	return f.login, f.err
}

func (f *fakeRegistrar) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	f.profileUser = userID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.UserProfile{ID: userID, Name: "Ada"}, nil
}

func (f *fakeRegistrar) UpdateProfile(ctx context.Context, userID string, req service.UpdateProfileRequest) (*domain.UserProfile, error) {
	f.profileUser = userID
	f.updated = &req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.UserProfile{ID: userID, Name: *req.Name}, nil
}

func (f *fakeRegistrar) Stats(ctx context.Context) (*domain.RegistrationStats, error) {
	return f.stats, f.err
}

func postJSON(url, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAccountHandler_Register(t *testing.T) {
	accounts := &fakeRegistrar{signup: &domain.SignupResult{
		Profile: &domain.UserProfile{ID: "u1", Name: "Ada", Role: domain.RoleStudent},
		Steps: []domain.StepResult{
			{Step: domain.StepAuthUser},
			{Step: domain.StepProfile},
			{Step: domain.StepRegistration, Err: errors.New("timeout")},
		},
		Degraded: true,
	}}
	h := NewAccountHandler(accounts, testLogger())

	rr := httptest.NewRecorder()
	h.HandleRegister(rr, postJSON("/api/auth/register", `{"email":"ada@example.com","password":"correct-horse","name":"Ada"}`))

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "timeout")

	var res signupResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.True(t, res.Success)
	assert.True(t, res.Degraded)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, []stepView{
		{Step: domain.StepAuthUser, OK: true},
		{Step: domain.StepProfile, OK: true},
		{Step: domain.StepRegistration, OK: false},
	}, res.Steps)

	require.Len(t, accounts.registered, 1)
	assert.Equal(t, "ada@example.com", accounts.registered[0].Email)
}

func TestAccountHandler_RegisterErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		kind   string
	}{
		{
			name:   "malformed body",
			body:   `{"email":`,
			status: http.StatusBadRequest,
			kind:   "validation_error",
		},
		{
			name: "field errors",
			body: `{}`,
			err: apperror.InvalidFields([]apperror.FieldError{
				{Field: "email", Message: "email is a required field"},
			}),
			status: http.StatusBadRequest,
			kind:   "validation_error",
		},
		{
			name:   "duplicate email",
			body:   `{"email":"ada@example.com"}`,
			err:    apperror.Conflict("email already exists"),
			status: http.StatusConflict,
			kind:   "conflict",
		},
		{
			name:   "critical step failed",
			body:   `{"email":"ada@example.com"}`,
			err:    apperror.Persistence("create profile", errors.New("pq: deadlock detected")),
			status: http.StatusInternalServerError,
			kind:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAccountHandler(&fakeRegistrar{err: tt.err}, testLogger())

			rr := httptest.NewRecorder()
			h.HandleAtomicRegister(rr, postJSON("/api/auth/atomic-register", tt.body))

			assert.Equal(t, tt.status, rr.Code)
			assert.NotContains(t, rr.Body.String(), "deadlock")
			assert.Equal(t, tt.kind, decodeError(t, rr).Error)
		})
	}
}

func TestAccountHandler_RegisterValidationFields(t *testing.T) {
	err := apperror.InvalidFields([]apperror.FieldError{
		{Field: "email", Message: "email must be a valid email address"},
		{Field: "password", Message: "password must be at least 8 characters in length"},
	})
	h := NewAccountHandler(&fakeRegistrar{err: err}, testLogger())

	rr := httptest.NewRecorder()
	h.HandleRegister(rr, postJSON("/api/auth/register", `{"email":"x"}`))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	res := decodeError(t, rr)
	assert.Equal(t, "request validation failed", res.Message)
	require.Len(t, res.Fields, 2)
	assert.Equal(t, "password", res.Fields[1].Field)
}

func TestAccountHandler_CreateAdmin(t *testing.T) {
	t.Run("secret travels in the body", func(t *testing.T) {
		accounts := &fakeRegistrar{signup: &domain.SignupResult{Profile: &domain.UserProfile{Role: domain.RoleAdmin}}}
		h := NewAccountHandler(accounts, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCreateAdmin(rr, postJSON("/api/auth/create-admin", `{"email":"root@example.com","password":"correct-horse","name":"Root","secret":"s3"}`))

		require.Equal(t, http.StatusCreated, rr.Code)
		require.NotNil(t, accounts.adminReq)
		assert.Equal(t, "s3", accounts.adminReq.Secret)
		assert.Equal(t, "root@example.com", accounts.adminReq.Email)
	})

	t.Run("denied", func(t *testing.T) {
		h := NewAccountHandler(&fakeRegistrar{err: apperror.Unauthorized("unauthorized")}, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCreateAdmin(rr, postJSON("/api/auth/create-admin", `{"secret":"wrong"}`))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, ErrorResponse{Error: "unauthorized", Message: "unauthorized"}, decodeError(t, rr))
	})

	t.Run("unreadable body never reaches the service", func(t *testing.T) {
		accounts := &fakeRegistrar{}
		h := NewAccountHandler(accounts, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCreateAdmin(rr, postJSON("/api/auth/create-admin", `not json`))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, accounts.adminReq)
	})
}

func TestAccountHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		accounts := &fakeRegistrar{login: &service.LoginResult{Token: "jwt", Profile: &domain.UserProfile{ID: "u1"}}}
		h := NewAccountHandler(accounts, testLogger())

		rr := httptest.NewRecorder()
		h.HandleLogin(rr, postJSON("/api/auth/login", `{"email":"ada@example.com","password":"pw"}`))

		require.Equal(t, http.StatusOK, rr.Code)
		var res service.LoginResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "jwt", res.Token)
	})

	t.Run("bad credentials", func(t *testing.T) {
		h := NewAccountHandler(&fakeRegistrar{err: apperror.Unauthorized("invalid email or password")}, testLogger())

		rr := httptest.NewRecorder()
		h.HandleLogin(rr, postJSON("/api/auth/login", `{"email":"ada@example.com","password":"pw"}`))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "invalid email or password", decodeError(t, rr).Message)
	})
}

func TestAccountHandler_Profile(t *testing.T) {
	t.Run("no user in context", func(t *testing.T) {
		accounts := &fakeRegistrar{}
		h := NewAccountHandler(accounts, testLogger())

		rr := httptest.NewRecorder()
		h.HandleGetProfile(rr, httptest.NewRequest(http.MethodGet, "/api/profile", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, accounts.profileUser)
	})

	t.Run("get", func(t *testing.T) {
		accounts := &fakeRegistrar{}
		h := NewAccountHandler(accounts, testLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req = req.WithContext(middleware.WithUserID(req.Context(), "u1"))
		rr := httptest.NewRecorder()
		h.HandleGetProfile(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "u1", accounts.profileUser)
	})

	t.Run("update", func(t *testing.T) {
		accounts := &fakeRegistrar{}
		h := NewAccountHandler(accounts, testLogger())

		req := httptest.NewRequest(http.MethodPut, "/api/profile", bytes.NewBufferString(`{"name":"Ada King","interests":["maths"]}`))
		req = req.WithContext(middleware.WithUserID(req.Context(), "u1"))
		rr := httptest.NewRecorder()
		h.HandleUpdateProfile(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, accounts.updated)
		assert.Equal(t, []string{"maths"}, accounts.updated.Interests)
		assert.Nil(t, accounts.updated.College)

		var got domain.UserProfile
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "Ada King", got.Name)
	})
}

func TestAccountHandler_Stats(t *testing.T) {
	accounts := &fakeRegistrar{stats: &domain.RegistrationStats{
		Total:    7,
		Recent:   2,
		ByStatus: map[domain.RegistrationStatus]int64{domain.RegistrationActive: 7},
		Counter:  domain.ReconcileResult{PreviousCount: 5, NewCount: 7, Changed: true},
	}}
	h := NewAccountHandler(accounts, testLogger())

	rr := httptest.NewRecorder()
	h.HandleStats(rr, httptest.NewRequest(http.MethodGet, "/api/registrations/stats", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"total": 7,
		"recent": 2,
		"byStatus": {"active": 7},
		"counter": {"previousCount": 5, "newCount": 7, "changed": true}
	}`, rr.Body.String())
}
