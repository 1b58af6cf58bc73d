package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"memoria/internal/config"
	"memoria/internal/models"
	"memoria/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUserTestServer(mockRepo *MockUserRepository) (*Server, *fiber.App) {
	s := &Server{
		config:      &config.Config{JWTSecret: "test_secret"},
		userRepo:    mockRepo,
		userService: service.NewUserService(mockRepo),
	}
	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

func TestGetMyProfile(t *testing.T) {
	mockRepo := new(MockUserRepository)
	s, app := newUserTestServer(mockRepo)

	mockRepo.On("GetByID", mock.Anything, uint(1)).
		Return(&models.User{ID: 1, Username: "tester"}, nil)

	resp, err := app.Test(authedRequest(t, s, http.MethodGet, "/api/auth/users/me", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user models.User
	decodeBody(t, resp, &user)
	assert.Equal(t, "tester", user.Username)
}

func TestUpdateMyProfile(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(m *MockUserRepository)
		expectedStatus int
	}{
		{
			name: "Rename",
			body: map[string]string{"username": "renamed"},
			mockSetup: func(m *MockUserRepository) {
				m.On("GetByID", mock.Anything, uint(1)).
					Return(&models.User{ID: 1, Username: "tester"}, nil)
				m.On("GetByUsername", mock.Anything, "renamed").Return(nil, nil)
				m.On("Update", mock.Anything, mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Username Taken",
			body: map[string]string{"username": "taken"},
			mockSetup: func(m *MockUserRepository) {
				m.On("GetByID", mock.Anything, uint(1)).
					Return(&models.User{ID: 1, Username: "tester"}, nil)
				m.On("GetByUsername", mock.Anything, "taken").
					Return(&models.User{ID: 2, Username: "taken"}, nil)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Invalid Email",
			body: map[string]string{"email": "nope"},
			mockSetup: func(m *MockUserRepository) {
				m.On("GetByID", mock.Anything, uint(1)).
					Return(&models.User{ID: 1, Username: "tester"}, nil)
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.mockSetup(mockRepo)
			s, app := newUserTestServer(mockRepo)

			raw, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPut, "/api/auth/users/me", bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			token, err := s.generateToken(1, "tester")
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestGetAllUsers(t *testing.T) {
	mockRepo := new(MockUserRepository)
	s, app := newUserTestServer(mockRepo)

	mockRepo.On("List", mock.Anything, 20, 0).
		Return([]models.User{{ID: 1, Username: "a"}, {ID: 2, Username: "b"}}, nil)

	resp, err := app.Test(authedRequest(t, s, http.MethodGet, "/api/auth/users/", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []models.User
	decodeBody(t, resp, &users)
	assert.Len(t, users, 2)
}

func TestDeleteUserEndpoint(t *testing.T) {
	mockRepo := new(MockUserRepository)
	s, app := newUserTestServer(mockRepo)

	mockRepo.On("GetByID", mock.Anything, uint(5)).
		Return(&models.User{ID: 5, Username: "victim"}, nil)
	mockRepo.On("Delete", mock.Anything, uint(5)).Return(nil)

	resp, err := app.Test(authedRequest(t, s, http.MethodDelete, "/api/auth/users/5", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
	mockRepo.AssertCalled(t, "Delete", mock.Anything, uint(5))
}

func TestDeleteMissingUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	s, app := newUserTestServer(mockRepo)

	mockRepo.On("GetByID", mock.Anything, uint(99)).
		Return(nil, models.NewNotFoundError("User", uint(99)))

	resp, err := app.Test(authedRequest(t, s, http.MethodDelete, "/api/auth/users/99", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}
