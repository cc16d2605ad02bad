package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/pairline/match-server-go/internal/middleware"
	"github.com/pairline/match-server-go/internal/model"
	"github.com/pairline/match-server-go/internal/service"
)

// authedRequest builds a request carrying an authenticated user id, the
// way the auth middleware would.
func authedRequest(method, target, userID, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, userID)
	return req.WithContext(ctx)
}

type mockMatchmaker struct {
	mock.Mock
}

func (m *mockMatchmaker) Enqueue(ctx context.Context, userID string, prefs model.Preferences) (*service.EnqueueResult, error) {
	args := m.Called(ctx, userID, prefs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EnqueueResult), args.Error(1)
}

func (m *mockMatchmaker) Dequeue(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockStatusService struct {
	mock.Mock
}

func (m *mockStatusService) Status(ctx context.Context, userID string) (*model.StatusView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StatusView), args.Error(1)
}

type mockSessionService struct {
	mock.Mock
}

func (m *mockSessionService) UpdateSignal(ctx context.Context, sessionID, userID string, token *string) error {
	args := m.Called(ctx, sessionID, userID, token)
	return args.Error(0)
}

func (m *mockSessionService) PostMessage(ctx context.Context, sessionID, userID, text string) (*model.Message, error) {
	args := m.Called(ctx, sessionID, userID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *mockSessionService) ListMessages(ctx context.Context, sessionID, userID string) ([]model.Message, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *mockSessionService) EndSession(ctx context.Context, sessionID, requesterID string) error {
	args := m.Called(ctx, sessionID, requesterID)
	return args.Error(0)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, params model.UpdateProfileParams) (*model.UserRecord, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserRecord), args.Error(1)
}

func (m *mockUserService) Get(ctx context.Context, userID string) (*model.UserRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserRecord), args.Error(1)
}
