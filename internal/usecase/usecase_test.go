package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"go-brokerage-backend/internal/domain"
	"go-brokerage-backend/internal/usecase"
	"go-brokerage-backend/pkg/apperror"
	"go-brokerage-backend/pkg/auth"
	"go-brokerage-backend/pkg/password"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock Repositories
type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) Update(ctx context.Context, email string, changes domain.Answers, updatedAt *time.Time) error {
	return m.Called(ctx, email, changes, updatedAt).Error(0)
}

func (m *MockProfileRepo) MergeExternalAccount(ctx context.Context, email, accountID string, snapshot map[string]any) error {
	return m.Called(ctx, email, accountID, snapshot).Error(0)
}

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) GetAccount(ctx context.Context) (*domain.BrokerageAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BrokerageAccount), args.Error(1)
}

func (m *MockBroker) rawCall(args mock.Arguments) (json.RawMessage, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockBroker) GetPositions(ctx context.Context) (json.RawMessage, error) {
	return m.rawCall(m.Called(ctx))
}
func (m *MockBroker) GetPortfolioHistory(ctx context.Context, period, timeframe string) (json.RawMessage, error) {
	return m.rawCall(m.Called(ctx, period, timeframe))
}
func (m *MockBroker) GetWatchlists(ctx context.Context) (json.RawMessage, error) {
	return m.rawCall(m.Called(ctx))
}
func (m *MockBroker) GetSnapshot(ctx context.Context, symbol string) (json.RawMessage, error) {
	return m.rawCall(m.Called(ctx, symbol))
}
func (m *MockBroker) GetBars(ctx context.Context, symbol string, q domain.BarsQuery) (json.RawMessage, error) {
	return m.rawCall(m.Called(ctx, symbol, q))
}
func (m *MockBroker) SearchAssets(ctx context.Context, search string) (json.RawMessage, error) {
	return m.rawCall(m.Called(ctx, search))
}
func (m *MockBroker) PlaceOrder(ctx context.Context, order json.RawMessage) (json.RawMessage, error) {
	return m.rawCall(m.Called(ctx, order))
}
func (m *MockBroker) ListOrders(ctx context.Context, status string) (json.RawMessage, error) {
	return m.rawCall(m.Called(ctx, status))
}
func (m *MockBroker) GetOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	return m.rawCall(m.Called(ctx, orderID))
}

func testTokens() *auth.TokenService {
	return auth.NewTokenService("test-secret", time.Hour)
}

func TestRegister(t *testing.T) {
	validate := validator.New()

	t.Run("Should hash credential and redact it from the result", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(mockRepo, validate)

		var stored *domain.Profile
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Profile")).Return(nil).Run(func(args mock.Arguments) {
			stored = args.Get(1).(*domain.Profile)
		})

		profile, err := uc.Register(context.Background(), &domain.RegisterRequest{
			Email:    "Trader@Example.COM",
			Password: "hunter22",
			Answers:  domain.Answers{"experience": "beginner", "assets": []any{"stocks"}},
		})

		require.NoError(t, err)
		assert.Equal(t, "trader@example.com", profile.Email)
		assert.Empty(t, profile.CredentialHash)

		require.NotNil(t, stored)
		assert.NotEmpty(t, stored.CredentialHash)
		assert.NotEqual(t, "hunter22", stored.CredentialHash)
		ok, verr := password.Verify("hunter22", stored.CredentialHash)
		require.NoError(t, verr)
		assert.True(t, ok)
	})

	t.Run("Should strip credential echoes from answers", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(mockRepo, validate)

		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Profile")).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(1).(*domain.Profile)
			assert.NotContains(t, p.Answers, "password")
			assert.NotContains(t, p.Answers, "userId")
		})

		_, err := uc.Register(context.Background(), &domain.RegisterRequest{
			Email:    "trader@example.com",
			Password: "hunter22",
			Answers:  domain.Answers{"userId": "trader@example.com", "password": "hunter22", "goal": "growth"},
		})
		require.NoError(t, err)
	})

	t.Run("Should surface Conflict for duplicate email", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(mockRepo, validate)

		mockRepo.On("Create", mock.Anything, mock.Anything).Return(apperror.Conflict("User already exists"))

		_, err := uc.Register(context.Background(), &domain.RegisterRequest{
			Email:    "trader@example.com",
			Password: "hunter22",
		})
		require.Error(t, err)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusConflict, appErr.Code)
	})

	t.Run("Should reject a short password before touching the store", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(mockRepo, validate)

		_, err := uc.Register(context.Background(), &domain.RegisterRequest{
			Email:    "trader@example.com",
			Password: "short",
		})
		require.Error(t, err)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("Should reject unrecognized answer keys", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(mockRepo, validate)

		_, err := uc.Register(context.Background(), &domain.RegisterRequest{
			Email:    "trader@example.com",
			Password: "hunter22",
			Answers:  domain.Answers{"totallyBogus": true},
		})
		require.Error(t, err)
		mockRepo.AssertNotCalled(t, "Create")
	})
}

func TestProfileUpdate(t *testing.T) {
	validate := validator.New()

	t.Run("Should merge changes and return the refreshed redacted profile", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(mockRepo, validate)

		mockRepo.On("Update", mock.Anything, "trader@example.com", mock.Anything, (*time.Time)(nil)).Return(nil)
		mockRepo.On("GetByEmail", mock.Anything, "trader@example.com").Return(&domain.Profile{
			Email:          "trader@example.com",
			CredentialHash: "$2a$10$somethingsecret",
			Answers:        domain.Answers{"goal": "income"},
		}, nil)

		profile, err := uc.Update(context.Background(), "Trader@Example.com", domain.Answers{"goal": "income"})
		require.NoError(t, err)
		assert.Empty(t, profile.CredentialHash)
		assert.Equal(t, "income", profile.Answers["goal"])
		mockRepo.AssertExpectations(t)
	})

	t.Run("Should pass the client updatedAt override through", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(mockRepo, validate)

		want := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
		mockRepo.On("Update", mock.Anything, "trader@example.com", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			ts := args.Get(3).(*time.Time)
			require.NotNil(t, ts)
			assert.True(t, ts.Equal(want))
		})
		mockRepo.On("GetByEmail", mock.Anything, "trader@example.com").Return(&domain.Profile{Email: "trader@example.com"}, nil)

		_, err := uc.Update(context.Background(), "trader@example.com", domain.Answers{
			"goal":      "growth",
			"updatedAt": want.Format(time.RFC3339),
		})
		require.NoError(t, err)
	})

	t.Run("Should propagate NotFound for a missing profile", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(mockRepo, validate)

		mockRepo.On("Update", mock.Anything, "ghost@example.com", mock.Anything, (*time.Time)(nil)).Return(apperror.NotFound("User not found"))

		_, err := uc.Update(context.Background(), "ghost@example.com", domain.Answers{"goal": "growth"})
		require.Error(t, err)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusNotFound, appErr.Code)
	})

	t.Run("Should reject an empty change set", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		uc := usecase.NewProfileUsecase(mockRepo, validate)

		_, err := uc.Update(context.Background(), "trader@example.com", domain.Answers{})
		require.Error(t, err)
		mockRepo.AssertNotCalled(t, "Update")
	})
}

func TestLoginUniformFailures(t *testing.T) {
	hash, err := password.Hash("hunter22")
	require.NoError(t, err)

	cases := []struct {
		name    string
		profile *domain.Profile
		pw      string
	}{
		{"unknown email", nil, "hunter22"},
		{"profile without credential", &domain.Profile{Email: "trader@example.com"}, "hunter22"},
		{"wrong password", &domain.Profile{Email: "trader@example.com", CredentialHash: hash}, "wrong-password"},
	}

	var messages []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := new(MockProfileRepo)
			if tc.profile == nil {
				mockRepo.On("GetByEmail", mock.Anything, "trader@example.com").Return(nil, nil)
			} else {
				mockRepo.On("GetByEmail", mock.Anything, "trader@example.com").Return(tc.profile, nil)
			}
			uc := usecase.NewAuthUsecase(mockRepo, testTokens())

			_, _, err := uc.Login(context.Background(), "trader@example.com", tc.pw)
			require.Error(t, err)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, http.StatusUnauthorized, appErr.Code)
			messages = append(messages, appErr.Message)
		})
	}

	// Every failure mode must answer with the exact same message.
	for _, msg := range messages {
		assert.Equal(t, messages[0], msg)
	}
}

func TestLoginSuccess(t *testing.T) {
	hash, err := password.Hash("hunter22")
	require.NoError(t, err)

	mockRepo := new(MockProfileRepo)
	mockRepo.On("GetByEmail", mock.Anything, "trader@example.com").Return(&domain.Profile{
		Email:          "trader@example.com",
		CredentialHash: hash,
		Answers:        domain.Answers{"goal": "growth"},
	}, nil)

	tokens := testTokens()
	uc := usecase.NewAuthUsecase(mockRepo, tokens)

	profile, token, err := uc.Login(context.Background(), "Trader@Example.COM", "hunter22")
	require.NoError(t, err)
	assert.Empty(t, profile.CredentialHash)
	assert.Equal(t, "trader@example.com", profile.Email)

	subject, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "trader@example.com", subject)
}

func TestLinking(t *testing.T) {
	t.Run("Should merge the provisioned account and report Linked", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		mockBroker := new(MockBroker)
		uc := usecase.NewLinkingUsecase(mockRepo, mockBroker)

		accountID := "acct-123"
		snapshot := map[string]any{"id": accountID, "status": "ACTIVE"}
		mockRepo.On("GetByEmail", mock.Anything, "trader@example.com").Return(&domain.Profile{Email: "trader@example.com"}, nil).Once()
		mockBroker.On("GetAccount", mock.Anything).Return(&domain.BrokerageAccount{ID: accountID, Snapshot: snapshot}, nil)
		mockRepo.On("MergeExternalAccount", mock.Anything, "trader@example.com", accountID, snapshot).Return(nil)
		mockRepo.On("GetByEmail", mock.Anything, "trader@example.com").Return(&domain.Profile{
			Email:           "trader@example.com",
			AccountID:       &accountID,
			AccountSnapshot: snapshot,
		}, nil)

		result, err := uc.Link(context.Background(), "trader@example.com")
		require.NoError(t, err)
		assert.Equal(t, domain.LinkStateLinked, result.State)
		assert.Equal(t, accountID, result.AccountID)
		assert.True(t, result.Profile.Linked())
		mockRepo.AssertExpectations(t)
	})

	t.Run("Should be idempotent for an already-linked profile", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		mockBroker := new(MockBroker)
		uc := usecase.NewLinkingUsecase(mockRepo, mockBroker)

		accountID := "acct-123"
		linked := &domain.Profile{Email: "trader@example.com", AccountID: &accountID}
		mockRepo.On("GetByEmail", mock.Anything, "trader@example.com").Return(linked, nil)
		mockBroker.On("GetAccount", mock.Anything).Return(&domain.BrokerageAccount{ID: accountID, Snapshot: map[string]any{"id": accountID}}, nil)
		mockRepo.On("MergeExternalAccount", mock.Anything, "trader@example.com", accountID, mock.Anything).Return(nil)

		result, err := uc.Link(context.Background(), "trader@example.com")
		require.NoError(t, err)
		assert.Equal(t, domain.LinkStateLinked, result.State)
		// The merge is an upsert keyed by email; a second link never adds a row.
		mockRepo.AssertNumberOfCalls(t, "MergeExternalAccount", 1)
	})

	t.Run("Should treat upstream failure as non-fatal", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		mockBroker := new(MockBroker)
		uc := usecase.NewLinkingUsecase(mockRepo, mockBroker)

		mockRepo.On("GetByEmail", mock.Anything, "trader@example.com").Return(&domain.Profile{Email: "trader@example.com"}, nil)
		mockBroker.On("GetAccount", mock.Anything).Return(nil, apperror.Upstream("Brokerage account fetch failed", errors.New("503 from upstream")))

		result, err := uc.Link(context.Background(), "trader@example.com")
		require.NoError(t, err)
		assert.Equal(t, domain.LinkStateProvisionFailed, result.State)
		assert.NotEmpty(t, result.FailureReason)
		require.NotNil(t, result.Profile)
		assert.False(t, result.Profile.Linked())
		mockRepo.AssertNotCalled(t, "MergeExternalAccount")
	})

	t.Run("Should refuse to provision without an existing profile", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		mockBroker := new(MockBroker)
		uc := usecase.NewLinkingUsecase(mockRepo, mockBroker)

		mockRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

		_, err := uc.Link(context.Background(), "ghost@example.com")
		require.Error(t, err)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusNotFound, appErr.Code)
		mockBroker.AssertNotCalled(t, "GetAccount")
	})

	t.Run("Should propagate store failure after successful provisioning", func(t *testing.T) {
		mockRepo := new(MockProfileRepo)
		mockBroker := new(MockBroker)
		uc := usecase.NewLinkingUsecase(mockRepo, mockBroker)

		mockRepo.On("GetByEmail", mock.Anything, "trader@example.com").Return(&domain.Profile{Email: "trader@example.com"}, nil)
		mockBroker.On("GetAccount", mock.Anything).Return(&domain.BrokerageAccount{ID: "acct-123"}, nil)
		mockRepo.On("MergeExternalAccount", mock.Anything, "trader@example.com", "acct-123", mock.Anything).Return(errors.New("connection reset"))

		_, err := uc.Link(context.Background(), "trader@example.com")
		require.Error(t, err)
	})
}

func TestTradingFallbacks(t *testing.T) {
	upstreamDown := apperror.Upstream("Brokerage request failed", errors.New("timeout"))

	t.Run("Account degrades to demo data", func(t *testing.T) {
		mockBroker := new(MockBroker)
		mockBroker.On("GetAccount", mock.Anything).Return(nil, upstreamDown)
		uc := usecase.NewTradingUsecase(mockBroker)

		raw, err := uc.Account(context.Background())
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(raw, &payload))
		assert.Equal(t, true, payload["demo"])
	})

	t.Run("Positions degrade to demo data", func(t *testing.T) {
		mockBroker := new(MockBroker)
		mockBroker.On("GetPositions", mock.Anything).Return(nil, upstreamDown)
		uc := usecase.NewTradingUsecase(mockBroker)

		raw, err := uc.Positions(context.Background())
		require.NoError(t, err)
		assert.True(t, json.Valid(raw))
	})

	t.Run("Order list degrades to demo data", func(t *testing.T) {
		mockBroker := new(MockBroker)
		mockBroker.On("ListOrders", mock.Anything, "all").Return(nil, upstreamDown)
		uc := usecase.NewTradingUsecase(mockBroker)

		raw, err := uc.Orders(context.Background(), "all")
		require.NoError(t, err)
		assert.True(t, json.Valid(raw))
	})

	t.Run("Quote surfaces the upstream failure", func(t *testing.T) {
		mockBroker := new(MockBroker)
		mockBroker.On("GetSnapshot", mock.Anything, "AAPL").Return(nil, upstreamDown)
		uc := usecase.NewTradingUsecase(mockBroker)

		_, err := uc.Quote(context.Background(), "AAPL")
		require.Error(t, err)
	})

	t.Run("Order placement surfaces the upstream failure", func(t *testing.T) {
		mockBroker := new(MockBroker)
		order := json.RawMessage(`{"symbol":"AAPL","qty":1,"side":"buy"}`)
		mockBroker.On("PlaceOrder", mock.Anything, order).Return(nil, upstreamDown)
		uc := usecase.NewTradingUsecase(mockBroker)

		_, err := uc.PlaceOrder(context.Background(), order)
		require.Error(t, err)
	})

	t.Run("Order placement rejects malformed JSON locally", func(t *testing.T) {
		mockBroker := new(MockBroker)
		uc := usecase.NewTradingUsecase(mockBroker)

		_, err := uc.PlaceOrder(context.Background(), json.RawMessage(`{"symbol":`))
		require.Error(t, err)
		mockBroker.AssertNotCalled(t, "PlaceOrder")
	})
}
