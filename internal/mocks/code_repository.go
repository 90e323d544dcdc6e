package mocks

import (
	"context"

	"github.com/rfmoraes/accounts-api-go/internal/domain/model"
	"github.com/stretchr/testify/mock"
)

// MockCodeRepository é um mock para a interface CodeRepository
type MockCodeRepository struct {
	mock.Mock
}

func (m *MockCodeRepository) Issue(ctx context.Context, userID, purpose string) (*model.VerificationCode, error) {
	args := m.Called(ctx, userID, purpose)
	if code := args.Get(0); code != nil {
		return code.(*model.VerificationCode), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCodeRepository) Consume(ctx context.Context, userID, purpose, code string) error {
	args := m.Called(ctx, userID, purpose, code)
	return args.Error(0)
}

func (m *MockCodeRepository) PeekValid(ctx context.Context, userID, purpose, code string) (bool, error) {
	args := m.Called(ctx, userID, purpose, code)
	return args.Bool(0), args.Error(1)
}

// MockNotifier é um mock para a interface Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendActivationNotice(ctx context.Context, email, phone, code string) {
	m.Called(ctx, email, phone, code)
}

func (m *MockNotifier) SendNewActivationNotice(ctx context.Context, email, phone, code string) {
	m.Called(ctx, email, phone, code)
}

func (m *MockNotifier) SendResetNotice(ctx context.Context, email, phone, code string) {
	m.Called(ctx, email, phone, code)
}
