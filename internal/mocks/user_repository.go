package mocks

import (
	"context"

	"github.com/rfmoraes/accounts-api-go/internal/domain/model"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository é um mock para a interface UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.UserEntity) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.UserEntity, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*model.UserEntity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.UserEntity, error) {
	args := m.Called(ctx, email)
	if user := args.Get(0); user != nil {
		return user.(*model.UserEntity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByPhone(ctx context.Context, phone string) (*model.UserEntity, error) {
	args := m.Called(ctx, phone)
	if user := args.Get(0); user != nil {
		return user.(*model.UserEntity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByCPF(ctx context.Context, cpf string) (*model.UserEntity, error) {
	args := m.Called(ctx, cpf)
	if user := args.Get(0); user != nil {
		return user.(*model.UserEntity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context) ([]*model.UserEntity, error) {
	args := m.Called(ctx)
	if users := args.Get(0); users != nil {
		return users.([]*model.UserEntity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.UserEntity) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
