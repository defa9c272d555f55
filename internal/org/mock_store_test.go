package org

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// --- Mock Store ---
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ChildNodeIDs(ctx context.Context, parentID string) ([]string, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) EmployeeIDsOwnedBy(ctx context.Context, ownerIDs []string) ([]string, error) {
	args := m.Called(ctx, ownerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) FindNode(ctx context.Context, id string) (*Node, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Node), args.Error(1)
}

func (m *MockStore) FindEmployee(ctx context.Context, id string) (*Employee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Employee), args.Error(1)
}

func (m *MockStore) InsertNode(ctx context.Context, n Node) (Node, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(Node), args.Error(1)
}

func (m *MockStore) InsertEmployee(ctx context.Context, e Employee) (Employee, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(Employee), args.Error(1)
}

func (m *MockStore) DeleteEmployee(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) ListEmployeesOwnedBy(ctx context.Context, ownerIDs []string) ([]Employee, error) {
	args := m.Called(ctx, ownerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Employee), args.Error(1)
}

var _ Store = (*MockStore)(nil)
