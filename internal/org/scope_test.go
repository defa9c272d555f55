package org

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"hrattendance/internal/apperrors"
)

type ScopeTestSuite struct {
	suite.Suite
	store    *MockStore
	resolver *Resolver
	ctx      context.Context
}

func (s *ScopeTestSuite) SetupTest() {
	s.store = new(MockStore)
	s.resolver = NewResolver(s.store)
	s.ctx = context.Background()
}

func TestScopeTestSuite(t *testing.T) {
	suite.Run(t, new(ScopeTestSuite))
}

func (s *ScopeTestSuite) TestMainAdminScopeIsSelfAndDirectChildren() {
	ident := Identity{ID: "root", Role: RoleAdmin, IsMainAdmin: true, CreatedBy: "someone-else"}
	s.store.On("ChildNodeIDs", s.ctx, "root").Return([]string{"hr1", "mgr1"}, nil).Once()

	scope, err := s.resolver.SubjectScope(s.ctx, ident)

	s.Require().NoError(err)
	s.Equal([]string{"hr1", "mgr1", "root"}, scope.IDs())
	// createdBy of a main admin never widens its scope
	s.False(scope.Contains("someone-else"))
	s.store.AssertExpectations(s.T())
}

func (s *ScopeTestSuite) TestSubAdminSeesRootAndSiblings() {
	ident := Identity{ID: "hr1", Role: RoleHR, CreatedBy: "root"}
	s.store.On("ChildNodeIDs", s.ctx, "root").Return([]string{"hr1", "mgr1", "mgr2"}, nil).Once()

	scope, err := s.resolver.SubjectScope(s.ctx, ident)

	s.Require().NoError(err)
	s.Equal([]string{"hr1", "mgr1", "mgr2", "root"}, scope.IDs())
	s.store.AssertExpectations(s.T())
}

func (s *ScopeTestSuite) TestEmployeeScopeIsSelfOnly() {
	ident := Identity{ID: "emp1", Role: RoleEmployee, CreatedBy: "hr1"}

	scope, err := s.resolver.SubjectScope(s.ctx, ident)

	s.Require().NoError(err)
	s.Equal([]string{"emp1"}, scope.IDs())
	s.store.AssertNotCalled(s.T(), "ChildNodeIDs", mock.Anything, mock.Anything)
}

func (s *ScopeTestSuite) TestEmployeeScopeComposesSubjectScope() {
	ident := Identity{ID: "mgr1", Role: RoleManager, CreatedBy: "root"}
	s.store.On("ChildNodeIDs", s.ctx, "root").Return([]string{"mgr1", "hr1"}, nil).Once()
	s.store.On("EmployeeIDsOwnedBy", s.ctx, []string{"hr1", "mgr1", "root"}).Return([]string{"e1", "e2", "e3"}, nil).Once()

	scope, err := s.resolver.EmployeeScope(s.ctx, ident)

	s.Require().NoError(err)
	s.Equal([]string{"e1", "e2", "e3"}, scope.IDs())
	s.store.AssertExpectations(s.T())
}

func (s *ScopeTestSuite) TestEmptyScopeIsNotAnError() {
	ident := Identity{ID: "root", Role: RoleAdmin, IsMainAdmin: true}
	s.store.On("ChildNodeIDs", s.ctx, "root").Return(nil, nil).Once()
	s.store.On("EmployeeIDsOwnedBy", s.ctx, []string{"root"}).Return(nil, nil).Once()

	scope, err := s.resolver.EmployeeScope(s.ctx, ident)

	s.Require().NoError(err)
	s.Empty(scope)
}

func (s *ScopeTestSuite) TestStoreFailureIsTransient() {
	ident := Identity{ID: "root", Role: RoleAdmin, IsMainAdmin: true}
	s.store.On("ChildNodeIDs", s.ctx, "root").Return(nil, assert.AnError).Once()

	_, err := s.resolver.SubjectScope(s.ctx, ident)

	s.ErrorIs(err, apperrors.ErrTransient)
	s.ErrorIs(err, assert.AnError)
}

func (s *ScopeTestSuite) TestAuthorizeEmployee() {
	ident := Identity{ID: "hr1", Role: RoleHR, CreatedBy: "root"}
	sibling := &Employee{ID: "e1", CreatedBy: "mgr1"}
	foreign := &Employee{ID: "e9", CreatedBy: "other-root"}
	s.store.On("FindEmployee", s.ctx, "e1").Return(sibling, nil).Once()
	s.store.On("FindEmployee", s.ctx, "e9").Return(foreign, nil).Once()
	s.store.On("ChildNodeIDs", s.ctx, "root").Return([]string{"hr1", "mgr1"}, nil).Twice()

	emp, err := s.resolver.AuthorizeEmployee(s.ctx, ident, "e1")
	s.Require().NoError(err)
	s.Equal("e1", emp.ID)

	_, err = s.resolver.AuthorizeEmployee(s.ctx, ident, "e9")
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.store.AssertExpectations(s.T())
}

func (s *ScopeTestSuite) TestAuthorizeEmployeeSelfAndMissing() {
	self := Identity{ID: "e1", Role: RoleEmployee, CreatedBy: "hr1"}
	s.store.On("FindEmployee", s.ctx, "e1").Return(&Employee{ID: "e1", CreatedBy: "hr1"}, nil).Once()
	s.store.On("FindEmployee", s.ctx, "e2").Return(&Employee{ID: "e2", CreatedBy: "hr1"}, nil).Once()
	s.store.On("FindEmployee", s.ctx, "nope").Return(nil, apperrors.New(apperrors.ErrNotFound, "employee not found")).Once()

	_, err := s.resolver.AuthorizeEmployee(s.ctx, self, "e1")
	s.NoError(err)

	_, err = s.resolver.AuthorizeEmployee(s.ctx, self, "e2")
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.resolver.AuthorizeEmployee(s.ctx, self, "nope")
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.resolver.AuthorizeEmployee(s.ctx, self, "")
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *ScopeTestSuite) TestTenantOf() {
	tenant, err := s.resolver.TenantOf(s.ctx, Identity{ID: "root", IsMainAdmin: true, Role: RoleAdmin})
	s.Require().NoError(err)
	s.Equal("root", tenant)

	tenant, err = s.resolver.TenantOf(s.ctx, Identity{ID: "hr1", Role: RoleHR, CreatedBy: "root"})
	s.Require().NoError(err)
	s.Equal("root", tenant)

	s.store.On("FindNode", s.ctx, "mgr1").Return(&Node{ID: "mgr1", Role: RoleManager, CreatedBy: "root"}, nil).Once()
	tenant, err = s.resolver.TenantOf(s.ctx, Identity{ID: "e1", Role: RoleEmployee, CreatedBy: "mgr1"})
	s.Require().NoError(err)
	s.Equal("root", tenant)

	s.store.On("FindNode", s.ctx, "root").Return(&Node{ID: "root", Role: RoleAdmin, IsMainAdmin: true}, nil).Once()
	tenant, err = s.resolver.TenantOf(s.ctx, Identity{ID: "e2", Role: RoleEmployee, CreatedBy: "root"})
	s.Require().NoError(err)
	s.Equal("root", tenant)
}
