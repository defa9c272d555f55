package org

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is owned by exactly one Node through CreatedBy.
type Employee struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Salary     decimal.Decimal `json:"salary"`
	CreatedBy  string          `json:"createdBy"`
	IsVerified bool            `json:"isVerified"`
	IsApproved bool            `json:"isApproved"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewEmployee is the input for creating an employee.
type NewEmployee struct {
	Name    string          `json:"name" binding:"required"`
	Email   string          `json:"email" binding:"required,email"`
	Salary  decimal.Decimal `json:"salary"`
	OwnerID string          `json:"owner_id"`
}

// NewSubAdmin is the input for creating an hr/manager node.
type NewSubAdmin struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Role  Role   `json:"role" binding:"required,oneof=hr manager"`
}
