package models

import (
	"time"

	"gorm.io/gorm"
)

type FeeStatus string

const (
	FeePending   FeeStatus = "pending"
	FeePaid      FeeStatus = "paid"
	FeeOverdue   FeeStatus = "overdue"
	FeeCancelled FeeStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
	PaymentCheque PaymentMethod = "cheque"
	PaymentOther  PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentOnline, PaymentCheque, PaymentOther:
		return true
	}
	return false
}

// FeeRecord is a transport fee owed by a student.
type FeeRecord struct {
	gorm.Model
	StudentID     uint          `json:"student_id" gorm:"not null;index"`
	Student       Student       `gorm:"foreignKey:StudentID" json:"-"`
	Amount        float64       `json:"amount" gorm:"type:decimal(10,2);not null"`
	DueDate       time.Time     `json:"due_date" gorm:"not null;index"`
	Status        FeeStatus     `json:"status" gorm:"size:10;not null;default:'pending';index"`
	PaidOn        *time.Time    `json:"paid_on"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty" gorm:"size:10"`
	Remarks       string        `json:"remarks,omitempty"`
	UpdatedByID   *uint         `json:"updated_by_id"`

	Payments []FeePayment `gorm:"foreignKey:FeeRecordID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"payments,omitempty"`
}

// IsOverdue reports whether a pending fee is past its due date as of today.
func (f FeeRecord) IsOverdue(today time.Time) bool {
	if f.Status != FeePending {
		return false
	}
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	return f.DueDate.Before(start)
}

type FeePayment struct {
	gorm.Model
	FeeRecordID   uint          `json:"fee_record_id" gorm:"not null;index"`
	AmountPaid    float64       `json:"amount_paid" gorm:"type:decimal(10,2);not null"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"size:10;not null"`
	ReferenceID   string        `json:"reference_id,omitempty" gorm:"size:100"`
	ReceiptNumber string        `json:"receipt_number" gorm:"uniqueIndex;size:50;not null"`
	ProcessedByID *uint         `json:"processed_by_id"`
	PaidOn        time.Time     `json:"paid_on"`
	Notes         string        `json:"notes,omitempty"`
}
