// Package fees manages student transport fees and their payments.
package fees

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"campus_bus/internal/models"
)

var (
	ErrNotFound          = errors.New("fee record not found")
	ErrStudentNotFound   = errors.New("student not found")
	ErrInvalidInput      = errors.New("invalid fee data")
	ErrInvalidTransition = errors.New("fee status does not allow this change")
	ErrUnknownAction     = errors.New("unknown action")
)

// Bulk actions accepted by Apply.
const (
	ActionMarkPaid      = "mark_paid"
	ActionMarkOverdue   = "mark_overdue"
	ActionMarkCancelled = "mark_cancelled"
)

var validate = validator.New()

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// ParseDate reads a YYYY-MM-DD date as UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidInput, raw)
	}
	return d, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type NewFee struct {
	StudentID uint      `validate:"required"`
	Amount    float64   `validate:"gte=0.01"`
	DueDate   time.Time `validate:"required"`
	Remarks   string
}

func Create(ctx context.Context, db *gorm.DB, in NewFee, by *uint) (*models.FeeRecord, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	var student models.Student
	if err := db.WithContext(ctx).First(&student, in.StudentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	fee := models.FeeRecord{
		StudentID:   in.StudentID,
		Amount:      in.Amount,
		DueDate:     startOfDay(in.DueDate),
		Status:      models.FeePending,
		Remarks:     in.Remarks,
		UpdatedByID: by,
	}
	if err := db.WithContext(ctx).Create(&fee).Error; err != nil {
		return nil, err
	}
	return &fee, nil
}

func Get(ctx context.Context, db *gorm.DB, id uint) (*models.FeeRecord, error) {
	var fee models.FeeRecord
	err := db.WithContext(ctx).Preload("Payments").First(&fee, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

type Filter struct {
	StudentID *uint
	Status    models.FeeStatus
	DueBefore *time.Time
}

func List(ctx context.Context, db *gorm.DB, f Filter) ([]models.FeeRecord, error) {
	q := db.WithContext(ctx).Order("due_date desc")
	if f.StudentID != nil {
		q = q.Where("student_id = ?", *f.StudentID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DueBefore != nil {
		q = q.Where("due_date < ?", startOfDay(*f.DueBefore))
	}
	var out []models.FeeRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkPaid settles a fee today with the given method.
func MarkPaid(ctx context.Context, db *gorm.DB, id uint, method models.PaymentMethod, remarks string, by *uint) (*models.FeeRecord, error) {
	if method == "" {
		method = models.PaymentCash
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: payment method %q", ErrInvalidInput, method)
	}
	fee, err := Get(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if fee.Status == models.FeeCancelled {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":         models.FeePaid,
		"paid_on":        now,
		"payment_method": method,
		"updated_by_id":  by,
	}
	if remarks != "" {
		updates["remarks"] = remarks
	}
	if err := db.WithContext(ctx).Model(fee).Updates(updates).Error; err != nil {
		return nil, err
	}
	return Get(ctx, db, id)
}

// Apply runs a bulk admin action. mark_overdue only touches pending fees.
func Apply(ctx context.Context, db *gorm.DB, action string, ids []uint, by *uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := db.WithContext(ctx).Model(&models.FeeRecord{}).Where("id IN ?", ids)
	var res *gorm.DB
	switch action {
	case ActionMarkPaid:
		res = q.Where("status <> ?", models.FeeCancelled).Updates(map[string]interface{}{
			"status":         models.FeePaid,
			"paid_on":        time.Now(),
			"payment_method": models.PaymentCash,
			"updated_by_id":  by,
		})
	case ActionMarkOverdue:
		res = q.Where("status = ?", models.FeePending).Updates(map[string]interface{}{
			"status":        models.FeeOverdue,
			"updated_by_id": by,
		})
	case ActionMarkCancelled:
		res = q.Updates(map[string]interface{}{
			"status":        models.FeeCancelled,
			"updated_by_id": by,
		})
	default:
		return 0, ErrUnknownAction
	}
	return res.RowsAffected, res.Error
}

// SweepOverdue moves pending fees due before today to overdue.
func SweepOverdue(ctx context.Context, db *gorm.DB, today time.Time) (int64, error) {
	res := db.WithContext(ctx).Model(&models.FeeRecord{}).
		Where("status = ? AND due_date < ?", models.FeePending, startOfDay(today)).
		Update("status", models.FeeOverdue)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		logrus.WithField("count", res.RowsAffected).Info("Marked pending fees overdue.")
	}
	return res.RowsAffected, nil
}

type NewPayment struct {
	AmountPaid    float64              `validate:"gte=0.01"`
	PaymentMethod models.PaymentMethod `validate:"required"`
	ReferenceID   string               `validate:"max=100"`
	Notes         string
}

// RecordPayment stores a payment with a fresh receipt number; once the
// payments cover the fee it is marked paid.
func RecordPayment(ctx context.Context, db *gorm.DB, feeID uint, in NewPayment, by *uint) (*models.FeePayment, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: payment method %q", ErrInvalidInput, in.PaymentMethod)
	}

	var payment models.FeePayment
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fee models.FeeRecord
		if err := tx.First(&fee, feeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if fee.Status == models.FeeCancelled || fee.Status == models.FeePaid {
			return ErrInvalidTransition
		}

		now := time.Now()
		payment = models.FeePayment{
			FeeRecordID:   fee.ID,
			AmountPaid:    in.AmountPaid,
			PaymentMethod: in.PaymentMethod,
			ReferenceID:   in.ReferenceID,
			ReceiptNumber: ReceiptNumber(now),
			ProcessedByID: by,
			PaidOn:        now,
			Notes:         in.Notes,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		var total float64
		if err := tx.Model(&models.FeePayment{}).
			Where("fee_record_id = ?", fee.ID).
			Select("COALESCE(SUM(amount_paid), 0)").
			Scan(&total).Error; err != nil {
			return err
		}
		if total+1e-9 >= fee.Amount {
			return tx.Model(&fee).Updates(map[string]interface{}{
				"status":         models.FeePaid,
				"paid_on":        now,
				"payment_method": in.PaymentMethod,
				"updated_by_id":  by,
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"fee_id":  feeID,
		"receipt": payment.ReceiptNumber,
		"amount":  payment.AmountPaid,
	}).Info("Fee payment recorded.")
	return &payment, nil
}

// ReceiptNumber is RCP-<yyyymmddhhmmss>-<8 hex>.
func ReceiptNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("RCP-%s-%s", now.Format("20060102150405"), suffix)
}
