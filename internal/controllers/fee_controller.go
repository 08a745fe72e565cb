package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campus_bus/internal/fees"
	"campus_bus/internal/models"
)

func feeResponse(f models.FeeRecord, today time.Time) gin.H {
	return gin.H{
		"id":             f.ID,
		"student_id":     f.StudentID,
		"amount":         f.Amount,
		"due_date":       f.DueDate.Format(fees.DateLayout),
		"status":         f.Status,
		"paid_on":        f.PaidOn,
		"payment_method": f.PaymentMethod,
		"remarks":        f.Remarks,
		"updated_by_id":  f.UpdatedByID,
		"is_overdue":     f.IsOverdue(today),
	}
}

type createFeeInput struct {
	StudentID uint    `json:"student_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gte=0.01"`
	DueDate   string  `json:"due_date" binding:"required"`
	Remarks   string  `json:"remarks"`
}

func (ctl *Controller) CreateFee(c *gin.Context) {
	var input createFeeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	due, err := fees.ParseDate(input.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}
	fee, err := fees.Create(c.Request.Context(), ctl.DB, fees.NewFee{
		StudentID: input.StudentID,
		Amount:    input.Amount,
		DueDate:   due,
		Remarks:   input.Remarks,
	}, actingUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, feeResponse(*fee, time.Now()))
}

func (ctl *Controller) ListFees(c *gin.Context) {
	var f fees.Filter
	studentID, err := parseOptionalID(c.Query("student_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	f.StudentID = studentID
	f.Status = models.FeeStatus(c.Query("status"))
	if raw := c.Query("due_before"); raw != "" {
		d, err := fees.ParseDate(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		f.DueBefore = &d
	}

	records, err := fees.List(c.Request.Context(), ctl.DB, f)
	if err != nil {
		respondError(c, err)
		return
	}
	today := time.Now()
	out := make([]gin.H, 0, len(records))
	for _, r := range records {
		out = append(out, feeResponse(r, today))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (ctl *Controller) GetFee(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	fee, err := fees.Get(c.Request.Context(), ctl.DB, id)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := feeResponse(*fee, time.Now())
	resp["payments"] = fee.Payments
	c.JSON(http.StatusOK, resp)
}

// FeeAction applies mark_paid, mark_overdue or mark_cancelled to many fees.
func (ctl *Controller) FeeAction(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := fees.Apply(c.Request.Context(), ctl.DB, req.Action, req.IDs, actingUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

type markPaidInput struct {
	PaymentMethod string `json:"payment_method"`
	Remarks       string `json:"remarks"`
}

func (ctl *Controller) MarkFeePaid(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var input markPaidInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	fee, err := fees.MarkPaid(c.Request.Context(), ctl.DB, id, models.PaymentMethod(input.PaymentMethod), input.Remarks, actingUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feeResponse(*fee, time.Now()))
}

type paymentInput struct {
	AmountPaid    float64 `json:"amount_paid" binding:"required,gte=0.01"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
	ReferenceID   string  `json:"reference_id"`
	Notes         string  `json:"notes"`
}

// RecordFeePayment stores a payment and issues its receipt number.
func (ctl *Controller) RecordFeePayment(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var input paymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment, err := fees.RecordPayment(c.Request.Context(), ctl.DB, id, fees.NewPayment{
		AmountPaid:    input.AmountPaid,
		PaymentMethod: models.PaymentMethod(input.PaymentMethod),
		ReferenceID:   input.ReferenceID,
		Notes:         input.Notes,
	}, actingUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}
