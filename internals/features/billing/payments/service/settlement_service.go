package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"afyacare_backend/internals/configs"
	invoiceModel "afyacare_backend/internals/features/billing/invoices/model"
	invoiceService "afyacare_backend/internals/features/billing/invoices/service"
	"afyacare_backend/internals/features/billing/payments/model"
	helper "afyacare_backend/internals/helpers"
)

// StkGateway is the slice of the Daraja client the settlement flow
// needs. Satisfied by *MpesaClient.
type StkGateway interface {
	STKPush(ctx context.Context, in STKPushInput) (*STKPushResult, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*STKQueryResult, error)
}

// SettlementService drives the payment state machine:
// PENDING -> PROCESSING -> COMPLETED | FAILED | CANCELLED | TIMEOUT.
// Terminal states are absorbing; every terminal write is CAS-guarded.
type SettlementService struct {
	DB      *gorm.DB
	Gateway StkGateway

	// gateway result codes mapped to CANCELLED / TIMEOUT
	CancelledCode int
	TimeoutCode   int

	// how long an open MPESA payment may wait for a callback
	PendingTTL time.Duration
}

func NewSettlementService(db *gorm.DB, gateway StkGateway) *SettlementService {
	return &SettlementService{
		DB:            db,
		Gateway:       gateway,
		CancelledCode: configs.GetEnvInt("MPESA_RESULT_CANCELLED", 1032),
		TimeoutCode:   configs.GetEnvInt("MPESA_RESULT_TIMEOUT", 1037),
		PendingTTL:    time.Duration(configs.GetEnvInt("MPESA_PENDING_TTL_MINUTES", 5)) * time.Minute,
	}
}

/* ===================== Initiate ===================== */

type InitiateMpesaInput struct {
	InvoiceID   uuid.UUID
	PhoneNumber string
	Amount      *decimal.Decimal // nil pays the full balance due
	InitiatedBy *uuid.UUID
}

// InitiateMpesa validates the invoice, sends the STK push and records
// the attempt. A gateway rejection or transport failure leaves a FAILED
// payment row behind and still returns it with a nil error; the caller
// reads the outcome off the payment status.
func (s *SettlementService) InitiateMpesa(ctx context.Context, in InitiateMpesaInput) (*model.Payment, error) {
	phone, err := NormalizePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}

	var inv invoiceModel.Invoice
	if err := s.DB.First(&inv, "invoice_id = ?", in.InvoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, helper.NewNotFoundError("invoice")
		}
		return nil, err
	}
	if !inv.IsPayable() {
		return nil, helper.NewInvalidStateError("invoice %s is %s and cannot accept payments", inv.InvoiceNumber, inv.InvoiceStatus)
	}

	amount := inv.InvoiceBalanceDue
	if in.Amount != nil {
		amount = *in.Amount
	}
	if amount.Sign() <= 0 {
		return nil, helper.NewValidationError("amount", "must be greater than 0")
	}
	// exact balance is allowed; a single cent over is not
	if amount.GreaterThan(inv.InvoiceBalanceDue) {
		return nil, helper.NewValidationError("amount", "exceeds invoice balance due")
	}

	payment := model.Payment{
		PaymentInvoiceID:   inv.InvoiceID,
		PaymentAmount:      amount,
		PaymentMethod:      model.PaymentMethodMpesa,
		PaymentStatus:      model.PaymentStatusPending,
		PaymentPhoneNumber: &phone,
		PaymentProcessedBy: in.InitiatedBy,
	}
	if err := s.DB.Create(&payment).Error; err != nil {
		return nil, err
	}

	push, err := s.Gateway.STKPush(ctx, STKPushInput{
		PhoneNumber:      phone,
		Amount:           amount,
		AccountReference: inv.InvoiceNumber,
		Description:      "AfyaCare",
	})
	if err != nil {
		s.markFailed(&payment, nil, truncate(err.Error(), 255))
		return &payment, nil
	}
	if !push.Accepted() {
		s.markFailed(&payment, nil, truncate(push.ResponseDescription, 255))
		return &payment, nil
	}

	// accepted: move to PROCESSING and remember the correlation ids
	res := s.DB.Model(&model.Payment{}).
		Where("payment_id = ? AND payment_status = ?", payment.PaymentID, model.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status":              model.PaymentStatusProcessing,
			"payment_merchant_request_id": push.MerchantRequestID,
			"payment_checkout_request_id": push.CheckoutRequestID,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		payment.PaymentStatus = model.PaymentStatusProcessing
		payment.PaymentMerchantRequestID = &push.MerchantRequestID
		payment.PaymentCheckoutRequestID = &push.CheckoutRequestID
	}
	return &payment, nil
}

/* ===================== Callback ===================== */

// ApplyCallback settles a payment from a gateway notification. Unknown
// checkout ids and repeated deliveries are silent no-ops; the HTTP
// layer always acks regardless.
func (s *SettlementService) ApplyCallback(raw []byte) error {
	cb, err := ParseCallback(raw)
	if err != nil {
		return err
	}

	var payment model.Payment
	if err := s.DB.First(&payment, "payment_checkout_request_id = ?", cb.CheckoutRequestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[WARN] mpesa callback for unknown CheckoutRequestID %s", cb.CheckoutRequestID)
			return nil
		}
		return err
	}

	return s.applyResult(&payment, cb, raw)
}

// applyResult maps a gateway outcome onto the payment. Shared by the
// callback path and the status-query path so both settle identically.
func (s *SettlementService) applyResult(payment *model.Payment, cb *CallbackResult, raw []byte) error {
	if payment.IsTerminal() {
		return nil
	}

	if cb.ResultCode == 0 {
		return s.complete(payment, cb, raw)
	}

	status := model.PaymentStatusFailed
	switch cb.ResultCode {
	case s.CancelledCode:
		status = model.PaymentStatusCancelled
	case s.TimeoutCode:
		status = model.PaymentStatusTimeout
	}

	updates := map[string]interface{}{
		"payment_status":      status,
		"payment_result_code": cb.ResultCode,
		"payment_result_desc": cb.ResultDesc,
	}
	if raw != nil {
		updates["payment_callback_payload"] = datatypes.JSON(raw)
	}

	res := s.DB.Model(&model.Payment{}).
		Where("payment_id = ? AND payment_status IN ?", payment.PaymentID, model.OpenStatuses).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		payment.PaymentStatus = status
		payment.PaymentResultCode = &cb.ResultCode
		payment.PaymentResultDesc = &cb.ResultDesc
	}
	return nil
}

// complete performs the atomic settlement: the CAS to COMPLETED and the
// invoice credit commit in one transaction. Losing the CAS means
// another writer already settled this payment; nothing else happens.
func (s *SettlementService) complete(payment *model.Payment, cb *CallbackResult, raw []byte) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"payment_status":      model.PaymentStatusCompleted,
			"payment_result_code": cb.ResultCode,
			"payment_result_desc": cb.ResultDesc,
		}
		if cb.Receipt != "" {
			updates["payment_mpesa_receipt"] = cb.Receipt
		}
		if cb.TransactionDate != nil {
			updates["payment_transaction_date"] = *cb.TransactionDate
		}
		if raw != nil {
			updates["payment_callback_payload"] = datatypes.JSON(raw)
		}

		res := tx.Model(&model.Payment{}).
			Where("payment_id = ? AND payment_status IN ?", payment.PaymentID, model.OpenStatuses).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race, the winner credited the invoice
			return nil
		}

		payment.PaymentStatus = model.PaymentStatusCompleted
		payment.PaymentResultCode = &cb.ResultCode
		payment.PaymentResultDesc = &cb.ResultDesc
		if cb.Receipt != "" {
			payment.PaymentMpesaReceipt = &cb.Receipt
		}

		return invoiceService.ApplyPaymentCredit(tx, payment.PaymentInvoiceID, payment.PaymentAmount)
	})
}

/* ===================== Status query ===================== */

// QueryStatus returns the payment, first asking the gateway for the
// outcome when the payment is still open. A query that reveals a final
// outcome settles the payment exactly like a callback would.
func (s *SettlementService) QueryStatus(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := s.DB.First(&payment, "payment_id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, helper.NewNotFoundError("payment")
		}
		return nil, err
	}

	if payment.IsTerminal() || payment.PaymentCheckoutRequestID == nil {
		return &payment, nil
	}

	q, err := s.Gateway.QueryStatus(ctx, *payment.PaymentCheckoutRequestID)
	if err != nil {
		// gateway unavailable: report what we know
		log.Printf("[WARN] mpesa status query failed for payment %s: %v", payment.PaymentID, err)
		return &payment, nil
	}
	if q.ResultCode == "" {
		// still processing on the gateway side
		return &payment, nil
	}

	code, err := parseResultCode(q.ResultCode)
	if err != nil {
		log.Printf("[WARN] mpesa status query returned unparseable ResultCode %q", q.ResultCode)
		return &payment, nil
	}

	cb := &CallbackResult{
		CheckoutRequestID: *payment.PaymentCheckoutRequestID,
		ResultCode:        code,
		ResultDesc:        q.ResultDesc,
	}
	if err := s.applyResult(&payment, cb, nil); err != nil {
		return nil, err
	}
	return &payment, nil
}

func parseResultCode(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("non-numeric result code")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

/* ===================== Manual settlement ===================== */

type ManualPaymentInput struct {
	InvoiceID   uuid.UUID
	Amount      decimal.Decimal
	Method      string // CASH, CARD, INSURANCE, BANK
	Reference   *string
	Notes       *string
	ProcessedBy *uuid.UUID
}

// RecordManualPayment settles an over-the-counter payment. The payment
// is born COMPLETED and the invoice credit commits with it.
func (s *SettlementService) RecordManualPayment(in ManualPaymentInput) (*model.Payment, error) {
	switch in.Method {
	case model.PaymentMethodCash, model.PaymentMethodCard, model.PaymentMethodInsurance, model.PaymentMethodBank:
	default:
		return nil, helper.NewValidationError("method", "must be CASH, CARD, INSURANCE or BANK")
	}
	if in.Amount.Sign() <= 0 {
		return nil, helper.NewValidationError("amount", "must be greater than 0")
	}

	var payment *model.Payment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var inv invoiceModel.Invoice
		if err := tx.First(&inv, "invoice_id = ?", in.InvoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return helper.NewNotFoundError("invoice")
			}
			return err
		}
		if !inv.IsPayable() {
			return helper.NewInvalidStateError("invoice %s is %s and cannot accept payments", inv.InvoiceNumber, inv.InvoiceStatus)
		}
		if in.Amount.GreaterThan(inv.InvoiceBalanceDue) {
			return helper.NewValidationError("amount", "exceeds invoice balance due")
		}

		now := time.Now()
		payment = &model.Payment{
			PaymentInvoiceID:       inv.InvoiceID,
			PaymentAmount:          in.Amount,
			PaymentMethod:          in.Method,
			PaymentStatus:          model.PaymentStatusCompleted,
			PaymentTransactionDate: &now,
			PaymentReference:       in.Reference,
			PaymentNotes:           in.Notes,
			PaymentProcessedBy:     in.ProcessedBy,
		}
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		return invoiceService.ApplyPaymentCredit(tx, inv.InvoiceID, in.Amount)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

/* ===================== Timeout sweep ===================== */

// ExpireTimedOut moves open MPESA payments older than PendingTTL to
// TIMEOUT. PENDING rows are swept too: a crash between creating the
// payment and the push accept would otherwise leave them open forever.
// The CAS guard makes the sweep safe against a callback landing
// mid-sweep.
func (s *SettlementService) ExpireTimedOut(now time.Time) (int64, error) {
	cutoff := now.Add(-s.PendingTTL)
	res := s.DB.Model(&model.Payment{}).
		Where("payment_method = ?", model.PaymentMethodMpesa).
		Where("payment_status IN ?", model.OpenStatuses).
		Where("payment_created_at < ?", cutoff).
		Updates(map[string]interface{}{
			"payment_status":      model.PaymentStatusTimeout,
			"payment_result_desc": "expired waiting for gateway callback",
		})
	return res.RowsAffected, res.Error
}

func (s *SettlementService) markFailed(payment *model.Payment, code *int, desc string) {
	updates := map[string]interface{}{
		"payment_status":      model.PaymentStatusFailed,
		"payment_result_desc": desc,
	}
	if code != nil {
		updates["payment_result_code"] = *code
	}
	res := s.DB.Model(&model.Payment{}).
		Where("payment_id = ? AND payment_status IN ?", payment.PaymentID, model.OpenStatuses).
		Updates(updates)
	if res.Error != nil {
		log.Printf("[ERROR] failed to mark payment %s FAILED: %v", payment.PaymentID, res.Error)
		return
	}
	if res.RowsAffected > 0 {
		payment.PaymentStatus = model.PaymentStatusFailed
		payment.PaymentResultDesc = &desc
	}
}
