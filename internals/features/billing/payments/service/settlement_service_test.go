package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	invoiceModel "afyacare_backend/internals/features/billing/invoices/model"
	invoiceService "afyacare_backend/internals/features/billing/invoices/service"
	serviceModel "afyacare_backend/internals/features/billing/services/model"
	"afyacare_backend/internals/features/billing/payments/model"
	helper "afyacare_backend/internals/helpers"
)

/* ===================== Fixtures ===================== */

type fakeGateway struct {
	pushFn  func(ctx context.Context, in STKPushInput) (*STKPushResult, error)
	queryFn func(ctx context.Context, checkoutRequestID string) (*STKQueryResult, error)
}

func (f *fakeGateway) STKPush(ctx context.Context, in STKPushInput) (*STKPushResult, error) {
	return f.pushFn(ctx, in)
}

func (f *fakeGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (*STKQueryResult, error) {
	return f.queryFn(ctx, checkoutRequestID)
}

func acceptingGateway() *fakeGateway {
	return &fakeGateway{
		pushFn: func(ctx context.Context, in STKPushInput) (*STKPushResult, error) {
			return &STKPushResult{
				MerchantRequestID: "mr-" + uuid.NewString()[:8],
				CheckoutRequestID: "ws_CO_" + uuid.NewString()[:12],
				ResponseCode:      "0",
			}, nil
		},
		queryFn: func(ctx context.Context, checkoutRequestID string) (*STKQueryResult, error) {
			return &STKQueryResult{ResponseCode: "0"}, nil
		},
	}
}

func newSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&serviceModel.Service{},
		&invoiceModel.Invoice{},
		&invoiceModel.InvoiceItem{},
		&invoiceModel.InvoiceSequence{},
		&model.Payment{},
	))
	return db
}

func newSettlement(t *testing.T, gateway StkGateway) (*SettlementService, *gorm.DB) {
	t.Helper()
	db := newSettlementTestDB(t)
	return &SettlementService{
		DB:            db,
		Gateway:       gateway,
		CancelledCode: 1032,
		TimeoutCode:   1037,
		PendingTTL:    5 * time.Minute,
	}, db
}

// seedInvoice creates an invoice carrying one line item worth `price`.
func seedInvoice(t *testing.T, db *gorm.DB, price string) *invoiceModel.Invoice {
	t.Helper()

	svc := &serviceModel.Service{
		ServiceCode:      "SVC-" + uuid.NewString()[:8],
		ServiceName:      "Consultation",
		ServiceCategory:  serviceModel.ServiceCategoryConsultation,
		ServiceUnitPrice: decimal.RequireFromString(price),
		ServiceIsActive:  true,
	}
	require.NoError(t, db.Create(svc).Error)

	inv := &invoiceModel.Invoice{
		InvoicePatientID: uuid.New(),
		InvoiceStatus:    invoiceModel.InvoiceStatusPending,
		InvoiceIssueDate: time.Now(),
		InvoiceDueDate:   time.Now().AddDate(0, 0, 14),
	}
	require.NoError(t, invoiceService.CreateInvoice(db, inv, []invoiceService.NewItem{
		{ServiceID: svc.ServiceID, Quantity: 1},
	}))
	return inv
}

func successCallback(checkoutRequestID, receipt string, amount string) []byte {
	return []byte(fmt.Sprintf(`{
		"Body": {"stkCallback": {
			"MerchantRequestID": "mr-test",
			"CheckoutRequestID": %q,
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {"Item": [
				{"Name": "Amount", "Value": %s},
				{"Name": "MpesaReceiptNumber", "Value": %q},
				{"Name": "TransactionDate", "Value": 20260901101530},
				{"Name": "PhoneNumber", "Value": 254708374149}
			]}
		}}}`, checkoutRequestID, amount, receipt))
}

func failureCallback(checkoutRequestID string, resultCode int, desc string) []byte {
	return []byte(fmt.Sprintf(`{
		"Body": {"stkCallback": {
			"MerchantRequestID": "mr-test",
			"CheckoutRequestID": %q,
			"ResultCode": %d,
			"ResultDesc": %q
		}}}`, checkoutRequestID, resultCode, desc))
}

func reloadInvoice(t *testing.T, db *gorm.DB, id uuid.UUID) invoiceModel.Invoice {
	t.Helper()
	var inv invoiceModel.Invoice
	require.NoError(t, db.First(&inv, "invoice_id = ?", id).Error)
	return inv
}

func reloadPayment(t *testing.T, db *gorm.DB, id uuid.UUID) model.Payment {
	t.Helper()
	var p model.Payment
	require.NoError(t, db.First(&p, "payment_id = ?", id).Error)
	return p
}

func amt(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

/* ===================== Initiate ===================== */

func TestInitiateMpesaHappyPath(t *testing.T) {
	s, db := newSettlement(t, acceptingGateway())
	inv := seedInvoice(t, db, "1000.00")

	payment, err := s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("1000.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusProcessing, payment.PaymentStatus)
	require.NotNil(t, payment.PaymentCheckoutRequestID)
	require.NotNil(t, payment.PaymentPhoneNumber)
	assert.Equal(t, "254708374149", *payment.PaymentPhoneNumber)
}

func TestInitiateMpesaAmountBoundary(t *testing.T) {
	s, db := newSettlement(t, acceptingGateway())
	inv := seedInvoice(t, db, "1000.00")

	// one cent over the balance is rejected
	_, err := s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("1000.01"),
	})
	var ve *helper.ValidationError
	require.ErrorAs(t, err, &ve)

	// the exact balance is fine
	_, err = s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("1000.00"),
	})
	require.NoError(t, err)
}

func TestInitiateMpesaRejectsClosedInvoice(t *testing.T) {
	s, db := newSettlement(t, acceptingGateway())
	inv := seedInvoice(t, db, "1000.00")
	_, err := invoiceService.Cancel(db, inv.InvoiceID)
	require.NoError(t, err)

	_, err = s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("100.00"),
	})
	var ise *helper.InvalidStateError
	require.ErrorAs(t, err, &ise)
}

func TestInitiateMpesaDefaultsToBalanceDue(t *testing.T) {
	gw := acceptingGateway()
	var pushed decimal.Decimal
	base := gw.pushFn
	gw.pushFn = func(ctx context.Context, in STKPushInput) (*STKPushResult, error) {
		pushed = in.Amount
		return base(ctx, in)
	}
	s, db := newSettlement(t, gw)
	inv := seedInvoice(t, db, "1000.00")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return invoiceService.ApplyPaymentCredit(tx, inv.InvoiceID, decimal.RequireFromString("400.00"))
	}))

	// no amount given: the push covers what is still owed
	payment, err := s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusProcessing, payment.PaymentStatus)
	assert.True(t, payment.PaymentAmount.Equal(decimal.RequireFromString("600.00")),
		"amount = %s", payment.PaymentAmount)
	assert.True(t, pushed.Equal(decimal.RequireFromString("600.00")), "pushed = %s", pushed)
}

func TestInitiateMpesaGatewayRejection(t *testing.T) {
	gw := acceptingGateway()
	gw.pushFn = func(ctx context.Context, in STKPushInput) (*STKPushResult, error) {
		return &STKPushResult{ResponseCode: "1", ResponseDescription: "insufficient float"}, nil
	}
	s, db := newSettlement(t, gw)
	inv := seedInvoice(t, db, "1000.00")

	// a rejection is not an error; the caller reads the payment status
	payment, err := s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("500.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, payment.PaymentStatus)

	got := reloadPayment(t, db, payment.PaymentID)
	assert.Equal(t, model.PaymentStatusFailed, got.PaymentStatus)
	require.NotNil(t, got.PaymentResultDesc)
	assert.Equal(t, "insufficient float", *got.PaymentResultDesc)
}

func TestInitiateMpesaGatewayUnreachable(t *testing.T) {
	gw := acceptingGateway()
	gw.pushFn = func(ctx context.Context, in STKPushInput) (*STKPushResult, error) {
		return nil, helper.NewGatewayError("connection refused", nil)
	}
	s, db := newSettlement(t, gw)
	inv := seedInvoice(t, db, "1000.00")

	payment, err := s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("500.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, payment.PaymentStatus)

	got := reloadPayment(t, db, payment.PaymentID)
	require.NotNil(t, got.PaymentResultDesc)
	assert.Contains(t, *got.PaymentResultDesc, "connection refused")
}

/* ===================== Callback settlement ===================== */

func TestCallbackSuccessSettlesPaymentAndInvoice(t *testing.T) {
	s, db := newSettlement(t, acceptingGateway())
	inv := seedInvoice(t, db, "1000.00")

	payment, err := s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("1000.00"),
	})
	require.NoError(t, err)

	raw := successCallback(*payment.PaymentCheckoutRequestID, "NLJ7RT61SV", "1000")
	require.NoError(t, s.ApplyCallback(raw))

	got := reloadPayment(t, db, payment.PaymentID)
	assert.Equal(t, model.PaymentStatusCompleted, got.PaymentStatus)
	require.NotNil(t, got.PaymentMpesaReceipt)
	assert.Equal(t, "NLJ7RT61SV", *got.PaymentMpesaReceipt)
	assert.NotNil(t, got.PaymentTransactionDate)
	assert.NotEmpty(t, got.PaymentCallbackPayload)

	invAfter := reloadInvoice(t, db, inv.InvoiceID)
	assert.Equal(t, invoiceModel.InvoiceStatusPaid, invAfter.InvoiceStatus)
	assert.True(t, invAfter.InvoiceBalanceDue.IsZero(), "balance = %s", invAfter.InvoiceBalanceDue)
}

// The sqlite test db runs on a single connection, so the competing
// settlement paths are exercised sequentially here; the guarded update
// that decides the winner is the same one concurrent writers hit on
// postgres.
func TestCallbackIsIdempotent(t *testing.T) {
	s, db := newSettlement(t, acceptingGateway())
	inv := seedInvoice(t, db, "1000.00")

	payment, err := s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("600.00"),
	})
	require.NoError(t, err)

	raw := successCallback(*payment.PaymentCheckoutRequestID, "NLJ7RT61SV", "600")
	for i := 0; i < 3; i++ {
		require.NoError(t, s.ApplyCallback(raw))
	}

	invAfter := reloadInvoice(t, db, inv.InvoiceID)
	assert.True(t, invAfter.InvoiceAmountPaid.Equal(decimal.RequireFromString("600.00")),
		"amount_paid = %s, credited more than once", invAfter.InvoiceAmountPaid)
	assert.Equal(t, invoiceModel.InvoiceStatusPartiallyPaid, invAfter.InvoiceStatus)
}

func TestCallbackUserCancelled(t *testing.T) {
	s, db := newSettlement(t, acceptingGateway())
	inv := seedInvoice(t, db, "1000.00")

	payment, err := s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("1000.00"),
	})
	require.NoError(t, err)

	raw := failureCallback(*payment.PaymentCheckoutRequestID, 1032, "Request cancelled by user")
	require.NoError(t, s.ApplyCallback(raw))

	got := reloadPayment(t, db, payment.PaymentID)
	assert.Equal(t, model.PaymentStatusCancelled, got.PaymentStatus)

	// nothing credited
	invAfter := reloadInvoice(t, db, inv.InvoiceID)
	assert.True(t, invAfter.InvoiceAmountPaid.IsZero())
	assert.Equal(t, invoiceModel.InvoiceStatusPending, invAfter.InvoiceStatus)
}

func TestCallbackUnknownCheckoutIsAcked(t *testing.T) {
	s, _ := newSettlement(t, acceptingGateway())
	raw := successCallback("ws_CO_does_not_exist", "NLJ7RT61SV", "100")
	assert.NoError(t, s.ApplyCallback(raw))
}

func TestCallbackGarbageIsAnError(t *testing.T) {
	s, _ := newSettlement(t, acceptingGateway())
	assert.Error(t, s.ApplyCallback([]byte("{not json")))
	assert.Error(t, s.ApplyCallback([]byte(`{"Body":{}}`)))
}

/* ===================== Timeout sweep ===================== */

func TestExpireTimedOutAndLateCallback(t *testing.T) {
	s, db := newSettlement(t, acceptingGateway())
	inv := seedInvoice(t, db, "1000.00")

	payment, err := s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("1000.00"),
	})
	require.NoError(t, err)

	// age the payment past the TTL
	require.NoError(t, db.Model(&model.Payment{}).
		Where("payment_id = ?", payment.PaymentID).
		UpdateColumn("payment_created_at", time.Now().Add(-10*time.Minute)).Error)

	n, err := s.ExpireTimedOut(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got := reloadPayment(t, db, payment.PaymentID)
	assert.Equal(t, model.PaymentStatusTimeout, got.PaymentStatus)

	// a success callback arriving after expiry changes nothing
	raw := successCallback(*payment.PaymentCheckoutRequestID, "NLJ7RT61SV", "1000")
	require.NoError(t, s.ApplyCallback(raw))

	got = reloadPayment(t, db, payment.PaymentID)
	assert.Equal(t, model.PaymentStatusTimeout, got.PaymentStatus)

	invAfter := reloadInvoice(t, db, inv.InvoiceID)
	assert.True(t, invAfter.InvoiceAmountPaid.IsZero(), "terminal payment must not credit the invoice")
}

/* ===================== Status query ===================== */

func TestQueryStatusSettlesLikeCallback(t *testing.T) {
	gw := acceptingGateway()
	s, db := newSettlement(t, gw)
	inv := seedInvoice(t, db, "1000.00")

	payment, err := s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("1000.00"),
	})
	require.NoError(t, err)

	gw.queryFn = func(ctx context.Context, checkoutRequestID string) (*STKQueryResult, error) {
		return &STKQueryResult{ResponseCode: "0", ResultCode: "0", ResultDesc: "processed successfully"}, nil
	}

	got, err := s.QueryStatus(context.Background(), payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, got.PaymentStatus)

	invAfter := reloadInvoice(t, db, inv.InvoiceID)
	assert.Equal(t, invoiceModel.InvoiceStatusPaid, invAfter.InvoiceStatus)

	// the matching callback arriving afterwards must not credit again
	raw := successCallback(*payment.PaymentCheckoutRequestID, "NLJ7RT61SV", "1000")
	require.NoError(t, s.ApplyCallback(raw))

	invAfter = reloadInvoice(t, db, inv.InvoiceID)
	assert.True(t, invAfter.InvoiceAmountPaid.Equal(decimal.RequireFromString("1000.00")),
		"amount_paid = %s", invAfter.InvoiceAmountPaid)
}

func TestQueryStatusGatewayDownReturnsKnownState(t *testing.T) {
	gw := acceptingGateway()
	s, db := newSettlement(t, gw)
	inv := seedInvoice(t, db, "1000.00")

	payment, err := s.InitiateMpesa(context.Background(), InitiateMpesaInput{
		InvoiceID:   inv.InvoiceID,
		PhoneNumber: "0708374149",
		Amount:      amt("500.00"),
	})
	require.NoError(t, err)

	gw.queryFn = func(ctx context.Context, checkoutRequestID string) (*STKQueryResult, error) {
		return nil, helper.NewGatewayError("connection refused", nil)
	}

	got, err := s.QueryStatus(context.Background(), payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusProcessing, got.PaymentStatus)
}

/* ===================== Manual payments ===================== */

func TestRecordManualPayment(t *testing.T) {
	s, db := newSettlement(t, acceptingGateway())
	inv := seedInvoice(t, db, "1000.00")

	payment, err := s.RecordManualPayment(ManualPaymentInput{
		InvoiceID: inv.InvoiceID,
		Amount:    decimal.RequireFromString("1000.00"),
		Method:    model.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, payment.PaymentStatus)

	invAfter := reloadInvoice(t, db, inv.InvoiceID)
	assert.Equal(t, invoiceModel.InvoiceStatusPaid, invAfter.InvoiceStatus)
}

func TestRecordManualPaymentRejectsBadMethod(t *testing.T) {
	s, db := newSettlement(t, acceptingGateway())
	inv := seedInvoice(t, db, "1000.00")

	_, err := s.RecordManualPayment(ManualPaymentInput{
		InvoiceID: inv.InvoiceID,
		Amount:    decimal.RequireFromString("100.00"),
		Method:    model.PaymentMethodMpesa, // mpesa settles via STK, not here
	})
	var ve *helper.ValidationError
	require.ErrorAs(t, err, &ve)
}
