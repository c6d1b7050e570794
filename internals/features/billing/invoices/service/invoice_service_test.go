package service

import (
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
	serviceModel "afyacare_backend/internals/features/billing/services/model"
	helper "afyacare_backend/internals/helpers"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a private in-memory db lives and dies with its connection
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&serviceModel.Service{},
		&invoiceModel.Invoice{},
		&invoiceModel.InvoiceItem{},
		&invoiceModel.InvoiceSequence{},
	))
	return db
}

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

func seedService(t *testing.T, db *gorm.DB, code string, price string, active bool) *serviceModel.Service {
	t.Helper()
	svc := &serviceModel.Service{
		ServiceCode:      code,
		ServiceName:      "Test service " + code,
		ServiceCategory:  serviceModel.ServiceCategoryConsultation,
		ServiceUnitPrice: decimal.RequireFromString(price),
		ServiceIsActive:  active,
	}
	require.NoError(t, db.Create(svc).Error)
	if !active {
		// the column default would swallow the zero value on insert
		require.NoError(t, db.Model(svc).UpdateColumn("service_is_active", false).Error)
	}
	return svc
}

func seedInvoice(t *testing.T, db *gorm.DB, items []NewItem) *invoiceModel.Invoice {
	t.Helper()
	inv := &invoiceModel.Invoice{
		InvoicePatientID: newUUID(t),
		InvoiceStatus:    invoiceModel.InvoiceStatusPending,
		InvoiceIssueDate: time.Now(),
		InvoiceDueDate:   time.Now().AddDate(0, 0, 14),
	}
	require.NoError(t, CreateInvoice(db, inv, items))
	return inv
}

func TestNextInvoiceNumber(t *testing.T) {
	db := newTestDB(t)
	issue := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	first, err := NextInvoiceNumber(db, issue)
	require.NoError(t, err)
	assert.Equal(t, "INV2026090001", first)

	second, err := NextInvoiceNumber(db, issue)
	require.NoError(t, err)
	assert.Equal(t, "INV2026090002", second)

	// a different month starts its own counter
	other, err := NextInvoiceNumber(db, issue.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, "INV2026100001", other)
}

func TestCreateInvoiceDerivesTotals(t *testing.T) {
	db := newTestDB(t)
	consult := seedService(t, db, "CONS-01", "1500.00", true)
	lab := seedService(t, db, "LAB-01", "750.50", true)

	inv := &invoiceModel.Invoice{
		InvoicePatientID:      newUUID(t),
		InvoiceStatus:         invoiceModel.InvoiceStatusPending,
		InvoiceIssueDate:      time.Now(),
		InvoiceDueDate:        time.Now().AddDate(0, 0, 14),
		InvoiceTaxAmount:      decimal.RequireFromString("100.00"),
		InvoiceDiscountAmount: decimal.RequireFromString("50.00"),
	}
	err := CreateInvoice(db, inv, []NewItem{
		{ServiceID: consult.ServiceID, Quantity: 1},
		{ServiceID: lab.ServiceID, Quantity: 2},
	})
	require.NoError(t, err)

	var got invoiceModel.Invoice
	require.NoError(t, db.Preload("Items").First(&got, "invoice_id = ?", inv.InvoiceID).Error)

	assert.Len(t, got.Items, 2)
	assert.True(t, got.InvoiceSubtotal.Equal(decimal.RequireFromString("3001.00")), "subtotal = %s", got.InvoiceSubtotal)
	assert.True(t, got.InvoiceTotalAmount.Equal(decimal.RequireFromString("3051.00")), "total = %s", got.InvoiceTotalAmount)
	assert.True(t, got.InvoiceBalanceDue.Equal(decimal.RequireFromString("3051.00")), "balance = %s", got.InvoiceBalanceDue)
	assert.Equal(t, invoiceModel.InvoiceStatusPending, got.InvoiceStatus)
}

func TestCreateInvoiceRequiresItems(t *testing.T) {
	db := newTestDB(t)
	inv := &invoiceModel.Invoice{
		InvoicePatientID: newUUID(t),
		InvoiceIssueDate: time.Now(),
		InvoiceDueDate:   time.Now().AddDate(0, 0, 14),
	}
	err := CreateInvoice(db, inv, nil)
	var ve *helper.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := seedService(t, db, "CONS-01", "200.00", true)
	inv := seedInvoice(t, db, []NewItem{{ServiceID: svc.ServiceID, Quantity: 3}})

	var first invoiceModel.Invoice
	require.NoError(t, db.First(&first, "invoice_id = ?", inv.InvoiceID).Error)

	for i := 0; i < 3; i++ {
		require.NoError(t, Recalculate(db, &first))
	}

	var got invoiceModel.Invoice
	require.NoError(t, db.First(&got, "invoice_id = ?", inv.InvoiceID).Error)
	assert.True(t, got.InvoiceSubtotal.Equal(decimal.RequireFromString("600.00")))
	assert.True(t, got.InvoiceBalanceDue.Equal(decimal.RequireFromString("600.00")))
	assert.Equal(t, first.InvoiceStatus, got.InvoiceStatus)
}

func TestAddItemRefreshesTotals(t *testing.T) {
	db := newTestDB(t)
	svc := seedService(t, db, "CONS-01", "500.00", true)
	inv := seedInvoice(t, db, []NewItem{{ServiceID: svc.ServiceID, Quantity: 1}})

	override := decimal.RequireFromString("250.00")
	item, err := AddItem(db, inv.InvoiceID, NewItem{ServiceID: svc.ServiceID, Quantity: 2, UnitPrice: &override})
	require.NoError(t, err)
	assert.True(t, item.InvoiceItemTotalPrice.Equal(decimal.RequireFromString("500.00")))

	var got invoiceModel.Invoice
	require.NoError(t, db.First(&got, "invoice_id = ?", inv.InvoiceID).Error)
	assert.True(t, got.InvoiceSubtotal.Equal(decimal.RequireFromString("1000.00")), "subtotal = %s", got.InvoiceSubtotal)
}

func TestAddItemRejectsInactiveService(t *testing.T) {
	db := newTestDB(t)
	active := seedService(t, db, "CONS-01", "500.00", true)
	inactive := seedService(t, db, "OLD-01", "100.00", false)
	inv := seedInvoice(t, db, []NewItem{{ServiceID: active.ServiceID, Quantity: 1}})

	_, err := AddItem(db, inv.InvoiceID, NewItem{ServiceID: inactive.ServiceID, Quantity: 1})
	var ve *helper.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestAddItemRejectsClosedInvoice(t *testing.T) {
	db := newTestDB(t)
	svc := seedService(t, db, "CONS-01", "500.00", true)
	inv := seedInvoice(t, db, []NewItem{{ServiceID: svc.ServiceID, Quantity: 1}})

	_, err := Cancel(db, inv.InvoiceID)
	require.NoError(t, err)

	_, err = AddItem(db, inv.InvoiceID, NewItem{ServiceID: svc.ServiceID, Quantity: 1})
	var ise *helper.InvalidStateError
	require.ErrorAs(t, err, &ise)
}

func TestCancelOnlyFromOpenStatuses(t *testing.T) {
	db := newTestDB(t)
	svc := seedService(t, db, "CONS-01", "500.00", true)

	t.Run("pending cancels", func(t *testing.T) {
		inv := seedInvoice(t, db, []NewItem{{ServiceID: svc.ServiceID, Quantity: 1}})
		got, err := Cancel(db, inv.InvoiceID)
		require.NoError(t, err)
		assert.Equal(t, invoiceModel.InvoiceStatusCancelled, got.InvoiceStatus)
	})

	t.Run("paid does not cancel", func(t *testing.T) {
		inv := seedInvoice(t, db, []NewItem{{ServiceID: svc.ServiceID, Quantity: 1}})
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return ApplyPaymentCredit(tx, inv.InvoiceID, decimal.RequireFromString("500.00"))
		}))

		_, err := Cancel(db, inv.InvoiceID)
		var ise *helper.InvalidStateError
		require.ErrorAs(t, err, &ise)
	})
}

func TestApplyPaymentCreditStatusDerivation(t *testing.T) {
	db := newTestDB(t)
	svc := seedService(t, db, "CONS-01", "1000.00", true)
	inv := seedInvoice(t, db, []NewItem{{ServiceID: svc.ServiceID, Quantity: 1}})

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ApplyPaymentCredit(tx, inv.InvoiceID, decimal.RequireFromString("400.00"))
	}))

	var got invoiceModel.Invoice
	require.NoError(t, db.First(&got, "invoice_id = ?", inv.InvoiceID).Error)
	assert.Equal(t, invoiceModel.InvoiceStatusPartiallyPaid, got.InvoiceStatus)
	assert.True(t, got.InvoiceBalanceDue.Equal(decimal.RequireFromString("600.00")), "balance = %s", got.InvoiceBalanceDue)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ApplyPaymentCredit(tx, inv.InvoiceID, decimal.RequireFromString("600.00"))
	}))

	require.NoError(t, db.First(&got, "invoice_id = ?", inv.InvoiceID).Error)
	assert.Equal(t, invoiceModel.InvoiceStatusPaid, got.InvoiceStatus)
	assert.True(t, got.InvoiceBalanceDue.IsZero(), "balance = %s", got.InvoiceBalanceDue)
}

func TestMarkOverdue(t *testing.T) {
	db := newTestDB(t)
	svc := seedService(t, db, "CONS-01", "100.00", true)

	due := seedInvoice(t, db, []NewItem{{ServiceID: svc.ServiceID, Quantity: 1}})
	require.NoError(t, db.Model(&invoiceModel.Invoice{}).
		Where("invoice_id = ?", due.InvoiceID).
		UpdateColumn("invoice_due_date", time.Now().AddDate(0, 0, -3)).Error)

	notDue := seedInvoice(t, db, []NewItem{{ServiceID: svc.ServiceID, Quantity: 1}})

	n, err := MarkOverdue(db, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var gotDue invoiceModel.Invoice
	require.NoError(t, db.First(&gotDue, "invoice_id = ?", due.InvoiceID).Error)
	assert.Equal(t, invoiceModel.InvoiceStatusOverdue, gotDue.InvoiceStatus)

	var gotNotDue invoiceModel.Invoice
	require.NoError(t, db.First(&gotNotDue, "invoice_id = ?", notDue.InvoiceID).Error)
	assert.Equal(t, invoiceModel.InvoiceStatusPending, gotNotDue.InvoiceStatus)
}
