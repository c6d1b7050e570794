package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	invoiceModel "afyacare_backend/internals/features/billing/invoices/model"
	paymentModel "afyacare_backend/internals/features/billing/payments/model"
	labModel "afyacare_backend/internals/features/labs/model"
	patientModel "afyacare_backend/internals/features/patients/model"
	helper "afyacare_backend/internals/helpers"
)

type AnalyticsController struct {
	DB *gorm.DB
}

func NewAnalyticsController(db *gorm.DB) *AnalyticsController {
	return &AnalyticsController{DB: db}
}

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Dashboard returns the headline numbers for the back-office landing page.
func (h *AnalyticsController) Dashboard(c *fiber.Ctx) error {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var activePatients int64
	if err := h.DB.Model(&patientModel.Patient{}).
		Where("patient_is_active = ?", true).
		Count(&activePatients).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load dashboard")
	}

	var invoicesByStatus []statusCount
	if err := h.DB.Model(&invoiceModel.Invoice{}).
		Select("invoice_status AS status, COUNT(*) AS count").
		Group("invoice_status").
		Scan(&invoicesByStatus).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load dashboard")
	}

	var outstanding decimal.Decimal
	if err := h.DB.Model(&invoiceModel.Invoice{}).
		Where("invoice_status IN ?", []string{
			invoiceModel.InvoiceStatusPending,
			invoiceModel.InvoiceStatusPartiallyPaid,
			invoiceModel.InvoiceStatusOverdue,
		}).
		Select("COALESCE(SUM(invoice_balance_due), 0)").
		Scan(&outstanding).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load dashboard")
	}

	revenueToday, err := h.completedRevenueSince(startOfDay)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load dashboard")
	}
	revenueMonth, err := h.completedRevenueSince(startOfMonth)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load dashboard")
	}

	var pendingLabOrders int64
	if err := h.DB.Model(&labModel.LabOrder{}).
		Where("lab_order_status IN ?", []string{
			labModel.LabOrderStatusPending,
			labModel.LabOrderStatusCollected,
			labModel.LabOrderStatusInProgress,
		}).
		Count(&pendingLabOrders).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load dashboard")
	}

	return helper.Success(c, "Dashboard fetched", fiber.Map{
		"active_patients":     activePatients,
		"invoices_by_status":  invoicesByStatus,
		"outstanding_balance": outstanding,
		"revenue_today":       revenueToday,
		"revenue_this_month":  revenueMonth,
		"open_lab_orders":     pendingLabOrders,
	})
}

func (h *AnalyticsController) completedRevenueSince(since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := h.DB.Model(&paymentModel.Payment{}).
		Where("payment_status = ?", paymentModel.PaymentStatusCompleted).
		Where("payment_updated_at >= ?", since).
		Select("COALESCE(SUM(payment_amount), 0)").
		Scan(&total).Error
	return total, err
}

type dailyRevenueRow struct {
	Day    string          `json:"day"`
	Total  decimal.Decimal `json:"total"`
	Count  int64           `json:"count"`
	Method string          `json:"method"`
}

// DailyRevenue returns per-day completed payment totals, grouped by
// method, over ?days= (default 30, max 365).
func (h *AnalyticsController) DailyRevenue(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 {
		days = 30
	}
	if days > 365 {
		days = 365
	}
	since := time.Now().AddDate(0, 0, -days)

	var rows []dailyRevenueRow
	if err := h.DB.Model(&paymentModel.Payment{}).
		Select("DATE(payment_updated_at) AS day, payment_method AS method, COALESCE(SUM(payment_amount), 0) AS total, COUNT(*) AS count").
		Where("payment_status = ?", paymentModel.PaymentStatusCompleted).
		Where("payment_updated_at >= ?", since).
		Group("DATE(payment_updated_at), payment_method").
		Order("day DESC").
		Scan(&rows).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load revenue")
	}

	return helper.Success(c, "Daily revenue fetched", rows)
}
