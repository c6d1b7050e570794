package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	analyticsController "afyacare_backend/internals/features/analytics/controller"
	invoiceController "afyacare_backend/internals/features/billing/invoices/controller"
	paymentController "afyacare_backend/internals/features/billing/payments/controller"
	paymentService "afyacare_backend/internals/features/billing/payments/service"
	serviceController "afyacare_backend/internals/features/billing/services/controller"
	labController "afyacare_backend/internals/features/labs/controller"
	patientController "afyacare_backend/internals/features/patients/controller"
	securityController "afyacare_backend/internals/features/security/controller"
	userController "afyacare_backend/internals/features/users/controller"

	"afyacare_backend/internals/constants"
	"afyacare_backend/internals/middlewares"
	authMiddleware "afyacare_backend/internals/middlewares/auth"
)

// SetupRoutes mounts every endpoint under /api. The M-Pesa callback is
// the only unauthenticated billing route; the gateway cannot carry a
// bearer token. The settlement service is shared with the schedulers,
// so the caller constructs it.
func SetupRoutes(app *fiber.App, db *gorm.DB, settlement *paymentService.SettlementService) {
	auth := userController.NewAuthController(db)
	users := userController.NewUserController(db)
	patients := patientController.NewPatientController(db)
	services := serviceController.NewServiceController(db)
	invoices := invoiceController.NewInvoiceController(db)
	payments := paymentController.NewPaymentController(db, settlement)
	labs := labController.NewLabController(db)
	security := securityController.NewSecurityController(db)
	analytics := analyticsController.NewAnalyticsController(db)

	api := app.Group("/api")

	/* ===== Public ===== */
	authGroup := api.Group("/auth")
	authGroup.Post("/register", middlewares.RegisterRateLimiter(), auth.Register)
	authGroup.Post("/login", middlewares.LoginRateLimiter(), auth.Login)
	authGroup.Post("/refresh", auth.Refresh)

	// gateway notification endpoint, acked unconditionally
	api.Post("/billing/mpesa/callback", payments.MpesaCallback)

	/* ===== Authenticated ===== */
	protected := api.Group("", authMiddleware.AuthMiddleware(db))
	protected.Get("/auth/me", auth.Me)

	/* ===== Users (admin) ===== */
	usersGroup := protected.Group("/users", authMiddleware.RoleMiddleware(constants.RoleAdmin))
	usersGroup.Get("/", users.ListUsers)
	usersGroup.Get("/:id", users.GetUserByID)
	usersGroup.Patch("/:id", users.PatchUser)
	usersGroup.Delete("/:id", users.DeactivateUser)

	/* ===== Patients ===== */
	patientsGroup := protected.Group("/patients")
	patientsGroup.Post("/", authMiddleware.RoleMiddleware(constants.RoleAdmin, constants.RoleReceptionist), patients.RegisterPatient)
	patientsGroup.Get("/", patients.ListPatients)
	patientsGroup.Get("/:id", patients.GetPatientByID)
	patientsGroup.Patch("/:id", authMiddleware.RoleMiddleware(constants.RoleAdmin, constants.RoleReceptionist, constants.RoleNurse), patients.PatchPatient)
	patientsGroup.Delete("/:id", authMiddleware.RoleMiddleware(constants.RoleAdmin), patients.DeactivatePatient)

	/* ===== Billing: service catalog ===== */
	servicesGroup := protected.Group("/billing/services")
	servicesGroup.Post("/", authMiddleware.RoleMiddleware(constants.RoleAdmin), services.CreateService)
	servicesGroup.Get("/", services.ListServices)
	servicesGroup.Get("/:id", services.GetServiceByID)
	servicesGroup.Patch("/:id", authMiddleware.RoleMiddleware(constants.RoleAdmin), services.PatchService)
	servicesGroup.Delete("/:id", authMiddleware.RoleMiddleware(constants.RoleAdmin), services.DeactivateService)

	/* ===== Billing: invoices ===== */
	invoicesGroup := protected.Group("/billing/invoices", authMiddleware.RoleMiddleware(constants.BillingRoles...))
	invoicesGroup.Post("/", invoices.CreateInvoice)
	invoicesGroup.Get("/", invoices.ListInvoices)
	invoicesGroup.Get("/:id", invoices.GetInvoiceByID)
	invoicesGroup.Post("/:id/items", invoices.AddItem)
	invoicesGroup.Post("/:id/cancel", invoices.CancelInvoice)
	invoicesGroup.Get("/:id/payments", payments.ListInvoicePayments)

	/* ===== Billing: payments ===== */
	paymentsGroup := protected.Group("/billing/payments", authMiddleware.RoleMiddleware(constants.BillingRoles...))
	paymentsGroup.Post("/", payments.RecordManualPayment)
	paymentsGroup.Post("/mpesa/initiate", payments.InitiateMpesa)
	paymentsGroup.Get("/", payments.ListPayments)
	paymentsGroup.Get("/:id", payments.GetPaymentByID)
	paymentsGroup.Get("/:id/status", payments.QueryPaymentStatus)

	/* ===== Labs ===== */
	labsGroup := protected.Group("/labs")
	labsGroup.Post("/test-types", authMiddleware.RoleMiddleware(constants.RoleAdmin), labs.CreateTestType)
	labsGroup.Get("/test-types", labs.ListTestTypes)
	labsGroup.Post("/orders", authMiddleware.RoleMiddleware(constants.ClinicalRoles...), labs.CreateOrder)
	labsGroup.Get("/orders", labs.ListOrders)
	labsGroup.Get("/orders/:id", labs.GetOrderByID)
	labsGroup.Post("/orders/:id/collect", authMiddleware.RoleMiddleware(constants.RoleAdmin, constants.RoleNurse, constants.RoleLabTech), labs.MarkCollected)
	labsGroup.Post("/orders/:id/start", authMiddleware.RoleMiddleware(constants.RoleAdmin, constants.RoleLabTech), labs.MarkInProgress)
	labsGroup.Post("/orders/:id/result", authMiddleware.RoleMiddleware(constants.RoleAdmin, constants.RoleLabTech), labs.EnterResult)
	labsGroup.Post("/orders/:id/review", authMiddleware.RoleMiddleware(constants.RoleAdmin, constants.RoleDoctor), labs.ReviewOrder)
	labsGroup.Post("/orders/:id/cancel", authMiddleware.RoleMiddleware(constants.ClinicalRoles...), labs.CancelOrder)

	/* ===== Security (admin) ===== */
	securityGroup := protected.Group("/security", authMiddleware.RoleMiddleware(constants.RoleAdmin))
	securityGroup.Get("/audit-logs", security.ListAuditLogs)
	securityGroup.Get("/blocked-ips", security.ListBlockedIPs)
	securityGroup.Post("/blocked-ips", security.BlockIP)
	securityGroup.Delete("/blocked-ips/:id", security.UnblockIP)

	/* ===== Analytics ===== */
	analyticsGroup := protected.Group("/analytics", authMiddleware.RoleMiddleware(constants.RoleAdmin))
	analyticsGroup.Get("/dashboard", analytics.Dashboard)
	analyticsGroup.Get("/revenue/daily", analytics.DailyRevenue)
}
