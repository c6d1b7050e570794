package database

import (
	"log"

	invoiceModel "afyacare_backend/internals/features/billing/invoices/model"
	paymentModel "afyacare_backend/internals/features/billing/payments/model"
	serviceModel "afyacare_backend/internals/features/billing/services/model"
	labModel "afyacare_backend/internals/features/labs/model"
	patientModel "afyacare_backend/internals/features/patients/model"
	securityModel "afyacare_backend/internals/features/security/model"
	userModel "afyacare_backend/internals/features/users/model"
)

// Migrate creates/updates every table. Ordered so that referenced
// tables exist before their dependents.
func Migrate() {
	err := DB.AutoMigrate(
		&userModel.User{},
		&patientModel.Patient{},
		&serviceModel.Service{},
		&invoiceModel.Invoice{},
		&invoiceModel.InvoiceItem{},
		&invoiceModel.InvoiceSequence{},
		&paymentModel.Payment{},
		&labModel.TestType{},
		&labModel.LabOrder{},
		&labModel.LabResult{},
		&securityModel.AuditLog{},
		&securityModel.BlockedIP{},
	)
	if err != nil {
		log.Fatalf("❌ migration failed: %v", err)
	}
	log.Println("✅ migrations applied")
}
