package schedulers

import (
	"log"
	"time"

	"gorm.io/gorm"

	invoiceService "afyacare_backend/internals/features/billing/invoices/service"
	paymentService "afyacare_backend/internals/features/billing/payments/service"
)

// StartBillingSchedulers runs the background sweeps:
//   - expire open MPESA payments whose callback never arrived
//   - flip past-due PENDING/PARTIALLY_PAID invoices to OVERDUE
func StartBillingSchedulers(db *gorm.DB, settlement *paymentService.SettlementService) {
	go func() {
		log.Println("⏰ payment timeout sweeper started")
		for {
			n, err := settlement.ExpireTimedOut(time.Now())
			if err != nil {
				log.Printf("[ERROR] payment timeout sweep: %v", err)
			} else if n > 0 {
				log.Printf("[INFO] payment timeout sweep: %d payment(s) expired", n)
			}
			time.Sleep(1 * time.Minute)
		}
	}()

	go func() {
		log.Println("⏰ overdue invoice sweeper started")
		for {
			n, err := invoiceService.MarkOverdue(db, time.Now())
			if err != nil {
				log.Printf("[ERROR] overdue invoice sweep: %v", err)
			} else if n > 0 {
				log.Printf("[INFO] overdue invoice sweep: %d invoice(s) marked", n)
			}
			time.Sleep(1 * time.Hour)
		}
	}()
}
