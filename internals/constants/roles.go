package constants

// Staff roles used by the auth middleware for access checks.
const (
	RoleAdmin        = "ADMIN"
	RoleDoctor       = "DOCTOR"
	RoleNurse        = "NURSE"
	RoleLabTech      = "LAB_TECH"
	RoleReceptionist = "RECEPTIONIST"
)

var AllRoles = []string{
	RoleAdmin,
	RoleDoctor,
	RoleNurse,
	RoleLabTech,
	RoleReceptionist,
}

// Roles allowed to manage billing (services, invoices, payments).
var BillingRoles = []string{RoleAdmin, RoleReceptionist}

// Roles allowed to order labs and review results.
var ClinicalRoles = []string{RoleAdmin, RoleDoctor, RoleNurse}
