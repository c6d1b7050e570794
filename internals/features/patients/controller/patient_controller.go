package controller

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"afyacare_backend/internals/features/patients/dto"
	"afyacare_backend/internals/features/patients/model"
	helper "afyacare_backend/internals/helpers"
)

type PatientController struct {
	DB        *gorm.DB
	Validator *validator.Validate
}

func NewPatientController(db *gorm.DB) *PatientController {
	return &PatientController{DB: db, Validator: validator.New()}
}

// generateMRN returns MRN-YYYYMMDD-XXXX with a random 4-digit suffix.
// The unique index on patient_mrn catches the rare collision; callers
// retry a few times before giving up.
func generateMRN(now time.Time) string {
	n, _ := rand.Int(rand.Reader, big.NewInt(10000))
	return fmt.Sprintf("MRN-%s-%04d", now.Format("20060102"), n.Int64())
}

// RegisterPatient creates the patient and assigns the MRN.
func (h *PatientController) RegisterPatient(c *fiber.Ctx) error {
	var req dto.CreatePatientRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.ValidationFailed(c, err)
	}

	patient, err := req.ToModel()
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
	}
	if patient.PatientDateOfBirth.After(time.Now()) {
		return helper.Error(c, fiber.StatusBadRequest, "date_of_birth cannot be in the future")
	}

	var created bool
	for attempt := 0; attempt < 5 && !created; attempt++ {
		patient.PatientMRN = generateMRN(time.Now())
		if err := h.DB.Create(patient).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return helper.Error(c, fiber.StatusInternalServerError, "Failed to register patient")
		}
		created = true
	}
	if !created {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to allocate MRN")
	}

	return helper.SuccessWithCode(c, fiber.StatusCreated, "Patient registered", dto.FromModel(patient))
}

// ListPatients supports ?search= (MRN, name, phone, national id),
// ?active= and paging.
func (h *PatientController) ListPatients(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 20, 100)

	q := h.DB.Model(&model.Patient{})
	if active := c.Query("active"); active != "" {
		q = q.Where("patient_is_active = ?", active == "true")
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where(
			"patient_mrn ILIKE ? OR patient_first_name ILIKE ? OR patient_last_name ILIKE ? OR patient_phone_number ILIKE ? OR patient_national_id ILIKE ?",
			like, like, like, like, like,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to count patients")
	}

	var patients []model.Patient
	if err := q.Order("patient_last_name ASC, patient_first_name ASC").
		Offset(paging.Offset).Limit(paging.Limit).
		Find(&patients).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to list patients")
	}

	items := make([]dto.PatientResponse, 0, len(patients))
	for i := range patients {
		items = append(items, dto.FromModel(&patients[i]))
	}

	return helper.Success(c, "Patients fetched", fiber.Map{
		"items":      items,
		"pagination": helper.BuildPagination(total, paging.Page, paging.PerPage),
	})
}

func (h *PatientController) GetPatientByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid patient id")
	}

	var patient model.Patient
	if err := h.DB.First(&patient, "patient_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "Patient not found")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load patient")
	}
	return helper.Success(c, "Patient fetched", dto.FromModel(&patient))
}

func (h *PatientController) PatchPatient(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid patient id")
	}

	var req dto.UpdatePatientRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.ValidationFailed(c, err)
	}

	var patient model.Patient
	if err := h.DB.First(&patient, "patient_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.Error(c, fiber.StatusNotFound, "Patient not found")
		}
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to load patient")
	}

	req.Apply(&patient)
	if err := h.DB.Save(&patient).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to update patient")
	}
	return helper.Success(c, "Patient updated", dto.FromModel(&patient))
}

// DeactivatePatient flips the active flag; clinical history is kept.
func (h *PatientController) DeactivatePatient(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid patient id")
	}

	res := h.DB.Model(&model.Patient{}).
		Where("patient_id = ? AND patient_is_active = ?", id, true).
		Update("patient_is_active", false)
	if res.Error != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Failed to deactivate patient")
	}
	if res.RowsAffected == 0 {
		return helper.Error(c, fiber.StatusNotFound, "Patient not found or already inactive")
	}
	return helper.Success(c, "Patient deactivated", nil)
}
