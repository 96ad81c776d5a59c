package models

import "time"

// BillingRecord is an invoice issued to a patient.
type BillingRecord struct {
	ID            string    `bson:"_id"`
	PatientID     string    `bson:"patient_id"`
	Amount        float64   `bson:"amount"`
	Status        string    `bson:"status"` // paid, pending, ...
	PaymentMethod string    `bson:"payment_method"`
	InvoiceDate   time.Time `bson:"invoice_date"`
}

// Patient holds the demographic fields used by clinical reports.
type Patient struct {
	ID          string    `bson:"_id"`
	Gender      string    `bson:"gender"`
	DateOfBirth time.Time `bson:"date_of_birth"`
}

// MedicalRecord captures one admission.
type MedicalRecord struct {
	ID            string     `bson:"_id"`
	PatientID     string     `bson:"patient_id"`
	AdmissionDate time.Time  `bson:"admission_date"`
	DischargeDate *time.Time `bson:"discharge_date,omitempty"`
	Outcome       string     `bson:"outcome"`
	Readmission   bool       `bson:"readmission"`
}

// Appointment links a patient to a staff member.
type Appointment struct {
	ID              string    `bson:"_id"`
	PatientID       string    `bson:"patient_id"`
	StaffID         string    `bson:"staff_id"`
	AppointmentDate time.Time `bson:"appointment_date"`
	Status          string    `bson:"status"` // completed, no-show, pending, scheduled, cancelled
}

// Staff is a hospital employee assigned to a department.
type Staff struct {
	ID           string `bson:"_id"`
	Name         string `bson:"name"`
	DepartmentID string `bson:"department_id"`
}

// Room tracks bed capacity for a department.
type Room struct {
	ID           string `bson:"_id"`
	DepartmentID string `bson:"department_id"`
	Capacity     int    `bson:"capacity"`
	Occupied     int    `bson:"occupied"`
}

// Department is a hospital unit.
type Department struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}
