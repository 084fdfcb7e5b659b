// Package report computes operational and financial reporting. Reports fetch
// raw rows for the window and reduce them in memory, which keeps the queries
// trivial and the aggregation logic testable.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/urbancare/urbancare/internal/domain/appointment"
	"github.com/urbancare/urbancare/internal/domain/payment"
	"github.com/urbancare/urbancare/internal/platform/auth"
)

// Window is the half-open reporting interval [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// DashboardStats is the landing-page snapshot.
type DashboardStats struct {
	TotalPatients     int     `json:"total_patients"`
	TotalDoctors      int     `json:"total_doctors"`
	TotalStaff        int     `json:"total_staff"`
	AppointmentsToday int     `json:"appointments_today"`
	PendingPayments   int     `json:"pending_payments"`
	RevenueToday      float64 `json:"revenue_today"`
}

// DayCount is one day's tally.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DayAmount is one day's revenue.
type DayAmount struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// DoctorCount tallies appointments per doctor.
type DoctorCount struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Name     string    `json:"name"`
	Count    int       `json:"count"`
}

// AppointmentReport breaks the window's appointments down by day, status, and
// doctor.
type AppointmentReport struct {
	From     string                     `json:"from"`
	To       string                     `json:"to"`
	Total    int                        `json:"total"`
	ByStatus map[appointment.Status]int `json:"by_status"`
	ByDay    []DayCount                 `json:"by_day"`
	ByDoctor []DoctorCount              `json:"by_doctor"`
}

// RevenueReport summarizes completed payments in the window. Refunds are
// excluded from revenue and reported separately.
type RevenueReport struct {
	From     string                     `json:"from"`
	To       string                     `json:"to"`
	Total    float64                    `json:"total"`
	Average  float64                    `json:"average"`
	Count    int                        `json:"count"`
	Refunded float64                    `json:"refunded"`
	ByMethod map[payment.Method]float64 `json:"by_method"`
	ByDay    []DayAmount                `json:"by_day"`
}

// UsersReport is the admin-only account census.
type UsersReport struct {
	Total         int               `json:"total"`
	ByRole        map[auth.Role]int `json:"by_role"`
	EmailVerified int               `json:"email_verified"`
	NewThisMonth  int               `json:"new_this_month"`
}

// PatientVisits tallies completed visits per patient.
type PatientVisits struct {
	PatientID uuid.UUID `json:"patient_id"`
	Name      string    `json:"name"`
	Visits    int       `json:"visits"`
	LastVisit string    `json:"last_visit,omitempty"`
}

// DoctorUtilization scores one doctor's load against the weekly capacity of
// 40 appointments. Every appointment in the window counts regardless of
// status; the percentage is clamped to 100.
type DoctorUtilization struct {
	DoctorID     uuid.UUID `json:"doctor_id"`
	Name         string    `json:"name"`
	Appointments int       `json:"appointments"`
	Utilization  int       `json:"utilization_pct"`
}

// FinancialSummary is the money view across the window.
type FinancialSummary struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Revenue     float64 `json:"revenue"`
	Refunded    float64 `json:"refunded"`
	Outstanding float64 `json:"outstanding"`
	NetRevenue  float64 `json:"net_revenue"`
}

// ManagerOverview bundles the snapshot a manager opens the day with.
type ManagerOverview struct {
	Stats        DashboardStats      `json:"stats"`
	Utilization  []DoctorUtilization `json:"utilization"`
	Appointments AppointmentReport   `json:"appointments"`
}
