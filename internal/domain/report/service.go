package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/urbancare/urbancare/internal/domain/appointment"
	"github.com/urbancare/urbancare/internal/domain/payment"
	"github.com/urbancare/urbancare/internal/platform/auth"
)

// weeklyCapacity is the appointment count treated as a fully booked doctor.
const weeklyCapacity = 40

const dayFormat = "2006-01-02"

type Service struct {
	source Source
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(source Source, logger zerolog.Logger) *Service {
	return &Service{source: source, logger: logger, now: time.Now}
}

// Dashboard builds the landing-page snapshot for today.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	users, err := s.source.Users(ctx)
	if err != nil {
		return nil, err
	}
	appts, err := s.source.Appointments(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	payments, err := s.source.Payments(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{AppointmentsToday: len(appts)}
	for _, u := range users {
		switch u.Role {
		case auth.RolePatient:
			stats.TotalPatients++
		case auth.RoleDoctor:
			stats.TotalDoctors++
		case auth.RoleStaff, auth.RoleManager:
			stats.TotalStaff++
		}
	}
	for _, p := range payments {
		switch p.Status {
		case payment.StatusPending:
			stats.PendingPayments++
		case payment.StatusCompleted:
			stats.RevenueToday += p.Amount
		}
	}
	return stats, nil
}

// Appointments reduces the window's appointments by day, status, and doctor.
func (s *Service) Appointments(ctx context.Context, w Window) (*AppointmentReport, error) {
	appts, err := s.source.Appointments(ctx, w.From, w.To)
	if err != nil {
		return nil, err
	}

	r := &AppointmentReport{
		From:     w.From.Format(dayFormat),
		To:       w.To.Format(dayFormat),
		Total:    len(appts),
		ByStatus: make(map[appointment.Status]int),
	}
	byDay := make(map[string]int)
	byDoctor := make(map[uuid.UUID]*DoctorCount)
	for _, a := range appts {
		r.ByStatus[a.Status]++
		byDay[a.StartsAt.UTC().Format(dayFormat)]++
		dc, ok := byDoctor[a.DoctorID]
		if !ok {
			dc = &DoctorCount{DoctorID: a.DoctorID, Name: a.DoctorName}
			byDoctor[a.DoctorID] = dc
		}
		dc.Count++
	}

	r.ByDay = sortedDayCounts(byDay)
	for _, dc := range byDoctor {
		r.ByDoctor = append(r.ByDoctor, *dc)
	}
	sort.Slice(r.ByDoctor, func(i, j int) bool { return r.ByDoctor[i].Count > r.ByDoctor[j].Count })
	return r, nil
}

// Revenue reduces completed payments into totals, averages, and breakdowns.
func (s *Service) Revenue(ctx context.Context, w Window) (*RevenueReport, error) {
	payments, err := s.source.Payments(ctx, w.From, w.To)
	if err != nil {
		return nil, err
	}

	r := &RevenueReport{
		From:     w.From.Format(dayFormat),
		To:       w.To.Format(dayFormat),
		ByMethod: make(map[payment.Method]float64),
	}
	byDay := make(map[string]float64)
	for _, p := range payments {
		switch p.Status {
		case payment.StatusCompleted:
			r.Total += p.Amount
			r.Count++
			r.ByMethod[p.Method] += p.Amount
			byDay[p.CreatedAt.UTC().Format(dayFormat)] += p.Amount
		case payment.StatusRefunded:
			r.Refunded += p.Amount
		}
	}
	if r.Count > 0 {
		r.Average = r.Total / float64(r.Count)
	}

	for day, amount := range byDay {
		r.ByDay = append(r.ByDay, DayAmount{Date: day, Amount: amount})
	}
	sort.Slice(r.ByDay, func(i, j int) bool { return r.ByDay[i].Date < r.ByDay[j].Date })
	return r, nil
}

// Users is the admin-only account census.
func (s *Service) Users(ctx context.Context) (*UsersReport, error) {
	users, err := s.source.Users(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	r := &UsersReport{
		Total:  len(users),
		ByRole: make(map[auth.Role]int),
	}
	for _, u := range users {
		r.ByRole[u.Role]++
		if u.EmailVerified {
			r.EmailVerified++
		}
		if !u.CreatedAt.Before(monthStart) {
			r.NewThisMonth++
		}
	}
	return r, nil
}

// PatientVisits tallies completed visits per patient, busiest first.
func (s *Service) PatientVisits(ctx context.Context, w Window) ([]PatientVisits, error) {
	appts, err := s.source.Appointments(ctx, w.From, w.To)
	if err != nil {
		return nil, err
	}

	byPatient := make(map[uuid.UUID]*PatientVisits)
	for _, a := range appts {
		if a.Status != appointment.StatusCompleted {
			continue
		}
		pv, ok := byPatient[a.PatientID]
		if !ok {
			pv = &PatientVisits{PatientID: a.PatientID, Name: a.PatientName}
			byPatient[a.PatientID] = pv
		}
		pv.Visits++
		day := a.StartsAt.UTC().Format(dayFormat)
		if day > pv.LastVisit {
			pv.LastVisit = day
		}
	}

	out := make([]PatientVisits, 0, len(byPatient))
	for _, pv := range byPatient {
		out = append(out, *pv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Visits > out[j].Visits })
	return out, nil
}

// Utilization scores each doctor's appointment count against the weekly
// capacity, clamped to 100 percent. All statuses count.
func (s *Service) Utilization(ctx context.Context, w Window) ([]DoctorUtilization, error) {
	appts, err := s.source.Appointments(ctx, w.From, w.To)
	if err != nil {
		return nil, err
	}

	byDoctor := make(map[uuid.UUID]*DoctorUtilization)
	for _, a := range appts {
		du, ok := byDoctor[a.DoctorID]
		if !ok {
			du = &DoctorUtilization{DoctorID: a.DoctorID, Name: a.DoctorName}
			byDoctor[a.DoctorID] = du
		}
		du.Appointments++
	}

	out := make([]DoctorUtilization, 0, len(byDoctor))
	for _, du := range byDoctor {
		pct := int(math.Round(float64(du.Appointments) / weeklyCapacity * 100))
		if pct > 100 {
			pct = 100
		}
		du.Utilization = pct
		out = append(out, *du)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Utilization > out[j].Utilization })
	return out, nil
}

// Financial summarizes revenue, refunds, and outstanding balances.
func (s *Service) Financial(ctx context.Context, w Window) (*FinancialSummary, error) {
	payments, err := s.source.Payments(ctx, w.From, w.To)
	if err != nil {
		return nil, err
	}

	r := &FinancialSummary{
		From: w.From.Format(dayFormat),
		To:   w.To.Format(dayFormat),
	}
	for _, p := range payments {
		switch p.Status {
		case payment.StatusCompleted:
			r.Revenue += p.Amount
		case payment.StatusRefunded:
			r.Refunded += p.Amount
		case payment.StatusPending:
			r.Outstanding += p.Amount
		}
	}
	r.NetRevenue = r.Revenue - r.Refunded
	return r, nil
}

// Overview bundles the manager's morning snapshot.
func (s *Service) Overview(ctx context.Context, w Window) (*ManagerOverview, error) {
	stats, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	utilization, err := s.Utilization(ctx, w)
	if err != nil {
		return nil, err
	}
	appts, err := s.Appointments(ctx, w)
	if err != nil {
		return nil, err
	}
	return &ManagerOverview{
		Stats:        *stats,
		Utilization:  utilization,
		Appointments: *appts,
	}, nil
}

// ExportAppointmentsCSV streams the window's appointments as CSV.
func (s *Service) ExportAppointmentsCSV(ctx context.Context, w Window, out io.Writer) error {
	appts, err := s.source.Appointments(ctx, w.From, w.To)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(out)
	if err := cw.Write([]string{"id", "patient", "doctor", "starts_at", "ends_at", "status", "reason", "fee"}); err != nil {
		return err
	}
	for _, a := range appts {
		row := []string{
			a.ID.String(),
			a.PatientName,
			a.DoctorName,
			a.StartsAt.UTC().Format(time.RFC3339),
			a.EndsAt.UTC().Format(time.RFC3339),
			string(a.Status),
			a.Reason,
			fmt.Sprintf("%.2f", a.Fee),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func sortedDayCounts(byDay map[string]int) []DayCount {
	out := make([]DayCount, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, DayCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
