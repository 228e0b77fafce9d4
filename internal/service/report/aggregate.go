package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/edconde/clinica3s/internal/model"
)

const monthLayout = "2006-01"

// Aggregate computes dashboard figures from appointments loaded with their
// details, services and dentists.
//
// Years and months are read on the wall clock of loc (UTC when nil). When year
// is set, appointments dated outside it are ignored everywhere;
// totalPatients is global and passed through unchanged. Money is counted only
// for COMPLETED appointments: every line's cost is incurred, paid lines add to
// invoicing and unpaid lines to pending payments. An appointment is pending
// when it is dated after now, whatever its status.
//
// MonthlyStats and DentistStats come out in no particular order.
func Aggregate(appointments []*model.Appointment, totalPatients int64, year *int, now time.Time, loc *time.Location) *model.DashboardStats {
	if loc == nil {
		loc = time.UTC
	}
	stats := &model.DashboardStats{TotalPatients: totalPatients}
	months := make(map[string]*model.MonthlyStats)
	dentists := make(map[uuid.UUID]*model.DentistStats)

	for _, a := range appointments {
		local := a.DateTime.In(loc)
		if year != nil && local.Year() != *year {
			continue
		}

		stats.TotalAppointments++
		if a.Status == model.AppointmentStatusCompleted {
			stats.CompletedAppointments++
		}
		if a.DateTime.After(now) {
			stats.PendingAppointments++
		}
		if a.IsUnpaid() {
			stats.UnpaidAppointments++
		}

		key := local.Format(monthLayout)
		month, ok := months[key]
		if !ok {
			month = &model.MonthlyStats{Month: key}
			months[key] = month
		}
		month.Appointments++

		dentist, ok := dentists[a.DentistID]
		if !ok {
			dentist = &model.DentistStats{DentistID: a.DentistID}
			if a.Dentist != nil {
				dentist.DentistName = a.Dentist.Name
			}
			dentists[a.DentistID] = dentist
		}
		dentist.Appointments++

		if a.Status != model.AppointmentStatusCompleted {
			continue
		}

		rate := a.Dentist.Rate()
		for _, d := range a.Details {
			amount, cost := d.Amount(), d.Cost()
			stats.TotalCost += cost
			month.Revenue -= cost
			dentist.Revenue -= cost

			if d.IsPaid() {
				stats.TotalInvoicing += amount
				month.Revenue += amount
				dentist.Revenue += amount
				dentist.Commission += amount * rate / 100
			} else {
				stats.PendingPayments += amount
			}
		}
	}

	stats.TotalRevenue = stats.TotalInvoicing - stats.TotalCost

	stats.MonthlyStats = make([]model.MonthlyStats, 0, len(months))
	for _, m := range months {
		stats.MonthlyStats = append(stats.MonthlyStats, *m)
	}
	stats.DentistStats = make([]model.DentistStats, 0, len(dentists))
	for _, d := range dentists {
		stats.DentistStats = append(stats.DentistStats, *d)
	}
	return stats
}

// Sorted returns a copy of stats with months ascending and dentists by name.
func Sorted(stats *model.DashboardStats) *model.DashboardStats {
	out := *stats
	out.MonthlyStats = make([]model.MonthlyStats, len(stats.MonthlyStats))
	copy(out.MonthlyStats, stats.MonthlyStats)
	out.DentistStats = make([]model.DentistStats, len(stats.DentistStats))
	copy(out.DentistStats, stats.DentistStats)

	sort.Slice(out.MonthlyStats, func(i, j int) bool {
		return out.MonthlyStats[i].Month < out.MonthlyStats[j].Month
	})
	sort.Slice(out.DentistStats, func(i, j int) bool {
		a, b := out.DentistStats[i], out.DentistStats[j]
		if a.DentistName != b.DentistName {
			return a.DentistName < b.DentistName
		}
		return a.DentistID.String() < b.DentistID.String()
	})
	return &out
}
