package model

import "github.com/google/uuid"

type DashboardStats struct {
	TotalPatients         int64          `json:"totalPatients"`
	TotalAppointments     int64          `json:"totalAppointments"`
	CompletedAppointments int64          `json:"completedAppointments"`
	UnpaidAppointments    int64          `json:"unpaidAppointments"`
	PendingAppointments   int64          `json:"pendingAppointments"`
	TotalRevenue          float64        `json:"totalRevenue"`
	TotalInvoicing        float64        `json:"totalInvoicing"`
	TotalCost             float64        `json:"totalCost"`
	PendingPayments       float64        `json:"pendingPayments"`
	MonthlyStats          []MonthlyStats `json:"monthlyStats"`
	DentistStats          []DentistStats `json:"dentistStats"`
}

type MonthlyStats struct {
	Month        string  `json:"month"`
	Appointments int64   `json:"appointments"`
	Revenue      float64 `json:"revenue"`
}

type DentistStats struct {
	DentistID    uuid.UUID `json:"dentistId"`
	DentistName  string    `json:"dentistName"`
	Appointments int64     `json:"appointments"`
	Revenue      float64   `json:"revenue"`
	Commission   float64   `json:"commission"`
}
