package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edconde/clinica3s/internal/model"
)

func TestAppointmentOrderBy(t *testing.T) {
	tests := []struct {
		name string
		sort model.AppointmentSort
		want string
	}{
		{"zero value", model.AppointmentSort{}, "a.date_time ASC, a.id ASC"},
		{"date desc", model.AppointmentSort{Field: model.SortByDateTime, Desc: true}, "a.date_time DESC, a.id DESC"},
		{"amount", model.AppointmentSort{Field: model.SortByTotalAmount}, "a.total_amount ASC, a.id ASC"},
		{"status desc", model.AppointmentSort{Field: model.SortByStatus, Desc: true}, "a.status DESC, a.id DESC"},
		{"injection falls back", model.AppointmentSort{Field: "date_time; DROP TABLE appointments"}, "a.date_time ASC, a.id ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, appointmentOrderBy(tt.sort))
		})
	}
}
