package domain

import (
	"testing"
	"time"
)

func TestFilter_Matches(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	log := &AuditLog{UserID: "u1", Action: "login_success", Resource: "session", CreatedAt: at}

	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"zero filter", Filter{}, true},
		{"user match", Filter{UserID: "u1"}, true},
		{"user mismatch", Filter{UserID: "u2"}, false},
		{"action and resource", Filter{Action: "login_success", Resource: "session"}, true},
		{"resource mismatch", Filter{Resource: "user"}, false},
		{"since equal", Filter{Since: at}, true},
		{"since after", Filter{Since: at.Add(time.Second)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Matches(log); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
