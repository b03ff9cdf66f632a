package db

import "testing"

func TestValidChannel(t *testing.T) {
	tests := []struct {
		channel string
		want    bool
	}{
		{"email", true},
		{"push", true},
		{"sms", false},
		{"webhook", false},
		{"", false},
		{"EMAIL", false},
	}

	for _, tt := range tests {
		if got := ValidChannel(tt.channel); got != tt.want {
			t.Errorf("ValidChannel(%q) = %v, want %v", tt.channel, got, tt.want)
		}
	}
}

func TestValidReminderStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{ReminderPending, true},
		{ReminderSent, true},
		{ReminderError, true},
		{ReminderCancelled, true},
		{"scheduled", false},
		{"sending", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidReminderStatus(tt.status); got != tt.want {
			t.Errorf("ValidReminderStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestTerminalReminderStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{ReminderSent, true},
		{ReminderError, true},
		{ReminderCancelled, true},
		{ReminderPending, false},
		{"bogus", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := TerminalReminderStatus(tt.status); got != tt.want {
			t.Errorf("TerminalReminderStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
