package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseAge(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"16", 16, true},
		{" 11 ", 11, true},
		{"99", 99, true},
		{"10", 0, false},
		{"100", 0, false},
		{"-5", 0, false},
		{"шестнадцать", 0, false},
		{"16.5", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		age, ok := ParseAge(tt.input)
		assert.Equalf(t, tt.ok, ok, "input %q", tt.input)
		assert.Equalf(t, tt.want, age, "input %q", tt.input)
	}
}

func TestParseFee(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"0", 0, true},
		{"1500", 1500, true},
		{"1500.50", 1500.50, true},
		{"1500,50", 1500.50, true},
		{"-1", 0, false},
		{"free", 0, false},
	}

	for _, tt := range tests {
		fee, ok := ParseFee(tt.input)
		assert.Equalf(t, tt.ok, ok, "input %q", tt.input)
		assert.Equalf(t, tt.want, fee, "input %q", tt.input)
	}
}

func TestValidateConferenceDate(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"tomorrow is the earliest allowed day", "2026-08-31", "2026-08-31", false},
		{"today is too early", "2026-08-30", "", true},
		{"yesterday is too early", "2026-08-29", "", true},
		{"next year is fine", "2027-03-15", "2027-03-15", false},
		{"six years out is too late", "2032-09-01", "", true},
		{"wrong format", "31.08.2026", "", true},
		{"not a date", "скоро", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, errMsg := ValidateConferenceDate(tt.input, now)

			if tt.wantErr {
				assert.NotEmpty(t, errMsg)
				return
			}

			assert.Empty(t, errMsg)
			assert.Equal(t, tt.want, date)
		})
	}
}

func TestValidateConferenceDate_LocalMidnight(t *testing.T) {
	// поздний вечер в западном поясе: граница считается от местной полуночи
	zone := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2026, 8, 30, 23, 0, 0, 0, zone)

	date, errMsg := ValidateConferenceDate("2026-08-31", now)
	assert.Empty(t, errMsg)
	assert.Equal(t, "2026-08-31", date)

	_, errMsg = ValidateConferenceDate("2026-08-30", now)
	assert.NotEmpty(t, errMsg)
}

func TestValidateDateWindow(t *testing.T) {
	// single-day conference: start equals end
	assert.Empty(t, ValidateDateWindow("2026-10-01", "2026-10-01"))
	assert.Empty(t, ValidateDateWindow("2026-10-01", "2026-10-03"))
	assert.NotEmpty(t, ValidateDateWindow("2026-10-03", "2026-10-01"))
}

func TestIsSkip(t *testing.T) {
	assert.True(t, IsSkip("нет"))
	assert.True(t, IsSkip("  НЕТ "))
	assert.False(t, IsSkip("да"))
	assert.False(t, IsSkip(""))
}

func TestParseTarget(t *testing.T) {
	target, id := ParseTarget("@ivan")
	assert.Equal(t, "ivan", target)
	assert.Zero(t, id)

	target, id = ParseTarget(" 123456 ")
	assert.Equal(t, "123456", target)
	assert.Equal(t, int64(123456), id)

	target, id = ParseTarget("Иван Петров")
	assert.Equal(t, "Иван Петров", target)
	assert.Zero(t, id)
}

func TestCallbackID(t *testing.T) {
	assert.Equal(t, "conf_create_approve_42", callbackData("conf_create_approve", 42))

	id, ok := callbackID("conf_create_approve_42", "conf_create_approve")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	// a longer prefix must not be claimed by its own prefix
	_, ok = callbackID("conf_create_approve_42", "conf_create")
	assert.False(t, ok)

	_, ok = callbackID("conf_create_approve_", "conf_create_approve")
	assert.False(t, ok)
}
