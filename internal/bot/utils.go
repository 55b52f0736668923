package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const conferenceDateLayout = "2006-01-02"

// skipSentinel is what a user types to skip an optional photo step.
const skipSentinel = "нет"

func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func IsSkip(text string) bool {
	return NormalizeText(text) == skipSentinel
}

// ParseAge accepts whole numbers in the 11-99 range only.
func ParseAge(text string) (int, bool) {
	age, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}

	if age < 11 || age > 99 {
		return 0, false
	}

	return age, true
}

// ParseFee accepts a non-negative decimal; a comma decimal separator is
// tolerated.
func ParseFee(text string) (float64, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")

	fee, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}

	if fee < 0 {
		return 0, false
	}

	return fee, true
}

// ValidateConferenceDate parses a ГГГГ-ММ-ДД date and checks the window:
// no earlier than tomorrow, no later than about five years out. Returns the
// normalized date string or a user-facing error message.
func ValidateConferenceDate(text string, now time.Time) (string, string) {
	parsed, err := time.ParseInLocation(conferenceDateLayout, strings.TrimSpace(text), now.Location())
	if err != nil {
		return "", "Неверный формат даты. Используйте строго ГГГГ-ММ-ДД."
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	minDate := today.AddDate(0, 0, 1)
	maxDate := today.AddDate(0, 0, 5*365+1)

	if parsed.Before(minDate) {
		return "", fmt.Sprintf("Дата проведения не может быть раньше завтрашнего дня (%s).", minDate.Format("02.01.2006"))
	}

	if parsed.After(maxDate) {
		return "", "Дата проведения не может быть позже, чем через 5 лет."
	}

	return parsed.Format(conferenceDateLayout), ""
}

// ValidateDateWindow checks start <= end; both dates are already validated
// individually. A single-day conference has start == end.
func ValidateDateWindow(start, end string) string {
	startDate, err := time.Parse(conferenceDateLayout, start)
	if err != nil {
		return "Неверный формат даты начала."
	}

	endDate, err := time.Parse(conferenceDateLayout, end)
	if err != nil {
		return "Неверный формат даты окончания."
	}

	if endDate.Before(startDate) {
		return "Дата окончания не может быть раньше даты начала."
	}

	return ""
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// callbackData stitches an entity id onto a callback prefix.
func callbackData(prefix string, id int64) string {
	return fmt.Sprintf("%s_%d", prefix, id)
}

// callbackID extracts the trailing id from callback data such as
// "conf_create_approve_42". Returns false when the prefix does not match.
func callbackID(data, prefix string) (int64, bool) {
	if !strings.HasPrefix(data, prefix+"_") {
		return 0, false
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix+"_"), 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// ParseTarget resolves an operator command target: "@name", a plain name or
// a numeric telegram id. Returns the cleaned target and the id when numeric.
func ParseTarget(raw string) (string, int64) {
	target := strings.TrimPrefix(strings.TrimSpace(raw), "@")

	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return target, 0
	}

	return target, id
}
