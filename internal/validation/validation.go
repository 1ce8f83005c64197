// Package validation содержит клиентскую проверку полей форм дашборда.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/mmeshcher/fieldservice-dashboard/internal/apperror"
	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
)

const minPasswordLength = 8

var hourLayouts = []string{"15:04", "15:04:05"}

// ValidateRegistration проверяет данные регистрации.
func ValidateRegistration(username, email, fullName, password string) error {
	verr := &apperror.ValidationError{}

	if strings.TrimSpace(username) == "" {
		verr.Add("username", "Username is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		verr.Add("email", "Email must be a valid email address")
	}
	if strings.TrimSpace(fullName) == "" {
		verr.Add("fullName", "Full name is required")
	}
	if len(password) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	return verr.OrNil()
}

// ValidateCreateOrder проверяет черновик заказа перед отправкой. Дата начала не может
// быть раньше now с точностью до минуты.
func ValidateCreateOrder(in model.CreateOrder, now time.Time) error {
	verr := &apperror.ValidationError{}

	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "Order name is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		verr.Add("description", "Description is required")
	}
	if !in.Priority.Valid() {
		verr.Add("priority", "Priority must be one of High, Medium, Low")
	}

	switch {
	case in.StartDate.IsZero():
		verr.Add("start_date", "Start date is required")
	case in.StartDate.Before(now.Truncate(time.Minute)):
		verr.Add("start_date", "Start date cannot be in the past")
	}

	switch {
	case in.EndDate.IsZero():
		verr.Add("end_date", "End date is required")
	case !in.StartDate.IsZero() && !in.EndDate.After(in.StartDate):
		verr.Add("end_date", "End date must be after start date")
	}

	if strings.TrimSpace(in.LocationAddress) == "" {
		verr.Add("location_address", "Location address is required")
	}
	if in.TeamID <= 0 {
		verr.Add("teamId", "Technician team is required")
	}
	if len(in.Services) == 0 {
		verr.Add("services", "Select at least one service")
	}

	return verr.OrNil()
}

// NormalizeHour приводит время суток к виду HH:mm.
func NormalizeHour(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range hourLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("invalid time of day %q", s)
}

// ValidateDailyBreaks проверяет перерывы бригады и возвращает их в виде HH:mm.
// Пересечения перерывов между собой и с занятостью бригады не проверяются.
func ValidateDailyBreaks(breaks []model.DailyBreak) ([]model.DailyBreak, error) {
	verr := &apperror.ValidationError{}
	out := make([]model.DailyBreak, 0, len(breaks))

	for i, b := range breaks {
		prefix := fmt.Sprintf("dailyBreaks[%d]", i)

		start, startErr := NormalizeHour(b.StartHour)
		if startErr != nil {
			verr.Add(prefix+".start_hour", "Start hour is required")
		}
		end, endErr := NormalizeHour(b.EndHour)
		if endErr != nil {
			verr.Add(prefix+".end_hour", "End hour is required")
		}
		if startErr == nil && endErr == nil && end <= start {
			verr.Add(prefix+".end_hour", "End hour must be after start hour")
		}

		out = append(out, model.DailyBreak{StartHour: start, EndHour: end})
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}
