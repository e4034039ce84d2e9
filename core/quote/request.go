// Package quote prices a whole appointment for both sides of the booking:
// the client charge after discounts and GST, and the interpreter payout.
package quote

import (
	"strings"
	"time"

	"interpreting-pricing/core/discount"
	"interpreting-pricing/core/pricing"
	"interpreting-pricing/core/rates"
	"interpreting-pricing/core/tax"
	apperrors "interpreting-pricing/internal/errors"
)

// DayRequest is one scheduled interval
type DayRequest struct {
	DurationMinutes   int    `json:"duration_minutes"`
	ScheduleStartTime string `json:"schedule_start_time"`
}

// Appointment is the booking descriptor
type Appointment struct {
	InterpreterCategory  string `json:"interpreter_category"`
	SchedulingMode       string `json:"scheduling_mode"`
	CommunicationChannel string `json:"communication_channel"`
	InterpretingMode     string `json:"interpreting_mode"`
	Topic                string `json:"topic"`

	DurationMinutes   int          `json:"duration_minutes"`
	ScheduleStartTime string       `json:"schedule_start_time"`
	ExtraDays         []DayRequest `json:"extra_days,omitempty"`
}

// Payer describes both parties for tax purposes
type Payer struct {
	IsCorporate           bool   `json:"is_corporate"`
	Country               string `json:"country"`
	InterpreterCountry    string `json:"interpreter_country"`
	TaxRegistrationStatus string `json:"tax_registration_status,omitempty"`
}

// Request is everything needed to quote an appointment
type Request struct {
	Appointment Appointment          `json:"appointment"`
	Payer       Payer                `json:"payer"`
	Eligibility discount.Eligibility `json:"eligibility"`
}

// accepted schedule layouts; the zone-less ones are read in the schedule location
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseStart parses an ISO-8601 timestamp
func ParseStart(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperrors.Input("schedule start time is required")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.Input("malformed schedule start time %q", s)
}

// Params parses the service descriptor
func (a Appointment) Params() (pricing.Params, error) {
	var (
		p   pricing.Params
		err error
	)
	if p.Service.Category, err = rates.ParseCategory(a.InterpreterCategory); err != nil {
		return p, apperrors.Input("%v", err)
	}
	if p.Service.Scheduling, err = rates.ParseScheduling(a.SchedulingMode); err != nil {
		return p, apperrors.Input("%v", err)
	}
	if p.Service.Channel, err = rates.ParseChannel(a.CommunicationChannel); err != nil {
		return p, apperrors.Input("%v", err)
	}
	if p.Service.Mode, err = rates.ParseMode(a.InterpretingMode); err != nil {
		return p, apperrors.Input("%v", err)
	}
	p.Topic = rates.ParseTopic(a.Topic)
	return p, nil
}

// Days parses the main day followed by any extra days
func (a Appointment) Days(loc *time.Location) ([]pricing.Day, error) {
	reqs := append([]DayRequest{{DurationMinutes: a.DurationMinutes, ScheduleStartTime: a.ScheduleStartTime}}, a.ExtraDays...)

	days := make([]pricing.Day, 0, len(reqs))
	for i, r := range reqs {
		if r.DurationMinutes <= 0 {
			return nil, apperrors.Input("day %d: duration must be positive, got %d minutes", i, r.DurationMinutes)
		}
		if r.DurationMinutes > pricing.MaxDayMinutes {
			return nil, apperrors.Input("day %d: duration exceeds %d minutes, got %d", i, pricing.MaxDayMinutes, r.DurationMinutes)
		}
		start, err := ParseStart(r.ScheduleStartTime, loc)
		if err != nil {
			return nil, err
		}
		days = append(days, pricing.Day{Start: start, DurationMinutes: r.DurationMinutes})
	}
	return days, nil
}

// Transaction converts the payer descriptor
func (p Payer) Transaction() tax.Transaction {
	return tax.Transaction{
		Corporate:               p.IsCorporate,
		ClientCountry:           p.Country,
		InterpreterCountry:      p.InterpreterCountry,
		InterpreterRegistration: tax.ParseRegistration(p.TaxRegistrationStatus),
	}
}
