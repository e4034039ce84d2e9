// Package rates models the interpreting rate catalog: the immutable RateRow,
// the seed-driven generator and the version-tagged table readers consult.
package rates

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Category is the interpreter accreditation level
type Category string

const (
	CategoryProfessional     Category = "professional"
	CategoryParaprofessional Category = "paraprofessional"
	CategoryRecognised       Category = "recognised"
)

// Scheduling is how the appointment was booked
type Scheduling string

const (
	OnDemand  Scheduling = "on_demand"
	PreBooked Scheduling = "pre_booked"
)

// Channel is the communication channel
type Channel string

const (
	Audio      Channel = "audio"
	Video      Channel = "video"
	FaceToFace Channel = "face_to_face"
)

// Mode is the interpreting mode
type Mode string

const (
	Consecutive  Mode = "consecutive"
	Simultaneous Mode = "simultaneous"
	Escort       Mode = "escort"
	SignLanguage Mode = "sign_language"
)

// WholeDay reports whether the mode is booked as a flat whole working day
func (m Mode) WholeDay() bool {
	return m == Simultaneous || m == Escort
}

// Qualifier is the time-of-day rate variant
type Qualifier string

const (
	StandardHours Qualifier = "standard_hours"
	AfterHours    Qualifier = "after_hours"
)

// Sequence distinguishes the first priced interval from repeating overtime
type Sequence string

const (
	FirstBlock      Sequence = "first_block"
	AdditionalBlock Sequence = "additional_block"
)

// Topic is the appointment subject; legal and medical use the special column
type Topic string

const (
	TopicGeneral Topic = "general"
	TopicLegal   Topic = "legal"
	TopicMedical Topic = "medical"
)

// Special reports whether the topic is billed at the special rate
func (t Topic) Special() bool {
	return t == TopicLegal || t == TopicMedical
}

// Role is the side of the transaction a price column belongs to
type Role string

const (
	RoleClient      Role = "client"
	RoleInterpreter Role = "interpreter"
)

func parseEnum[T ~string](kind, s string, allowed ...T) (T, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range allowed {
		if string(a) == s {
			return a, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", kind, s)
}

func ParseCategory(s string) (Category, error) {
	return parseEnum("category", s, CategoryProfessional, CategoryParaprofessional, CategoryRecognised)
}

func ParseScheduling(s string) (Scheduling, error) {
	return parseEnum("scheduling mode", s, OnDemand, PreBooked)
}

func ParseChannel(s string) (Channel, error) {
	return parseEnum("channel", s, Audio, Video, FaceToFace)
}

func ParseMode(s string) (Mode, error) {
	return parseEnum("interpreting mode", s, Consecutive, Simultaneous, Escort, SignLanguage)
}

func ParseQualifier(s string) (Qualifier, error) {
	return parseEnum("qualifier", s, StandardHours, AfterHours)
}

func ParseSequence(s string) (Sequence, error) {
	return parseEnum("block sequence", s, FirstBlock, AdditionalBlock)
}

// ParseTopic maps anything that is not legal or medical to general
func ParseTopic(s string) Topic {
	t, err := parseEnum("topic", s, TopicLegal, TopicMedical)
	if err != nil {
		return TopicGeneral
	}
	return t
}

func ParseRole(s string) (Role, error) {
	return parseEnum("payer role", s, RoleClient, RoleInterpreter)
}

// Service identifies an offering independent of time of day and block
type Service struct {
	Category   Category   `json:"category"`
	Scheduling Scheduling `json:"scheduling"`
	Channel    Channel    `json:"channel"`
	Mode       Mode       `json:"mode"`
}

// String returns a deterministic representation
func (s Service) String() string {
	return string(s.Category) + "/" + string(s.Scheduling) + "/" + string(s.Channel) + "/" + string(s.Mode)
}

// Key uniquely identifies a rate row
type Key struct {
	Service
	Qualifier Qualifier `json:"qualifier"`
	Sequence  Sequence  `json:"sequence"`
}

// KeyFor builds a key from a service
func KeyFor(s Service, q Qualifier, seq Sequence) Key {
	return Key{Service: s, Qualifier: q, Sequence: seq}
}

// String returns a deterministic representation
func (k Key) String() string {
	return k.Service.String() + "/" + string(k.Qualifier) + "/" + string(k.Sequence)
}

// PriceSet carries the four columns of one price variant
type PriceSet struct {
	ClientWithTax         decimal.Decimal `json:"client_with_tax"`
	ClientWithoutTax      decimal.Decimal `json:"client_without_tax"`
	InterpreterWithTax    decimal.Decimal `json:"interpreter_with_tax"`
	InterpreterWithoutTax decimal.Decimal `json:"interpreter_without_tax"`
}

// Column selects one price from the set
func (p PriceSet) Column(role Role, taxLiable bool) decimal.Decimal {
	switch {
	case role == RoleInterpreter && taxLiable:
		return p.InterpreterWithTax
	case role == RoleInterpreter:
		return p.InterpreterWithoutTax
	case taxLiable:
		return p.ClientWithTax
	default:
		return p.ClientWithoutTax
	}
}

// Row is an immutable catalog entry
type Row struct {
	Key
	BlockMinutes int      `json:"block_minutes"`
	General      PriceSet `json:"general"`
	Special      PriceSet `json:"special"`
}

// Price returns the column for a payer; special selects the legal/medical variant
func (r Row) Price(role Role, taxLiable, special bool) decimal.Decimal {
	if special {
		return r.Special.Column(role, taxLiable)
	}
	return r.General.Column(role, taxLiable)
}

// Filter selects rows; empty fields match anything
type Filter struct {
	Category   Category
	Scheduling Scheduling
	Channel    Channel
	Mode       Mode
	Qualifier  Qualifier
	Sequence   Sequence
}

// Matches reports whether the row satisfies the filter
func (f Filter) Matches(r Row) bool {
	return (f.Category == "" || f.Category == r.Category) &&
		(f.Scheduling == "" || f.Scheduling == r.Scheduling) &&
		(f.Channel == "" || f.Channel == r.Channel) &&
		(f.Mode == "" || f.Mode == r.Mode) &&
		(f.Qualifier == "" || f.Qualifier == r.Qualifier) &&
		(f.Sequence == "" || f.Sequence == r.Sequence)
}
