// Package tax decides GST liability and splits amounts into net and tax.
package tax

import (
	"strings"

	"github.com/shopspring/decimal"

	"interpreting-pricing/core/money"
)

// DefaultJurisdiction is the country whose GST applies
const DefaultJurisdiction = "AU"

// Registration is an interpreter's declared GST registration
type Registration string

const (
	Registered    Registration = "registered"
	NotRegistered Registration = "not_registered"
)

// ParseRegistration accepts the two declared states; anything else is unregistered
func ParseRegistration(s string) Registration {
	if Registration(strings.ToLower(strings.TrimSpace(s))) == Registered {
		return Registered
	}
	return NotRegistered
}

// Transaction is the payer side of a booking
type Transaction struct {
	Corporate               bool         `json:"is_corporate"`
	ClientCountry           string       `json:"client_country"`
	InterpreterCountry      string       `json:"interpreter_country"`
	InterpreterRegistration Registration `json:"interpreter_tax_registration,omitempty"`
}

// Liability tells which side pays GST
type Liability struct {
	Client      bool `json:"client"`
	Interpreter bool `json:"interpreter"`
}

// Resolver applies the liability rules for one jurisdiction
type Resolver struct {
	jurisdiction string
}

// NewResolver creates a resolver; an empty jurisdiction means DefaultJurisdiction
func NewResolver(jurisdiction string) *Resolver {
	j := strings.ToUpper(strings.TrimSpace(jurisdiction))
	if j == "" {
		j = DefaultJurisdiction
	}
	return &Resolver{jurisdiction: j}
}

// Jurisdiction returns the country code
func (r *Resolver) Jurisdiction() string {
	return r.jurisdiction
}

// Liability resolves both sides of a transaction. Individual interpreters are
// liable by registration; corporate transactions go by country on both sides.
func (r *Resolver) Liability(tx Transaction) Liability {
	l := Liability{Client: r.inJurisdiction(tx.ClientCountry)}
	if tx.Corporate {
		l.Interpreter = r.inJurisdiction(tx.InterpreterCountry)
	} else {
		l.Interpreter = tx.InterpreterRegistration == Registered
	}
	return l
}

func (r *Resolver) inJurisdiction(country string) bool {
	return strings.EqualFold(strings.TrimSpace(country), r.jurisdiction)
}

// Breakdown is an amount split into net and GST
type Breakdown struct {
	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
}

// Decompose splits a GST-inclusive amount. Non-liable amounts carry no tax.
func Decompose(gross decimal.Decimal, liable bool) Breakdown {
	if !liable {
		return Breakdown{Gross: gross, Net: gross, Tax: decimal.Zero}
	}
	net := money.Net(gross)
	return Breakdown{Gross: gross, Net: net, Tax: gross.Sub(net)}
}

// Compose adds GST to a net amount
func Compose(net decimal.Decimal, liable bool) Breakdown {
	if !liable {
		return Breakdown{Gross: net, Net: net, Tax: decimal.Zero}
	}
	gross := money.Gross(net)
	return Breakdown{Gross: gross, Net: net, Tax: gross.Sub(net)}
}
