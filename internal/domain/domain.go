// Package domain defines the core entities shared across the migration pipeline.
package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jonesrussell/gomigrate/internal/errors"
)

// StatusActive is the source registrar's lifecycle status for a transferable domain.
const StatusActive = "ACTIVE"

// Domain is the source registrar's view of one registered domain.
// The pipeline only reads it, except for the fields the prepare step
// explicitly mutates (lock, privacy, auto-renew, nameservers).
type Domain struct {
	Name                string    `json:"domain"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"createdAt"`
	Locked              bool      `json:"locked"`
	Privacy             bool      `json:"privacy"`
	RenewAuto           bool      `json:"renewAuto"`
	TransferProtected   bool      `json:"transferProtected"`
	ExposeWhois         bool      `json:"exposeWhois"`
	Nameservers         []string  `json:"nameServers"`
	AuthCode            string    `json:"authCode,omitempty"`
	ExpirationProtected bool      `json:"expirationProtected"`
}

// Age returns the time elapsed since the domain was registered.
func (d *Domain) Age(now time.Time) time.Duration {
	return now.Sub(d.CreatedAt)
}

// ValidateName rejects malformed domain names before any provider call
// is made with them.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &apperrors.ValidationError{Field: "domain", Message: "name is empty"}
	case strings.ContainsAny(name, " \t"):
		return &apperrors.ValidationError{Field: "domain", Message: fmt.Sprintf("%q contains whitespace", name)}
	case !strings.Contains(strings.Trim(name, "."), "."):
		return &apperrors.ValidationError{Field: "domain", Message: fmt.Sprintf("%q is not a registrable domain", name)}
	}
	return nil
}

// RegistrantContact is the ICANN-mandated contact payload required to
// initiate a registrar transfer at the destination.
type RegistrantContact struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Organization string `json:"organization,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	Country      string `json:"country"`
}
