// Package preflight evaluates whether a domain is eligible for transfer
// before any mutating step runs.
package preflight

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jonesrussell/gomigrate/internal/domain"
	apperrors "github.com/jonesrussell/gomigrate/internal/errors"
)

// MinAgeDays is the ICANN-mandated minimum registration age before a
// domain may be transferred between registrars.
const MinAgeDays = 60

const hoursPerDay = 24

// unsupportedSuffixes lists TLD and SLD suffixes the destination
// registrar cannot accept transfers for.
var unsupportedSuffixes = []string{
	"au",
	"ca",
	"ch",
	"co.uk",
	"com.au",
	"de",
	"es",
	"eu",
	"fr",
	"it",
	"jp",
	"me.uk",
	"nl",
	"org.uk",
	"uk",
}

// Result is the outcome of a preflight evaluation. Eligible is true iff
// Reasons is empty.
type Result struct {
	Eligible bool
	Reasons  []string
}

// Err returns the result as a typed error, or nil when eligible.
func (r Result) Err(domainName string) error {
	if r.Eligible {
		return nil
	}
	return &apperrors.IneligibleError{Domain: domainName, Reasons: r.Reasons}
}

// Evaluate classifies one domain as eligible or ineligible for transfer.
// Pure: the same input always yields the same result, and every rule is
// evaluated independently so a domain can accumulate multiple reasons.
func Evaluate(d *domain.Domain, now time.Time) Result {
	var reasons []string

	if d.Status != domain.StatusActive {
		reasons = append(reasons, fmt.Sprintf("domain status is %s (must be %s)", d.Status, domain.StatusActive))
	}

	ageDays := d.Age(now).Hours() / hoursPerDay
	if ageDays < MinAgeDays {
		remaining := int(math.Ceil(MinAgeDays - ageDays))
		reasons = append(reasons, fmt.Sprintf(
			"domain is younger than %d days; eligible for transfer in %d day(s)", MinAgeDays, remaining))
	}

	if suffix := unsupportedSuffix(d.Name); suffix != "" {
		reasons = append(reasons, fmt.Sprintf("the .%s suffix is not supported by the destination registrar", suffix))
	}

	if d.TransferProtected {
		reasons = append(reasons, "transfer protection is enabled and must be removed in the source provider's dashboard")
	}

	return Result{
		Eligible: len(reasons) == 0,
		Reasons:  reasons,
	}
}

// unsupportedSuffix returns the matching denylisted suffix for the
// domain name, or "" when the suffix is supported.
func unsupportedSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range unsupportedSuffixes {
		if strings.HasSuffix(lower, "."+suffix) {
			return suffix
		}
	}
	return ""
}
