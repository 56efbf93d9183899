// Package dns translates DNS records from the source provider's shape
// into the destination provider's shape.
package dns

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonesrussell/gomigrate/internal/domain"
)

const (
	// apexName is the source provider's sentinel for the zone apex.
	apexName = "@"

	// parkedSentinel is the data value of the placeholder A record the
	// source provider installs on parked domains.
	parkedSentinel = "Parked"

	// minTTL is the floor below which TTLs map to the destination's
	// "automatic" sentinel.
	minTTL = 120

	// autoTTL is the destination provider's "automatic" TTL sentinel.
	autoTTL = 1

	// defaultMXPriority is used when the source record carries no priority.
	defaultMXPriority = 10
)

// sourceInfraSuffixes identifies CNAME targets that point at the source
// provider's own parking/forwarding infrastructure. Records targeting
// these are artifacts, not user data.
var sourceInfraSuffixes = []string{
	"secureserver.net",
	"domaincontrol.com",
	"godaddysites.com",
	"wsimg.com",
}

// caaPattern matches the source provider's flat CAA data format:
// "flags tag value". Malformed CAA records are dropped.
var caaPattern = regexp.MustCompile(`^(\d+)\s+(\S+)\s+(.+)$`)

// Translate maps source records to destination-shaped records for the
// given domain, applying the filtering rules for provider artifacts.
// Pure; input order is not guaranteed to be preserved.
func Translate(records []domain.Record, domainName string, proxiedDefault bool) []domain.DestRecord {
	out := make([]domain.DestRecord, 0, len(records))

	for _, rec := range records {
		if dropped(rec, domainName) {
			continue
		}

		dest, ok := translateOne(rec, domainName, proxiedDefault)
		if !ok {
			continue
		}
		out = append(out, dest)
	}

	return out
}

// dropped reports whether the record is a provider artifact or a type
// the destination manages implicitly.
func dropped(rec domain.Record, domainName string) bool {
	switch rec.Type {
	case domain.RecordTypeSOA:
		// Destination manages SOA.
		return true
	case domain.RecordTypeNS:
		// Destination assigns apex nameservers itself.
		return isApex(rec.Name)
	case domain.RecordTypeA:
		return isApex(rec.Name) && strings.EqualFold(rec.Data, parkedSentinel)
	case domain.RecordTypeCNAME:
		return isSourceInfraTarget(rec.Data)
	default:
		return false
	}
}

// isSourceInfraTarget reports whether target belongs to the source
// provider's own infrastructure domains.
func isSourceInfraTarget(target string) bool {
	lower := strings.ToLower(strings.TrimSuffix(target, "."))
	for _, suffix := range sourceInfraSuffixes {
		if lower == suffix || strings.HasSuffix(lower, "."+suffix) {
			return true
		}
	}
	return false
}

// translateOne maps a single surviving record. ok is false when the
// record's type is unsupported or its data is malformed.
func translateOne(rec domain.Record, domainName string, proxiedDefault bool) (domain.DestRecord, bool) {
	dest := domain.DestRecord{
		Type: rec.Type,
		Name: resolveName(rec.Name, domainName),
		TTL:  normalizeTTL(rec.TTL),
	}

	switch rec.Type {
	case domain.RecordTypeA, domain.RecordTypeAAAA:
		dest.Content = rec.Data
		dest.Proxied = boolPtr(proxiedDefault)

	case domain.RecordTypeCNAME:
		if rec.Data == apexName {
			dest.Content = domainName
		} else {
			dest.Content = rec.Data
		}
		dest.Proxied = boolPtr(proxiedDefault)

	case domain.RecordTypeMX:
		dest.Content = rec.Data
		priority := defaultMXPriority
		if rec.Priority != nil {
			priority = *rec.Priority
		}
		dest.Priority = &priority

	case domain.RecordTypeTXT:
		dest.Content = rec.Data

	case domain.RecordTypeSRV:
		srv := domain.SRVData{
			Priority: intOrZero(rec.Priority),
			Weight:   intOrZero(rec.Weight),
			Port:     intOrZero(rec.Port),
			Target:   rec.Data,
		}
		if rec.Service != "" && rec.Protocol != "" {
			dest.Name = fmt.Sprintf("%s.%s.%s", rec.Service, rec.Protocol, resolveName(rec.Name, domainName))
		}
		dest.Content = fmt.Sprintf("%d %d %d %s", srv.Priority, srv.Weight, srv.Port, srv.Target)
		dest.SRV = &srv

	case domain.RecordTypeCAA:
		caa, ok := parseCAA(rec.Data)
		if !ok {
			return domain.DestRecord{}, false
		}
		dest.Content = rec.Data
		dest.CAA = &caa

	case domain.RecordTypeNS:
		dest.Content = rec.Data

	default:
		// Unsupported type.
		return domain.DestRecord{}, false
	}

	return dest, true
}

// isApex reports whether a source record name denotes the zone apex.
// The provider usually sends "@" but some payloads carry an empty name.
func isApex(name string) bool {
	return name == apexName || name == ""
}

// resolveName maps a zone-relative name to a fully qualified one.
func resolveName(name, domainName string) string {
	if isApex(name) {
		return domainName
	}
	return name + "." + domainName
}

// normalizeTTL maps TTLs below the destination's floor to its
// "automatic" sentinel and passes everything else through.
func normalizeTTL(ttl int) int {
	if ttl < minTTL {
		return autoTTL
	}
	return ttl
}

// parseCAA parses the source provider's flat "flags tag value" format.
func parseCAA(data string) (domain.CAAData, bool) {
	match := caaPattern.FindStringSubmatch(strings.TrimSpace(data))
	if match == nil {
		return domain.CAAData{}, false
	}

	var flags int
	if _, err := fmt.Sscanf(match[1], "%d", &flags); err != nil {
		return domain.CAAData{}, false
	}

	return domain.CAAData{
		Flags: flags,
		Tag:   match[2],
		Value: match[3],
	}, true
}

func boolPtr(b bool) *bool { return &b }

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
