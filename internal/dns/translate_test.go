package dns_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gomigrate/internal/dns"
	"github.com/jonesrussell/gomigrate/internal/domain"
)

const testDomain = "example.com"

func intPtr(i int) *int { return &i }

func TestTranslateDropsManagedTypes(t *testing.T) {
	records := []domain.Record{
		{Type: domain.RecordTypeSOA, Name: "@", Data: "ns1.example.net"},
		{Type: domain.RecordTypeNS, Name: "@", Data: "ns1.source.example", TTL: 3600},
		{Type: domain.RecordTypeNS, Name: "@", Data: "ns2.source.example", TTL: 3600},
	}

	out := dns.Translate(records, testDomain, false)

	assert.Empty(t, out)
}

func TestTranslateEmptyNameIsApex(t *testing.T) {
	// Some source payloads carry an empty name instead of "@"; the apex
	// rules must treat both the same.
	records := []domain.Record{
		{Type: domain.RecordTypeNS, Name: "", Data: "ns1.source.example", TTL: 3600},
		{Type: domain.RecordTypeA, Name: "", Data: "Parked", TTL: 600},
		{Type: domain.RecordTypeA, Name: "", Data: "203.0.113.10", TTL: 600},
	}

	out := dns.Translate(records, testDomain, false)

	require.Len(t, out, 1)
	assert.Equal(t, domain.RecordTypeA, out[0].Type)
	assert.Equal(t, "example.com", out[0].Name)
	assert.Equal(t, "203.0.113.10", out[0].Content)
}

func TestTranslateKeepsSubdomainNS(t *testing.T) {
	records := []domain.Record{
		{Type: domain.RecordTypeNS, Name: "sub", Data: "ns1.delegated.example", TTL: 3600},
	}

	out := dns.Translate(records, testDomain, false)

	require.Len(t, out, 1)
	assert.Equal(t, domain.RecordTypeNS, out[0].Type)
	assert.Equal(t, "sub.example.com", out[0].Name)
	assert.Equal(t, "ns1.delegated.example", out[0].Content)
}

func TestTranslateDropsParkingRecord(t *testing.T) {
	records := []domain.Record{
		{Type: domain.RecordTypeA, Name: "@", Data: "Parked", TTL: 600},
		{Type: domain.RecordTypeA, Name: "@", Data: "203.0.113.10", TTL: 600},
	}

	out := dns.Translate(records, testDomain, false)

	require.Len(t, out, 1)
	assert.Equal(t, "203.0.113.10", out[0].Content)
}

func TestTranslateDropsSourceInfraCNAME(t *testing.T) {
	tests := []struct {
		target string
		drop   bool
	}{
		{target: "pages.secureserver.net", drop: true},
		{target: "pages.secureserver.net.", drop: true},
		{target: "DomainControl.com", drop: true},
		{target: "site.godaddysites.com", drop: true},
		{target: "img.wsimg.com", drop: true},
		{target: "notsecureserver.net.example.org", drop: false},
		{target: "ghs.googlehosted.com", drop: false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			records := []domain.Record{
				{Type: domain.RecordTypeCNAME, Name: "www", Data: tt.target, TTL: 3600},
			}

			out := dns.Translate(records, testDomain, false)

			if tt.drop {
				assert.Empty(t, out)
			} else {
				assert.Len(t, out, 1)
			}
		})
	}
}

func TestTranslateNameResolution(t *testing.T) {
	records := []domain.Record{
		{Type: domain.RecordTypeA, Name: "@", Data: "203.0.113.10", TTL: 600},
		{Type: domain.RecordTypeA, Name: "www", Data: "203.0.113.10", TTL: 600},
	}

	out := dns.Translate(records, testDomain, false)

	require.Len(t, out, 2)
	assert.Equal(t, "example.com", out[0].Name)
	assert.Equal(t, "www.example.com", out[1].Name)
}

func TestTranslateCNAMEApexTarget(t *testing.T) {
	records := []domain.Record{
		{Type: domain.RecordTypeCNAME, Name: "www", Data: "@", TTL: 3600},
	}

	out := dns.Translate(records, testDomain, false)

	require.Len(t, out, 1)
	assert.Equal(t, "example.com", out[0].Content)
}

func TestTranslateTTLNormalization(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "below floor maps to auto", in: 60, want: 1},
		{name: "just below floor", in: 119, want: 1},
		{name: "at floor passes through", in: 120, want: 120},
		{name: "above floor passes through", in: 3600, want: 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []domain.Record{
				{Type: domain.RecordTypeA, Name: "www", Data: "203.0.113.10", TTL: tt.in},
			}

			out := dns.Translate(records, testDomain, false)

			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].TTL)
		})
	}
}

func TestTranslateProxiedDefault(t *testing.T) {
	records := []domain.Record{
		{Type: domain.RecordTypeA, Name: "www", Data: "203.0.113.10", TTL: 600},
		{Type: domain.RecordTypeCNAME, Name: "blog", Data: "host.example.net", TTL: 600},
		{Type: domain.RecordTypeTXT, Name: "@", Data: "v=spf1 -all", TTL: 600},
	}

	out := dns.Translate(records, testDomain, true)

	require.Len(t, out, 3)
	require.NotNil(t, out[0].Proxied)
	assert.True(t, *out[0].Proxied)
	require.NotNil(t, out[1].Proxied)
	assert.True(t, *out[1].Proxied)
	// Only A, AAAA and CNAME records are proxiable.
	assert.Nil(t, out[2].Proxied)
}

func TestTranslateMXPriority(t *testing.T) {
	records := []domain.Record{
		{Type: domain.RecordTypeMX, Name: "@", Data: "mx1.mail.example", TTL: 3600, Priority: intPtr(20)},
		{Type: domain.RecordTypeMX, Name: "@", Data: "mx2.mail.example", TTL: 3600},
	}

	out := dns.Translate(records, testDomain, false)

	require.Len(t, out, 2)
	require.NotNil(t, out[0].Priority)
	assert.Equal(t, 20, *out[0].Priority)
	require.NotNil(t, out[1].Priority)
	assert.Equal(t, 10, *out[1].Priority)
}

func TestTranslateSRV(t *testing.T) {
	records := []domain.Record{
		{
			Type:     domain.RecordTypeSRV,
			Name:     "@",
			Data:     "sip.example.net",
			TTL:      3600,
			Priority: intPtr(10),
			Weight:   intPtr(5),
			Port:     intPtr(5060),
			Service:  "_sip",
			Protocol: "_tcp",
		},
	}

	out := dns.Translate(records, testDomain, false)

	require.Len(t, out, 1)
	assert.Equal(t, "_sip._tcp.example.com", out[0].Name)
	assert.Equal(t, "10 5 5060 sip.example.net", out[0].Content)
	require.NotNil(t, out[0].SRV)
	assert.Equal(t, domain.SRVData{Priority: 10, Weight: 5, Port: 5060, Target: "sip.example.net"}, *out[0].SRV)
}

func TestTranslateCAA(t *testing.T) {
	records := []domain.Record{
		{Type: domain.RecordTypeCAA, Name: "@", Data: "0 issue letsencrypt.org", TTL: 3600},
	}

	out := dns.Translate(records, testDomain, false)

	require.Len(t, out, 1)
	require.NotNil(t, out[0].CAA)
	assert.Equal(t, domain.CAAData{Flags: 0, Tag: "issue", Value: "letsencrypt.org"}, *out[0].CAA)
}

func TestTranslateCAAMalformedDropped(t *testing.T) {
	records := []domain.Record{
		{Type: domain.RecordTypeCAA, Name: "@", Data: "malformed", TTL: 3600},
		{Type: domain.RecordTypeCAA, Name: "@", Data: "0 issue letsencrypt.org", TTL: 3600},
	}

	out := dns.Translate(records, testDomain, false)

	require.Len(t, out, 1)
	assert.Equal(t, "0 issue letsencrypt.org", out[0].Content)
}

func TestTranslateUnsupportedTypeDropped(t *testing.T) {
	records := []domain.Record{
		{Type: "NAPTR", Name: "@", Data: "whatever", TTL: 3600},
	}

	out := dns.Translate(records, testDomain, false)

	assert.Empty(t, out)
}

func TestTranslateMixedSet(t *testing.T) {
	records := []domain.Record{
		{Type: domain.RecordTypeA, Name: "@", Data: "203.0.113.10", TTL: 600},
		{Type: domain.RecordTypeA, Name: "www", Data: "203.0.113.10", TTL: 600},
		{Type: domain.RecordTypeCNAME, Name: "park", Data: "fwd.secureserver.net", TTL: 3600},
		{Type: domain.RecordTypeNS, Name: "@", Data: "ns1.source.example", TTL: 3600},
		{Type: domain.RecordTypeSOA, Name: "@", Data: "ns1.source.example", TTL: 3600},
		{Type: domain.RecordTypeA, Name: "@", Data: "Parked", TTL: 600},
	}

	out := dns.Translate(records, testDomain, false)

	// Only the two real A records survive.
	require.Len(t, out, 2)
	for _, rec := range out {
		assert.Equal(t, domain.RecordTypeA, rec.Type)
		assert.Equal(t, "203.0.113.10", rec.Content)
	}
}

func TestTranslateEmptyInput(t *testing.T) {
	out := dns.Translate(nil, testDomain, false)

	assert.NotNil(t, out)
	assert.Empty(t, out)
}
