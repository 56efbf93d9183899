package domain

// Supported destination record types. Anything else is dropped during
// translation.
const (
	RecordTypeA     = "A"
	RecordTypeAAAA  = "AAAA"
	RecordTypeCNAME = "CNAME"
	RecordTypeMX    = "MX"
	RecordTypeTXT   = "TXT"
	RecordTypeSRV   = "SRV"
	RecordTypeCAA   = "CAA"
	RecordTypeNS    = "NS"
	RecordTypeSOA   = "SOA"
)

// Record is a DNS record as the source provider returns it.
// Name is relative to the zone; "@" denotes the apex.
type Record struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Data     string `json:"data"`
	TTL      int    `json:"ttl"`
	Priority *int   `json:"priority,omitempty"`
	Weight   *int   `json:"weight,omitempty"`
	Port     *int   `json:"port,omitempty"`
	Service  string `json:"service,omitempty"`
	Protocol string `json:"protocol,omitempty"`
}

// SRVData is the destination provider's structured SRV payload.
type SRVData struct {
	Priority int    `json:"priority"`
	Weight   int    `json:"weight"`
	Port     int    `json:"port"`
	Target   string `json:"target"`
}

// CAAData is the destination provider's structured CAA payload.
type CAAData struct {
	Flags int    `json:"flags"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// DestRecord is a DNS record shaped for the destination provider's
// create-record API. Name is always fully qualified.
type DestRecord struct {
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Content  string   `json:"content,omitempty"`
	TTL      int      `json:"ttl"`
	Priority *int     `json:"priority,omitempty"`
	Proxied  *bool    `json:"proxied,omitempty"`
	SRV      *SRVData `json:"srv,omitempty"`
	CAA      *CAAData `json:"caa,omitempty"`
}
