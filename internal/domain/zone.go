package domain

// ZoneStatusActive is the destination zone status once activation
// completes.
const ZoneStatusActive = "active"

// Zone is the destination provider's container for one domain's DNS
// records and nameserver assignment.
type Zone struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	Nameservers []string `json:"name_servers"`
}

// Patch carries the source registrar's mutable domain fields. Nil
// fields are omitted from the request.
type Patch struct {
	Locked      *bool
	RenewAuto   *bool
	Nameservers []string
}
