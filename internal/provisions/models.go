package provisions

import "wmoned/internal/registry"

// Entitlement is one granted product as shown to the citizen. Nullable fields
// are pointers and serialize as JSON null.
type Entitlement struct {
	Title            *string        `json:"title"`
	ItemTypeCode     *string        `json:"itemTypeCode"`
	DateStart        *registry.Date `json:"dateStart"`
	DateEnd          *registry.Date `json:"dateEnd"`
	IsActual         bool           `json:"isActual"`
	DeliveryType     string         `json:"deliveryType"`
	Supplier         *string        `json:"supplier"`
	DateDecision     *registry.Date `json:"dateDecision"`
	ServiceOrderDate *registry.Date `json:"serviceOrderDate"`
	ServiceDateStart *registry.Date `json:"serviceDateStart"`
	ServiceDateEnd   *registry.Date `json:"serviceDateEnd"`
	// Documents is nil when documents are not shown for the application, and
	// serializes as null rather than [].
	Documents []Document `json:"documents"`
}

// Document is a decision letter that can be downloaded through the adapter.
type Document struct {
	ID            string         `json:"id"`
	Title         *string        `json:"title"`
	URL           string         `json:"url"`
	DatePublished *registry.Date `json:"datePublished"`
}

// Encoder obfuscates registry document identifiers for use in URLs.
type Encoder interface {
	Encrypt(plain string) (string, error)
}

// Cipher is an Encoder that can also reverse the obfuscation.
type Cipher interface {
	Encoder
	Decrypt(token string) (string, error)
}
