package registry

// Envelope is the registry's HAL-style response for an applications lookup.
// Embedded.Applications is a pointer so a missing key can be told apart from
// an empty list.
type Envelope struct {
	Embedded *struct {
		Applications *[]Application `json:"aanvraag"`
	} `json:"_embedded"`
}

// Application is one request ("aanvraag") for a person under a regulation.
type Application struct {
	Regulation  *Regulation `json:"regeling,omitempty"`
	RequestDate *Date       `json:"datumAanvraag,omitempty"`
	Decision    *Decision   `json:"beschikking,omitempty"`
	Documents   []Document  `json:"documenten,omitempty"`
}

// Regulation identifies the law an application falls under, e.g. "wmo".
type Regulation struct {
	Code        string `json:"identificatie"`
	Description string `json:"omschrijving"`
}

// Decision ("beschikking") is the formal grant of one or more products.
type Decision struct {
	IssueDate         *Date              `json:"datumAfgifte,omitempty"`
	AllocatedProducts []AllocatedProduct `json:"beschikteProducten,omitempty"`
}

// AllocatedProduct ("beschikt product") is a product decided on, with its outcome.
type AllocatedProduct struct {
	Product         *Product         `json:"product,omitempty"`
	Outcome         string           `json:"resultaat"`
	AssignedProduct *AssignedProduct `json:"toegewezenProduct,omitempty"`
}

// Product describes what was decided on.
type Product struct {
	Description  *string `json:"omschrijving,omitempty"`
	CategoryCode *string `json:"productsoortCode,omitempty"`
}

// AssignedProduct ("toegewezen product") holds validity and fulfilment details.
type AssignedProduct struct {
	ValidFrom    *Date        `json:"datumIngangGeldigheid,omitempty"`
	ValidUntil   *Date        `json:"datumEindeGeldigheid,omitempty"`
	Actual       *bool        `json:"actueel,omitempty"`
	DeliveryForm *string      `json:"leveringsvorm,omitempty"`
	Supplier     *Supplier    `json:"leverancier,omitempty"`
	Assignments  []Assignment `json:"toewijzingen,omitempty"`
}

// Supplier delivers the product.
type Supplier struct {
	Description *string `json:"omschrijving,omitempty"`
}

// Assignment ("toewijzing") is an order placed with a supplier. The registry
// appends amendments, so the last element of a list is the current one.
type Assignment struct {
	OrderDate  *Date      `json:"datumOpdracht,omitempty"`
	Deliveries []Delivery `json:"leveringen,omitempty"`
}

// Delivery ("levering") is the period a supplier actually delivers.
type Delivery struct {
	Start *Date `json:"begindatum,omitempty"`
	End   *Date `json:"einddatum,omitempty"`
}

// Document is a binding document attached to an application.
type Document struct {
	ID          string  `json:"documentidentificatie"`
	Title       *string `json:"omschrijving,omitempty"`
	FinalizedAt *Date   `json:"datumDefinitiefGemaakt,omitempty"`
}

// DocumentContent is a retrieved document.
type DocumentContent struct {
	MimeType string
	FileName string
	Data     []byte
}

type documentRequest struct {
	BSN              string `json:"burgerservicenummer"`
	MunicipalityCode string `json:"gemeentecode"`
	DocumentID       string `json:"documentidentificatie"`
}

type documentResponse struct {
	MimeType *string `json:"mimetype"`
	FileName string  `json:"bestandsnaam"`
	Content  *string `json:"inhoud"`
}

// Filters narrows an applications lookup.
type Filters struct {
	// MaxEndDate excludes products that ended before this date.
	MaxEndDate *Date
	// Regulation restricts results to one regulation code.
	Regulation string
}
