package provisions

import (
	"strings"

	"wmoned/internal/registry"
)

// Rules is the read-only configuration the pipeline runs against. Build it
// once at startup and pass it by value.
type Rules struct {
	// AcceptedOutcomes lists the allocation outcomes that produce an entitlement.
	AcceptedOutcomes map[string]struct{}
	// DeliverableProducts maps a delivery type to the item type codes that are
	// expected to receive a delivery eventually.
	DeliverableProducts map[string]map[string]struct{}
	DocumentsEnabled    bool
	// DocumentsFrom is the earliest application request date for which
	// documents are shown.
	DocumentsFrom     registry.Date
	DocumentURLPrefix string
}

const DefaultDocumentURLPrefix = "/wmoned/document/"

var (
	defaultAcceptedOutcomes = []string{"toegewezen"}

	defaultDeliverableProducts = map[string][]string{
		"ZIN": {
			"ZIN", "WRA", "WRA1", "WRA2", "WRA3", "WRA4", "WRA5",
			"AAN", "AUT", "FIE", "GBW", "OVE", "ROL", "RWD", "RWT", "SCO",
			"AO1", "AO2", "AO3", "AO4", "AO5", "AO6", "AO7", "AO8",
			"BSW", "DBA", "DBH", "DBL", "DBS", "KVB", "MAO", "WMH",
		},
		"": {"AO2", "AO5", "DBS", "KVB", "WMH", "AAN", "FIE"},
	}
)

// DefaultRules returns the rule set used when no rules file is configured.
func DefaultRules() Rules {
	r := NewRules(defaultAcceptedOutcomes, defaultDeliverableProducts)
	r.DocumentsFrom = registry.NewDate(2022, 1, 1)
	r.DocumentURLPrefix = DefaultDocumentURLPrefix
	return r
}

// NewRules builds the lookup sets. Delivery types and item type codes are
// matched case-insensitively; outcomes are matched exactly.
func NewRules(accepted []string, deliverable map[string][]string) Rules {
	r := Rules{
		AcceptedOutcomes:    make(map[string]struct{}, len(accepted)),
		DeliverableProducts: make(map[string]map[string]struct{}, len(deliverable)),
		DocumentURLPrefix:   DefaultDocumentURLPrefix,
	}
	for _, o := range accepted {
		r.AcceptedOutcomes[o] = struct{}{}
	}
	for deliveryType, codes := range deliverable {
		set := make(map[string]struct{}, len(codes))
		for _, c := range codes {
			set[strings.ToUpper(c)] = struct{}{}
		}
		r.DeliverableProducts[strings.ToUpper(deliveryType)] = set
	}
	return r
}

// Accepts reports whether an allocation outcome yields an entitlement.
func (r Rules) Accepts(outcome string) bool {
	_, ok := r.AcceptedOutcomes[outcome]
	return ok
}

// ExpectsDelivery reports whether the (deliveryType, itemTypeCode) pair is on
// the allow-list of products that will eventually be delivered.
func (r Rules) ExpectsDelivery(deliveryType string, itemTypeCode *string) bool {
	if itemTypeCode == nil {
		return false
	}
	codes, ok := r.DeliverableProducts[deliveryType]
	if !ok {
		return false
	}
	_, ok = codes[*itemTypeCode]
	return ok
}

func (r Rules) showDocuments(requestDate *registry.Date) bool {
	if !r.DocumentsEnabled || !present(requestDate) {
		return false
	}
	return !requestDate.Before(r.DocumentsFrom)
}
