package provisions

import (
	"strings"

	"wmoned/internal/registry"
)

// Normalize flattens registry applications into entitlements, in application
// order and then allocated product order. Applications without a decision,
// decision date or allocated products contribute nothing, as do products whose
// outcome is not accepted. The input is never modified.
func Normalize(apps []registry.Application, rules Rules, enc Encoder) []Entitlement {
	out := make([]Entitlement, 0, len(apps))
	for i := range apps {
		app := &apps[i]
		if app.Decision == nil || !present(app.Decision.IssueDate) {
			continue
		}
		for j := range app.Decision.AllocatedProducts {
			product := &app.Decision.AllocatedProducts[j]
			if !rules.Accepts(product.Outcome) {
				continue
			}
			if e, ok := FormatOne(app.Decision.IssueDate, product, app, rules, enc); ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// FormatOne builds the entitlement for a single allocated product. It returns
// false when either the decision date or the product is missing.
func FormatOne(decisionDate *registry.Date, product *registry.AllocatedProduct, app *registry.Application, rules Rules, enc Encoder) (Entitlement, bool) {
	if !present(decisionDate) || product == nil {
		return Entitlement{}, false
	}

	e := Entitlement{DateDecision: copyDate(decisionDate)}

	if p := product.Product; p != nil {
		e.Title = copyString(p.Description)
		if p.CategoryCode != nil {
			code := strings.ToUpper(*p.CategoryCode)
			e.ItemTypeCode = &code
		}
	}

	if ap := product.AssignedProduct; ap != nil {
		e.DateStart = copyDate(ap.ValidFrom)
		e.DateEnd = copyDate(ap.ValidUntil)
		if ap.Actual != nil {
			e.IsActual = *ap.Actual
		}
		if ap.DeliveryForm != nil {
			e.DeliveryType = strings.ToUpper(*ap.DeliveryForm)
		}
		if ap.Supplier != nil {
			e.Supplier = copyString(ap.Supplier.Description)
		}

		// The registry appends amendments, so the last entry is the current one.
		if n := len(ap.Assignments); n > 0 {
			assignment := &ap.Assignments[n-1]
			e.ServiceOrderDate = copyDate(assignment.OrderDate)
			if m := len(assignment.Deliveries); m > 0 {
				delivery := &assignment.Deliveries[m-1]
				e.ServiceDateStart = copyDate(delivery.Start)
				e.ServiceDateEnd = copyDate(delivery.End)
			}
		}
	}

	// A granted product without a tracked delivery yet is still current for
	// the citizen.
	if !e.IsActual && e.DateEnd == nil && e.ServiceDateStart == nil &&
		rules.ExpectsDelivery(e.DeliveryType, e.ItemTypeCode) {
		e.IsActual = true
	}

	if app != nil && rules.showDocuments(app.RequestDate) {
		e.Documents = FormatDocuments(app.Documents, rules, enc)
	}

	return e, true
}

// present treats a blank registry date like a missing one.
func present(d *registry.Date) bool {
	return d != nil && !d.IsZero()
}

func copyDate(d *registry.Date) *registry.Date {
	if !present(d) {
		return nil
	}
	c := *d
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
