// Package registry holds the per-entity-type configuration that drives
// both the generic CRUD surface and the approval workflow. Adding a new
// entity type to the system is one more Definition here plus its table.
package registry

import (
	"fmt"

	"github.com/procurehq/procure-server/internal/errs"
)

// Entity type tags
const (
	TypeContract      = "contract"
	TypePurchaseOrder = "purchase_order"
	TypeResource      = "resource"
	TypeAsset         = "asset"
	TypeVendor        = "vendor"
	TypeDeliverable   = "deliverable"
	TypeTender        = "tender"
)

// Business statuses shared across entity types
const (
	StatusDraft    = "draft"
	StatusRejected = "rejected"
)

// MinVendorRiskScore is the assessment score a vendor needs before it
// can enter the approval workflow.
const MinVendorRiskScore = 70.0

// Definition describes one entity type: where it lives, which columns
// callers may write, and how the workflow treats it.
type Definition struct {
	Type string

	// Table is the storage table name. It doubles as the URL path
	// segment for the entity's API routes.
	Table string

	NumberField  string
	NumberPrefix string
	TitleField   string

	// Columns is the writable domain column whitelist for create and
	// update. Workflow bookkeeping columns are never listed here.
	Columns  []string
	Required []string

	// Workflow marks types governed by the approval workflow.
	Workflow bool

	// ApprovedStatus is the business status set when the HoP approves.
	// Rejection always sets StatusRejected.
	ApprovedStatus string

	// Gate is an optional precondition checked before the entity may be
	// forwarded. A non-nil return blocks the forward.
	Gate func(rec map[string]any) error
}

// Registry is the immutable entity-type table built at startup
type Registry struct {
	defs  map[string]*Definition
	order []string
}

// New builds the registry with every known entity type. Registration
// order is fixed and drives worklist ordering.
func New() *Registry {
	r := &Registry{defs: make(map[string]*Definition)}

	r.register(&Definition{
		Type:           TypeContract,
		Table:          "contracts",
		NumberField:    "contract_number",
		NumberPrefix:   "CTR",
		TitleField:     "title",
		Columns:        []string{"title", "vendor_id", "tender_id", "description", "value", "currency", "start_date", "end_date", "status"},
		Required:       []string{"title", "vendor_id", "value"},
		Workflow:       true,
		ApprovedStatus: "active",
	})

	r.register(&Definition{
		Type:           TypePurchaseOrder,
		Table:          "purchase_orders",
		NumberField:    "po_number",
		NumberPrefix:   "PO",
		TitleField:     "title",
		Columns:        []string{"title", "vendor_id", "contract_id", "description", "amount", "currency", "delivery_date", "status"},
		Required:       []string{"title", "vendor_id", "amount"},
		Workflow:       true,
		ApprovedStatus: "approved",
	})

	r.register(&Definition{
		Type:           TypeResource,
		Table:          "resources",
		NumberField:    "resource_number",
		NumberPrefix:   "RES",
		TitleField:     "title",
		Columns:        []string{"title", "resource_type", "description", "quantity", "unit_cost", "currency", "status"},
		Required:       []string{"title"},
		Workflow:       true,
		ApprovedStatus: "active",
	})

	r.register(&Definition{
		Type:           TypeAsset,
		Table:          "assets",
		NumberField:    "asset_number",
		NumberPrefix:   "AST",
		TitleField:     "title",
		Columns:        []string{"title", "category", "description", "serial_number", "purchase_order_id", "acquisition_cost", "currency", "status"},
		Required:       []string{"title"},
		Workflow:       true,
		ApprovedStatus: "available",
	})

	r.register(&Definition{
		Type:           TypeVendor,
		Table:          "vendors",
		NumberField:    "vendor_number",
		NumberPrefix:   "VEN",
		TitleField:     "name",
		Columns:        []string{"name", "category", "contact_name", "contact_email", "phone", "address", "tax_id", "status"},
		Required:       []string{"name", "contact_email"},
		Workflow:       true,
		ApprovedStatus: "active",
		Gate:           vendorRiskGate,
	})

	r.register(&Definition{
		Type:           TypeDeliverable,
		Table:          "deliverables",
		NumberField:    "deliverable_number",
		NumberPrefix:   "DLV",
		TitleField:     "title",
		Columns:        []string{"title", "contract_id", "description", "due_date", "status"},
		Required:       []string{"title", "contract_id"},
		Workflow:       true,
		ApprovedStatus: "approved",
	})

	r.register(&Definition{
		Type:         TypeTender,
		Table:        "tenders",
		NumberField:  "tender_number",
		NumberPrefix: "TND",
		TitleField:   "title",
		Columns:      []string{"title", "category", "description", "budget", "currency", "closing_date", "status"},
		Required:     []string{"title"},
		Workflow:     false,
	})

	return r
}

func (r *Registry) register(def *Definition) {
	r.defs[def.Type] = def
	r.order = append(r.order, def.Type)
}

// Get returns the definition for entityType
func (r *Registry) Get(entityType string) (*Definition, error) {
	def, ok := r.defs[entityType]
	if !ok {
		return nil, errs.InvalidInput("unknown entity type %q", entityType)
	}
	return def, nil
}

// GetByTable resolves a URL path segment to its definition. Unknown
// segments are a missing resource, not malformed input.
func (r *Registry) GetByTable(table string) (*Definition, error) {
	for _, t := range r.order {
		if r.defs[t].Table == table {
			return r.defs[t], nil
		}
	}
	return nil, errs.NotFound("unknown entity collection %q", table)
}

// Types returns all entity types in registration order
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// WorkflowTypes returns the workflow-governed types in registration order
func (r *Registry) WorkflowTypes() []string {
	var out []string
	for _, t := range r.order {
		if r.defs[t].Workflow {
			out = append(out, t)
		}
	}
	return out
}

// WritableColumn reports whether col is a writable domain column
func (d *Definition) WritableColumn(col string) bool {
	for _, c := range d.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// vendorRiskGate blocks vendors from entering the workflow until a risk
// assessment has been recorded and scored at or above the threshold.
func vendorRiskGate(rec map[string]any) error {
	score, ok := asFloat(rec["risk_score"])
	if !ok {
		return fmt.Errorf("vendor has no risk assessment; run the risk assessment before forwarding")
	}
	if score < MinVendorRiskScore {
		return fmt.Errorf("vendor risk score %.1f is below the approval threshold %.0f", score, MinVendorRiskScore)
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
