// Package report builds management views over the procurement data:
// workflow throughput per entity type, spend per vendor, and the age of
// items stuck in approval queues. Everything reads through the record
// store; nothing here writes.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/models"
	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/store"
)

// NotStarted keys the workflow-status bucket for entities never forwarded
const NotStarted = "not_started"

var workflowStates = []string{
	models.WorkflowPendingReview,
	models.WorkflowReviewComplete,
	models.WorkflowReturnedForRevision,
	models.WorkflowPendingHoPApproval,
	models.WorkflowApproved,
	models.WorkflowRejected,
}

// TypeSummary is the workflow breakdown for one entity type
type TypeSummary struct {
	EntityType       string         `json:"entity_type"`
	Total            int            `json:"total"`
	ByWorkflowStatus map[string]int `json:"by_workflow_status"`
}

// WorkflowSummary is the per-type workflow breakdown
type WorkflowSummary struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Types       []TypeSummary `json:"types"`
}

// VendorSpend is the committed spend attributed to one vendor
type VendorSpend struct {
	VendorID      string  `json:"vendor_id"`
	VendorNumber  string  `json:"vendor_number"`
	Name          string  `json:"name"`
	ContractCount int     `json:"contract_count"`
	ContractValue float64 `json:"contract_value"`
	OrderCount    int     `json:"order_count"`
	OrderAmount   float64 `json:"order_amount"`
	TotalSpend    float64 `json:"total_spend"`
}

// AgeingItem is one entity waiting in an approval queue
type AgeingItem struct {
	EntityType     string     `json:"entity_type"`
	EntityID       string     `json:"entity_id"`
	Number         string     `json:"number"`
	Title          string     `json:"title"`
	WorkflowStatus string     `json:"workflow_status"`
	WaitingSince   *time.Time `json:"waiting_since,omitempty"`
	AgeHours       float64    `json:"age_hours"`
}

// Service computes the report aggregations
type Service struct {
	store    store.Store
	registry *registry.Registry
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(st store.Store, reg *registry.Registry, logger *zap.Logger) *Service {
	return &Service{store: st, registry: reg, logger: logger, now: time.Now}
}

// WorkflowSummary counts entities per workflow status for every
// governed type. Entities never forwarded land in the not_started
// bucket.
func (s *Service) WorkflowSummary(ctx context.Context) (*WorkflowSummary, error) {
	out := &WorkflowSummary{GeneratedAt: s.now()}

	for _, t := range s.registry.WorkflowTypes() {
		def, err := s.registry.Get(t)
		if err != nil {
			return nil, err
		}

		ts := TypeSummary{EntityType: t, ByWorkflowStatus: make(map[string]int)}
		total, err := s.store.Count(ctx, def.Table, store.Query{})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", def.Table, err)
		}
		ts.Total = total

		n, err := s.store.Count(ctx, def.Table, store.Query{
			Filter: map[string]any{"workflow_status": nil},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", def.Table, err)
		}
		ts.ByWorkflowStatus[NotStarted] = n

		for _, ws := range workflowStates {
			n, err := s.store.Count(ctx, def.Table, store.Query{
				Filter: map[string]any{"workflow_status": ws},
			})
			if err != nil {
				return nil, fmt.Errorf("failed to count %s: %w", def.Table, err)
			}
			ts.ByWorkflowStatus[ws] = n
		}
		out.Types = append(out.Types, ts)
	}
	return out, nil
}

// VendorSpend sums contract values and purchase order amounts per
// vendor, largest spend first.
func (s *Service) VendorSpend(ctx context.Context) ([]VendorSpend, error) {
	vendorsDef, err := s.registry.Get(registry.TypeVendor)
	if err != nil {
		return nil, err
	}
	contractsDef, err := s.registry.Get(registry.TypeContract)
	if err != nil {
		return nil, err
	}
	ordersDef, err := s.registry.Get(registry.TypePurchaseOrder)
	if err != nil {
		return nil, err
	}

	vendors, err := s.store.FindMany(ctx, vendorsDef.Table, store.Query{OrderBy: "created_at"})
	if err != nil {
		return nil, fmt.Errorf("failed to load vendors: %w", err)
	}
	contracts, err := s.store.FindMany(ctx, contractsDef.Table, store.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to load contracts: %w", err)
	}
	orders, err := s.store.FindMany(ctx, ordersDef.Table, store.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase orders: %w", err)
	}

	type agg struct {
		contractCount int
		contractValue float64
		orderCount    int
		orderAmount   float64
	}
	byVendor := make(map[string]*agg)
	bucket := func(vendorID string) *agg {
		a, ok := byVendor[vendorID]
		if !ok {
			a = &agg{}
			byVendor[vendorID] = a
		}
		return a
	}
	for _, c := range contracts {
		if vid := c.String("vendor_id"); vid != "" {
			a := bucket(vid)
			a.contractCount++
			a.contractValue += c.Float("value")
		}
	}
	for _, o := range orders {
		if vid := o.String("vendor_id"); vid != "" {
			a := bucket(vid)
			a.orderCount++
			a.orderAmount += o.Float("amount")
		}
	}

	out := make([]VendorSpend, 0, len(vendors))
	for _, v := range vendors {
		row := VendorSpend{
			VendorID:     v.String("id"),
			VendorNumber: v.String("vendor_number"),
			Name:         v.String("name"),
		}
		if a, ok := byVendor[row.VendorID]; ok {
			row.ContractCount = a.contractCount
			row.ContractValue = a.contractValue
			row.OrderCount = a.orderCount
			row.OrderAmount = a.orderAmount
			row.TotalSpend = a.contractValue + a.orderAmount
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalSpend > out[j].TotalSpend })
	return out, nil
}

// PendingAgeing lists every entity sitting in a review or approval
// queue, oldest wait first.
func (s *Service) PendingAgeing(ctx context.Context) ([]AgeingItem, error) {
	now := s.now()
	out := []AgeingItem{}

	for _, t := range s.registry.WorkflowTypes() {
		def, err := s.registry.Get(t)
		if err != nil {
			return nil, err
		}
		for _, ws := range []string{models.WorkflowPendingReview, models.WorkflowPendingHoPApproval} {
			rows, err := s.store.FindMany(ctx, def.Table, store.Query{
				Filter:  map[string]any{"workflow_status": ws},
				OrderBy: "created_at",
			})
			if err != nil {
				return nil, fmt.Errorf("failed to scan %s: %w", def.Table, err)
			}
			for _, rec := range rows {
				item := AgeingItem{
					EntityType:     t,
					EntityID:       rec.String("id"),
					Number:         rec.String(def.NumberField),
					Title:          rec.String(def.TitleField),
					WorkflowStatus: ws,
				}
				col := "review_requested_at"
				if ws == models.WorkflowPendingHoPApproval {
					col = "hop_requested_at"
				}
				if since := rec.Time(col); since != nil {
					item.WaitingSince = since
					item.AgeHours = now.Sub(*since).Hours()
				}
				out = append(out, item)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].WaitingSince, out[j].WaitingSince
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})
	return out, nil
}
