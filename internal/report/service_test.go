package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/models"
	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/store"
)

var reportNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := NewService(mem, registry.New(), zap.NewNop())
	svc.now = func() time.Time { return reportNow }
	return svc, mem
}

func seed(t *testing.T, mem *store.Memory, table string, rec store.Record) {
	t.Helper()
	require.NoError(t, mem.InsertOne(context.Background(), table, rec))
}

func TestWorkflowSummary(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	seed(t, mem, "contracts", store.Record{"id": "c1", "created_at": reportNow})
	seed(t, mem, "contracts", store.Record{"id": "c2", "workflow_status": models.WorkflowPendingReview, "created_at": reportNow})
	seed(t, mem, "contracts", store.Record{"id": "c3", "workflow_status": models.WorkflowPendingReview, "created_at": reportNow})
	seed(t, mem, "contracts", store.Record{"id": "c4", "workflow_status": models.WorkflowApproved, "created_at": reportNow})
	seed(t, mem, "purchase_orders", store.Record{"id": "p1", "workflow_status": models.WorkflowPendingHoPApproval, "created_at": reportNow})

	summary, err := svc.WorkflowSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, reportNow, summary.GeneratedAt)

	// One entry per governed type, registration order; tender is absent.
	require.Len(t, summary.Types, 6)
	assert.Equal(t, registry.TypeContract, summary.Types[0].EntityType)

	contracts := summary.Types[0]
	assert.Equal(t, 4, contracts.Total)
	assert.Equal(t, 1, contracts.ByWorkflowStatus[NotStarted])
	assert.Equal(t, 2, contracts.ByWorkflowStatus[models.WorkflowPendingReview])
	assert.Equal(t, 1, contracts.ByWorkflowStatus[models.WorkflowApproved])
	assert.Equal(t, 0, contracts.ByWorkflowStatus[models.WorkflowRejected])

	orders := summary.Types[1]
	assert.Equal(t, registry.TypePurchaseOrder, orders.EntityType)
	assert.Equal(t, 1, orders.Total)
	assert.Equal(t, 1, orders.ByWorkflowStatus[models.WorkflowPendingHoPApproval])

	resources := summary.Types[2]
	assert.Equal(t, 0, resources.Total)
}

func TestVendorSpend(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	seed(t, mem, "vendors", store.Record{"id": "v1", "vendor_number": "VEN-1", "name": "Acme", "created_at": reportNow})
	seed(t, mem, "vendors", store.Record{"id": "v2", "vendor_number": "VEN-2", "name": "Globex", "created_at": reportNow})
	seed(t, mem, "vendors", store.Record{"id": "v3", "vendor_number": "VEN-3", "name": "Initech", "created_at": reportNow})

	seed(t, mem, "contracts", store.Record{"id": "c1", "vendor_id": "v1", "value": 1000.0})
	seed(t, mem, "contracts", store.Record{"id": "c2", "vendor_id": "v1", "value": 500.0})
	seed(t, mem, "contracts", store.Record{"id": "c3", "vendor_id": "v2", "value": 9000.0})
	seed(t, mem, "contracts", store.Record{"id": "c4", "value": 777.0}) // no vendor
	seed(t, mem, "purchase_orders", store.Record{"id": "p1", "vendor_id": "v1", "amount": 250.0})
	seed(t, mem, "purchase_orders", store.Record{"id": "p2", "vendor_id": "v2", "amount": 100.0})

	spend, err := svc.VendorSpend(ctx)
	require.NoError(t, err)
	require.Len(t, spend, 3)

	assert.Equal(t, "Globex", spend[0].Name)
	assert.Equal(t, 9100.0, spend[0].TotalSpend)
	assert.Equal(t, 1, spend[0].ContractCount)
	assert.Equal(t, 1, spend[0].OrderCount)

	assert.Equal(t, "Acme", spend[1].Name)
	assert.Equal(t, 2, spend[1].ContractCount)
	assert.Equal(t, 1500.0, spend[1].ContractValue)
	assert.Equal(t, 250.0, spend[1].OrderAmount)
	assert.Equal(t, 1750.0, spend[1].TotalSpend)

	assert.Equal(t, "Initech", spend[2].Name)
	assert.Zero(t, spend[2].TotalSpend)
}

func TestPendingAgeing(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	oldest := reportNow.Add(-72 * time.Hour)
	newer := reportNow.Add(-2 * time.Hour)

	seed(t, mem, "contracts", store.Record{
		"id": "c1", "contract_number": "CTR-1", "title": "Old review",
		"workflow_status": models.WorkflowPendingReview, "review_requested_at": oldest, "created_at": oldest,
	})
	seed(t, mem, "purchase_orders", store.Record{
		"id": "p1", "po_number": "PO-1", "title": "Fresh approval",
		"workflow_status": models.WorkflowPendingHoPApproval, "hop_requested_at": newer, "created_at": newer,
	})
	seed(t, mem, "contracts", store.Record{
		"id": "c2", "contract_number": "CTR-2", "title": "Done",
		"workflow_status": models.WorkflowApproved, "created_at": reportNow,
	})

	items, err := svc.PendingAgeing(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "c1", items[0].EntityID)
	assert.Equal(t, models.WorkflowPendingReview, items[0].WorkflowStatus)
	assert.InDelta(t, 72.0, items[0].AgeHours, 0.01)

	assert.Equal(t, "p1", items[1].EntityID)
	assert.Equal(t, models.WorkflowPendingHoPApproval, items[1].WorkflowStatus)
	assert.InDelta(t, 2.0, items[1].AgeHours, 0.01)
}

func TestPendingAgeingEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	items, err := svc.PendingAgeing(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
