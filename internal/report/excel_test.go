package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/store"
)

func TestExcelExport(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	created := time.Date(2025, 3, 5, 8, 30, 0, 0, time.UTC)
	require.NoError(t, mem.InsertOne(ctx, "contracts", store.Record{
		"id": "c1", "contract_number": "CTR-20250305-AAAA", "title": "Network upgrade",
		"status": "draft", "workflow_status": "pending_review", "created_at": created,
	}))
	require.NoError(t, mem.InsertOne(ctx, "vendors", store.Record{
		"id": "v1", "vendor_number": "VEN-20250305-BBBB", "name": "Acme",
		"status": "active", "created_at": created,
	}))

	exporter := NewExcelExporter(mem, registry.New(), zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, exporter.Export(ctx, &buf))
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	// One sheet per registered type, including tenders.
	sheets := f.GetSheetList()
	assert.Len(t, sheets, 7)
	assert.Contains(t, sheets, "contracts")
	assert.Contains(t, sheets, "tenders")

	header, err := f.GetCellValue("contracts", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)

	number, err := f.GetCellValue("contracts", "B2")
	require.NoError(t, err)
	assert.Equal(t, "CTR-20250305-AAAA", number)

	title, err := f.GetCellValue("contracts", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Network upgrade", title)

	ws, err := f.GetCellValue("contracts", "E2")
	require.NoError(t, err)
	assert.Equal(t, "pending_review", ws)

	createdCell, err := f.GetCellValue("contracts", "F2")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-05 08:30", createdCell)

	// The vendor sheet uses the name column as its title.
	vendorTitle, err := f.GetCellValue("vendors", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Acme", vendorTitle)

	// Empty types still get a header row.
	resourceHeader, err := f.GetCellValue("resources", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", resourceHeader)
}
