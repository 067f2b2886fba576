package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordHelpers(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	rec := Record{
		"title":      "Server racks",
		"raw":        []byte("bytes"),
		"value":      1250.5,
		"quantity":   int64(4),
		"active":     int64(1),
		"created_at": now,
		"missing":    nil,
	}

	assert.Equal(t, "Server racks", rec.String("title"))
	assert.Equal(t, "bytes", rec.String("raw"))
	assert.Equal(t, "", rec.String("missing"))
	assert.Equal(t, "", rec.String("nope"))

	assert.Equal(t, 1250.5, rec.Float("value"))
	assert.Equal(t, 4.0, rec.Float("quantity"))
	assert.Equal(t, 0.0, rec.Float("missing"))

	assert.Equal(t, int64(4), rec.Int("quantity"))
	assert.True(t, rec.Bool("active"))
	assert.False(t, rec.Bool("missing"))

	got := rec.Time("created_at")
	assert.NotNil(t, got)
	assert.True(t, now.Equal(*got))
	assert.Nil(t, rec.Time("missing"))
}

func TestRecordTimeFromString(t *testing.T) {
	rec := Record{"updated_at": "2025-03-14T09:30:00Z"}

	got := rec.Time("updated_at")
	assert.NotNil(t, got)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.March, got.Month())
}

func TestBuildWhere(t *testing.T) {
	tests := []struct {
		name     string
		q        Query
		want     string
		wantArgs int
		wantErr  bool
	}{
		{
			name: "no filters",
			q:    Query{},
			want: "",
		},
		{
			name: "single filter",
			q:    Query{Filter: map[string]any{"status": "draft"}},
			want: " WHERE status IS ?", wantArgs: 1,
		},
		{
			name: "filters are ordered deterministically",
			q:    Query{Filter: map[string]any{"workflow_status": nil, "status": "draft"}},
			want: " WHERE status IS ? AND workflow_status IS ?", wantArgs: 2,
		},
		{
			name: "filter plus search",
			q: Query{
				Filter: map[string]any{"status": "draft"},
				Search: map[string]string{"title": "rack"},
			},
			want: " WHERE status IS ? AND title LIKE ?", wantArgs: 2,
		},
		{
			name:    "rejects hostile filter column",
			q:       Query{Filter: map[string]any{"status; DROP TABLE vendors": 1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args, err := buildWhere(tt.q)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, where)
			assert.Len(t, args, tt.wantArgs)
		})
	}
}

func TestValidIdent(t *testing.T) {
	assert.True(t, validIdent("workflow_status"))
	assert.True(t, validIdent("po_number"))
	assert.False(t, validIdent("1col"))
	assert.False(t, validIdent("col name"))
	assert.False(t, validIdent("col;--"))
	assert.False(t, validIdent(""))
}
