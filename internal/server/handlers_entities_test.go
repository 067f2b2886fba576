package server_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractFields(title string) map[string]any {
	return map[string]any{
		"title":     title,
		"vendor_id": "ven-1",
		"value":     50000,
		"currency":  "USD",
	}
}

func TestCreateAndGetEntity(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.officer)

	rec := env.createEntity(token, "contracts", contractFields("Office fit-out"))
	assert.Regexp(t, `^CTR-\d{8}-[0-9A-F]{4}$`, rec["contract_number"])
	assert.Equal(t, "draft", rec["status"])
	assert.Equal(t, env.officer.ID, rec["created_by"])

	w := env.do(http.MethodGet, "/api/v1/contracts/"+rec["id"].(string), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	dataInto(t, w, &got)
	assert.Equal(t, "Office fit-out", got["title"])
}

func TestCreateEntityFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		token string
		path  string
		body  map[string]any
		want  int
	}{
		{
			name:  "staff may not create",
			token: env.tokenFor(env.staff),
			path:  "/api/v1/contracts",
			body:  contractFields("Nope"),
			want:  http.StatusForbidden,
		},
		{
			name:  "missing required field",
			token: env.tokenFor(env.officer),
			path:  "/api/v1/contracts",
			body:  map[string]any{"vendor_id": "ven-1", "value": 100},
			want:  http.StatusBadRequest,
		},
		{
			name:  "unknown collection",
			token: env.tokenFor(env.officer),
			path:  "/api/v1/frobnicators",
			body:  map[string]any{"title": "x"},
			want:  http.StatusNotFound,
		},
		{
			name:  "workflow bookkeeping column rejected",
			token: env.tokenFor(env.officer),
			path:  "/api/v1/contracts",
			body: map[string]any{
				"title": "Sneaky", "vendor_id": "ven-1", "value": 1,
				"workflow_status": "pending_hop_approval",
			},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, w.Code, "body: %s", w.Body.String())
			assert.False(t, decodeEnvelope(t, w).Success)
		})
	}
}

func TestListEntities(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.officer)

	for i := 1; i <= 3; i++ {
		env.createEntity(token, "contracts", contractFields(fmt.Sprintf("Contract %d", i)))
	}
	env.createEntity(token, "contracts", contractFields("Maintenance agreement"))

	var page struct {
		Items    []map[string]any `json:"items"`
		Total    int              `json:"total"`
		Page     int              `json:"page"`
		PageSize int              `json:"page_size"`
	}

	w := env.do(http.MethodGet, "/api/v1/contracts?page=1&page_size=3", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dataInto(t, w, &page)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 3, page.PageSize)

	w = env.do(http.MethodGet, "/api/v1/contracts?search=Maintenance", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dataInto(t, w, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Maintenance agreement", page.Items[0]["title"])

	w = env.do(http.MethodGet, "/api/v1/contracts?status=active", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dataInto(t, w, &page)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
}

func TestUpdateEntity(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.officer)
	rec := env.createEntity(token, "contracts", contractFields("Before"))
	id := rec["id"].(string)

	w := env.do(http.MethodPut, "/api/v1/contracts/"+id, token, map[string]any{"title": "After"})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	var got map[string]any
	dataInto(t, w, &got)
	assert.Equal(t, "After", got["title"])

	w = env.do(http.MethodPut, "/api/v1/contracts/"+id, env.tokenFor(env.staff), map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPut, "/api/v1/contracts/no-such-id", token, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEntity(t *testing.T) {
	env := newTestEnv(t)
	officer := env.tokenFor(env.officer)
	admin := env.tokenFor(env.admin)

	rec := env.createEntity(officer, "contracts", contractFields("Disposable"))
	id := rec["id"].(string)

	w := env.do(http.MethodDelete, "/api/v1/contracts/"+id, officer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodDelete, "/api/v1/contracts/"+id, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeEnvelope(t, w).Success)

	w = env.do(http.MethodDelete, "/api/v1/contracts/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEntityInWorkflow(t *testing.T) {
	env := newTestEnv(t)
	officer := env.tokenFor(env.officer)

	rec := env.createEntity(officer, "contracts", contractFields("Locked in"))
	id := rec["id"].(string)

	w := env.do(http.MethodPost, "/api/v1/contracts/"+id+"/workflow/forward-review", officer,
		map[string]any{"reviewer_ids": []string{env.reviewer.ID}})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	w = env.do(http.MethodDelete, "/api/v1/contracts/"+id, env.tokenFor(env.admin), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// The vendors collection has a static risk-assessment route next to the
// generic entity routes; both must resolve.
func TestVendorRoutes(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.officer)

	rec := env.createEntity(token, "vendors", map[string]any{
		"name":          "Acme Supplies",
		"category":      "IT hardware",
		"contact_email": "sales@acme.example.com",
	})
	assert.Regexp(t, `^VEN-\d{8}-[0-9A-F]{4}$`, rec["vendor_number"])

	w := env.do(http.MethodGet, "/api/v1/vendors/"+rec["id"].(string), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v1/vendors", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAssessVendorRisk(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.officer)

	rec := env.createEntity(token, "vendors", map[string]any{
		"name":          "Acme Supplies",
		"contact_email": "sales@acme.example.com",
	})
	id := rec["id"].(string)

	w := env.do(http.MethodPost, "/api/v1/vendors/"+id+"/risk-assessment", token, nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	var result struct {
		Vendor     map[string]any `json:"vendor"`
		Assessment struct {
			RiskScore float64 `json:"risk_score"`
		} `json:"assessment"`
		MeetsThreshold bool `json:"meets_threshold"`
	}
	dataInto(t, w, &result)
	assert.Equal(t, 88.0, result.Assessment.RiskScore)
	assert.True(t, result.MeetsThreshold)
	assert.Equal(t, 88.0, result.Vendor["risk_score"])

	w = env.do(http.MethodPost, "/api/v1/vendors/"+id+"/risk-assessment", env.tokenFor(env.staff), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/v1/vendors/no-such-vendor/risk-assessment", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
