package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/procurehq/procure-server/internal/models"
)

// The reviewers and audit_trail columns hold JSON arrays. A NULL (or
// empty) column decodes to an empty list so callers never branch on
// whether a workflow has started.

func decodeReviewers(raw any) ([]models.ReviewerAssignment, error) {
	text := asText(raw)
	if text == "" {
		return nil, nil
	}
	var list []models.ReviewerAssignment
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		return nil, fmt.Errorf("failed to decode reviewers: %w", err)
	}
	return list, nil
}

func encodeReviewers(list []models.ReviewerAssignment) (string, error) {
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode reviewers: %w", err)
	}
	return string(data), nil
}

func decodeAudit(raw any) ([]models.AuditEntry, error) {
	text := asText(raw)
	if text == "" {
		return nil, nil
	}
	var trail []models.AuditEntry
	if err := json.Unmarshal([]byte(text), &trail); err != nil {
		return nil, fmt.Errorf("failed to decode audit trail: %w", err)
	}
	return trail, nil
}

// appendAudit returns the audit_trail column value with entry appended.
// The trail is append-only; slice order, not the timestamp, is the
// authoritative ordering.
func appendAudit(raw any, entry models.AuditEntry) (string, error) {
	trail, err := decodeAudit(raw)
	if err != nil {
		return "", err
	}
	trail = append(trail, entry)
	data, err := json.Marshal(trail)
	if err != nil {
		return "", fmt.Errorf("failed to encode audit trail: %w", err)
	}
	return string(data), nil
}

func asText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}
