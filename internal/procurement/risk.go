package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/ai"
	"github.com/procurehq/procure-server/internal/errs"
	"github.com/procurehq/procure-server/internal/models"
	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/store"
	"github.com/procurehq/procure-server/pkg/utils"
)

// VendorScorer produces a risk assessment for a vendor profile
type VendorScorer interface {
	ScoreVendor(ctx context.Context, vendor ai.VendorProfile) (*ai.VendorRiskResult, error)
}

// AssessVendorRisk scores a vendor and records the result on the vendor
// row. Vendors cannot be forwarded for approval until a recorded score
// clears the registry threshold, so this is the step that opens the
// workflow for them.
func (s *Service) AssessVendorRisk(ctx context.Context, actor models.Actor, vendorID string) (store.Record, *ai.VendorRiskResult, error) {
	if s.scorer == nil {
		return nil, nil, errors.New("vendor risk scoring is not configured")
	}
	if !models.IsOfficerTier(actor.Role) {
		return nil, nil, errs.Forbidden("role %s may not assess vendors", actor.Role)
	}

	def, err := s.registry.Get(registry.TypeVendor)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.store.FindOne(ctx, def.Table, vendorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load vendor: %w", err)
	}
	if rec == nil {
		return nil, nil, errs.NotFound("vendor %s not found", vendorID)
	}

	result, err := s.scorer.ScoreVendor(ctx, ai.VendorProfile{
		Name:         rec.String("name"),
		Category:     rec.String("category"),
		ContactEmail: rec.String("contact_email"),
		Address:      rec.String("address"),
		TaxID:        rec.String("tax_id"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to score vendor: %w", err)
	}
	if err := utils.ValidateRiskScore(result.RiskScore); err != nil {
		return nil, nil, fmt.Errorf("scorer returned unusable result: %w", err)
	}

	assessment, err := json.Marshal(result)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode assessment: %w", err)
	}
	updates := store.Record{
		"risk_score":      result.RiskScore,
		"risk_assessment": string(assessment),
		"updated_at":      s.now(),
	}
	if err := s.store.UpdateOne(ctx, def.Table, vendorID, updates, nil); err != nil {
		if err == store.ErrNoMatch {
			return nil, nil, errs.NotFound("vendor %s not found", vendorID)
		}
		return nil, nil, fmt.Errorf("failed to record assessment: %w", err)
	}

	s.logger.Info("Vendor risk assessed",
		zap.String("vendor_id", vendorID),
		zap.Float64("risk_score", result.RiskScore),
		zap.String("assessed_by", actor.ID))

	rec, err = s.store.FindOne(ctx, def.Table, vendorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load vendor: %w", err)
	}
	return rec, result, nil
}
