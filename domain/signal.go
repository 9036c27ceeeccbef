package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type SignalType string

const (
	SignalHesitation        SignalType = "HESITATION"
	SignalThresholdNear     SignalType = "THRESHOLD_NEAR"
	SignalBundleOpportunity SignalType = "BUNDLE_OPPORTUNITY"
	SignalPriceSensitivity  SignalType = "PRICE_SENSITIVITY"
	SignalRepeatRemoval     SignalType = "REPEAT_REMOVAL"
	SignalGiftEligible      SignalType = "GIFT_ELIGIBLE"
)

// Priority orders signal types when severities tie; lower is more urgent.
func (t SignalType) Priority() int {
	switch t {
	case SignalThresholdNear:
		return 0
	case SignalGiftEligible:
		return 1
	case SignalBundleOpportunity:
		return 2
	case SignalHesitation:
		return 3
	case SignalPriceSensitivity:
		return 4
	case SignalRepeatRemoval:
		return 5
	}
	return 99
}

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// SignalMetadata is implemented by one struct per SignalType.
type SignalMetadata interface {
	SignalType() SignalType
}

type ThresholdMetadata struct {
	Name           string `json:"name"`
	ThresholdMinor int64  `json:"threshold_minor"`
	GapMinor       int64  `json:"gap_minor"`
}

func (ThresholdMetadata) SignalType() SignalType { return SignalThresholdNear }

type GiftMetadata struct {
	ThresholdMinor int64 `json:"threshold_minor"`
	CartValueMinor int64 `json:"cart_value_minor"`
	Reached        bool  `json:"reached"`
}

func (GiftMetadata) SignalType() SignalType { return SignalGiftEligible }

type BundleMetadata struct {
	ProductID  uint64 `json:"product_id"`
	CategoryID uint64 `json:"category_id"`
}

func (BundleMetadata) SignalType() SignalType { return SignalBundleOpportunity }

type HesitationMetadata struct {
	IdleMinutes    int       `json:"idle_minutes"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

func (HesitationMetadata) SignalType() SignalType { return SignalHesitation }

type PriceSensitivityMetadata struct {
	AvgRemovedPrice float64 `json:"avg_removed_price"`
	AvgCartPrice    float64 `json:"avg_cart_price"`
	Removals        int     `json:"removals"`
}

func (PriceSensitivityMetadata) SignalType() SignalType { return SignalPriceSensitivity }

type RepeatRemovalMetadata struct {
	ProductID uint64 `json:"product_id"`
	Removals  int    `json:"removals"`
}

func (RepeatRemovalMetadata) SignalType() SignalType { return SignalRepeatRemoval }

type CartSignal struct {
	Type     SignalType     `json:"type"`
	Severity Severity       `json:"severity"`
	Reason   string         `json:"reason"`
	Metadata SignalMetadata `json:"metadata"`
}

func NewSignal(severity Severity, reason string, meta SignalMetadata) CartSignal {
	return CartSignal{
		Type:     meta.SignalType(),
		Severity: severity,
		Reason:   reason,
		Metadata: meta,
	}
}

func (s *CartSignal) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     SignalType      `json:"type"`
		Severity Severity        `json:"severity"`
		Reason   string          `json:"reason"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	meta, err := decodeSignalMetadata(raw.Type, raw.Metadata)
	if err != nil {
		return err
	}

	s.Type = raw.Type
	s.Severity = raw.Severity
	s.Reason = raw.Reason
	s.Metadata = meta
	return nil
}

func decodeSignalMetadata(t SignalType, data json.RawMessage) (SignalMetadata, error) {
	var meta SignalMetadata
	switch t {
	case SignalThresholdNear:
		meta = &ThresholdMetadata{}
	case SignalGiftEligible:
		meta = &GiftMetadata{}
	case SignalBundleOpportunity:
		meta = &BundleMetadata{}
	case SignalHesitation:
		meta = &HesitationMetadata{}
	case SignalPriceSensitivity:
		meta = &PriceSensitivityMetadata{}
	case SignalRepeatRemoval:
		meta = &RepeatRemovalMetadata{}
	default:
		return nil, fmt.Errorf("unknown signal type %q", t)
	}

	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, meta); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", t, err)
		}
	}

	// store values, not pointers, so decoded signals compare equal to fresh ones
	switch m := meta.(type) {
	case *ThresholdMetadata:
		return *m, nil
	case *GiftMetadata:
		return *m, nil
	case *BundleMetadata:
		return *m, nil
	case *HesitationMetadata:
		return *m, nil
	case *PriceSensitivityMetadata:
		return *m, nil
	case *RepeatRemovalMetadata:
		return *m, nil
	}
	return meta, nil
}
