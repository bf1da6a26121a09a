package services

import (
	"github.com/asvo/qmscore-backend/internal/types"
)

// yellowMarginFraction is the share of the spec range treated as the
// near-boundary warning band when no soft bounds are configured.
const yellowMarginFraction = 0.1

// EvaluateTolerance classifies a numeric measurement against the item's
// limits. Returns nil when the value or both hard limits are absent. Outside
// the hard limits is RED. Inside them, configured soft bounds define the
// YELLOW band; without soft bounds, values within 10% of the range of either
// hard bound evaluate YELLOW. Everything else is GREEN.
func EvaluateTolerance(numericValue *float64, item *types.StepChecklist) *string {
	if numericValue == nil || item == nil {
		return nil
	}
	lowerLimit, upperLimit := item.LowerLimit, item.UpperLimit
	if lowerLimit == nil && upperLimit == nil {
		return nil
	}

	v := *numericValue
	withinSpec := (lowerLimit == nil || v >= *lowerLimit) &&
		(upperLimit == nil || v <= *upperLimit)
	if !withinSpec {
		return ptr(types.ToleranceRed)
	}

	if item.SoftLowerLimit != nil || item.SoftUpperLimit != nil {
		belowSoft := item.SoftLowerLimit != nil && v < *item.SoftLowerLimit
		aboveSoft := item.SoftUpperLimit != nil && v > *item.SoftUpperLimit
		if belowSoft || aboveSoft {
			return ptr(types.ToleranceYellow)
		}
		return ptr(types.ToleranceGreen)
	}

	var lo, hi float64
	if lowerLimit != nil {
		lo = *lowerLimit
	}
	if upperLimit != nil {
		hi = *upperLimit
	}
	margin := (hi - lo) * yellowMarginFraction

	nearLower := lowerLimit != nil && v < *lowerLimit+margin
	nearUpper := upperLimit != nil && v > *upperLimit-margin
	if nearLower || nearUpper {
		return ptr(types.ToleranceYellow)
	}
	return ptr(types.ToleranceGreen)
}

func ptr[T any](v T) *T { return &v }
