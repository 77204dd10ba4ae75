package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

// ErrQuotaExceeded marks upstream quota or rate-limit rejections. Callers
// react to it by switching provider or halting the run.
var ErrQuotaExceeded = errors.New("provider quota exceeded")

// Provider searches an upstream source for a keyword and returns videos with
// their derived metrics already computed.
type Provider interface {
	Name() string
	// EstimatedCost is the unit cost of a typical SearchAndEnrich call, used
	// for budget checks before the call is made.
	EstimatedCost() int
	SearchAndEnrich(ctx context.Context, query string) (*Result, error)
}

// Result is the outcome of one SearchAndEnrich call.
type Result struct {
	Videos         []model.EnrichedVideo
	QuotaUnitsUsed int
}

// IsQuotaError reports whether err is a quota or rate-limit rejection.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && isQuotaAPIError(gerr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "quota")
}

var quotaReasons = map[string]bool{
	"quotaExceeded":           true,
	"dailyLimitExceeded":      true,
	"dailyLimitExceededUnreg": true,
	"rateLimitExceeded":       true,
	"userRateLimitExceeded":   true,
	"servingLimitExceeded":    true,
}

func isQuotaAPIError(e *googleapi.Error) bool {
	if e.Code == http.StatusTooManyRequests {
		return true
	}
	if e.Code != http.StatusForbidden {
		return false
	}
	for _, item := range e.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	return strings.Contains(strings.ToLower(e.Message), "quota")
}
