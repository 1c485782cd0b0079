package domain

import (
	"math"

	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
)

// Percentage is the share of quota in use, rounded and capped at 100. A zero
// quota reads as full.
func Percentage(used, quota int64) int {
	if quota <= 0 {
		return 100
	}
	if used < 0 {
		used = 0
	}
	pct := math.Round(float64(used) / float64(quota) * 100)
	if pct > 100 {
		return 100
	}
	return int(pct)
}

type QuotaUsage struct {
	Used       int64 `json:"used"`
	Quota      int64 `json:"quota"`
	Percentage int   `json:"percentage"`
	OverLimit  bool  `json:"over_limit"`
}

type QuotaReport struct {
	LicenseID int64      `json:"license_id"`
	Shops     QuotaUsage `json:"shops"`
	Products  QuotaUsage `json:"products"`
}

func NewQuotaUsage(used, quota int64) QuotaUsage {
	return QuotaUsage{
		Used:       used,
		Quota:      quota,
		Percentage: Percentage(used, quota),
		OverLimit:  used > quota,
	}
}

// Report compares a snapshot against the quotas of a license. Exceeding a
// quota is flagged, nothing is blocked.
func Report(snapshot Snapshot, license licensedomain.License) QuotaReport {
	return QuotaReport{
		LicenseID: license.ID,
		Shops:     NewQuotaUsage(snapshot.ShopsUsed, int64(license.ShopQuota)),
		Products:  NewQuotaUsage(snapshot.ProductsUsed, int64(license.ProductQuota)),
	}
}
