package sincera

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FieldNames is the fixed metadata field set, in output column order.
// Every Record carries every one of these fields; absent data is nil.
var FieldNames = []string{
	"publisher_id",
	"name",
	"visit_enabled",
	"status",
	"primary_supply_type",
	"pub_description",
	"categories",
	"slug",
	"avg_ads_to_content_ratio",
	"avg_ads_in_view",
	"avg_ad_refresh",
	"total_unique_gpids",
	"id_absorption_rate",
	"avg_page_weight",
	"avg_cpu",
	"total_supply_paths",
	"reseller_count",
	"owner_domain",
	"updated_at",
}

// Record is one publisher metadata result. The zero value is the all-null
// record, which keeps the output table rectangular regardless of per-row
// failure: a field is nil exactly when the API returned nothing for it.
type Record struct {
	PublisherID          *int64   `json:"publisher_id"`
	Name                 *string  `json:"name"`
	VisitEnabled         *bool    `json:"visit_enabled"`
	Status               *string  `json:"status"`
	PrimarySupplyType    *string  `json:"primary_supply_type"`
	PubDescription       *string  `json:"pub_description"`
	Categories           *string  `json:"categories"`
	Slug                 *string  `json:"slug"`
	AvgAdsToContentRatio *float64 `json:"avg_ads_to_content_ratio"`
	AvgAdsInView         *float64 `json:"avg_ads_in_view"`
	AvgAdRefresh         *float64 `json:"avg_ad_refresh"`
	TotalUniqueGPIDs     *int64   `json:"total_unique_gpids"`
	IDAbsorptionRate     *float64 `json:"id_absorption_rate"`
	AvgPageWeight        *float64 `json:"avg_page_weight"`
	AvgCPU               *float64 `json:"avg_cpu"`
	TotalSupplyPaths     *int64   `json:"total_supply_paths"`
	ResellerCount        *int64   `json:"reseller_count"`
	OwnerDomain          *string  `json:"owner_domain"`
	UpdatedAt            *string  `json:"updated_at"`
}

// Values returns the record's field values in FieldNames order. Null
// fields yield nil entries, which the spreadsheet writer leaves blank.
func (r Record) Values() []any {
	out := make([]any, 0, len(FieldNames))
	out = append(out, deref(r.PublisherID))
	out = append(out, deref(r.Name))
	out = append(out, deref(r.VisitEnabled))
	out = append(out, deref(r.Status))
	out = append(out, deref(r.PrimarySupplyType))
	out = append(out, deref(r.PubDescription))
	out = append(out, deref(r.Categories))
	out = append(out, deref(r.Slug))
	out = append(out, deref(r.AvgAdsToContentRatio))
	out = append(out, deref(r.AvgAdsInView))
	out = append(out, deref(r.AvgAdRefresh))
	out = append(out, deref(r.TotalUniqueGPIDs))
	out = append(out, deref(r.IDAbsorptionRate))
	out = append(out, deref(r.AvgPageWeight))
	out = append(out, deref(r.AvgCPU))
	out = append(out, deref(r.TotalSupplyPaths))
	out = append(out, deref(r.ResellerCount))
	out = append(out, deref(r.OwnerDomain))
	out = append(out, deref(r.UpdatedAt))
	return out
}

// IsNull reports whether every metadata field is null.
func (r Record) IsNull() bool {
	for _, v := range r.Values() {
		if v != nil {
			return false
		}
	}
	return true
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// apiPublisher mirrors the API payload. categories stays raw because the
// API may send either a list of strings or a single string.
type apiPublisher struct {
	PublisherID          *int64          `json:"publisher_id"`
	Name                 *string         `json:"name"`
	VisitEnabled         *bool           `json:"visit_enabled"`
	Status               *string         `json:"status"`
	PrimarySupplyType    *string         `json:"primary_supply_type"`
	PubDescription       *string         `json:"pub_description"`
	Categories           json.RawMessage `json:"categories"`
	Slug                 *string         `json:"slug"`
	AvgAdsToContentRatio *float64        `json:"avg_ads_to_content_ratio"`
	AvgAdsInView         *float64        `json:"avg_ads_in_view"`
	AvgAdRefresh         *float64        `json:"avg_ad_refresh"`
	TotalUniqueGPIDs     *int64          `json:"total_unique_gpids"`
	IDAbsorptionRate     *float64        `json:"id_absorption_rate"`
	AvgPageWeight        *float64        `json:"avg_page_weight"`
	AvgCPU               *float64        `json:"avg_cpu"`
	TotalSupplyPaths     *int64          `json:"total_supply_paths"`
	ResellerCount        *int64          `json:"reseller_count"`
	OwnerDomain          *string         `json:"owner_domain"`
	UpdatedAt            *string         `json:"updated_at"`
}

// decodeError classifies why a 200 body failed to produce a record.
type decodeError struct {
	emptyList bool
	err       error
}

func (e *decodeError) Error() string {
	if e.emptyList {
		return "empty result list"
	}
	return "decode response body: " + e.err.Error()
}

// decodeRecord parses a 200 response body into a Record. The body may be
// a single object or a list; a list uses its first element and an empty
// list is a terminal null result.
func decodeRecord(body []byte) (Record, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return Record{}, &decodeError{err: err}
		}
		if len(list) == 0 {
			return Record{}, &decodeError{emptyList: true}
		}
		trimmed = list[0]
	}

	var p apiPublisher
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Record{}, &decodeError{err: err}
	}

	return p.toRecord(), nil
}

func (p apiPublisher) toRecord() Record {
	return Record{
		PublisherID:          p.PublisherID,
		Name:                 p.Name,
		VisitEnabled:         p.VisitEnabled,
		Status:               p.Status,
		PrimarySupplyType:    p.PrimarySupplyType,
		PubDescription:       p.PubDescription,
		Categories:           joinCategories(p.Categories),
		Slug:                 p.Slug,
		AvgAdsToContentRatio: p.AvgAdsToContentRatio,
		AvgAdsInView:         p.AvgAdsInView,
		AvgAdRefresh:         p.AvgAdRefresh,
		TotalUniqueGPIDs:     p.TotalUniqueGPIDs,
		IDAbsorptionRate:     p.IDAbsorptionRate,
		AvgPageWeight:        p.AvgPageWeight,
		AvgCPU:               p.AvgCPU,
		TotalSupplyPaths:     p.TotalSupplyPaths,
		ResellerCount:        p.ResellerCount,
		OwnerDomain:          p.OwnerDomain,
		UpdatedAt:            p.UpdatedAt,
	}
}

// joinCategories collapses a category list to a single "; "-joined string.
// A plain string is kept verbatim; anything else is null.
func joinCategories(raw json.RawMessage) *string {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		joined := strings.Join(list, "; ")
		return &joined
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return &single
	}

	return nil
}
