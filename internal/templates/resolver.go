package templates

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// embeddedSignatoriesKey is the legacy location for signatories: a list kept
// inside the template field map instead of the signatory table.
const embeddedSignatoriesKey = "signatories"

type embeddedSignatory struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	SignatureKey string `json:"signature_key"`
	SignOrder    int    `json:"sign_order"`
}

// ResolveSignatories returns the signatory set for a template from the first
// non-empty source, in priority order:
//
//  1. rows in the signatory table
//  2. the "signatories" list embedded in the field map
//
// The result is sorted by sign_order. An empty result means the template
// cannot produce a valid certificate.
func ResolveSignatories(tpl *CertificateTemplate) []TemplateSignatory {
	if len(tpl.Signatories) > 0 {
		return sortedSignatories(tpl.Signatories)
	}

	var fieldMap map[string]json.RawMessage
	if err := json.Unmarshal(tpl.Fields, &fieldMap); err != nil {
		return nil
	}
	raw, ok := fieldMap[embeddedSignatoriesKey]
	if !ok {
		return nil
	}
	var embedded []embeddedSignatory
	if err := json.Unmarshal(raw, &embedded); err != nil {
		return nil
	}

	out := make([]TemplateSignatory, 0, len(embedded))
	for _, e := range embedded {
		if e.Name == "" {
			continue
		}
		out = append(out, TemplateSignatory{
			ID:           uuid.Nil,
			TemplateID:   tpl.ID,
			Name:         e.Name,
			Title:        e.Title,
			SignatureKey: e.SignatureKey,
			SignOrder:    e.SignOrder,
		})
	}
	return sortedSignatories(out)
}

func sortedSignatories(in []TemplateSignatory) []TemplateSignatory {
	out := make([]TemplateSignatory, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SignOrder != out[j].SignOrder {
			return out[i].SignOrder < out[j].SignOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}
