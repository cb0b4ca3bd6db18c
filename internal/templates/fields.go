package templates

import (
	"bytes"
	"encoding/json"
	"fmt"

	"trainhub/admin-portal/admin-portal-backend/pkg/pdfrender"
)

// TemplateFieldError names the offending field and why it was rejected.
type TemplateFieldError struct {
	Field  string
	Reason string
}

func (e *TemplateFieldError) Error() string {
	return fmt.Sprintf("template field %q: %s", e.Field, e.Reason)
}

// DefaultFieldMap is the baseline layout for an A4 landscape certificate.
// Fields absent from a stored template fall back to these positions.
func DefaultFieldMap() map[string]pdfrender.FieldConfig {
	return map[string]pdfrender.FieldConfig{
		pdfrender.FieldRecipientName: {
			Kind: pdfrender.KindText, X: 421, Y: 280, Page: 1,
			Align: pdfrender.AlignCenter, Font: "Helvetica", Size: 28,
		},
		pdfrender.FieldProgramTitle: {
			Kind: pdfrender.KindText, X: 421, Y: 330, Page: 1,
			Align: pdfrender.AlignCenter, Font: "Helvetica", Size: 18,
		},
		pdfrender.FieldCompletionDate: {
			Kind: pdfrender.KindText, X: 421, Y: 370, Page: 1,
			Align: pdfrender.AlignCenter, Font: "Helvetica", Size: 12,
		},
		pdfrender.FieldQRCode: {
			Kind: pdfrender.KindImage, X: 40, Y: 450, Page: 1,
			Width: 90, Height: 90,
		},
	}
}

// ParseFieldMap turns the stored JSON field map into a typed configuration.
// Defaults are merged for absent mandatory fields; configured fields are
// validated against the template's page count. Invalid entries fail with a
// TemplateFieldError instead of being silently skipped.
func ParseFieldMap(raw []byte, pageCount int) (map[string]pdfrender.FieldConfig, error) {
	if pageCount < 1 {
		pageCount = 1
	}

	fields := make(map[string]pdfrender.FieldConfig)

	if len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		var rawFields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &rawFields); err != nil {
			return nil, &TemplateFieldError{Field: "*", Reason: "field map is not a JSON object"}
		}

		for name, rawValue := range rawFields {
			// The embedded signatory fallback list is resolved elsewhere,
			// it is not a drawable field.
			if name == embeddedSignatoriesKey {
				continue
			}
			var rawCfg map[string]json.RawMessage
			if err := json.Unmarshal(rawValue, &rawCfg); err != nil {
				return nil, &TemplateFieldError{Field: name, Reason: "field config is not a JSON object"}
			}
			cfg, err := parseField(name, rawCfg)
			if err != nil {
				return nil, err
			}
			fields[name] = cfg
		}
	}

	// Mandatory fields get defaults when the mapping is entirely absent.
	for name, def := range DefaultFieldMap() {
		if _, ok := fields[name]; !ok {
			fields[name] = def
		}
	}

	for name, cfg := range fields {
		if cfg.Page < 1 || cfg.Page > pageCount {
			return nil, &TemplateFieldError{Field: name, Reason: fmt.Sprintf("invalid page %d (template has %d)", cfg.Page, pageCount)}
		}
	}

	return fields, nil
}

func parseField(name string, raw map[string]json.RawMessage) (pdfrender.FieldConfig, error) {
	cfg := pdfrender.FieldConfig{
		Kind:  pdfrender.KindText,
		Page:  1,
		Align: pdfrender.AlignLeft,
		Font:  "Helvetica",
		Size:  14,
	}
	if name == pdfrender.FieldQRCode {
		cfg.Kind = pdfrender.KindImage
		cfg.Width, cfg.Height = 90, 90
	}

	if v, ok := raw["kind"]; ok {
		var kind string
		if err := json.Unmarshal(v, &kind); err == nil {
			cfg.Kind = pdfrender.FieldKind(kind)
		}
	}

	x, okX, errX := floatKey(raw, "x")
	y, okY, errY := floatKey(raw, "y")
	if errX != nil || errY != nil {
		return cfg, &TemplateFieldError{Field: name, Reason: "non-numeric coordinate"}
	}
	if !okX || !okY {
		return cfg, &TemplateFieldError{Field: name, Reason: "missing coordinate"}
	}
	cfg.X, cfg.Y = x, y

	if v, ok, err := floatKey(raw, "size"); err != nil {
		return cfg, &TemplateFieldError{Field: name, Reason: "non-numeric size"}
	} else if ok {
		if v <= 0 {
			return cfg, &TemplateFieldError{Field: name, Reason: "size must be positive"}
		}
		cfg.Size = v
	}

	if v, ok, err := floatKey(raw, "page"); err != nil {
		return cfg, &TemplateFieldError{Field: name, Reason: "non-numeric page"}
	} else if ok {
		cfg.Page = int(v)
	}

	if v, ok, err := floatKey(raw, "width"); err != nil {
		return cfg, &TemplateFieldError{Field: name, Reason: "non-numeric width"}
	} else if ok {
		cfg.Width = v
	}
	if v, ok, err := floatKey(raw, "height"); err != nil {
		return cfg, &TemplateFieldError{Field: name, Reason: "non-numeric height"}
	} else if ok {
		cfg.Height = v
	}

	if v, ok := raw["align"]; ok {
		var align string
		if err := json.Unmarshal(v, &align); err != nil {
			return cfg, &TemplateFieldError{Field: name, Reason: "invalid alignment"}
		}
		switch pdfrender.Alignment(align) {
		case pdfrender.AlignLeft, pdfrender.AlignCenter, pdfrender.AlignRight:
			cfg.Align = pdfrender.Alignment(align)
		default:
			return cfg, &TemplateFieldError{Field: name, Reason: fmt.Sprintf("invalid alignment %q", align)}
		}
	}

	if v, ok := raw["font"]; ok {
		var font string
		if err := json.Unmarshal(v, &font); err == nil {
			cfg.Font = font
		}
	}

	return cfg, nil
}

// floatKey reads a numeric key; legacy templates sometimes store numbers as
// strings, which are accepted when they parse cleanly.
func floatKey(raw map[string]json.RawMessage, key string) (float64, bool, error) {
	v, ok := raw[key]
	if !ok {
		return 0, false, nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, true, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if _, serr := fmt.Sscanf(s, "%g", &f); serr == nil {
			return f, true, nil
		}
	}
	return 0, true, fmt.Errorf("key %q is not numeric", key)
}
