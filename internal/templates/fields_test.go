package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainhub/admin-portal/admin-portal-backend/pkg/pdfrender"
)

func TestParseFieldMapAppliesDefaultsWhenEmpty(t *testing.T) {
	fields, err := ParseFieldMap(nil, 1)

	require.NoError(t, err)
	assert.Contains(t, fields, pdfrender.FieldRecipientName)
	assert.Contains(t, fields, pdfrender.FieldProgramTitle)
	assert.Contains(t, fields, pdfrender.FieldCompletionDate)
	assert.Contains(t, fields, pdfrender.FieldQRCode)

	name := fields[pdfrender.FieldRecipientName]
	assert.Equal(t, pdfrender.AlignCenter, name.Align)
	assert.Equal(t, 1, name.Page)
	assert.Greater(t, name.Size, 0.0)
}

func TestParseFieldMapMergesDefaultsForAbsentMandatoryFields(t *testing.T) {
	raw := []byte(`{"recipient_name": {"x": 100, "y": 200, "size": 30, "align": "left"}}`)

	fields, err := ParseFieldMap(raw, 1)

	require.NoError(t, err)
	assert.Equal(t, 100.0, fields[pdfrender.FieldRecipientName].X)
	assert.Equal(t, pdfrender.AlignLeft, fields[pdfrender.FieldRecipientName].Align)
	// Unmapped mandatory fields fall back to defaults instead of failing.
	assert.Contains(t, fields, pdfrender.FieldProgramTitle)
	assert.Contains(t, fields, pdfrender.FieldCompletionDate)
}

func TestParseFieldMapRejectsMissingCoordinate(t *testing.T) {
	raw := []byte(`{"program_title": {"x": 100, "size": 20}}`)

	_, err := ParseFieldMap(raw, 1)

	var fieldErr *TemplateFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "program_title", fieldErr.Field)
	assert.Contains(t, fieldErr.Reason, "missing coordinate")
}

func TestParseFieldMapRejectsNonNumericSize(t *testing.T) {
	raw := []byte(`{"program_title": {"x": 100, "y": 50, "size": "large"}}`)

	_, err := ParseFieldMap(raw, 1)

	var fieldErr *TemplateFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "program_title", fieldErr.Field)
	assert.Contains(t, fieldErr.Reason, "non-numeric size")
}

func TestParseFieldMapAcceptsStringNumbers(t *testing.T) {
	raw := []byte(`{"program_title": {"x": "100.5", "y": "50", "size": "20"}}`)

	fields, err := ParseFieldMap(raw, 1)

	require.NoError(t, err)
	assert.Equal(t, 100.5, fields[pdfrender.FieldProgramTitle].X)
	assert.Equal(t, 20.0, fields[pdfrender.FieldProgramTitle].Size)
}

func TestParseFieldMapRejectsPageBeyondTemplate(t *testing.T) {
	raw := []byte(`{"extra_note": {"x": 10, "y": 10, "page": 4}}`)

	_, err := ParseFieldMap(raw, 2)

	var fieldErr *TemplateFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "extra_note", fieldErr.Field)
	assert.Contains(t, fieldErr.Reason, "invalid page")
}

func TestParseFieldMapRejectsUnknownAlignment(t *testing.T) {
	raw := []byte(`{"extra_note": {"x": 10, "y": 10, "align": "justify"}}`)

	_, err := ParseFieldMap(raw, 1)

	var fieldErr *TemplateFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Contains(t, fieldErr.Reason, "invalid alignment")
}

func TestParseFieldMapIgnoresEmbeddedSignatoriesKey(t *testing.T) {
	raw := []byte(`{"signatories": [{"name": "A. Director", "sign_order": 1}]}`)

	fields, err := ParseFieldMap(raw, 1)

	require.NoError(t, err)
	assert.NotContains(t, fields, "signatories")
}
