package templates

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CertificateTemplate is a reusable certificate layout: a base PDF in object
// storage plus a field map describing where each dynamic value is drawn.
// Certificates reference templates, they never embed them.
type CertificateTemplate struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name       string         `json:"name" gorm:"not null"`
	BasePDFKey string         `json:"base_pdf_key" gorm:"not null"`
	PageCount  int            `json:"page_count" gorm:"not null;default:1"`
	Fields     datatypes.JSON `json:"fields"`
	IsDefault  bool           `json:"is_default" gorm:"not null;default:false"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	Signatories []TemplateSignatory `json:"signatories" gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`
}

func (CertificateTemplate) TableName() string {
	return "certificate_templates"
}

// TemplateSignatory is one signature block on a template. SignOrder decides
// render order regardless of how rows were inserted or edited.
type TemplateSignatory struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TemplateID   uuid.UUID `json:"template_id" gorm:"type:uuid;not null;index"`
	Name         string    `json:"name" gorm:"not null"`
	Title        string    `json:"title"`
	SignatureKey string    `json:"signature_key"`
	SignOrder    int       `json:"sign_order" gorm:"not null;default:1"`
	CreatedAt    time.Time `json:"created_at"`
}

func (TemplateSignatory) TableName() string {
	return "certificate_template_signatories"
}
