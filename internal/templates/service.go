package templates

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"trainhub/admin-portal/admin-portal-backend/pkg/pdfrender"
	"trainhub/admin-portal/admin-portal-backend/pkg/storage"
)

type Service struct {
	repo  Repository
	store storage.ObjectStore
}

func NewService(repo Repository, store storage.ObjectStore) *Service {
	return &Service{repo: repo, store: store}
}

// CreateRequest carries a new template definition. BasePDFKey must already
// point at an uploaded template PDF in object storage.
type CreateRequest struct {
	Name       string         `json:"name" binding:"required"`
	BasePDFKey string         `json:"base_pdf_key" binding:"required"`
	PageCount  int            `json:"page_count"`
	Fields     datatypes.JSON `json:"fields"`
	IsDefault  bool           `json:"is_default"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*CertificateTemplate, error) {
	if req.PageCount < 1 {
		req.PageCount = 1
	}
	// Reject malformed field maps at save time, not at render time.
	if _, err := ParseFieldMap(req.Fields, req.PageCount); err != nil {
		return nil, err
	}

	tpl := &CertificateTemplate{
		ID:         uuid.New(),
		Name:       req.Name,
		BasePDFKey: req.BasePDFKey,
		PageCount:  req.PageCount,
		Fields:     req.Fields,
		IsDefault:  req.IsDefault,
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req CreateRequest) (*CertificateTemplate, error) {
	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.PageCount < 1 {
		req.PageCount = tpl.PageCount
	}
	if _, err := ParseFieldMap(req.Fields, req.PageCount); err != nil {
		return nil, err
	}

	tpl.Name = req.Name
	tpl.BasePDFKey = req.BasePDFKey
	tpl.PageCount = req.PageCount
	tpl.Fields = req.Fields
	tpl.IsDefault = req.IsDefault
	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CertificateTemplate, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]CertificateTemplate, error) {
	return s.repo.List(ctx)
}

func (s *Service) SetSignatories(ctx context.Context, id uuid.UUID, signatories []TemplateSignatory) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.ReplaceSignatories(ctx, id, signatories)
}

// Resolve returns the template for an explicit reference, or the portal-wide
// default when none is set.
func (s *Service) Resolve(ctx context.Context, id *uuid.UUID) (*CertificateTemplate, error) {
	if id != nil && *id != uuid.Nil {
		return s.repo.GetByID(ctx, *id)
	}
	return s.repo.GetDefault(ctx)
}

// FieldMap parses a template's stored field map with defaults applied.
func (s *Service) FieldMap(tpl *CertificateTemplate) (map[string]pdfrender.FieldConfig, error) {
	return ParseFieldMap(tpl.Fields, tpl.PageCount)
}

// LoadRenderMaterial fetches everything the renderer needs from object
// storage: the base PDF and each signatory's signature image.
func (s *Service) LoadRenderMaterial(ctx context.Context, tpl *CertificateTemplate) (pdfrender.Template, []pdfrender.Signatory, error) {
	fields, err := ParseFieldMap(tpl.Fields, tpl.PageCount)
	if err != nil {
		return pdfrender.Template{}, nil, err
	}

	basePDF, err := s.store.Download(ctx, tpl.BasePDFKey)
	if err != nil {
		return pdfrender.Template{}, nil, fmt.Errorf("failed to fetch template PDF %s: %w", tpl.BasePDFKey, err)
	}

	resolved := ResolveSignatories(tpl)
	signatories := make([]pdfrender.Signatory, 0, len(resolved))
	for _, sig := range resolved {
		rs := pdfrender.Signatory{Name: sig.Name, Title: sig.Title, SignOrder: sig.SignOrder}
		if sig.SignatureKey != "" {
			img, err := s.store.Download(ctx, sig.SignatureKey)
			if err != nil {
				return pdfrender.Template{}, nil, fmt.Errorf("failed to fetch signature image %s: %w", sig.SignatureKey, err)
			}
			rs.Signature = img
		}
		signatories = append(signatories, rs)
	}

	return pdfrender.Template{BasePDF: basePDF, Fields: fields}, signatories, nil
}
