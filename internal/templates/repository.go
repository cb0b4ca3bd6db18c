package templates

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTemplateNotFound is returned when no template matches the lookup.
var ErrTemplateNotFound = errors.New("template not found")

type Repository interface {
	Create(ctx context.Context, tpl *CertificateTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*CertificateTemplate, error)
	GetDefault(ctx context.Context) (*CertificateTemplate, error)
	Update(ctx context.Context, tpl *CertificateTemplate) error
	List(ctx context.Context) ([]CertificateTemplate, error)
	ReplaceSignatories(ctx context.Context, templateID uuid.UUID, signatories []TemplateSignatory) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (Repository, error) {
	if err := db.AutoMigrate(&CertificateTemplate{}, &TemplateSignatory{}); err != nil {
		return nil, err
	}
	return &gormRepository{db: db}, nil
}

func (r *gormRepository) Create(ctx context.Context, tpl *CertificateTemplate) error {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(tpl).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*CertificateTemplate, error) {
	var tpl CertificateTemplate
	err := r.db.WithContext(ctx).
		Preload("Signatories", func(db *gorm.DB) *gorm.DB { return db.Order("sign_order ASC") }).
		First(&tpl, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *gormRepository) GetDefault(ctx context.Context) (*CertificateTemplate, error) {
	var tpl CertificateTemplate
	err := r.db.WithContext(ctx).
		Preload("Signatories", func(db *gorm.DB) *gorm.DB { return db.Order("sign_order ASC") }).
		First(&tpl, "is_default = ?", true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *gormRepository) Update(ctx context.Context, tpl *CertificateTemplate) error {
	return r.db.WithContext(ctx).Save(tpl).Error
}

func (r *gormRepository) List(ctx context.Context) ([]CertificateTemplate, error) {
	var tpls []CertificateTemplate
	err := r.db.WithContext(ctx).
		Preload("Signatories", func(db *gorm.DB) *gorm.DB { return db.Order("sign_order ASC") }).
		Order("created_at DESC").
		Find(&tpls).Error
	return tpls, err
}

func (r *gormRepository) ReplaceSignatories(ctx context.Context, templateID uuid.UUID, signatories []TemplateSignatory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", templateID).Delete(&TemplateSignatory{}).Error; err != nil {
			return err
		}
		for i := range signatories {
			signatories[i].TemplateID = templateID
			if signatories[i].ID == uuid.Nil {
				signatories[i].ID = uuid.New()
			}
		}
		if len(signatories) == 0 {
			return nil
		}
		return tx.Create(&signatories).Error
	})
}
