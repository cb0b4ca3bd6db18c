package certificates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trainhub/admin-portal/admin-portal-backend/internal/programs"
	"trainhub/admin-portal/admin-portal-backend/internal/templates"
	"trainhub/admin-portal/admin-portal-backend/pkg/pdfrender"
	"trainhub/admin-portal/admin-portal-backend/pkg/qr"
	"trainhub/admin-portal/admin-portal-backend/pkg/workflows"
)

// TemplateSource is the slice of the template service issuance depends on.
type TemplateSource interface {
	Resolve(ctx context.Context, id *uuid.UUID) (*templates.CertificateTemplate, error)
	FieldMap(tpl *templates.CertificateTemplate) (map[string]pdfrender.FieldConfig, error)
	LoadRenderMaterial(ctx context.Context, tpl *templates.CertificateTemplate) (pdfrender.Template, []pdfrender.Signatory, error)
}

// AssetStore stores and serves rendered certificate assets.
type AssetStore interface {
	UploadPDF(ctx context.Context, number string, pdf []byte) (string, error)
	UploadQR(ctx context.Context, number string, png []byte) (string, error)
	DownloadPDF(ctx context.Context, number string) ([]byte, error)
}

// ServiceConfig tunes the issuance workflow.
type ServiceConfig struct {
	// SiteBaseURL is the public origin the verification URL (and therefore
	// the QR payload) is built from.
	SiteBaseURL string
	// MaxNumberAttempts caps the collision retry loop.
	MaxNumberAttempts int
	// RetryDelay is the base backoff between collision retries; the delay
	// grows linearly with the attempt count.
	RetryDelay time.Duration
}

// DefaultServiceConfig returns the production defaults.
func DefaultServiceConfig(siteBaseURL string) ServiceConfig {
	return ServiceConfig{
		SiteBaseURL:       siteBaseURL,
		MaxNumberAttempts: 10,
		RetryDelay:        50 * time.Millisecond,
	}
}

// Service implements certificate issuance, verification and rendering.
type Service struct {
	repo     Repository
	programs programs.Repository
	tpls     TemplateSource
	assets   AssetStore
	numbers  *NumberGenerator
	statuses *workflows.StateMachine
	hooks    []IssuedHook
	logger   *zap.Logger
	cfg      ServiceConfig

	// Injectable for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

func NewService(
	repo Repository,
	programsRepo programs.Repository,
	tpls TemplateSource,
	assets AssetStore,
	numbers *NumberGenerator,
	logger *zap.Logger,
	cfg ServiceConfig,
	hooks ...IssuedHook,
) *Service {
	if cfg.MaxNumberAttempts <= 0 {
		cfg.MaxNumberAttempts = 10
	}
	return &Service{
		repo:     repo,
		programs: programsRepo,
		tpls:     tpls,
		assets:   assets,
		numbers:  numbers,
		statuses: workflows.NewCertificateStateMachine(),
		hooks:    hooks,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// VerificationURL is the exact payload embedded into the certificate QR; it
// must match the public verification route.
func (s *Service) VerificationURL(number string) string {
	return fmt.Sprintf("%s/certificate/verify/%s", trimSlash(s.cfg.SiteBaseURL), number)
}

func trimSlash(base string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base
}

// Issue creates (or returns) the certificate for an enrollment. Issuance is
// idempotent per (recipient, program, class, recipient type): repeated calls
// return the same number, with created reporting false so the transport
// layer can distinguish a fresh issue from the short-circuit. The certificate
// row is durable before any rendering starts; a render failure is logged and
// recoverable, a lost number is not.
func (s *Service) Issue(ctx context.Context, enrollmentID uuid.UUID) (cert *Certificate, created bool, err error) {
	detail, err := s.programs.GetEnrollmentDetail(ctx, enrollmentID)
	if err != nil {
		return nil, false, err
	}

	if detail.ClassEndsAt.After(s.now()) {
		return nil, false, ErrNotEligible
	}

	recipientType := RecipientType(detail.RecipientType)
	if recipientType == "" {
		recipientType = RecipientParticipant
	}

	existing, err := s.repo.GetByRecipient(ctx, detail.UserID, detail.ProgramID, detail.ClassID, recipientType)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, &StorageError{Stage: "idempotency-lookup", Err: err}
	}

	tpl, err := s.tpls.Resolve(ctx, detail.TemplateID)
	if err != nil {
		return nil, false, err
	}
	if len(templates.ResolveSignatories(tpl)) == 0 {
		return nil, false, ErrSignatoryMissing
	}

	cert, created, err = s.insertWithFreshNumber(ctx, detail, recipientType, tpl.ID)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return cert, false, nil
	}

	for _, hook := range s.hooks {
		hook(ctx, cert, detail.ProgramCategory)
	}

	if err := s.renderAndStore(ctx, cert); err != nil {
		s.logger.Error("certificate render failed after issuance",
			zap.String("certificate_number", cert.Number),
			zap.String("template_id", cert.TemplateID.String()),
			zap.Error(err))
	}

	return cert, true, nil
}

// insertWithFreshNumber runs the bounded collision-retry loop. The storage
// unique constraint is the final arbiter: a recipient-tuple violation means
// a concurrent caller already issued, so the existing row is re-read and
// returned instead of failing.
func (s *Service) insertWithFreshNumber(ctx context.Context, detail *programs.EnrollmentDetail, recipientType RecipientType, templateID uuid.UUID) (*Certificate, bool, error) {
	for attempt := 1; attempt <= s.cfg.MaxNumberAttempts; attempt++ {
		cert := &Certificate{
			ID:              uuid.New(),
			Number:          s.numbers.Next(),
			UserID:          detail.UserID,
			EnrollmentID:    detail.EnrollmentID,
			RecipientType:   recipientType,
			RecipientName:   detail.RecipientName,
			Company:         detail.Company,
			Position:        detail.Position,
			TrainerLevel:    detail.TrainerLevel,
			ProgramID:       detail.ProgramID,
			ClassID:         detail.ClassID,
			ProgramTitle:    detail.ProgramTitle,
			ProgramStartsAt: detail.ClassStartsAt,
			ProgramEndsAt:   detail.ClassEndsAt,
			CompletionDate:  detail.ClassEndsAt,
			TemplateID:      templateID,
			Status:          StatusValid,
			IssuedAt:        s.now().UTC(),
		}

		err := s.repo.Insert(ctx, cert)
		switch {
		case err == nil:
			return cert, true, nil
		case errors.Is(err, errNumberTaken):
			s.logger.Warn("certificate number collision",
				zap.String("candidate", cert.Number),
				zap.Int("attempt", attempt))
			s.sleep(s.cfg.RetryDelay * time.Duration(attempt))
		case errors.Is(err, errAlreadyIssued):
			winner, rerr := s.repo.GetByRecipient(ctx, detail.UserID, detail.ProgramID, detail.ClassID, recipientType)
			if rerr != nil {
				return nil, false, &StorageError{Stage: "race-reread", Err: rerr}
			}
			return winner, false, nil
		default:
			return nil, false, &StorageError{Stage: "insert", Err: err}
		}
	}
	return nil, false, ErrNumberExhausted
}

// VerifyResult is the public verification response payload. The certificate
// is embedded so its fields marshal at the top level of the response body;
// QR-scanner clients read number, status and dates directly off `data`.
type VerifyResult struct {
	*Certificate
	Signatories        []templates.TemplateSignatory `json:"signatories"`
	VerificationResult Status                        `json:"verification_result"`
	VerifiedAt         time.Time                     `json:"verified_at"`
}

// Verify looks up a certificate by exact number and derives its validity.
// Every call appends one audit row; an audit write failure is logged and
// swallowed so the verification result still reaches the caller.
func (s *Service) Verify(ctx context.Context, number, ipAddress, userAgent string) (*VerifyResult, error) {
	cert, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	verifiedAt := s.now().UTC()
	result := cert.DeriveStatus(verifiedAt)

	attempt := &VerificationAttempt{
		ID:            uuid.New(),
		CertificateID: cert.ID,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		Outcome:       result,
		VerifiedAt:    verifiedAt,
	}
	if err := s.repo.LogVerification(ctx, attempt); err != nil {
		s.logger.Warn("verification audit write failed",
			zap.String("certificate_number", number),
			zap.Error(err))
	}

	var signatories []templates.TemplateSignatory
	tplID := cert.TemplateID
	if tpl, err := s.tpls.Resolve(ctx, &tplID); err != nil {
		s.logger.Warn("template lookup failed during verification",
			zap.String("certificate_number", number),
			zap.String("template_id", tplID.String()),
			zap.Error(err))
	} else {
		signatories = templates.ResolveSignatories(tpl)
	}

	return &VerifyResult{
		Certificate:        cert,
		Signatories:        signatories,
		VerificationResult: result,
		VerifiedAt:         verifiedAt,
	}, nil
}

// RenderInfo returns the certificate plus its parsed template field map for
// client-side preview rendering.
func (s *Service) RenderInfo(ctx context.Context, number string) (*Certificate, map[string]pdfrender.FieldConfig, error) {
	cert, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, nil, err
	}
	tplID := cert.TemplateID
	tpl, err := s.tpls.Resolve(ctx, &tplID)
	if err != nil {
		return nil, nil, err
	}
	fields, err := s.tpls.FieldMap(tpl)
	if err != nil {
		return nil, nil, err
	}
	return cert, fields, nil
}

// Render re-renders a certificate on demand and persists the asset URLs.
func (s *Service) Render(ctx context.Context, number string) (*Certificate, error) {
	cert, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := s.renderAndStore(ctx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// Download returns the rendered PDF bytes, rendering first if the previous
// attempt never produced one.
func (s *Service) Download(ctx context.Context, number string) ([]byte, string, error) {
	cert, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, "", err
	}
	if cert.PDFURL == nil {
		if err := s.renderAndStore(ctx, cert); err != nil {
			return nil, "", err
		}
	}
	pdf, err := s.assets.DownloadPDF(ctx, cert.Number)
	if err != nil {
		return nil, "", err
	}
	return pdf, cert.Number + ".pdf", nil
}

// Revoke is the one administrative backwards-facing status change. It is
// explicit and logged; the state machine rejects anything else.
func (s *Service) Revoke(ctx context.Context, number string, revokedBy uuid.UUID) (*Certificate, error) {
	cert, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !s.statuses.CanTransition(string(cert.Status), string(StatusRevoked)) {
		return nil, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, cert.ID, StatusRevoked, &revokedBy); err != nil {
		return nil, &StorageError{Stage: "revoke", Err: err}
	}

	s.logger.Info("certificate revoked",
		zap.String("certificate_number", cert.Number),
		zap.String("revoked_by", revokedBy.String()))

	revokedAt := s.now().UTC()
	cert.Status = StatusRevoked
	cert.RevokedAt = &revokedAt
	cert.RevokedBy = &revokedBy
	return cert, nil
}

// renderAndStore runs the full render pipeline: QR generation, PDF draw,
// asset upload, URL persistence. The certificate row already exists; any
// failure here leaves the row untouched and is safe to retry.
func (s *Service) renderAndStore(ctx context.Context, cert *Certificate) error {
	tplID := cert.TemplateID
	tpl, err := s.tpls.Resolve(ctx, &tplID)
	if err != nil {
		return err
	}

	material, signatories, err := s.tpls.LoadRenderMaterial(ctx, tpl)
	if err != nil {
		return err
	}
	if len(signatories) == 0 {
		return ErrSignatoryMissing
	}

	qrPNG, err := qr.Generate(s.VerificationURL(cert.Number))
	if err != nil {
		return err
	}

	pdf, err := pdfrender.Render(material, pdfrender.Input{
		Values:      certificateValues(cert),
		QRImage:     qrPNG,
		Signatories: signatories,
		CreatedAt:   cert.IssuedAt.UTC(),
	})
	if err != nil {
		return err
	}

	qrURL, err := s.assets.UploadQR(ctx, cert.Number, qrPNG)
	if err != nil {
		return err
	}
	pdfURL, err := s.assets.UploadPDF(ctx, cert.Number, pdf)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateAssets(ctx, cert.ID, pdfURL, qrURL); err != nil {
		return &StorageError{Stage: "persist-asset-urls", Err: err}
	}
	cert.PDFURL = &pdfURL
	cert.QRURL = &qrURL
	return nil
}

// certificateValues resolves every text placeholder to its display string.
// Dates are formatted here so the renderer only ever sees final strings.
func certificateValues(cert *Certificate) map[string]string {
	const dateLayout = "2 January 2006"
	values := map[string]string{
		pdfrender.FieldRecipientName:  cert.RecipientName,
		pdfrender.FieldProgramTitle:   cert.ProgramTitle,
		pdfrender.FieldCompletionDate: cert.CompletionDate.Format(dateLayout),
		"certificate_number":          cert.Number,
		"program_dates": fmt.Sprintf("%s - %s",
			cert.ProgramStartsAt.Format(dateLayout),
			cert.ProgramEndsAt.Format(dateLayout)),
	}
	if cert.Company != "" {
		values["company"] = cert.Company
	}
	if cert.Position != "" {
		values["position"] = cert.Position
	}
	if cert.RecipientType == RecipientTrainer && cert.TrainerLevel != "" {
		values["trainer_level"] = cert.TrainerLevel
	}
	return values
}
