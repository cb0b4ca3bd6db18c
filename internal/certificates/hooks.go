package certificates

import (
	"context"

	"go.uber.org/zap"

	"trainhub/admin-portal/admin-portal-backend/internal/programs"
	"trainhub/admin-portal/admin-portal-backend/internal/users"
)

// IssuedHook runs after a certificate row is durably written. Hooks are
// side-channel policy: their failures are logged, never propagated into the
// issuance result.
type IssuedHook func(ctx context.Context, cert *Certificate, programCategory string)

// TrainerPromotionHook promotes graduates of trainer-producing programs to
// the trainer role. The promotion is one-time and guarded: it only applies
// while the account still holds the base role, so re-issuing never
// re-promotes or overwrites a later role.
func TrainerPromotionHook(repo users.Repository, logger *zap.Logger) IssuedHook {
	return func(ctx context.Context, cert *Certificate, programCategory string) {
		if programCategory != programs.CategoryTOT {
			return
		}
		promoted, err := repo.PromoteToTrainer(ctx, cert.UserID)
		if err != nil {
			logger.Error("trainer promotion failed",
				zap.String("certificate_number", cert.Number),
				zap.String("user_id", cert.UserID.String()),
				zap.Error(err))
			return
		}
		if promoted {
			logger.Info("promoted user to trainer",
				zap.String("certificate_number", cert.Number),
				zap.String("user_id", cert.UserID.String()))
		}
	}
}
