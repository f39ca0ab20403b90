package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"teepress/internal/ports"
)

// AuthCheck names one platform credential to verify.
type AuthCheck struct {
	Name    string
	Checker ports.CredentialChecker
}

// CheckAuth probes every configured platform and reports per-platform
// results, so a bad token surfaces before a long run instead of mid-batch.
func CheckAuth(ctx context.Context, logger *slog.Logger, checks []AuthCheck) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(checks) == 0 {
		return fmt.Errorf("no platforms are configured")
	}

	failed := 0
	for _, check := range checks {
		if err := check.Checker.CheckAuth(ctx); err != nil {
			logger.Error("credential check failed", "platform", check.Name, "error", err)
			failed++
			continue
		}
		logger.Info("credential check passed", "platform", check.Name)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d credential checks failed", failed, len(checks))
	}
	return nil
}
