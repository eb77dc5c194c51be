package support

import (
	"context"
	"log/slog"

	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
)

// ContractURL resolves ref for display. A failure only costs the link, so it is logged.
func ContractURL(ctx context.Context, linker policies.ContractLinker, ref string, logger *slog.Logger) string {
	if linker == nil || ref == "" {
		return ""
	}
	url, err := linker.Link(ctx, ref)
	if err != nil {
		if logger != nil {
			logger.Warn("contract link failed", "ref", ref, "error", err)
		}
		return ""
	}
	return url
}

// DiscardContractOnRollback removes the contract stored under ref when the unit of work
// in ctx is abandoned.
func DiscardContractOnRollback(ctx context.Context, gen policies.ContractGenerator, ref string, logger *slog.Logger) {
	if gen == nil || ref == "" {
		return
	}
	uow.OnRollback(ctx, func(ctx context.Context) {
		if err := gen.Discard(ctx, ref); err != nil && logger != nil {
			logger.Warn("orphaned contract not removed", "ref", ref, "error", err)
		}
	})
}
