package handlers

import (
	"context"

	"github.com/colonyforge/core/internal/ar"
)

// inferParents implements spec §9(iv)'s auto-parents heuristic: when a
// caller supplies no explicit parents[], link the new event to the most
// recently appended event in the same stream as a plausible causal
// ancestor. This is best-effort only — it is never consulted by AR or
// projection correctness-critical code, and an explicit parents[] from a
// caller always wins over it.
func inferParents(ctx context.Context, vault *ar.Vault, streamID string) []string {
	last, ok, err := vault.GetLastEvent(ctx, streamID)
	if err != nil || !ok {
		return nil
	}
	return []string{last.ID}
}
