package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"relate-backend/sections/models"

	"github.com/tiktoken-go/tokenizer"
)

const (
	defaultPersona = "Sales Assistant"
	defaultTone    = "friendly"

	fallbackReply     = "Maaf, boleh diulangi? Saya bisa bantu jelaskan tentang produk kami."
	emptyCatalogReply = "Maaf, katalog kami sedang kosong. Silakan cek kembali nanti ya!"

	// How many catalog items the responder considers per reply.
	catalogContextLimit = 5
)

// KeywordResponder is the rule-based stand-in for a real inference backend.
// It satisfies the Responder contract: it never fails, degrading to a
// generic fallback when its own lookups do.
type KeywordResponder struct {
	logger           *slog.Logger
	store            CRMStore
	enc              tokenizer.Codec
	maxContextTokens int
}

// NewKeywordResponder creates a new keyword responder. maxContextTokens caps
// the catalog context fed into a reply, the same budget a real model call
// would get.
func NewKeywordResponder(store CRMStore, maxContextTokens int) (*KeywordResponder, error) {
	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	return &KeywordResponder{
		logger:           slog.With("service", "KeywordResponder"),
		store:            store,
		enc:              enc,
		maxContextTokens: maxContextTokens,
	}, nil
}

// Generate produces the reply for one inbound message from the tenant's
// persona config and a snapshot of the active catalog.
func (r *KeywordResponder) Generate(ctx context.Context, tenantID, message string) string {
	persona := defaultPersona
	if cfg, err := r.store.GetAIConfig(ctx, tenantID); err == nil {
		if cfg.PersonaName != "" {
			persona = cfg.PersonaName
		}
	}

	products, err := r.store.ListActiveProducts(ctx, tenantID, catalogContextLimit)
	if err != nil {
		r.logger.Warn("Catalog lookup failed, degrading to fallback context", "tenant", tenantID, "error", err)
		products = nil
	}
	products = r.fitContext(products)

	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "halo") || strings.Contains(lower, "hi"):
		return fmt.Sprintf("Halo! Selamat datang di toko kami. Saya %s. Ada yang bisa dibantu?", persona)

	case strings.Contains(lower, "produk") || strings.Contains(lower, "jual") || strings.Contains(lower, "menu"):
		if len(products) == 0 {
			return emptyCatalogReply
		}
		names := make([]string, len(products))
		for i, p := range products {
			names[i] = p.Name
		}
		return fmt.Sprintf("Kami memiliki beberapa produk unggulan:\n%s. Mau lihat detail yang mana?", strings.Join(names, ", "))

	default:
		for _, p := range products {
			if p.Name != "" && strings.Contains(lower, strings.ToLower(p.Name)) {
				return fmt.Sprintf("%s harganya Rp %d. %s. Stok tersisa: %d. Berminat?", p.Name, p.PriceIDR, p.Description, p.Stock)
			}
		}
		return fallbackReply
	}
}

// fitContext truncates the catalog snapshot so its rendered context lines
// stay within the token budget.
func (r *KeywordResponder) fitContext(products []models.Product) []models.Product {
	out := make([]models.Product, 0, len(products))
	total := 0
	for _, p := range products {
		line := fmt.Sprintf("- %s (Rp %d): %s. Stock: %d", p.Name, p.PriceIDR, p.Description, p.Stock)
		n, err := r.enc.Count(line)
		if err != nil {
			r.logger.Warn("Failed to count context tokens", "product", p.Name, "error", err)
			continue
		}
		if total+n > r.maxContextTokens {
			break
		}
		total += n
		out = append(out, p)
	}
	return out
}
