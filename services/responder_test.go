package services

import (
	"context"
	"strings"
	"testing"

	"relate-backend/sections/models"
)

func newTestResponder(t *testing.T, store *memStore, budget int) *KeywordResponder {
	t.Helper()
	r, err := NewKeywordResponder(store, budget)
	if err != nil {
		t.Fatalf("NewKeywordResponder failed: %v", err)
	}
	return r
}

func seedCatalog(store *memStore) {
	store.products = append(store.products,
		models.Product{TenantSchema: "acme", Name: "Kopi Gayo", Description: "Arabica dari Aceh", PriceIDR: 85000, Stock: 12, Active: true},
		models.Product{TenantSchema: "acme", Name: "Teh Melati", Description: "Teh hijau melati", PriceIDR: 40000, Stock: 30, Active: true},
		models.Product{TenantSchema: "acme", Name: "Gula Aren", Description: "Gula aren organik", PriceIDR: 25000, Stock: 0, Active: false},
	)
}

func TestGenerateGreetingUsesPersona(t *testing.T) {
	store := newMemStore()
	store.aiConfigs["acme"] = models.AIConfig{TenantSchema: "acme", PersonaName: "Mbak Sari"}
	r := newTestResponder(t, store, 1024)

	reply := r.Generate(context.Background(), "acme", "Halo, selamat pagi")
	if !strings.Contains(reply, "Mbak Sari") {
		t.Errorf("expected persona in greeting, got %q", reply)
	}
	if !strings.Contains(reply, "Selamat datang") {
		t.Errorf("expected greeting, got %q", reply)
	}
}

func TestGenerateGreetingDefaultPersona(t *testing.T) {
	store := newMemStore()
	r := newTestResponder(t, store, 1024)

	reply := r.Generate(context.Background(), "acme", "hi")
	if !strings.Contains(reply, "Sales Assistant") {
		t.Errorf("expected default persona, got %q", reply)
	}
}

func TestGenerateCatalogListing(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	r := newTestResponder(t, store, 1024)

	reply := r.Generate(context.Background(), "acme", "Produk apa saja yang dijual?")
	if !strings.Contains(reply, "Kopi Gayo") || !strings.Contains(reply, "Teh Melati") {
		t.Errorf("expected active products listed, got %q", reply)
	}
	if strings.Contains(reply, "Gula Aren") {
		t.Errorf("inactive product leaked into reply: %q", reply)
	}
}

func TestGenerateCatalogListingEmpty(t *testing.T) {
	store := newMemStore()
	r := newTestResponder(t, store, 1024)

	reply := r.Generate(context.Background(), "acme", "menu")
	if !strings.Contains(reply, "katalog kami sedang kosong") {
		t.Errorf("expected empty catalog reply, got %q", reply)
	}
}

func TestGenerateProductDetail(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	r := newTestResponder(t, store, 1024)

	reply := r.Generate(context.Background(), "acme", "Berapa harga kopi gayo?")
	if !strings.Contains(reply, "Rp 85000") {
		t.Errorf("expected price in reply, got %q", reply)
	}
	if !strings.Contains(reply, "Stok tersisa: 12") {
		t.Errorf("expected stock in reply, got %q", reply)
	}
}

func TestGenerateFallback(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	r := newTestResponder(t, store, 1024)

	reply := r.Generate(context.Background(), "acme", "bagaimana cuaca besok?")
	if reply != fallbackReply {
		t.Errorf("expected fallback, got %q", reply)
	}
}

func TestGenerateDegradesWhenCatalogFails(t *testing.T) {
	store := newMemStore()
	store.failListProducts = true
	r := newTestResponder(t, store, 1024)

	// The responder contract is no errors, ever.
	reply := r.Generate(context.Background(), "acme", "produk")
	if !strings.Contains(reply, "katalog kami sedang kosong") {
		t.Errorf("expected degraded catalog reply, got %q", reply)
	}
}

func TestGenerateTokenBudgetTrimsCatalog(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	// A budget too small for even one context line empties the snapshot.
	r := newTestResponder(t, store, 2)

	reply := r.Generate(context.Background(), "acme", "produk")
	if !strings.Contains(reply, "katalog kami sedang kosong") {
		t.Errorf("expected trimmed catalog to read as empty, got %q", reply)
	}
}
