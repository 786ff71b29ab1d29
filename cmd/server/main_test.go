package main

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/aradabingo/bingomaster/internal/config"
	"github.com/aradabingo/bingomaster/internal/game"
	"github.com/aradabingo/bingomaster/internal/logging"
	"github.com/aradabingo/bingomaster/internal/models"
	"github.com/aradabingo/bingomaster/internal/services"
)

type stubCartelaService struct {
	services.CartelaServiceInterface
	shops    []models.Shop
	listErr  error
	seeded   map[int64]int
	grids    map[int64][]models.Cartela
	seedFail bool
}

func (s *stubCartelaService) ListShops(ctx context.Context) ([]models.Shop, error) {
	return s.shops, s.listErr
}

func (s *stubCartelaService) SeedShop(ctx context.Context, shopID int64, count int, rng *rand.Rand) (int, error) {
	if s.seedFail {
		return 0, errors.New("seed failed")
	}
	if s.seeded == nil {
		s.seeded = make(map[int64]int)
	}
	s.seeded[shopID] = count
	return count, nil
}

func (s *stubCartelaService) ListByShop(ctx context.Context, shopID int64) ([]models.Cartela, error) {
	return s.grids[shopID], nil
}

func testCartelas(shopID int64, n int) []models.Cartela {
	rng := rand.New(rand.NewSource(shopID))
	out := make([]models.Cartela, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.Cartela{ID: i, ShopID: shopID, Grid: models.GenerateGrid(rng)})
	}
	return out
}

func TestLoadShopInventory_LoadsAllShops(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	svc := &stubCartelaService{
		shops: []models.Shop{{ID: 5, Name: "Arada Main"}, {ID: 6, Name: "Piassa"}},
		grids: map[int64][]models.Cartela{
			5: testCartelas(5, 3),
			6: testCartelas(6, 2),
		},
	}
	registry := game.NewRegistry()
	cfg := &config.Config{Game: config.GameConfig{CartelasPerShop: 75, IdleTimeout: 10 * time.Minute}}

	if err := loadShopInventory(context.Background(), registry, svc, cfg, logger, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !registry.HasShop(5) || !registry.HasShop(6) {
		t.Fatal("expected both shops loaded")
	}
	if got := len(registry.ListByShop(5, nil)); got != 3 {
		t.Fatalf("expected 3 cartelas in shop 5, got %d", got)
	}
	if svc.seeded != nil {
		t.Fatalf("seeding disabled but SeedShop was called: %v", svc.seeded)
	}
}

func TestLoadShopInventory_SeedsWhenEnabled(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	svc := &stubCartelaService{
		shops: []models.Shop{{ID: 5, Name: "Arada Main"}},
		grids: map[int64][]models.Cartela{5: testCartelas(5, 75)},
	}
	registry := game.NewRegistry()
	cfg := &config.Config{Game: config.GameConfig{CartelasPerShop: 75, SeedCartelas: true}}

	if err := loadShopInventory(context.Background(), registry, svc, cfg, logger, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if svc.seeded[5] != 75 {
		t.Fatalf("expected seed of 75 for shop 5, got %d", svc.seeded[5])
	}
}

func TestLoadShopInventory_SkipsBlockedShops(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	svc := &stubCartelaService{
		shops: []models.Shop{{ID: 5, Name: "Arada Main", IsBlocked: true}},
		grids: map[int64][]models.Cartela{5: testCartelas(5, 3)},
	}
	registry := game.NewRegistry()
	cfg := &config.Config{Game: config.GameConfig{CartelasPerShop: 75}}

	if err := loadShopInventory(context.Background(), registry, svc, cfg, logger, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if registry.HasShop(5) {
		t.Fatal("blocked shop should not be loaded")
	}
}

func TestLoadShopInventory_PropagatesErrors(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	svc := &stubCartelaService{listErr: errors.New("db down")}
	cfg := &config.Config{Game: config.GameConfig{CartelasPerShop: 75}}

	if err := loadShopInventory(context.Background(), game.NewRegistry(), svc, cfg, logger, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected error")
	}

	svc = &stubCartelaService{
		shops:    []models.Shop{{ID: 5}},
		seedFail: true,
	}
	cfg.Game.SeedCartelas = true
	if err := loadShopInventory(context.Background(), game.NewRegistry(), svc, cfg, logger, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected seed error")
	}
}
