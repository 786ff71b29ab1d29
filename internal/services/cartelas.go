package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"github.com/jackc/pgx/v5"

	"github.com/aradabingo/bingomaster/internal/models"
)

var ErrShopNotFound = errors.New("shop not found")

type CartelaServiceInterface interface {
	ListShops(ctx context.Context) ([]models.Shop, error)
	GetShop(ctx context.Context, shopID int64) (models.Shop, error)
	ListByShop(ctx context.Context, shopID int64) ([]models.Cartela, error)
	SeedShop(ctx context.Context, shopID int64, count int, rng *rand.Rand) (int, error)
}

// CartelaService owns the persisted cartela inventory. Live booking state
// belongs to the in-memory registry; this service provisions and reads the
// grids themselves.
type CartelaService struct {
	db DB
}

func NewCartelaService(db DB) *CartelaService {
	return &CartelaService{db: db}
}

func (s *CartelaService) ListShops(ctx context.Context) ([]models.Shop, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, is_blocked, created_at
		 FROM shops
		 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	var shops []models.Shop
	for rows.Next() {
		var shop models.Shop
		if err := rows.Scan(&shop.ID, &shop.Name, &shop.IsBlocked, &shop.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, shop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	return shops, nil
}

func (s *CartelaService) GetShop(ctx context.Context, shopID int64) (models.Shop, error) {
	var shop models.Shop
	err := s.db.QueryRow(ctx,
		`SELECT id, name, is_blocked, created_at
		 FROM shops
		 WHERE id = $1`,
		shopID,
	).Scan(&shop.ID, &shop.Name, &shop.IsBlocked, &shop.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Shop{}, ErrShopNotFound
	}
	if err != nil {
		return models.Shop{}, fmt.Errorf("get shop %d: %w", shopID, err)
	}
	return shop, nil
}

// ListByShop loads every cartela grid for a shop, ordered by cartela number.
func (s *CartelaService) ListByShop(ctx context.Context, shopID int64) ([]models.Cartela, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, shop_id, grid, is_blocked
		 FROM cartelas
		 WHERE shop_id = $1
		 ORDER BY id`,
		shopID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cartelas for shop %d: %w", shopID, err)
	}
	defer rows.Close()

	var cartelas []models.Cartela
	for rows.Next() {
		var (
			c       models.Cartela
			rawGrid []byte
		)
		if err := rows.Scan(&c.ID, &c.ShopID, &rawGrid, &c.IsBlocked); err != nil {
			return nil, fmt.Errorf("scan cartela: %w", err)
		}
		if err := json.Unmarshal(rawGrid, &c.Grid); err != nil {
			return nil, fmt.Errorf("decode grid for cartela %d: %w", c.ID, err)
		}
		cartelas = append(cartelas, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cartelas for shop %d: %w", shopID, err)
	}
	return cartelas, nil
}

// SeedShop generates grids for cartela numbers the shop does not have yet.
// Existing cartelas are left untouched so reseeding is safe. Returns the
// number of grids actually inserted.
func (s *CartelaService) SeedShop(ctx context.Context, shopID int64, count int, rng *rand.Rand) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("seed count must be positive, got %d", count)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inserted := 0
	for id := 1; id <= count; id++ {
		grid := models.GenerateGrid(rng)
		rawGrid, err := json.Marshal(grid)
		if err != nil {
			return 0, fmt.Errorf("encode grid for cartela %d: %w", id, err)
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO cartelas (shop_id, id, grid, is_blocked)
			 VALUES ($1, $2, $3, false)
			 ON CONFLICT (shop_id, id) DO NOTHING`,
			shopID, id, rawGrid,
		)
		if err != nil {
			return 0, fmt.Errorf("insert cartela %d for shop %d: %w", id, shopID, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit seed tx: %w", err)
	}
	return inserted, nil
}
