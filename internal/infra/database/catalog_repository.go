package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/ligue-inference/internal/entity"
)

type CatalogRepository struct {
	DB *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

// Catalogs devolve a whitelist atual: moedas válidas e formas de contato
// ativas. É o snapshot que viaja junto com cada job de análise.
func (r *CatalogRepository) Catalogs(ctx context.Context) (entity.Catalog, error) {
	catalog := entity.Catalog{ContactWays: map[int]string{}}

	rows, err := r.DB.QueryContext(ctx, `SELECT code FROM def_currencies ORDER BY code`)
	if err != nil {
		return entity.Catalog{}, fmt.Errorf("erro ao buscar moedas: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return entity.Catalog{}, err
		}
		catalog.Currencies = append(catalog.Currencies, code)
	}
	if err := rows.Err(); err != nil {
		return entity.Catalog{}, err
	}

	wayRows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM def_contact_ways WHERE is_active = true ORDER BY id`)
	if err != nil {
		return entity.Catalog{}, fmt.Errorf("erro ao buscar formas de contato: %w", err)
	}
	defer wayRows.Close()

	for wayRows.Next() {
		var (
			id   int
			name string
		)
		if err := wayRows.Scan(&id, &name); err != nil {
			return entity.Catalog{}, err
		}
		catalog.ContactWays[id] = name
	}
	if err := wayRows.Err(); err != nil {
		return entity.Catalog{}, err
	}

	return catalog, nil
}
