package repositories

import (
	"context"

	"tenantcore/internal/models"

	"github.com/google/uuid"
)

// TenantDataRepository loads tenant-scoped business data. Every query filters
// by tenant_id in SQL; rows for other tenants never leave the database. This
// is the source-side half of the isolation boundary — client-side filtering
// is never a substitute.
type TenantDataRepository interface {
	ListProducts(ctx context.Context, tenantID uuid.UUID) ([]models.TenantProduct, error)
	ListTemplates(ctx context.Context, tenantID uuid.UUID) ([]models.TenantTemplate, error)
	ListConfigurations(ctx context.Context, tenantID uuid.UUID) ([]models.TenantConfiguration, error)
}

type tenantDataRepo struct {
	db Database
}

func NewTenantDataRepo(db Database) TenantDataRepository {
	return &tenantDataRepo{db: db}
}

func (r *tenantDataRepo) ListProducts(ctx context.Context, tenantID uuid.UUID) ([]models.TenantProduct, error) {
	query := `SELECT id, tenant_id, name FROM products WHERE tenant_id = $1 ORDER BY name`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.TenantProduct
	for rows.Next() {
		var p models.TenantProduct
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *tenantDataRepo) ListTemplates(ctx context.Context, tenantID uuid.UUID) ([]models.TenantTemplate, error) {
	query := `SELECT id, tenant_id, name FROM templates WHERE tenant_id = $1 ORDER BY name`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []models.TenantTemplate
	for rows.Next() {
		var t models.TenantTemplate
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *tenantDataRepo) ListConfigurations(ctx context.Context, tenantID uuid.UUID) ([]models.TenantConfiguration, error) {
	query := `SELECT id, tenant_id, key, value FROM configurations WHERE tenant_id = $1 ORDER BY key`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []models.TenantConfiguration
	for rows.Next() {
		var c models.TenantConfiguration
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Key, &c.Value); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}
