package repositories

import (
	"context"

	"tenantcore/internal/models"

	"github.com/google/uuid"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type tenantRepo struct {
	db Database
}

func NewTenantRepo(db Database) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = `id, name, domain, subdomain, plan, max_users, is_active,
	allow_custom_products, allow_custom_templates, allow_integrations,
	max_products, max_templates, created_at, updated_at`

func scanTenant(row interface{ Scan(dest ...any) error }) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := row.Scan(
		&tenant.ID, &tenant.Name, &tenant.Domain, &tenant.Subdomain,
		&tenant.Plan, &tenant.MaxUsers, &tenant.IsActive,
		&tenant.Settings.AllowCustomProducts, &tenant.Settings.AllowCustomTemplates,
		&tenant.Settings.AllowIntegrations, &tenant.Settings.MaxProducts,
		&tenant.Settings.MaxTemplates, &tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, domain, subdomain, plan, max_users, is_active,
			allow_custom_products, allow_custom_templates, allow_integrations,
			max_products, max_templates, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		tenant.ID, tenant.Name, tenant.Domain, tenant.Subdomain,
		tenant.Plan, tenant.MaxUsers, tenant.IsActive,
		tenant.Settings.AllowCustomProducts, tenant.Settings.AllowCustomTemplates,
		tenant.Settings.AllowIntegrations, tenant.Settings.MaxProducts,
		tenant.Settings.MaxTemplates,
	)
	return err
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.db.QueryRow(ctx, query, id))
}

func (r *tenantRepo) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE subdomain = $1`
	return scanTenant(r.db.QueryRow(ctx, query, subdomain))
}

func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $1, domain = $2, subdomain = $3, plan = $4, max_users = $5,
			is_active = $6, allow_custom_products = $7, allow_custom_templates = $8,
			allow_integrations = $9, max_products = $10, max_templates = $11,
			updated_at = NOW()
		WHERE id = $12
	`
	_, err := r.db.Exec(ctx, query,
		tenant.Name, tenant.Domain, tenant.Subdomain, tenant.Plan,
		tenant.MaxUsers, tenant.IsActive,
		tenant.Settings.AllowCustomProducts, tenant.Settings.AllowCustomTemplates,
		tenant.Settings.AllowIntegrations, tenant.Settings.MaxProducts,
		tenant.Settings.MaxTemplates, tenant.ID,
	)
	return err
}

func (r *tenantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM tenants WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *tenantRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

func (r *tenantRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE tenants SET is_active = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, active, id)
	return err
}
