package repositories

import (
	"context"
	"testing"
	"time"

	"tenantcore/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type UserRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    UserRepository
	context context.Context
}

func (suite *UserRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewUserRepo(mock)
	suite.context = context.Background()
}

func (suite *UserRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestUserRepoTestSuite(t *testing.T) {
	suite.Run(t, new(UserRepoTestSuite))
}

func userRows(user *models.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "tenant_id", "email", "password_hash", "display_name", "role", "status", "created_at", "updated_at"}).
		AddRow(user.ID, user.TenantID, user.Email, user.PasswordHash, user.DisplayName, user.Role, user.Status, user.CreatedAt, user.UpdatedAt)
}

func (suite *UserRepoTestSuite) TestGetByEmail_TenantUser() {
	tenantID := uuid.New()
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     &tenantID,
		Email:        "member@acme.test",
		PasswordHash: "$2a$10$hash",
		DisplayName:  "Member",
		Role:         models.RoleMember,
		Status:       "active",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	suite.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs(user.Email).
		WillReturnRows(userRows(user))

	got, err := suite.repo.GetByEmail(suite.context, user.Email)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), user.ID, got.ID)
	suite.Require().NotNil(got.TenantID)
	assert.Equal(suite.T(), tenantID, *got.TenantID)
}

func (suite *UserRepoTestSuite) TestGetByEmail_MasterHasNilTenant() {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "ops@platform.test",
		PasswordHash: "$2a$10$hash",
		DisplayName:  "Operator",
		Role:         models.RoleMaster,
		Status:       "active",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	suite.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs(user.Email).
		WillReturnRows(userRows(user))

	got, err := suite.repo.GetByEmail(suite.context, user.Email)
	suite.Require().NoError(err)
	assert.Nil(suite.T(), got.TenantID)
	assert.Equal(suite.T(), models.RoleMaster, got.Role)
}

func (suite *UserRepoTestSuite) TestGetByEmail_NotFoundMapsToInvalidCredentials() {
	suite.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("ghost@acme.test").
		WillReturnError(pgx.ErrNoRows)

	got, err := suite.repo.GetByEmail(suite.context, "ghost@acme.test")
	assert.ErrorIs(suite.T(), err, models.ErrInvalidCredentials)
	assert.Nil(suite.T(), got)
}

func (suite *UserRepoTestSuite) TestCountByTenant() {
	tenantID := uuid.New()
	suite.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE tenant_id = \$1`).
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	count, err := suite.repo.CountByTenant(suite.context, tenantID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 7, count)
}
