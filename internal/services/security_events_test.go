package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"tenantcore/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MockSecurityEventsRepository struct {
	mock.Mock
}

func (m *MockSecurityEventsRepository) Append(ctx context.Context, event *models.SecurityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockSecurityEventsRepository) List(ctx context.Context, filters *models.SecurityEventFilters) ([]*models.SecurityEvent, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.SecurityEvent), args.Error(1)
}

func (m *MockSecurityEventsRepository) ListUnshipped(ctx context.Context, limit int) ([]*models.SecurityEvent, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.SecurityEvent), args.Error(1)
}

func (m *MockSecurityEventsRepository) MarkShipped(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

type fakeShipper struct {
	objects map[string][]byte
	fail    bool
}

func newFakeShipper() *fakeShipper {
	return &fakeShipper{objects: make(map[string][]byte)}
}

func (f *fakeShipper) Ship(_ context.Context, objectName string, payload []byte) error {
	if f.fail {
		return errors.New("sink unavailable")
	}
	f.objects[objectName] = payload
	return nil
}

func (f *fakeShipper) EnsureBucketExists(context.Context) error { return nil }

type SecurityEventServiceTestSuite struct {
	suite.Suite
	mockRepo *MockSecurityEventsRepository
	shipper  *fakeShipper
	service  SecurityEventService
}

func (suite *SecurityEventServiceTestSuite) SetupTest() {
	suite.mockRepo = &MockSecurityEventsRepository{}
	suite.mockRepo.Test(suite.T())
	suite.shipper = newFakeShipper()
	suite.service = NewSecurityEventService(suite.mockRepo, suite.shipper)
}

func (suite *SecurityEventServiceTestSuite) TearDownTest() {
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestSecurityEventServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SecurityEventServiceTestSuite))
}

func (suite *SecurityEventServiceTestSuite) TestRecord_AssignsIdentityAndOrder() {
	ctx := context.Background()
	principal := models.NewMasterPrincipal(uuid.New(), "Operator", "ops@platform.test")

	var appended []*models.SecurityEvent
	suite.mockRepo.On("Append", ctx, mock.AnythingOfType("*models.SecurityEvent")).Return(nil).Run(func(args mock.Arguments) {
		appended = append(appended, args.Get(1).(*models.SecurityEvent))
	}).Times(3)

	for i := 0; i < 3; i++ {
		err := suite.service.Record(ctx, models.EventOperationDenied, principal, models.JSONB{"n": i}, models.SeverityMedium)
		suite.Require().NoError(err)
	}

	require.Len(suite.T(), appended, 3)
	for i, event := range appended {
		assert.NotEqual(suite.T(), uuid.Nil, event.ID)
		assert.Equal(suite.T(), principal.ID, event.Principal.ID)
		assert.False(suite.T(), event.Timestamp.IsZero())
		if i > 0 {
			assert.Greater(suite.T(), event.Seq, appended[i-1].Seq, "seq must increase")
		}
	}
}

func (suite *SecurityEventServiceTestSuite) TestRecord_AppendFailureSurfaces() {
	ctx := context.Background()
	suite.mockRepo.On("Append", ctx, mock.AnythingOfType("*models.SecurityEvent")).Return(errors.New("db down"))

	err := suite.service.Record(ctx, models.EventForcedTermination, nil, nil, models.SeverityCritical)
	assert.Error(suite.T(), err)
}

func (suite *SecurityEventServiceTestSuite) TestRecordDecision_OnlyDenialsLogged() {
	ctx := context.Background()
	principal := models.NewTenantPrincipal(uuid.New(), "Member", "m@acme.test", models.RoleMember, uuid.New())

	// Allowed decision: no repository interaction at all.
	err := suite.service.RecordDecision(ctx, principal, models.Allow("read_data", nil))
	suite.Require().NoError(err)

	suite.mockRepo.On("Append", ctx, mock.MatchedBy(func(e *models.SecurityEvent) bool {
		return e.EventType == models.EventOperationDenied && e.Details["operation"] == "delete_tenant"
	})).Return(nil).Once()

	err = suite.service.RecordDecision(ctx, principal, models.Deny("delete_tenant", nil, "master-only"))
	suite.Require().NoError(err)
}

func (suite *SecurityEventServiceTestSuite) TestShipBatch_ShipsJSONLAndMarks() {
	ctx := context.Background()
	events := []*models.SecurityEvent{
		{ID: uuid.New(), Seq: 1, EventType: models.EventLoginFailed, Severity: models.SeverityLow, Details: models.JSONB{}},
		{ID: uuid.New(), Seq: 2, EventType: models.EventOperationDenied, Severity: models.SeverityMedium, Details: models.JSONB{}},
	}
	suite.mockRepo.On("ListUnshipped", ctx, 500).Return(events, nil)
	suite.mockRepo.On("MarkShipped", ctx, []uuid.UUID{events[0].ID, events[1].ID}).Return(nil)

	shipped, err := suite.service.ShipBatch(ctx, 500)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 2, shipped)

	require.Len(suite.T(), suite.shipper.objects, 1)
	for name, payload := range suite.shipper.objects {
		assert.Contains(suite.T(), name, "audit/")
		assert.Contains(suite.T(), name, ".jsonl")
		lines := bytes.Split(bytes.TrimSpace(payload), []byte("\n"))
		assert.Len(suite.T(), lines, 2)
	}
}

func (suite *SecurityEventServiceTestSuite) TestShipBatch_SinkFailureLeavesEventsUnshipped() {
	ctx := context.Background()
	events := []*models.SecurityEvent{
		{ID: uuid.New(), Seq: 1, EventType: models.EventLoginFailed, Severity: models.SeverityLow, Details: models.JSONB{}},
	}
	suite.mockRepo.On("ListUnshipped", ctx, 500).Return(events, nil)
	suite.shipper.fail = true

	shipped, err := suite.service.ShipBatch(ctx, 500)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), 0, shipped)
	// MarkShipped must never have been called; AssertExpectations covers it.
}

func (suite *SecurityEventServiceTestSuite) TestShipBatch_NothingToShip() {
	ctx := context.Background()
	suite.mockRepo.On("ListUnshipped", ctx, 500).Return([]*models.SecurityEvent{}, nil)

	shipped, err := suite.service.ShipBatch(ctx, 500)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 0, shipped)
}
