package background

import (
	"context"
	"log"
	"sync"
	"time"

	"tenantcore/internal/caching"
	"tenantcore/internal/identity"
	"tenantcore/internal/models"
	"tenantcore/internal/repositories"
	"tenantcore/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages the periodic security sweeps: invariant validation,
// session integrity comparison, audit batch shipping and identity purging.
type JobScheduler struct {
	scheduler     gocron.Scheduler
	validatorSvc  services.ValidatorService
	eventSvc      services.SecurityEventService
	tenantRepo    repositories.TenantRepository
	cacheSvc      caching.CacheService
	identityStore *identity.Store
	shipBatchSize int
	jobs          map[string]gocron.Job
	mu            sync.RWMutex
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(validatorSvc services.ValidatorService, eventSvc services.SecurityEventService,
	tenantRepo repositories.TenantRepository, cacheSvc caching.CacheService,
	identityStore *identity.Store, shipBatchSize int, sweepInterval, shipInterval time.Duration) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:     scheduler,
		validatorSvc:  validatorSvc,
		eventSvc:      eventSvc,
		tenantRepo:    tenantRepo,
		cacheSvc:      cacheSvc,
		identityStore: identityStore,
		shipBatchSize: shipBatchSize,
		jobs:          make(map[string]gocron.Job),
	}

	js.registerJobs(sweepInterval, shipInterval)
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	log.Printf("Starting background security sweeps")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background security sweeps")
	return js.scheduler.Shutdown()
}

// registerJobs registers all background jobs
func (js *JobScheduler) registerJobs(sweepInterval, shipInterval time.Duration) {
	if sweepInterval <= 0 {
		sweepInterval = 15 * time.Minute
	}
	if shipInterval <= 0 {
		shipInterval = time.Minute
	}

	auditJob, err := js.scheduler.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(js.runAuditSweep, context.Background()),
		gocron.WithName("audit-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create audit sweep job: %v", err)
	} else {
		js.jobs["audit-sweep"] = auditJob
	}

	integrityJob, err := js.scheduler.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(js.runIntegritySweep, context.Background()),
		gocron.WithName("session-integrity-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create integrity sweep job: %v", err)
	} else {
		js.jobs["session-integrity-sweep"] = integrityJob
	}

	shipJob, err := js.scheduler.NewJob(
		gocron.DurationJob(shipInterval),
		gocron.NewTask(js.shipAuditEvents, context.Background()),
		gocron.WithName("audit-event-shipping"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create shipping job: %v", err)
	} else {
		js.jobs["audit-event-shipping"] = shipJob
	}

	purgeJob, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.purgeExpiredSessions),
		gocron.WithName("identity-purge"),
	)
	if err != nil {
		log.Printf("Failed to create identity purge job: %v", err)
	} else {
		js.jobs["identity-purge"] = purgeJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

// runAuditSweep revalidates every live session against the full invariant
// suite and records any HIGH or CRITICAL finding as a security event.
func (js *JobScheduler) runAuditSweep(ctx context.Context) error {
	tenants, err := js.tenantRepo.List(ctx, 1000, 0)
	if err != nil {
		js.recordSweepFailure(ctx, "audit-sweep", err)
		return err
	}

	sessions := js.identityStore.Snapshot()
	failed := 0
	for tokenID, principal := range sessions {
		report := js.validatorSvc.RunFullValidation(ctx, principal, tokenID, nil, tenants)
		if report.OverallStatus == models.ReportPass {
			continue
		}
		failed++
		for _, result := range report.Results {
			if result.Passed || (result.Severity != models.SeverityCritical && result.Severity != models.SeverityHigh) {
				continue
			}
			details := models.JSONB{
				"check":   result.Name,
				"message": result.Message,
			}
			for k, v := range result.Details {
				details[k] = v
			}
			if err := js.eventSvc.Record(ctx, models.EventTenantIsolationViolation, principal, details, result.Severity); err != nil {
				log.Printf("Failed to record sweep finding %s: %v", result.Name, err)
			}
		}
	}
	log.Printf("Audit sweep complete: %d sessions checked, %d failing", len(sessions), failed)
	return nil
}

// runIntegritySweep compares every in-process session against its durable
// copy. Divergence is logged HIGH; sessions are not ended here.
func (js *JobScheduler) runIntegritySweep(ctx context.Context) error {
	sessions := js.identityStore.Snapshot()
	for tokenID, live := range sessions {
		stored, err := js.cacheSvc.GetSessionPrincipal(ctx, tokenID)
		if err != nil {
			// Durable copy expired or unreadable; the purge job and the
			// next restore attempt deal with it.
			continue
		}
		if !stored.Equal(live) {
			if err := js.eventSvc.Record(ctx, models.EventSessionUserIDMismatch, live, models.JSONB{
				"token_id":  tokenID,
				"stored_id": stored.ID.String(),
				"live_id":   live.ID.String(),
				"source":    "integrity-sweep",
			}, models.SeverityHigh); err != nil {
				log.Printf("Failed to record integrity mismatch: %v", err)
			}
		}
	}
	return nil
}

func (js *JobScheduler) shipAuditEvents(ctx context.Context) error {
	shipped, err := js.eventSvc.ShipBatch(ctx, js.shipBatchSize)
	if err != nil {
		js.recordSweepFailure(ctx, "audit-event-shipping", err)
		return err
	}
	if shipped > 0 {
		log.Printf("Shipped %d audit events", shipped)
	}
	return nil
}

func (js *JobScheduler) purgeExpiredSessions() {
	purged := js.identityStore.PurgeExpired(time.Now())
	if purged > 0 {
		log.Printf("Purged %d expired sessions from identity store", purged)
	}
}

func (js *JobScheduler) recordSweepFailure(ctx context.Context, job string, cause error) {
	if err := js.eventSvc.Record(ctx, models.EventAuditSweepFailed, nil, models.JSONB{
		"job":   job,
		"error": cause.Error(),
	}, models.SeverityHigh); err != nil {
		log.Printf("Failed to record sweep failure for %s: %v", job, err)
	}
}
