package services

import (
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/conversahq/conversa_api/model"
	"github.com/conversahq/conversa_api/services/repositories"
)

// AnalyticsService records usage rows for the chat and contact surfaces.
// Contact submissions are written synchronously because the caller needs the
// row id; chat records are queued to a worker so a slow database never adds
// latency to a completion response.
type AnalyticsService struct {
	context.DefaultService

	postgres *PostgresService
	repo     *repositories.AnalyticsRepository

	queue chan *model.ChatAnalyticsRecord
	done  chan struct{}
	once  sync.Once
}

const ANALYTICS_SVC = "analytics_svc"

const analyticsQueueSize = 256

func (svc AnalyticsService) Id() string {
	return ANALYTICS_SVC
}

func (svc *AnalyticsService) Configure(ctx *context.Context) error {
	svc.queue = make(chan *model.ChatAnalyticsRecord, analyticsQueueSize)
	svc.done = make(chan struct{})
	return svc.DefaultService.Configure(ctx)
}

func (svc *AnalyticsService) Start() error {
	svc.postgres = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.repo = repositories.NewAnalyticsRepository(svc.postgres.Db())

	go svc.worker()

	return nil
}

// Shutdown stops accepting new records and drains what is already queued.
func (svc *AnalyticsService) Shutdown() {
	svc.once.Do(func() {
		close(svc.queue)
	})
	select {
	case <-svc.done:
	case <-time.After(5 * time.Second):
		log.Warn("Analytics worker did not drain in time")
	}
}

// RecordContactSubmission persists a contact row and returns its id.
func (svc *AnalyticsService) RecordContactSubmission(submission *model.ContactSubmission) (string, error) {
	saved, err := svc.repo.CreateSubmission(submission)
	if err != nil {
		return "", err
	}
	return saved.ID, nil
}

// RecordChat enqueues a chat usage row. The call never blocks and never
// fails; when the queue is full the record is dropped with a warning.
func (svc *AnalyticsService) RecordChat(record *model.ChatAnalyticsRecord) {
	defer func() {
		// Send on a closed queue during shutdown is not worth crashing over.
		if r := recover(); r != nil {
			log.Warn("Analytics record dropped during shutdown")
		}
	}()

	select {
	case svc.queue <- record:
	default:
		log.WithField("kind", record.Kind).Warn("Analytics queue full, dropping record")
	}
}

func (svc *AnalyticsService) worker() {
	defer close(svc.done)

	for record := range svc.queue {
		if err := svc.repo.CreateChatRecord(record); err != nil {
			log.WithError(err).Warn("Failed to write analytics record")
		}
	}
}
