package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ssnlakshya/mela/internal/config"
	"github.com/ssnlakshya/mela/internal/services"
)

// TaskType defines the type of a background task.
const (
	// TypeShortLinkSync retries one short-link upsert that failed inline
	// during a submission.
	TypeShortLinkSync = "shortlink:sync"
	// TypeShortLinkSweep re-upserts the short link of every active stall,
	// healing records that drifted or whose retries were exhausted.
	TypeShortLinkSweep = "shortlink:sweep"
)

// shortLinkSweepInterval is how often the scheduler enqueues a full sweep.
const shortLinkSweepInterval = "@every 30m"

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// ShortLinkSyncPayload carries one pending short-link write.
type ShortLinkSyncPayload struct {
	Code    string `json:"code"`
	LongURL string `json:"long_url"`
}

// RetryEnqueuer hands failed short-link syncs to the background queue. It is
// the services.IShortLinkRetryEnqueuer used by the stall service.
type RetryEnqueuer struct {
	client *asynq.Client
}

func NewRetryEnqueuer(client *asynq.Client) *RetryEnqueuer {
	return &RetryEnqueuer{client: client}
}

func (e *RetryEnqueuer) EnqueueShortLinkSync(code, longURL string) error {
	payload, err := json.Marshal(ShortLinkSyncPayload{Code: code, LongURL: longURL})
	if err != nil {
		return fmt.Errorf("failed to marshal short-link sync payload: %w", err)
	}
	task := asynq.NewTask(TypeShortLinkSync, payload)
	info, err := e.client.Enqueue(task,
		asynq.Queue("default"),
		asynq.MaxRetry(10),
		asynq.ProcessIn(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue short-link sync for %s: %w", code, err)
	}
	log.Printf("Enqueued short-link sync task %s for code %s", info.ID, code)
	return nil
}

var _ services.IShortLinkRetryEnqueuer = (*RetryEnqueuer)(nil)

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg          *config.Config
	shortLinks   services.IShortLinkService
	stallService services.IStallService
}

func NewTaskProcessor(
	cfg *config.Config,
	shortLinks services.IShortLinkService,
	stallService services.IStallService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:          cfg,
		shortLinks:   shortLinks,
		stallService: stallService,
	}
}

// SetupServer configures and returns an Asynq server instance, already
// running. Returns nil when no worker role is requested.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isBgWorker bool) *asynq.Server {
	if !isBgWorker {
		log.Println("Running in API mode, no task server started.")
		return nil
	}

	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeShortLinkSync, processor.HandleShortLinkSyncTask)
	mux.HandleFunc(TypeShortLinkSweep, processor.HandleShortLinkSweepTask)
	log.Println("Registered background task handlers.")

	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("Could not run Asynq server: %v", err)
		}
	}()

	return srv
}

// SetupScheduler returns a running scheduler that enqueues the periodic
// short-link sweep.
func SetupScheduler(rdb *redis.Client) *asynq.Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		&asynq.SchedulerOpts{},
	)

	if _, err := scheduler.Register(shortLinkSweepInterval, asynq.NewTask(TypeShortLinkSweep, nil), asynq.Queue("low")); err != nil {
		log.Fatalf("Could not register short-link sweep: %v", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatalf("Could not run Asynq scheduler: %v", err)
		}
	}()

	return scheduler
}

// --- Task Handlers ---

// HandleShortLinkSyncTask retries a single short-link upsert. Transport and
// database errors are retryable; a malformed payload is not.
func (p *TaskProcessor) HandleShortLinkSyncTask(ctx context.Context, t *asynq.Task) error {
	var payload ShortLinkSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal short-link sync payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Code == "" || payload.LongURL == "" {
		return fmt.Errorf("short-link sync payload missing code or long_url: %w", asynq.SkipRetry)
	}

	created, err := p.shortLinks.Upsert(ctx, payload.Code, payload.LongURL)
	if err != nil {
		log.Printf("Short-link sync retry failed for %s: %v", payload.Code, err)
		return err
	}

	log.Printf("Short-link sync succeeded for %s (created=%v)", payload.Code, created)
	return nil
}

// HandleShortLinkSweepTask walks every active stall and re-upserts its short
// link. Individual failures are logged and the sweep keeps going; any failure
// makes the task retryable so the remainder gets another pass.
func (p *TaskProcessor) HandleShortLinkSweepTask(ctx context.Context, t *asynq.Task) error {
	stalls, err := p.stallService.ListByCategory(ctx, "")
	if err != nil {
		return fmt.Errorf("short-link sweep could not list stalls: %w", err)
	}

	var failed int
	for _, stall := range stalls {
		longURL := fmt.Sprintf("%s/%s/%s", p.cfg.SiteBaseURL, stall.Category, stall.Slug)
		if _, err := p.shortLinks.Upsert(ctx, stall.Slug, longURL); err != nil {
			log.Printf("Short-link sweep failed for %s: %v", stall.Slug, err)
			failed++
		}
	}

	log.Printf("Short-link sweep finished: %d stalls, %d failures", len(stalls), failed)
	if failed > 0 {
		return fmt.Errorf("short-link sweep: %d of %d upserts failed", failed, len(stalls))
	}
	return nil
}
