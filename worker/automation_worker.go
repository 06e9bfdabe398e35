package worker

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"promopilot/engine"
)

// Lock key and TTL for the no-overlap guarantee between scheduler runs.
const (
	triggerLockKey = "promopilot:automation:trigger:lock"
	triggerLockTTL = 10 * time.Minute
)

// AutomationWorker is the in-process cron: it invokes the orchestrator on
// a fixed interval. When redis is available a SETNX lock keeps two
// instances from running the same logical tick concurrently.
type AutomationWorker struct {
	Orchestrator *engine.Orchestrator
	Interval     time.Duration
	Redis        *redis.Client
	Logger       *log.Logger
}

func NewAutomationWorker(orchestrator *engine.Orchestrator, interval time.Duration, redisClient *redis.Client, logger *log.Logger) *AutomationWorker {
	return &AutomationWorker{
		Orchestrator: orchestrator,
		Interval:     interval,
		Redis:        redisClient,
		Logger:       logger,
	}
}

func (aw *AutomationWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	aw.Logger.Println("Automation worker started")

	ticker := time.NewTicker(aw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			aw.Logger.Println("Automation worker shutting down...")
			return
		case <-ticker.C:
			aw.runOnce(ctx)
		}
	}
}

func (aw *AutomationWorker) runOnce(ctx context.Context) {
	if !aw.acquireLock(ctx) {
		aw.Logger.Println("Skipping tick: another trigger run holds the lock")
		return
	}
	defer aw.releaseLock(ctx)

	report := aw.Orchestrator.Run("all")
	aw.Logger.Printf("Trigger run complete: processed=%d sent=%d failed=%d skipped=%d",
		report.Processed, report.Sent, report.Failed, report.Skipped)
}

func (aw *AutomationWorker) acquireLock(ctx context.Context) bool {
	if aw.Redis == nil {
		return true
	}
	ok, err := aw.Redis.SetNX(ctx, triggerLockKey, time.Now().Format(time.RFC3339), triggerLockTTL).Result()
	if err != nil {
		// Redis being down must not stop automations from firing
		aw.Logger.Printf("Trigger lock unavailable, proceeding without it: %v", err)
		return true
	}
	return ok
}

func (aw *AutomationWorker) releaseLock(ctx context.Context) {
	if aw.Redis == nil {
		return
	}
	if err := aw.Redis.Del(ctx, triggerLockKey).Err(); err != nil {
		aw.Logger.Printf("Failed to release trigger lock: %v", err)
	}
}
