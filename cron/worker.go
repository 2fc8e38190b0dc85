package cron

import (
	"context"
	"log"
	"time"

	"bookify/config"
	"bookify/services/booking"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const (
	TypeSweepUnpaid  = "booking:sweep_unpaid"
	TypeSweepPastDue = "booking:sweep_pastdue"
	TypeReminderSend = "booking:reminders"
)

// InitLifecycleWorker runs the async sweep worker and its scheduler in
// background. The sweeps are advisory: a failed run is retried on the
// next tick.
func InitLifecycleWorker(bookingSvc booking.BookingService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSweepUnpaid, handleSweepUnpaid(bookingSvc))
	mux.HandleFunc(TypeSweepPastDue, handleSweepPastDue(bookingSvc))
	mux.HandleFunc(TypeReminderSend, handleReminders(bookingSvc))

	// Start Redis health monitor
	go monitorRedisConnection()

	go runScheduler(redisOpts)

	// Start async worker with retry logic
	go func() {
		log.Println("[LifecycleWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[LifecycleWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[LifecycleWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// runScheduler enqueues the recurring sweep tasks.
func runScheduler(redisOpts asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{
		Location: time.UTC,
	})

	entries := []struct {
		spec string
		task *asynq.Task
	}{
		{"@every 5m", asynq.NewTask(TypeSweepUnpaid, nil)},
		{"@every 10m", asynq.NewTask(TypeSweepPastDue, nil)},
		{"@every 15m", asynq.NewTask(TypeReminderSend, nil)},
	}
	for _, e := range entries {
		if _, err := scheduler.Register(e.spec, e.task); err != nil {
			log.Fatalf("[LifecycleWorker] Failed to register %s: %v", e.task.Type(), err)
		}
	}

	if err := scheduler.Run(); err != nil {
		log.Fatalf("[LifecycleWorker] Scheduler failed: %v", err)
	}
}

func handleSweepUnpaid(bookingSvc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		swept, err := bookingSvc.SweepUnpaidBookings(ctx, config.UnpaidGrace())
		if err != nil {
			log.Printf("[SweepUnpaid] Sweep failed: %v", err)
			return err
		}
		if swept > 0 {
			log.Printf("[SweepUnpaid] Cancelled %d stale unpaid bookings", swept)
		}
		return nil
	}
}

func handleSweepPastDue(bookingSvc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		resolved, err := bookingSvc.SweepPastDue(ctx)
		if err != nil {
			log.Printf("[SweepPastDue] Sweep failed: %v", err)
			return err
		}
		if resolved > 0 {
			log.Printf("[SweepPastDue] Resolved %d elapsed bookings", resolved)
		}
		return nil
	}
}

func handleReminders(bookingSvc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		sent, err := bookingSvc.SendReminders(ctx, config.ReminderHorizon(), "upcoming_booking")
		if err != nil {
			log.Printf("[Reminders] Dispatch failed: %v", err)
			return err
		}
		if sent > 0 {
			log.Printf("[Reminders] Dispatched %d booking reminders", sent)
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[LifecycleWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
