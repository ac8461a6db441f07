// workers/reminder_worker.go
package workers

import (
	"context"
	"log"
	"strconv"
	"time"

	"student-engagement-system/models"
	"student-engagement-system/services"

	"gorm.io/gorm"
)

// ReminderWorker periodically nudges students who have pending tasks with
// deadlines coming up. One notification per student per pass.
type ReminderWorker struct {
	db         *gorm.DB
	review     *services.ReviewService
	engagement *services.EngagementService
	interval   time.Duration
}

func NewReminderWorker(db *gorm.DB, review *services.ReviewService, engagement *services.EngagementService) *ReminderWorker {
	return &ReminderWorker{
		db:         db,
		review:     review,
		engagement: engagement,
		interval:   24 * time.Hour,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Task Reminder Worker…")
	go w.run(ctx)
}

func (w *ReminderWorker) run(ctx context.Context) {
	// Initial pass so a restart never silently skips a day
	if err := w.sendReminders(ctx); err != nil {
		log.Printf("⚠️ Initial reminder pass failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.sendReminders(ctx); err != nil {
				log.Printf("❌ Reminder pass failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Task Reminder Worker stopped")
			return
		}
	}
}

func (w *ReminderWorker) sendReminders(ctx context.Context) error {
	var students []models.Student
	if err := w.db.WithContext(ctx).Find(&students).Error; err != nil {
		return err
	}

	sent := 0
	for _, student := range students {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats, err := w.review.GetPendingTaskStats(student.UserID)
		if err != nil {
			log.Printf("[REMINDER] ⚠️ Failed to fetch pending tasks for %s: %v", student.UserID, err)
			continue
		}
		if stats.DueSoonCount == 0 {
			continue
		}

		body := stats.Reminders[0]
		if len(stats.Reminders) > 1 {
			body = stats.Reminders[0] + " va yana " + strconv.Itoa(len(stats.Reminders)-1) + " ta vazifa"
		}
		w.engagement.AddNotification(student.UserID, "task_reminder", "Vazifa eslatmasi", body)
		sent++
	}

	if sent > 0 {
		log.Printf("[REMINDER] ✅ Sent %d reminder(s) across %d student(s)", sent, len(students))
	}
	return nil
}
