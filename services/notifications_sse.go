package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"student-engagement-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamNotificationsSSE streams new notifications for the authenticated
// user. Poll-based: the cursor is the newest created_at seen so far.
func (s *EngagementService) StreamNotificationsSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		var latest models.Notification
		if err := s.DB.
			Where("user_id = ?", userID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for user %s: %v", userID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var fresh []models.Notification
				err := s.DB.
					Where("user_id = ? AND created_at > ?", userID, lastMaxCreatedAt).
					Order("created_at ASC").
					Find(&fresh).Error
				if err != nil {
					log.Printf("SSE query error for user %s: %v", userID, err)
					continue
				}
				if len(fresh) == 0 {
					continue
				}

				lastMaxCreatedAt = fresh[len(fresh)-1].CreatedAt

				for _, n := range fresh {
					payload, _ := json.Marshal(n)
					fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
