// handlers/engagement_routes.go
package handlers

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"student-engagement-system/middleware"
	"student-engagement-system/models"
	"student-engagement-system/services"
	"student-engagement-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

func SetupEngagementRoutes(
	app *fiber.App,
	engagementService *services.EngagementService,
	leaderboardService *services.LeaderboardService,
	awardService *services.MonthlyAwardService,
	reviewService *services.ReviewService,
	templates *services.TemplateResolver,
) {
	secured := app.Group("/engagement", middleware.UserContextMiddleware())

	// Snapshot + rank + progress for the student dashboard. Read traffic
	// doubles as the opportunistic award trigger.
	secured.Get("/me", func(c *fiber.Ctx) error {
		awardService.Poke()

		userID := c.Locals("user_id").(string)
		studentID := userID
		if middleware.RoleIs(c, string(models.UserRoleAdmin), string(models.UserRoleSuper)) {
			if q := c.Query("student_id"); q != "" {
				studentID = q
			}
		}

		snapshot, err := engagementService.SyncStudentGamification(studentID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build engagement snapshot",
				"cause": err.Error(),
			})
		}

		rank, err := leaderboardService.GetStudentRank(studentID, c.Query("curator_id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to compute rank",
				"cause": err.Error(),
			})
		}

		months, _ := strconv.Atoi(c.Query("months", "6"))
		progress, err := engagementService.GetStudentProgress(studentID, months)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build progress series",
				"cause": err.Error(),
			})
		}

		pending, err := reviewService.GetPendingTaskStats(studentID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch pending tasks",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"student_id":    studentID,
			"snapshot":      snapshot,
			"rank":          rank,
			"progress":      progress,
			"pending_tasks": pending,
		})
	})

	secured.Get("/leaderboard", func(c *fiber.Ctx) error {
		awardService.Poke()

		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		isStaff := middleware.RoleIs(c, string(models.UserRoleAdmin), string(models.UserRoleSuper))
		if !isStaff && limit > 100 {
			limit = 100
		}

		query := services.LeaderboardQuery{
			Limit:     limit,
			CuratorID: c.Query("curator_id"),
		}
		if isStaff && c.Query("all") == "true" {
			query.IncludeAll = true
		}

		entries, err := leaderboardService.GetLeaderboard(query)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"items": entries,
			"count": len(entries),
		})
	})

	secured.Get("/certificates", func(c *fiber.Ctx) error {
		awardService.Poke()

		userID := c.Locals("user_id").(string)
		studentID := userID
		if middleware.RoleIs(c, string(models.UserRoleAdmin), string(models.UserRoleSuper)) {
			if q := c.Query("student_id"); q != "" {
				studentID = q
			}
		}

		var certificates []models.Certificate
		if err := engagementService.DB.
			Where("student_id = ?", studentID).
			Order("issued_at DESC").
			Find(&certificates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list certificates",
				"cause": err.Error(),
			})
		}
		return c.JSON(certificates)
	})

	// Ad hoc certificate issued by a curator, optionally with bonus points.
	secured.Post("/certificates", func(c *fiber.Ctx) error {
		if !middleware.RoleIs(c, string(models.UserRoleAdmin), string(models.UserRoleSuper)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "only curators can issue certificates",
			})
		}

		type Req struct {
			StudentID    string  `json:"student_id"`
			Title        string  `json:"title"`
			Note         *string `json:"note"`
			TemplateName string  `json:"template_name"`
			BonusPoints  int     `json:"bonus_points"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.StudentID == "" || req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "student_id and title are required",
			})
		}

		templateName := req.TemplateName
		if templateName == "" {
			templateName = slug.Make(req.Title)
		}

		issuerID := c.Locals("user_id").(string)
		cert := models.Certificate{
			ID:           uuid.NewString(),
			StudentID:    req.StudentID,
			IssuedBy:     issuerID,
			Title:        req.Title,
			Note:         req.Note,
			TemplateName: &templateName,
		}
		if err := engagementService.DB.Create(&cert).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create certificate",
				"cause": err.Error(),
			})
		}

		if req.BonusPoints > 0 {
			if _, err := engagementService.ApplyPoints(services.ApplyPointsInput{
				StudentID:  req.StudentID,
				Points:     req.BonusPoints,
				SourceType: models.PointSourceCertificateBonus,
				SourceID:   &cert.ID,
				CreatedBy:  &issuerID,
			}); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "certificate created but bonus points failed",
					"cause": err.Error(),
				})
			}
		} else {
			if _, err := engagementService.SyncStudentGamification(req.StudentID); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "certificate created but snapshot sync failed",
					"cause": err.Error(),
				})
			}
		}

		engagementService.AddNotification(req.StudentID, "certificate", "Yangi sertifikat",
			"Sizga \""+req.Title+"\" sertifikati berildi.")

		return c.Status(fiber.StatusCreated).JSON(cert)
	})

	secured.Get("/certificate-templates", func(c *fiber.Ctx) error {
		if !middleware.RoleIs(c, string(models.UserRoleSuper)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "super role required",
			})
		}
		resolved := templates.Resolve(c.Query("reload") == "true")
		if resolved == nil {
			return c.JSON(fiber.Map{"templates": nil})
		}
		return c.JSON(fiber.Map{"templates": resolved})
	})

	// Upload a new template PDF into the resolver's directory. The forced
	// reload makes the new file visible immediately instead of after the TTL.
	secured.Post("/certificate-templates", func(c *fiber.Ctx) error {
		if !middleware.RoleIs(c, string(models.UserRoleSuper)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "super role required",
			})
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "file is required",
				"cause": err.Error(),
			})
		}
		name := filepath.Base(fileHeader.Filename)
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "only PDF templates are accepted",
			})
		}

		if err := utils.SaveFile(fileHeader, filepath.Join(templates.Dir, name)); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to save template",
				"cause": err.Error(),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"name":      name,
			"templates": templates.Resolve(true),
		})
	})

	secured.Post("/system/monthly-awards/run", func(c *fiber.Ctx) error {
		if !middleware.RoleIs(c, string(models.UserRoleSuper)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "super role required",
			})
		}
		result, err := awardService.RunIfDue(awardService.Now(), true)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "monthly award run failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	secured.Post("/system/legacy-points/sync", func(c *fiber.Ctx) error {
		if !middleware.RoleIs(c, string(models.UserRoleAdmin), string(models.UserRoleSuper)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin role required",
			})
		}
		limit, _ := strconv.Atoi(c.Query("limit", "500"))
		migrated, err := reviewService.SyncLegacyTaskGradePoints(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "legacy point sync failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"migrated": migrated})
	})

	secured.Patch("/challenges/entries/:id/review", func(c *fiber.Ctx) error {
		if !middleware.RoleIs(c, string(models.UserRoleAdmin), string(models.UserRoleSuper)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "only curators can review entries",
			})
		}

		type Req struct {
			Status       *models.EntryStatus `json:"status"`
			Score        *int                `json:"score"`
			RankPosition *int                `json:"rank_position"`
			Feedback     *string             `json:"feedback"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Status != nil && !validEntryStatus(*req.Status) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid status",
			})
		}

		result, err := reviewService.ReviewChallengeEntry(services.ChallengeReviewInput{
			EntryID:      c.Params("id"),
			Status:       req.Status,
			Score:        req.Score,
			RankPosition: req.RankPosition,
			Feedback:     req.Feedback,
			ReviewerID:   c.Locals("user_id").(string),
		})
		if err != nil {
			if errors.Is(err, services.ErrEntryNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "challenge entry not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "review failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	secured.Patch("/tasks/assignments/:id/review", func(c *fiber.Ctx) error {
		if !middleware.RoleIs(c, string(models.UserRoleAdmin), string(models.UserRoleSuper)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "only curators can grade assignments",
			})
		}

		type Req struct {
			Status   *models.AssignmentStatus `json:"status"`
			Score    *int                     `json:"score"`
			Feedback *string                  `json:"feedback"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Status != nil && !validAssignmentStatus(*req.Status) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid status",
			})
		}

		result, err := reviewService.GradeTaskAssignment(services.TaskGradeInput{
			AssignmentID: c.Params("id"),
			Status:       req.Status,
			Score:        req.Score,
			Feedback:     req.Feedback,
			GraderID:     c.Locals("user_id").(string),
		})
		if err != nil {
			if errors.Is(err, services.ErrAssignmentNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "task assignment not found",
				})
			}
			if errors.Is(err, services.ErrInvalidGradeScore) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "grading failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	secured.Get("/notifications", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		var notifications []models.Notification
		if err := engagementService.DB.
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(limit).
			Find(&notifications).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list notifications",
				"cause": err.Error(),
			})
		}
		return c.JSON(notifications)
	})

	// SSE cannot carry headers, so the stream authenticates via query params.
	app.Get("/engagement/notifications/stream", middleware.SSEAuthMiddleware(), engagementService.StreamNotificationsSSE)
}

func validEntryStatus(s models.EntryStatus) bool {
	switch s {
	case models.EntryStatusSubmitted, models.EntryStatusUnderReview,
		models.EntryStatusApproved, models.EntryStatusGraded, models.EntryStatusRejected:
		return true
	}
	return false
}

func validAssignmentStatus(s models.AssignmentStatus) bool {
	switch s {
	case models.AssignmentStatusAssigned, models.AssignmentStatusSubmitted,
		models.AssignmentStatusUnderReview, models.AssignmentStatusGraded, models.AssignmentStatusRejected:
		return true
	}
	return false
}
