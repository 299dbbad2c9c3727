// Package httpserver exposes the pipeline's scheduler-facing trigger
// endpoints plus the back-office authoring surface for templates, rules and
// scheduled sends. Each job endpoint is idempotent and safe to invoke out of
// cadence; an external cron hits them on a fixed interval.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/khamis1992/rental-notify/internal/health"
	"github.com/khamis1992/rental-notify/internal/model"
	"github.com/khamis1992/rental-notify/internal/processor"
	"github.com/khamis1992/rental-notify/internal/queue"
	"github.com/khamis1992/rental-notify/internal/render"
)

const jobTimeout = 2 * time.Minute

// RuleRunner runs one rule-processing pass.
type RuleRunner interface {
	Process(ctx context.Context, now time.Time) processor.Result
}

// QueueDrainer drains one queue batch.
type QueueDrainer interface {
	Drain(ctx context.Context, now time.Time) queue.Result
}

// HealthChecker evaluates pipeline health.
type HealthChecker interface {
	Check(ctx context.Context, now time.Time) (*health.Report, error)
}

// TemplateStore is the authoring surface for templates. Save enforces the
// strict placeholder validation so rejected templates never reach delivery.
type TemplateStore interface {
	Save(ctx context.Context, t *model.Template) error
	List(ctx context.Context) ([]model.Template, error)
}

// RuleStore persists operator-authored rules.
type RuleStore interface {
	Save(ctx context.Context, rule *model.NotificationRule) error
}

// QueueIntake schedules a notification for future delivery.
type QueueIntake interface {
	Enqueue(ctx context.Context, item *model.QueueItem) error
}

type Router struct {
	Engine *gin.Engine
}

type Deps struct {
	Rules     RuleRunner
	Drainer   QueueDrainer
	Checker   HealthChecker
	Templates TemplateStore
	RuleStore RuleStore
	Intake    QueueIntake
	Logger    *zap.Logger
}

type templateRequest struct {
	ID               int64               `json:"id"`
	Name             string              `json:"name"`
	Subject          string              `json:"subject"`
	Content          string              `json:"content"`
	VariableMappings map[string][]string `json:"variable_mappings"`
	IsActive         bool                `json:"is_active"`
}

type ruleRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	TriggerType string `json:"trigger_type"`
	TemplateID  int64  `json:"template_id"`
	TimingType  string `json:"timing_type"`
	TimingValue int    `json:"timing_value"`
	IsActive    bool   `json:"is_active"`
}

type enqueueRequest struct {
	TemplateID     int64      `json:"template_id"`
	RecipientEmail string     `json:"recipient_email"`
	ScheduledFor   *time.Time `json:"scheduled_for"`
}

func NewRouter(d Deps) *Router {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jobs := r.Group("/jobs")
	{
		jobs.POST("/process-rules", func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), jobTimeout)
			defer cancel()

			res := d.Rules.Process(ctx, time.Now())
			c.JSON(http.StatusOK, res)
		})

		jobs.POST("/drain-queue", func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), jobTimeout)
			defer cancel()

			res := d.Drainer.Drain(ctx, time.Now())
			c.JSON(http.StatusOK, res)
		})

		jobs.POST("/check-health", func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), jobTimeout)
			defer cancel()

			report, err := d.Checker.Check(ctx, time.Now())
			if err != nil {
				d.Logger.Error("Health check failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, report)
		})
	}

	r.GET("/templates", func(c *gin.Context) {
		templates, err := d.Templates.List(c.Request.Context())
		if err != nil {
			d.Logger.Error("Failed to list templates", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, templates)
	})

	r.POST("/templates", func(c *gin.Context) {
		var req templateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		t := model.Template{
			ID:               req.ID,
			Name:             req.Name,
			Subject:          req.Subject,
			Content:          req.Content,
			VariableMappings: req.VariableMappings,
			IsActive:         req.IsActive,
		}
		if err := d.Templates.Save(c.Request.Context(), &t); err != nil {
			if errors.Is(err, render.ErrInvalidTemplate) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			d.Logger.Error("Failed to save template", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": t.ID})
	})

	r.POST("/rules", func(c *gin.Context) {
		var req ruleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		trigger, err := model.ParseTriggerType(req.TriggerType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		timing := model.TimingType(req.TimingType)
		switch timing {
		case model.TimingBefore, model.TimingAfter, model.TimingOn:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown timing type: " + req.TimingType})
			return
		}
		if req.TimingValue < 0 || req.TemplateID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "timing_value must be non-negative and template_id set"})
			return
		}

		rule := model.NotificationRule{
			ID:          req.ID,
			Name:        req.Name,
			TriggerType: trigger,
			TemplateID:  req.TemplateID,
			TimingType:  timing,
			TimingValue: req.TimingValue,
			IsActive:    req.IsActive,
		}
		if err := d.RuleStore.Save(c.Request.Context(), &rule); err != nil {
			d.Logger.Error("Failed to save rule", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": rule.ID})
	})

	r.POST("/queue", func(c *gin.Context) {
		var req enqueueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.TemplateID <= 0 || req.RecipientEmail == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "template_id and recipient_email are required"})
			return
		}

		scheduledFor := time.Now()
		if req.ScheduledFor != nil {
			scheduledFor = *req.ScheduledFor
		}
		item := model.QueueItem{
			TemplateID:     req.TemplateID,
			RecipientEmail: req.RecipientEmail,
			ScheduledFor:   scheduledFor,
			Status:         model.QueueStatusPending,
		}
		if err := d.Intake.Enqueue(c.Request.Context(), &item); err != nil {
			d.Logger.Error("Failed to enqueue notification", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": item.ID, "scheduled_for": item.ScheduledFor})
	})

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
