package seeding

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avaloyal/backend/internal/middleware"
	"github.com/avaloyal/backend/internal/models"
	"github.com/avaloyal/backend/pkg/response"
)

// ChangeRecord is one document-store change-log entry. Only INSERT records
// with a resolved new image are acted on.
type ChangeRecord struct {
	EventName string       `json:"event_name"`
	NewImage  *models.User `json:"new_image,omitempty"`
}

// StreamEvent is a batch of change-log records.
type StreamEvent struct {
	Records []ChangeRecord `json:"records" binding:"required"`
}

// StreamHandler handles the user-stream hook endpoint.
type StreamHandler struct {
	svc *Service
}

// NewStreamHandler creates a stream hook handler.
func NewStreamHandler(svc *Service) *StreamHandler {
	return &StreamHandler{svc: svc}
}

// HandleStream handles POST /hooks/user-stream. All inserted users in the
// batch are processed concurrently; the first error observed fails the batch
// as a whole, with no per-user rollback of already submitted seeds.
func (h *StreamHandler) HandleStream(c *gin.Context) {
	logger := middleware.RequestLogger(c)

	var event StreamEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.BadRequest(c, "invalid stream event: "+err.Error())
		return
	}

	inserted := make([]*models.User, 0, len(event.Records))
	for _, r := range event.Records {
		if r.EventName == "INSERT" && r.NewImage != nil {
			inserted = append(inserted, r.NewImage)
		}
	}
	if len(inserted) == 0 {
		response.OK(c, gin.H{"seeded": 0, "skipped": 0})
		return
	}

	var seeded, skipped int
	g, ctx := errgroup.WithContext(c.Request.Context())
	results := make([]string, len(inserted))
	for i, user := range inserted {
		i, user := i, user
		g.Go(func() error {
			hash, err := h.svc.SeedIfUnfunded(ctx, user)
			if err != nil {
				return err
			}
			results[i] = hash
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("stream seeding failed", zap.Error(err), zap.Int("inserted", len(inserted)))
		response.Internal(c, err.Error())
		return
	}
	for _, hash := range results {
		if hash != "" {
			seeded++
		} else {
			skipped++
		}
	}
	logger.Info("stream batch processed", zap.Int("seeded", seeded), zap.Int("skipped", skipped))
	response.OK(c, gin.H{"seeded": seeded, "skipped": skipped})
}
