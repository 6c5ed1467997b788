package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/aescanero/dagoflow/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageTypeSnapshot is the type of the first message on a stream. Later
// messages carry the run's events. A stream whose run.finished event was
// lost upstream ends with a second snapshot of the finished run instead.
const MessageTypeSnapshot = "run.snapshot"

const (
	eventBuffer  = 64
	writeWait    = 10 * time.Second
	pollInterval = time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RunReader looks up runs.
type RunReader interface {
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
}

// Message is a frame sent to stream clients
type Message struct {
	Type  string        `json:"type"`
	Run   *domain.Run   `json:"run,omitempty"`
	Event *domain.Event `json:"event,omitempty"`
}

// Handler streams run progress over WebSocket connections
type Handler struct {
	runs     RunReader
	eventBus ports.EventBus
	logger   *zap.Logger

	// how often an open stream re-reads its run to notice a finish whose
	// event never arrived
	pollInterval time.Duration
}

// NewHandler creates a new WebSocket handler
func NewHandler(runs RunReader, eventBus ports.EventBus, logger *zap.Logger) *Handler {
	return &Handler{
		runs:         runs,
		eventBus:     eventBus,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// HandleRunStream sends the current snapshot of a run followed by its
// events, and closes the connection once the run has finished.
func (h *Handler) HandleRunStream(c *gin.Context) {
	runID := c.Param("id")

	if _, err := h.runs.GetRun(c.Request.Context(), runID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": gin.H{"code": http.StatusText(status), "message": err.Error()}})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	logger := h.logger.With(zap.String("run_id", runID))
	logger.Info("WebSocket connection established", zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// the client never sends anything; reading detects its departure
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events := make(chan domain.Event, eventBuffer)
	err = h.eventBus.Subscribe(ctx, domain.RunEventsTopic, func(ctx context.Context, event domain.Event) error {
		if event.RunID != runID {
			return nil
		}
		select {
		case events <- event:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		logger.Error("failed to subscribe to run events", zap.Error(err))
		return
	}

	// taken after subscribing so nothing between the two is lost
	run, err := h.runs.GetRun(ctx, runID)
	if err != nil {
		logger.Error("failed to load run", zap.Error(err))
		return
	}
	if err := h.write(conn, Message{Type: MessageTypeSnapshot, Run: run}); err != nil {
		logger.Debug("failed to write snapshot", zap.Error(err))
		return
	}
	if run.IsFinished() {
		h.close(conn)
		return
	}

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			done, err := h.forward(conn, event)
			if err != nil {
				logger.Debug("failed to write event", zap.Error(err))
				return
			}
			if done {
				h.close(conn)
				return
			}
		case <-ticker.C:
			run, err := h.runs.GetRun(ctx, runID)
			if err != nil {
				logger.Warn("failed to reload run", zap.Error(err))
				continue
			}
			if !run.IsFinished() {
				continue
			}
			if err := h.finish(conn, events, run); err != nil {
				logger.Debug("failed to write final messages", zap.Error(err))
				return
			}
			logger.Debug("run finished, closing stream")
			h.close(conn)
			return
		}
	}
}

// forward writes event and reports whether it ended the run.
func (h *Handler) forward(conn *websocket.Conn, event domain.Event) (bool, error) {
	if err := h.write(conn, Message{Type: string(event.Type), Event: &event}); err != nil {
		return false, err
	}
	return event.Type == domain.EventTypeRunFinished, nil
}

// finish flushes the events already queued for a finished run. When
// run.finished is not among them, the finished run itself is sent.
func (h *Handler) finish(conn *websocket.Conn, events <-chan domain.Event, run *domain.Run) error {
	for {
		select {
		case event := <-events:
			done, err := h.forward(conn, event)
			if err != nil || done {
				return err
			}
		default:
			return h.write(conn, Message{Type: MessageTypeSnapshot, Run: run})
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func (h *Handler) close(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
		time.Now().Add(writeWait))
}
