package httpapi

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v3"

	"docqa/internal/domain"
	"docqa/internal/progress"
)

// IngestHandler handles document uploads.
type IngestHandler struct {
	ingester Ingester
	tracker  *progress.Tracker
}

func NewIngestHandler(ingester Ingester, tracker *progress.Tracker) *IngestHandler {
	return &IngestHandler{ingester: ingester, tracker: tracker}
}

func (h *IngestHandler) Register(router fiber.Router) {
	router.Post("/ingest", h.Ingest)
}

// Ingest reads the multipart "file" field and indexes it.
func (h *IngestHandler) Ingest(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fmt.Errorf("%w: multipart field \"file\" is required", domain.ErrEmptyInput), "")
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, err, "")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return writeError(c, err, "")
	}

	sessionID := h.tracker.Start()
	defer h.tracker.Finish(sessionID)
	h.tracker.Step(sessionID, "Received "+fh.Filename, progress.StatusInfo, fmt.Sprintf("%d bytes", len(data)))

	ctx := progress.WithSession(c.Context(), sessionID)
	res, err := h.ingester.Ingest(ctx, fh.Filename, data)
	if err != nil {
		return writeError(c, err, sessionID)
	}

	body := fiber.Map{
		"status":      "success",
		"session_id":  sessionID,
		"document_id": res.DocumentID,
		"filename":    res.Filename,
		"chunks":      res.Chunks,
	}
	if res.Warning != "" {
		body["warning"] = res.Warning
	}
	return c.JSON(body)
}

// QueryHandler answers questions.
type QueryHandler struct {
	answerer Answerer
	tracker  *progress.Tracker
}

func NewQueryHandler(answerer Answerer, tracker *progress.Tracker) *QueryHandler {
	return &QueryHandler{answerer: answerer, tracker: tracker}
}

func (h *QueryHandler) Register(router fiber.Router) {
	router.Post("/query", h.Query)
}

type queryRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

type queryResponse struct {
	domain.AnswerResponse
	SessionID string `json:"session_id"`
}

func (h *QueryHandler) Query(c fiber.Ctx) error {
	var body queryRequest
	if err := c.Bind().JSON(&body); err != nil {
		return writeError(c, fmt.Errorf("%w: invalid request body", domain.ErrInvalidConfig), "")
	}
	if strings.TrimSpace(body.Question) == "" {
		return writeError(c, fmt.Errorf("%w: question is required", domain.ErrEmptyInput), "")
	}
	if body.K < 0 {
		return writeError(c, fmt.Errorf("%w: k must not be negative", domain.ErrInvalidConfig), "")
	}

	sessionID := h.tracker.Start()
	defer h.tracker.Finish(sessionID)
	h.tracker.Step(sessionID, "Processing question", progress.StatusInfo, body.Question)

	ctx := progress.WithSession(c.Context(), sessionID)
	resp, err := h.answerer.Answer(ctx, body.Question, body.K)
	if err != nil {
		return writeError(c, err, sessionID)
	}
	return c.JSON(queryResponse{AnswerResponse: resp, SessionID: sessionID})
}

// StatusHandler serves health, the document list and progress sessions.
type StatusHandler struct {
	health  HealthChecker
	docs    DocumentLister
	tracker *progress.Tracker
}

func NewStatusHandler(health HealthChecker, docs DocumentLister, tracker *progress.Tracker) *StatusHandler {
	return &StatusHandler{health: health, docs: docs, tracker: tracker}
}

func (h *StatusHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/documents", h.ListDocuments)
	router.Get("/documents/:id", h.GetDocument)
	router.Get("/progress/:id", h.Progress)
}

// Health answers 200 when both services respond and 503 otherwise.
func (h *StatusHandler) Health(c fiber.Ctx) error {
	status := h.health.Check(c.Context())
	code := fiber.StatusOK
	label := "healthy"
	if !status.Healthy() {
		code = fiber.StatusServiceUnavailable
		label = "degraded"
	}
	return c.Status(code).JSON(fiber.Map{
		"status":               label,
		"embedding_reachable":  status.EmbeddingReachable,
		"generation_reachable": status.GenerationReachable,
		"index_populated":      status.IndexPopulated,
		"index_entries":        status.IndexEntries,
		"documents":            status.Documents,
		"embedding_error":      status.EmbeddingError,
		"generation_error":     status.GenerationError,
	})
}

func (h *StatusHandler) ListDocuments(c fiber.Ctx) error {
	docs, err := h.docs.ListDocs()
	if err != nil {
		return writeError(c, err, "")
	}
	return c.JSON(fiber.Map{"documents": docs, "count": len(docs)})
}

func (h *StatusHandler) GetDocument(c fiber.Ctx) error {
	doc, err := h.docs.GetDoc(c.Params("id"))
	if err != nil {
		return writeError(c, err, "")
	}
	return c.JSON(doc)
}

func (h *StatusHandler) Progress(c fiber.Ctx) error {
	s, err := h.tracker.Get(c.Params("id"))
	if err != nil {
		return writeError(c, fmt.Errorf("progress session %s: %w", c.Params("id"), err), "")
	}
	return c.JSON(s)
}
