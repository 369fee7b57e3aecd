package handler

import (
	"strconv"

	"github.com/fadilmartias/interview-coach/internal/dto"
	"github.com/fadilmartias/interview-coach/internal/middleware"
	"github.com/fadilmartias/interview-coach/internal/response"
	"github.com/fadilmartias/interview-coach/internal/util"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type InterviewHandler struct {
	interviews  InterviewService
	conclusions ConclusionService
	costs       CostReader
	limiter     fiber.Handler
	log         *zap.Logger
}

// NewInterviewHandler builds the session handlers. costs may be nil, in
// which case the usage route answers 404.
func NewInterviewHandler(interviews InterviewService, conclusions ConclusionService, costs CostReader, log *zap.Logger) *InterviewHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InterviewHandler{
		interviews:  interviews,
		conclusions: conclusions,
		costs:       costs,
		limiter:     middleware.SessionKeyedRateLimiter(0, 0),
		log:         log.Named("http"),
	}
}

func (h *InterviewHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/criteria", h.Criteria)

	sessions := app.Group("/sessions")
	sessions.Post("/", h.Start)
	sessions.Get("/", h.List)
	sessions.Get("/:id", h.Get)
	sessions.Post("/:id/messages", h.limiter, h.SendMessage)
	sessions.Put("/:id/board", h.UpdateBoard)
	sessions.Post("/:id/conclude", h.limiter, h.Conclude)
	sessions.Get("/:id/evaluation", h.Evaluation)
	sessions.Get("/:id/usage", h.Usage)
}

func (h *InterviewHandler) Criteria(c *fiber.Ctx) error {
	catalog := h.interviews.Catalog()
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get criteria",
		Data:    dto.CriteriaResponse{Categories: catalog.Categories(), Criteria: catalog.List()},
	})
}

func (h *InterviewHandler) Start(c *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, "invalid request", err)
	}
	s, err := h.interviews.StartSession(c.UserContext(), uuid.MustParse(req.ProblemID))
	if err != nil {
		return respondError(c, h.log, "failed to start session", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusCreated,
		Message: "Success start session",
		Data:    dto.NewSessionDTO(s, h.interviews.Catalog(), true),
	})
}

func (h *InterviewHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	pagination := response.NewPagination(page, pageSize, 0)

	sessions, total, err := h.interviews.ListSessions(c.UserContext(), pagination.Offset(), pagination.PageSize)
	if err != nil {
		return respondError(c, h.log, "failed to list sessions", err)
	}
	data := make([]dto.SessionDTO, 0, len(sessions))
	for i := range sessions {
		data = append(data, dto.NewSessionDTO(&sessions[i], h.interviews.Catalog(), false))
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:       fiber.StatusOK,
		Message:    "Success list sessions",
		Data:       data,
		Pagination: response.NewPagination(pagination.Page, pagination.PageSize, total),
	})
}

func (h *InterviewHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, h.log, "invalid session id", err)
	}
	s, err := h.interviews.GetSession(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, "failed to get session", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get session",
		Data:    dto.NewSessionDTO(s, h.interviews.Catalog(), true),
	})
}

func (h *InterviewHandler) SendMessage(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, h.log, "invalid session id", err)
	}
	var req dto.SendMessageRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, "invalid request", err)
	}
	res, err := h.interviews.SendMessage(c.UserContext(), id, req.Message)
	if err != nil {
		return respondError(c, h.log, "failed to send message", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success send message",
		Data: dto.MessageResponse{
			Reply:    res.Reply,
			Phase:    res.Phase,
			Score:    res.Score,
			Grouping: res.Grouping,
		},
	})
}

func (h *InterviewHandler) UpdateBoard(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, h.log, "invalid session id", err)
	}
	var req dto.UpdateBoardRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, "invalid request", err)
	}
	s, err := h.interviews.UpdateBoard(c.UserContext(), id, req.BoardState)
	if err != nil {
		return respondError(c, h.log, "failed to update board", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success update board",
		Data:    dto.NewSessionDTO(s, h.interviews.Catalog(), false),
	})
}

// Conclude answers 202 once the evaluation job is accepted. The evaluation
// itself is fetched from the evaluation route.
func (h *InterviewHandler) Conclude(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, h.log, "invalid session id", err)
	}
	if err := h.conclusions.Conclude(c.UserContext(), id); err != nil {
		return respondError(c, h.log, "failed to conclude session", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusAccepted,
		Message: "Evaluation started",
		Data:    dto.ConcludeResponse{Accepted: true},
	})
}

func (h *InterviewHandler) Evaluation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, h.log, "invalid session id", err)
	}
	status, err := h.conclusions.EvaluationStatus(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, "failed to get evaluation", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get evaluation",
		Data: dto.EvaluationStatusResponse{
			Status:      status.Status,
			Evaluation:  status.Evaluation,
			ConcludedAt: status.ConcludedAt,
			EvaluatedAt: status.EvaluatedAt,
		},
	})
}

func (h *InterviewHandler) Usage(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, h.log, "invalid session id", err)
	}
	if h.costs == nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusNotFound,
			Message: "usage metering is disabled",
		})
	}
	if _, err := h.interviews.GetSession(c.UserContext(), id); err != nil {
		return respondError(c, h.log, "failed to get session", err)
	}
	cost, err := h.costs.SessionCost(c.UserContext(), id.String())
	if err != nil {
		return respondError(c, h.log, "failed to get usage", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get usage",
		Data:    fiber.Map{"session_id": id, "cost_usd": cost},
	})
}
