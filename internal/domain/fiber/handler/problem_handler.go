package handler

import (
	"github.com/fadilmartias/interview-coach/internal/dto"
	"github.com/fadilmartias/interview-coach/internal/util"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ProblemHandler struct {
	problems ProblemService
	log      *zap.Logger
}

func NewProblemHandler(problems ProblemService, log *zap.Logger) *ProblemHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProblemHandler{problems: problems, log: log.Named("http")}
}

func (h *ProblemHandler) RegisterRoutes(app *fiber.App) {
	problems := app.Group("/problems")
	problems.Post("/", h.Create)
	problems.Get("/:id", h.Get)
	problems.Get("/:id/similar", h.Similar)
}

func (h *ProblemHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateProblemRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, "invalid request", err)
	}
	p := req.ToModel()
	if err := h.problems.Create(c.UserContext(), p); err != nil {
		return respondError(c, h.log, "failed to create problem", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusCreated,
		Message: "Success create problem",
		Data:    dto.NewProblemDTO(p),
	})
}

func (h *ProblemHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, h.log, "invalid problem id", err)
	}
	p, err := h.problems.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, "failed to get problem", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get problem",
		Data:    dto.NewProblemDTO(p),
	})
}

func (h *ProblemHandler) Similar(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, h.log, "invalid problem id", err)
	}
	problems, err := h.problems.Similar(c.UserContext(), id, c.QueryInt("k", 5))
	if err != nil {
		return respondError(c, h.log, "failed to find similar problems", err)
	}
	data := make([]dto.ProblemDTO, 0, len(problems))
	for i := range problems {
		data = append(data, dto.NewProblemDTO(&problems[i]))
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success find similar problems",
		Data:    data,
	})
}
