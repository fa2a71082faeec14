package controller

import (
	"context"
	"errors"
	"io"
	"net/http"

	"execjudge/internal/judge/model"
	"execjudge/internal/judge/sandbox/result"
	pkgerrors "execjudge/pkg/errors"
	"execjudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Judger judges one submission.
type Judger interface {
	Judge(ctx context.Context, sub model.Submission) (result.JudgeResult, error)
}

// JudgeController handles execution requests.
type JudgeController struct {
	judge  Judger
	limits model.Limits
}

// NewJudgeController creates a new controller.
func NewJudgeController(judge Judger, limits model.Limits) *JudgeController {
	return &JudgeController{judge: judge, limits: limits}
}

// Execute judges the submission in the request body and returns the result.
// Judging outcomes, failing ones included, are always answered with 200.
func (h *JudgeController) Execute(c *gin.Context) {
	var req model.ExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			response.Error(c, pkgerrors.MissingFields("code", "testCases", "action", "func", "timeLimit", "memoryLimit"))
			return
		}
		response.Error(c, pkgerrors.Wrapf(err, pkgerrors.InvalidFormat, "invalid request body"))
		return
	}
	sub, err := req.ToSubmission(h.limits)
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.judge.Judge(c.Request.Context(), sub)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, res)
}

// Root answers the service banner.
func (h *JudgeController) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Execution Backend!!"})
}

// Health reports liveness.
func (h *JudgeController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Register mounts the controller routes. middleware applies to the execution
// endpoints only.
func (h *JudgeController) Register(router gin.IRouter, middleware ...gin.HandlerFunc) {
	router.GET("/", h.Root)
	router.GET("/healthz", h.Health)

	api := router.Group("/api/v1", middleware...)
	api.POST("/execution", h.Execute)
	api.POST("/compiler/execution", h.Execute)
}
