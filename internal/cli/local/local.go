// Package local judges CLI requests in-process, answering with the same
// status codes and bodies the HTTP service would.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"execjudge/internal/cli/config"
	httpclient "execjudge/internal/cli/http"
	"execjudge/internal/judge/controller"
	"execjudge/internal/judge/model"
	"execjudge/internal/judge/sandbox/engine"
	"execjudge/internal/judge/sandbox/limits"
	"execjudge/internal/judge/service"
	pkgerrors "execjudge/pkg/errors"
	"execjudge/pkg/utils/response"
)

// Judge runs execution requests without a server.
type Judge struct {
	judge  controller.Judger
	limits model.Limits
}

// New builds the engine, enforcer and judge service described by cfg.
func New(cfg config.LocalConfig) (*Judge, error) {
	sampler, err := limits.NewSampler(cfg.MemorySampler)
	if err != nil {
		return nil, err
	}
	svc, err := service.NewService(service.Config{
		Engine:   engine.New(cfg.Engine),
		Enforcer: limits.NewEnforcer(sampler),
		PoolSize: cfg.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init judge service failed: %w", err)
	}
	return NewWithJudger(svc, cfg.Limits), nil
}

// NewWithJudger wraps an existing judger.
func NewWithJudger(judge controller.Judger, bounds model.Limits) *Judge {
	return &Judge{judge: judge, limits: bounds}
}

// Execute validates and judges req.
func (j *Judge) Execute(ctx context.Context, req model.ExecutionRequest) (httpclient.ResponseInfo, error) {
	start := time.Now()
	sub, err := req.ToSubmission(j.limits)
	if err != nil {
		return errorResponse(err, start)
	}
	res, err := j.judge.Judge(ctx, sub)
	if err != nil {
		return errorResponse(err, start)
	}
	body, err := json.Marshal(res)
	if err != nil {
		return httpclient.ResponseInfo{}, fmt.Errorf("marshal judge result failed: %w", err)
	}
	return httpclient.ResponseInfo{StatusCode: http.StatusOK, Body: body, Duration: time.Since(start)}, nil
}

func errorResponse(err error, start time.Time) (httpclient.ResponseInfo, error) {
	customErr := pkgerrors.GetError(err)
	payload := response.ErrorBody{Code: customErr.Code, Error: customErr.Error()}
	if len(customErr.Details) > 0 {
		payload.Details = customErr.Details
	}
	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return httpclient.ResponseInfo{}, fmt.Errorf("marshal error body failed: %w", marshalErr)
	}
	return httpclient.ResponseInfo{
		StatusCode: customErr.Code.HTTPStatus(),
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}
