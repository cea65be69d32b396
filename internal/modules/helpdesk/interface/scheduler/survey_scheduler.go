package scheduler

import (
	"context"
	"sync"
	"time"

	"StoreSupport/internal/modules/helpdesk/application/service"
	"StoreSupport/pkg/zlog"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SurveyScheduler 按 cron 表达式发送到期的满意度调查
type SurveyScheduler struct {
	cron    *cron.Cron
	svc     service.SurveyService
	spec    string
	batch   int
	timeout time.Duration
	mu      sync.Mutex
	running bool
}

func NewSurveyScheduler(svc service.SurveyService, spec string) *SurveyScheduler {
	if spec == "" {
		spec = "*/5 * * * *"
	}
	return &SurveyScheduler{
		// 使用标准5段Cron表达式（不含秒）
		cron:    cron.New(),
		svc:     svc,
		spec:    spec,
		batch:   50,
		timeout: 2 * time.Minute,
	}
}

func (s *SurveyScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	zlog.Info("survey scheduler started", zap.String("cron", s.spec))
	return nil
}

func (s *SurveyScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// tick 上一轮未结束时跳过
func (s *SurveyScheduler) tick() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n, err := s.svc.DispatchDue(ctx, s.batch)
	if err != nil {
		zlog.Warn("survey dispatch failed", zap.Int("sent", n), zap.Error(err))
		return
	}
	if n > 0 {
		zlog.Info("surveys sent", zap.Int("sent", n))
	}
}
