package service

import (
	"context"
	"errors"

	"StoreSupport/internal/modules/helpdesk/domain/repository"
	"StoreSupport/internal/modules/helpdesk/infrastructure/client"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/zlog"

	"go.uber.org/zap"
)

const surveyMaxAttempts = 5

// SurveyService 定时发送到期的满意度调查
type SurveyService interface {
	// DispatchDue 返回本次成功发送的数量
	DispatchDue(ctx context.Context, limit int) (int, error)
}

type surveyServiceImpl struct {
	surveys repository.SurveyRepository
	mirrors repository.MirrorRepository
	client  client.Client
	clock   util.Clock
}

func NewSurveyService(surveys repository.SurveyRepository, mirrors repository.MirrorRepository, c client.Client, clock util.Clock) SurveyService {
	if clock == nil {
		clock = util.SystemClock()
	}
	return &surveyServiceImpl{surveys: surveys, mirrors: mirrors, client: c, clock: clock}
}

func (s *surveyServiceImpl) DispatchDue(ctx context.Context, limit int) (int, error) {
	now := s.clock.Now()
	due, err := s.surveys.ListDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		sv := &due[i]
		m, err := s.mirrors.GetByExternalID(ctx, sv.OrgId, sv.ExternalConversationId)
		if err != nil {
			return sent, err
		}
		if m == nil {
			_ = s.surveys.MarkFailed(ctx, sv.Id, "conversation mirror missing", 1)
			continue
		}

		err = s.client.SendSurvey(ctx, m.ExternalAccountId, sv.ExternalConversationId, sv.ContactEmail)
		if err != nil && !errors.Is(err, client.ErrDisabled) {
			zlog.Warn("send survey failed",
				zap.Int64("survey_id", sv.Id),
				zap.String("conversation_id", sv.ExternalConversationId),
				zap.Int("attempts", sv.Attempts+1),
				zap.Error(err))
			if mErr := s.surveys.MarkFailed(ctx, sv.Id, err.Error(), surveyMaxAttempts); mErr != nil {
				return sent, mErr
			}
			continue
		}
		if err := s.surveys.MarkSent(ctx, sv.Id, s.clock.Now()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
