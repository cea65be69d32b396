package service

import (
	"context"
	"strings"

	"StoreSupport/internal/modules/helpdesk/domain/repository"
	"StoreSupport/pkg/xerr"
)

// AccountService 外部客服账号到组织的解析
type AccountService interface {
	// ResolveOrg accountID 为空时直接使用 fallbackOrgID；两者都有时必须一致
	ResolveOrg(ctx context.Context, accountID, fallbackOrgID string) (string, error)
}

type accountServiceImpl struct {
	accounts repository.AccountMappingRepository
}

func NewAccountService(accounts repository.AccountMappingRepository) AccountService {
	return &accountServiceImpl{accounts: accounts}
}

func (s *accountServiceImpl) ResolveOrg(ctx context.Context, accountID, fallbackOrgID string) (string, error) {
	accountID = strings.TrimSpace(accountID)
	fallbackOrgID = strings.TrimSpace(fallbackOrgID)
	if accountID == "" {
		if fallbackOrgID == "" {
			return "", xerr.ErrOrgNotFound
		}
		return fallbackOrgID, nil
	}
	m, err := s.accounts.GetByExternalID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if m == nil || !m.Active {
		return "", xerr.ErrUnmappedTenant
	}
	if fallbackOrgID != "" && m.OrgId != fallbackOrgID {
		return "", xerr.ErrUnauthorized
	}
	return m.OrgId, nil
}
