package repository

import (
	"context"

	"StoreSupport/internal/modules/helpdesk/domain/entity"
)

type AccountMappingRepository interface {
	GetByExternalID(ctx context.Context, externalAccountID string) (*entity.AccountMapping, error)
	// GetByOrgID 组织的首个启用映射，出站调用时反查外部账号
	GetByOrgID(ctx context.Context, orgID string) (*entity.AccountMapping, error)
	Save(ctx context.Context, m *entity.AccountMapping) error
}
