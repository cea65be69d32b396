// Package testutil 测试共用的内存数据库、假模型与种子数据。
package testutil

import (
	"fmt"
	"testing"
	"time"

	"StoreSupport/internal/initial"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/zlog"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB 每个测试独立的内存 sqlite，单连接保证事务串行
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	zlog.SetLogger(zap.NewNop())

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", util.GenerateUUID())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, initial.AutoMigrate(db))
	return db
}
