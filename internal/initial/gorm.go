package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"StoreSupport/internal/config"
	conversationEntity "StoreSupport/internal/modules/conversation/domain/entity"
	helpdeskEntity "StoreSupport/internal/modules/helpdesk/domain/entity"
	storefrontEntity "StoreSupport/internal/modules/storefront/domain/entity"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGormDB 连接 MySQL 并完成自动迁移
func NewGormDB(conf *config.Config) (*gorm.DB, error) {
	m := conf.MysqlConfig
	dbName := m.DatabaseName
	if dbName == "" {
		dbName = conf.AppName
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local", m.User, m.Password, m.Host, m.Port, dbName)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                                   NewGormLogger(),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	// 自动迁移，如果没有建表，会自动创建对应的表
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func NewGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// AutoMigrate 全部表；测试环境的 sqlite 也走这里
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&storefrontEntity.Organization{},
		&storefrontEntity.StorePolicy{},
		&storefrontEntity.KnowledgeEntry{},
		&storefrontEntity.Product{},
		&storefrontEntity.Collection{},
		&storefrontEntity.Customer{},
		&storefrontEntity.Order{},
		&storefrontEntity.OrderLineItem{},
		&storefrontEntity.Cart{},
		&storefrontEntity.CartItem{},

		&conversationEntity.ChatSession{},
		&conversationEntity.ConversationMessage{},

		&helpdeskEntity.AccountMapping{},
		&helpdeskEntity.ConversationMirror{},
		&helpdeskEntity.MessageReceipt{},
		&helpdeskEntity.AssignmentRule{},
		&helpdeskEntity.OutboxEvent{},
		&helpdeskEntity.SatisfactionSurvey{},
	)
}
