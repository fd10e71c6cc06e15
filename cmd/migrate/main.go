package main

import (
	"fmt"
	"log"

	"stampable/internal/config"
	"stampable/internal/models"
	"stampable/pkg/stamp/gormstamp"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// 读取配置文件（默认 ./config.yml）
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()

	// 连接数据库
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Starting database migration...")

	// 自动迁移业务模型与插件的配置缓存表
	err = db.AutoMigrate(
		&models.Agent{},
		&models.Ticket{},
		&gormstamp.ConfigCacheEntry{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migration completed successfully!")

	// 创建索引
	log.Println("Creating additional indexes...")

	// 工单按状态和归档时间查询
	db.Exec("CREATE INDEX IF NOT EXISTS idx_tickets_status_archived ON tickets(status, archived_at)")

	// 工单按负责人查询
	db.Exec("CREATE INDEX IF NOT EXISTS idx_tickets_assignee ON tickets(assignee_id)")

	log.Println("Indexes created successfully!")
}
