package initializers

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lavka/models"
)

var DB *gorm.DB

func ConnectDB(config *Config) {
	var err error
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Tashkent",
		config.DBHost, config.DBUserName, config.DBUserPass, config.DBName, config.DBPort)

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.WithError(err).Fatal("не удалось подключиться к базе данных")
	}

	DB.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`)

	err = DB.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.AdminNotification{},
	)
	if err != nil {
		log.WithError(err).Fatal("ошибка миграции схемы")
	}

	log.Info("подключение к базе данных установлено")
}
