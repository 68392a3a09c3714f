package initializers

import (
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	DBHost     string `mapstructure:"POSTGRES_HOST"`
	DBUserName string `mapstructure:"POSTGRES_USER"`
	DBUserPass string `mapstructure:"POSTGRES_PASSWORD"`
	DBName     string `mapstructure:"POSTGRES_DB"`
	DBPort     string `mapstructure:"POSTGRES_PORT"`

	ServerPort   string `mapstructure:"PORT"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`

	RedisUrl string `mapstructure:"REDIS_URL"`
	AmqpUrl  string `mapstructure:"AMQP_URL"`

	JwtSecret string `mapstructure:"JWT_SECRET"`

	BotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	// Чаты администраторов через запятую: "123,456"
	AdminChats string `mapstructure:"TELEGRAM_ADMIN_CHATS"`
	// bcrypt-хэш пароля для входа в админку бота
	AdminPasswordHash string `mapstructure:"BOT_ADMIN_PASSWORD_HASH"`

	// Приводить ли флаги заказа при принудительной смене статуса админом
	OverrideReconcileFlags bool `mapstructure:"OVERRIDE_RECONCILE_FLAGS"`

	SMTPHost   string `mapstructure:"SMTP_HOST"`
	SMTPPort   int    `mapstructure:"SMTP_PORT"`
	SMTPUser   string `mapstructure:"SMTP_USER"`
	SMTPPass   string `mapstructure:"SMTP_PASS"`
	EmailFrom  string `mapstructure:"EMAIL_FROM"`
	AdminEmail string `mapstructure:"ADMIN_EMAIL"`
}

// AdminChatIDs разбирает TELEGRAM_ADMIN_CHATS в список chat_id
func (c *Config) AdminChatIDs() []int64 {
	var ids []int64
	for _, part := range strings.Split(c.AdminChats, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigType("env")
	viper.SetConfigName("app")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
