package utils

import (
	"crypto/tls"

	"github.com/k3a/html2text"
	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"lavka/initializers"
)

// SendAdminEmail шлет письмо-оповещение на адрес администратора.
// Отправка best-effort: ошибка логируется и не возвращается наружу.
func SendAdminEmail(config *initializers.Config, subject string, htmlBody string) {
	if config.SMTPHost == "" || config.AdminEmail == "" {
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", config.EmailFrom)
	m.SetHeader("To", config.AdminEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	m.AddAlternative("text/plain", html2text.HTML2Text(htmlBody))

	d := gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPass)
	d.TLSConfig = &tls.Config{InsecureSkipVerify: true}

	if err := d.DialAndSend(m); err != nil {
		log.WithError(err).Warn("не удалось отправить письмо администратору")
	}
}
