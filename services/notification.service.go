package services

import (
	"context"
	"errors"
	"fmt"

	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"

	"lavka/models"
)

var ErrAlreadyResolved = errors.New("уведомление уже обработано")

// NotificationService создает и закрывает уведомления администраторов.
// Решение по уведомлению может каскадно менять связанные записи
// (назначить пользователя продавцом, одобрить товар) и отвечает автору обращения.
type NotificationService struct {
	Store    Store
	Notifier *Notifier
}

// CreateSupportMessage регистрирует обращение пользователя и рассылает его администраторам
func (s *NotificationService) CreateSupportMessage(ctx context.Context, chatID int64, username, text string) (*models.AdminNotification, []SendOutcome, error) {
	notif := &models.AdminNotification{
		ID:      uuid.NewV4(),
		Type:    models.NotificationSupportMessage,
		Status:  models.NotificationStatusPending,
		Content: text,
	}
	if err := notif.SetData(models.SupportMessageData{ChatID: chatID, Username: username}); err != nil {
		return nil, nil, err
	}
	if err := s.Store.CreateNotification(ctx, notif); err != nil {
		return nil, nil, err
	}

	from := username
	if from == "" {
		from = fmt.Sprintf("chat %d", chatID)
	}
	outcomes := s.Notifier.BroadcastAdmins(
		fmt.Sprintf("✉️ Сообщение в поддержку от %s:\n\n%s", from, text), nil)
	return notif, outcomes, nil
}

// Resolve закрывает уведомление решением администратора и выполняет каскад
func (s *NotificationService) Resolve(ctx context.Context, id uuid.UUID, approve bool, response string) (*models.AdminNotification, error) {
	notif, err := s.Store.NotificationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notif.Status != models.NotificationStatusPending {
		return nil, ErrAlreadyResolved
	}

	if approve {
		notif.Status = models.NotificationStatusResponded
	} else {
		notif.Status = models.NotificationStatusRejected
	}
	notif.Response = response

	if err := s.cascade(ctx, notif, approve, response); err != nil {
		return nil, err
	}

	if err := s.Store.SaveNotification(ctx, notif); err != nil {
		return nil, err
	}
	return notif, nil
}

func (s *NotificationService) cascade(ctx context.Context, notif *models.AdminNotification, approve bool, response string) error {
	switch notif.Type {
	case models.NotificationSupportMessage:
		var data models.SupportMessageData
		if err := notif.DecodeData(&data); err != nil {
			return err
		}
		if response != "" && data.ChatID != 0 {
			s.reply(data.ChatID, "📨 Ответ поддержки:\n\n"+response)
		}

	case models.NotificationSellerApplication:
		var data models.SellerApplicationData
		if err := notif.DecodeData(&data); err != nil {
			return err
		}
		if approve {
			if err := s.Store.SetUserSeller(ctx, data.UserID); err != nil {
				return err
			}
			s.reply(data.ChatID, "🎉 Ваша заявка одобрена - теперь вы продавец!")
		} else {
			s.reply(data.ChatID, "😔 Ваша заявка на статус продавца отклонена.")
		}

	case models.NotificationProductApproval:
		var data models.ProductApprovalData
		if err := notif.DecodeData(&data); err != nil {
			return err
		}
		if approve {
			if err := s.Store.ApproveProduct(ctx, data.ProductID); err != nil {
				return err
			}
		}
		chatID := s.Store.UserChat(ctx, data.SellerID)
		if approve {
			s.reply(chatID, "✅ Ваш товар одобрен и появился в каталоге.")
		} else {
			s.reply(chatID, "❌ Ваш товар не прошел модерацию.")
		}

	case models.NotificationNewOrder:
		// Информационное, каскада нет
	}
	return nil
}

func (s *NotificationService) reply(chatID int64, text string) {
	if chatID == 0 || s.Notifier == nil {
		return
	}
	if err := s.Notifier.Dispatch.SendMessage(chatID, text, nil); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("не удалось доставить ответ")
	}
}
