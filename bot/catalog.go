package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"lavka/initializers"
	"lavka/models"
	"lavka/services"
)

const catalogPageSize = 5

type catalogPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

// loadCatalogPage читает страницу каталога, по возможности из кэша.
// Кэш короткоживущий: остатки меняются при каждом заказе.
func (b *Bot) loadCatalogPage(ctx context.Context, page int) (*catalogPage, error) {
	cacheKey := fmt.Sprintf("catalog:page:%d", page)

	if rdb := initializers.RedisClient; rdb != nil {
		raw, err := rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			var cached catalogPage
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	products, total, err := b.store.ListProducts(ctx, (page-1)*catalogPageSize, catalogPageSize)
	if err != nil {
		return nil, err
	}
	result := &catalogPage{Products: products, Total: total}

	if rdb := initializers.RedisClient; rdb != nil {
		if raw, err := json.Marshal(result); err == nil {
			if err := rdb.Set(ctx, cacheKey, raw, time.Minute).Err(); err != nil {
				log.WithError(err).Debug("не удалось записать страницу каталога в кэш")
			}
		}
	}
	return result, nil
}

func renderCatalogPage(data *catalogPage, page int) (string, [][]services.Button) {
	totalPages := int((data.Total + catalogPageSize - 1) / catalogPageSize)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🛍 Каталог - страница %d из %d\n\n", page, totalPages)
	buttons := make([][]services.Button, 0, len(data.Products)+1)
	for i, p := range data.Products {
		fmt.Fprintf(&sb, "%d. %s - %.0f сум (в наличии %d шт)\n", i+1, p.Title, p.Price, p.Stock)
		buttons = append(buttons, []services.Button{
			{Text: fmt.Sprintf("🛒 Заказать «%s»", p.Title), Data: "buy:" + p.ID.String()},
		})
	}

	var nav []services.Button
	if page > 1 {
		nav = append(nav, services.Button{Text: "⬅️ Назад", Data: fmt.Sprintf("cat:%d", page-1)})
	}
	if page < totalPages {
		nav = append(nav, services.Button{Text: "Вперед ➡️", Data: fmt.Sprintf("cat:%d", page+1)})
	}
	if len(nav) > 0 {
		buttons = append(buttons, nav)
	}
	return sb.String(), buttons
}

func (b *Bot) sendCatalogPage(ctx context.Context, chatID int64, page int) {
	data, err := b.loadCatalogPage(ctx, page)
	if err != nil {
		log.WithError(err).Warn("не удалось загрузить каталог")
		b.send(chatID, "Каталог временно недоступен, попробуйте позже.")
		return
	}
	if len(data.Products) == 0 {
		if page == 1 {
			b.send(chatID, "В каталоге пока пусто.")
		} else {
			b.send(chatID, "Дальше товаров нет.")
		}
		return
	}

	text, buttons := renderCatalogPage(data, page)
	b.sendWithButtons(chatID, text, buttons)
}

// editCatalogPage листает каталог, обновляя уже отправленное сообщение на месте
func (b *Bot) editCatalogPage(ctx context.Context, chatID int64, messageID int, page int) {
	data, err := b.loadCatalogPage(ctx, page)
	if err != nil {
		log.WithError(err).Warn("не удалось загрузить каталог")
		b.send(chatID, "Каталог временно недоступен, попробуйте позже.")
		return
	}
	if len(data.Products) == 0 {
		b.send(chatID, "Дальше товаров нет.")
		return
	}

	text, buttons := renderCatalogPage(data, page)
	kb, ok := inlineKeyboard(buttons)
	if !ok {
		b.send(chatID, text)
		return
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb)
	if _, err := b.api.Send(edit); err != nil {
		log.WithError(err).Debug("не удалось обновить сообщение каталога")
		b.sendWithButtons(chatID, text, buttons)
	}
}

func (b *Bot) searchProducts(ctx context.Context, chatID int64, query string) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		b.send(chatID, "Запрос слишком короткий, укажите хотя бы 2 символа.")
		return
	}

	products, err := b.store.SearchProducts(ctx, query, catalogPageSize)
	if err != nil {
		log.WithError(err).Warn("ошибка поиска товаров")
		b.send(chatID, "Поиск временно недоступен.")
		return
	}
	if len(products) == 0 {
		b.send(chatID, fmt.Sprintf("По запросу «%s» ничего не нашлось.", query))
		return
	}

	for i := range products {
		b.sendProductCard(chatID, &products[i])
	}
}

// sendProductCard отправляет карточку товара: фото с подписью, если фото есть
func (b *Bot) sendProductCard(chatID int64, p *models.Product) {
	caption := fmt.Sprintf("%s\n\n%s\n\nЦена: %.0f сум\nВ наличии: %d шт", p.Title, p.Description, p.Price, p.Stock)
	buttons := [][]services.Button{
		{{Text: "🛒 Заказать", Data: "buy:" + p.ID.String()}},
	}

	if p.Photo == "" {
		b.sendWithButtons(chatID, caption, buttons)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(p.Photo))
	photo.Caption = caption
	if kb, ok := inlineKeyboard(buttons); ok {
		photo.ReplyMarkup = kb
	}
	if _, err := b.api.Send(photo); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("не удалось отправить карточку товара")
		b.sendWithButtons(chatID, caption, buttons)
	}
}
