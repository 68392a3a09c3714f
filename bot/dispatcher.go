package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lavka/services"
)

// TelegramDispatcher - реализация services.Dispatcher поверх Bot API
type TelegramDispatcher struct {
	API *tgbotapi.BotAPI
}

func (d *TelegramDispatcher) SendMessage(chatID int64, text string, buttons [][]services.Button) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb, ok := inlineKeyboard(buttons); ok {
		msg.ReplyMarkup = kb
	}
	_, err := d.API.Send(msg)
	return err
}

func inlineKeyboard(buttons [][]services.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(buttons) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
