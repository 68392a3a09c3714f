package bot

import (
	"fmt"
	"strconv"
	"strings"

	"lavka/utils"
)

// Исход одного шага оформления
type StepOutcome int

const (
	StepContinue StepOutcome = iota // Ввод принят, переходим к следующему вопросу
	StepReject                      // Ввод отклонен, повторяем тот же шаг с подсказкой
	StepComplete                    // Черновик собран, можно создавать заказ
)

type StepResult struct {
	Outcome StepOutcome
	Prompt  string // Следующий вопрос либо корректирующая подсказка
}

// Advance продвигает сессию оформления на один шаг: проверяет ввод текущего
// шага и либо задает следующий вопрос, либо повторяет текущий с подсказкой.
// Невалидный ввод никогда не продвигает шаг молча.
func Advance(s *Session, input string) StepResult {
	input = strings.TrimSpace(input)

	switch s.Step {
	case StepQuantity:
		qty, err := strconv.Atoi(input)
		if err != nil {
			return StepResult{StepReject, "Введите количество числом, например: 2"}
		}
		if qty < 1 {
			return StepResult{StepReject, "Количество должно быть не меньше 1."}
		}
		if qty > s.Stock {
			return StepResult{StepReject, fmt.Sprintf("В наличии только %d шт. Укажите количество не больше остатка.", s.Stock)}
		}
		s.Quantity = qty
		s.Step = StepFullName
		return StepResult{StepContinue, "Как вас зовут? Укажите имя и фамилию."}

	case StepFullName:
		if len([]rune(input)) < 2 {
			return StepResult{StepReject, "Имя слишком короткое, укажите хотя бы 2 символа."}
		}
		s.FullName = input
		s.Step = StepPhone
		return StepResult{StepContinue, "Ваш номер телефона? Например: +998 90 123-45-67"}

	case StepPhone:
		if !utils.ValidPhone(input) {
			return StepResult{StepReject, "Номер не похож на узбекский мобильный. Формат: +998 XX XXX-XX-XX"}
		}
		s.Phone = utils.NormalizePhone(input)
		s.Step = StepAddress
		return StepResult{StepContinue, "Адрес доставки или удобное место встречи?"}

	case StepAddress:
		if len([]rune(input)) < 5 {
			return StepResult{StepReject, "Адрес слишком короткий, опишите подробнее (минимум 5 символов)."}
		}
		s.Address = input
		return StepResult{Outcome: StepComplete}

	default:
		// Неизвестный шаг - сессию придется начать заново
		return StepResult{StepReject, "Что-то пошло не так, начните оформление заново: /catalog"}
	}
}
