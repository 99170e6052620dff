package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Alias1177/fxpulse/models"
)

const buttonsPerRow = 2

// mainKeyboard returns one button per pair followed by All pairs and Help, two per row
func mainKeyboard(pairs *models.PairSet) tgbotapi.ReplyKeyboardMarkup {
	var captions []string
	for _, p := range pairs.All() {
		caption := p.Button
		if caption == "" {
			caption = p.Display
		}
		captions = append(captions, caption)
	}
	captions = append(captions, AllPairsButton, HelpButton)

	var keyboard [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton

	for i, caption := range captions {
		if i%buttonsPerRow == 0 && i > 0 {
			keyboard = append(keyboard, row)
			row = []tgbotapi.KeyboardButton{}
		}
		row = append(row, tgbotapi.NewKeyboardButton(caption))
	}

	// Add the last row if it has any buttons
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}

	markup := tgbotapi.NewReplyKeyboard(keyboard...)
	markup.ResizeKeyboard = true
	return markup
}
