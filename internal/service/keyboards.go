package service

import (
	"fmt"

	tg "github.com/go-telegram/bot/models"

	"github.com/studmisto/opsbot/internal/models"
)

func cancelRequestRow() []tg.InlineKeyboardButton {
	return []tg.InlineKeyboardButton{{Text: "❌ Скасувати", CallbackData: "cancel_request"}}
}

func backRow(target string) []tg.InlineKeyboardButton {
	return []tg.InlineKeyboardButton{{Text: "⬅ Назад", CallbackData: "back:" + target}}
}

var cancelFeedbackKeyboard = &tg.InlineKeyboardMarkup{
	InlineKeyboard: [][]tg.InlineKeyboardButton{
		{{Text: "❌ Закрити", CallbackData: "cancel_feedback"}},
	},
}

// dormKeyboard lays the dorm numbers out three per row, followed by the
// back and cancel rows.
func dormKeyboard() *tg.InlineKeyboardMarkup {
	var rows [][]tg.InlineKeyboardButton
	var row []tg.InlineKeyboardButton
	for i, dorm := range models.Dorms {
		row = append(row, tg.InlineKeyboardButton{Text: dorm, CallbackData: "dorm:" + dorm})
		if (i+1)%3 == 0 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, backRow("phone"), cancelRequestRow())
	return &tg.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func categoryKeyboard() *tg.InlineKeyboardMarkup {
	var rows [][]tg.InlineKeyboardButton
	for _, c := range models.AllCategories {
		rows = append(rows, []tg.InlineKeyboardButton{
			{Text: c.Name(), CallbackData: "ptype:" + string(c)},
		})
	}
	rows = append(rows, backRow("dorm"), cancelRequestRow())
	return &tg.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// statusKeyboard offers every status except the current one and CANCELLED,
// one action per row, bound to the request key.
func statusKeyboard(current models.Status, requestID string) *tg.InlineKeyboardMarkup {
	var rows [][]tg.InlineKeyboardButton
	for _, st := range models.AllStatuses {
		if st == current || st == models.StatusCancelled {
			continue
		}
		rows = append(rows, []tg.InlineKeyboardButton{{
			Text:         st.Name(),
			CallbackData: fmt.Sprintf("status:%s:%s", st, requestID),
		}})
	}
	return &tg.InlineKeyboardMarkup{InlineKeyboard: rows}
}
