package telegram

import (
	"fmt"

	tele "gopkg.in/telebot.v3"
)

const cmdStart = "/start"

func (t *Telegram) initHandlers() {
	t.bot.Handle(cmdStart, t.startHandler)
}

// startHandler tells the admin which chat id to configure.
func (t *Telegram) startHandler(ctx tele.Context) error {
	if err := ctx.Send(startReply(ctx.Chat().ID)); err != nil {
		return fmt.Errorf("tg send message failed: %w", err)
	}
	return nil
}

func startReply(chatID int64) string {
	return fmt.Sprintf("icscal notifications: set TG_CHAT_ID=%d", chatID)
}
