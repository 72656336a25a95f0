package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"
)

// Telegram posts token activity to an admin chat.
type Telegram struct {
	log    *logrus.Entry
	bot    *tele.Bot
	chatID int64
}

func New(log *logrus.Logger, bot *tele.Bot, chatID int64) *Telegram {
	t := Telegram{
		log:    log.WithField("component", "telegram"),
		bot:    bot,
		chatID: chatID,
	}
	t.initHandlers()
	return &t
}

func NewBot(token string) (*tele.Bot, error) {
	config := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(config)
	if err != nil {
		return nil, fmt.Errorf("new bot failed: %w", err)
	}
	return b, nil
}

func (t *Telegram) Notify(_ context.Context, message string, userID string) error {
	if t.chatID == 0 {
		t.log.Debugf("no chat configured, dropping: %s", message)
		return nil
	}
	if _, err := t.bot.Send(tele.ChatID(t.chatID), notification(message, userID)); err != nil {
		return fmt.Errorf("tg send message failed: %w", err)
	}
	return nil
}

func notification(message, userID string) string {
	return fmt.Sprintf("%s (user %s)", message, userID)
}

func (t *Telegram) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		t.bot.Stop()
	}()
	t.log.Infof("Starting telegram bot as %v", t.bot.Me.Username)
	t.bot.Start()
}
