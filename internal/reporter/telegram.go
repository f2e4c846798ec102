package reporter

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-voiceagent/internal/config"
	"go-voiceagent/internal/models"
)

// TelegramReporter pushes operational alerts to a chat so permanently failed
// calls get a human's attention.
type TelegramReporter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramReporter(cfg *config.Config) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	//turn this on in case of debug
	//bot.Debug = true

	return &TelegramReporter{
		bot:    bot,
		chatID: cfg.TelegramChatID,
	}, nil
}

func (t *TelegramReporter) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "HTML" //use HTML for bold/italic
	_, err := t.bot.Send(msg)
	return err
}

// JobFailed reports a call job that exhausted its attempts.
func (t *TelegramReporter) JobFailed(job *models.Job, lastErr string) error {
	text := fmt.Sprintf(
		"☎️ <b>Call job failed permanently</b>\n"+
			"🆔 %s\n"+
			"📞 %s\n"+
			"🔁 %d attempts\n"+
			"⚠️ %s",
		job.ID,
		job.PhoneE164,
		job.Attempts,
		lastErr,
	)
	return t.SendMessage(text)
}

func (t *TelegramReporter) SendError(errReq error) error {
	text := fmt.Sprintf("⚠️ <b>VoiceAgent Error</b>:\n%v", errReq)
	return t.SendMessage(text)
}
