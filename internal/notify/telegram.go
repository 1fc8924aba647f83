package notify

import (
	"context"
	"fmt"
	"strings"

	"krewup/internal/models"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Telegram pushes job alerts to workers who linked a Telegram chat.
// It only sends; updates are never polled.
type Telegram struct {
	bot     *tele.Bot
	baseURL string
	logger  *zap.Logger
}

func NewTelegram(token, baseURL string, logger *zap.Logger) (*Telegram, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("telegram push enabled")

	return &Telegram{
		bot:     b,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// PushJobAlert sends one job alert. telebot's Send takes no context, so ctx is
// only checked up front.
func (t *Telegram) PushJobAlert(ctx context.Context, chatID int64, job *models.Job, distanceKm float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	recipient := &tele.User{ID: chatID}
	message := FormatJobAlert(job, distanceKm)
	keyboard := InlineJobKeyboard(JobURL(t.baseURL, job.ID))

	if _, err := t.bot.Send(recipient, message, keyboard, tele.ModeMarkdownV2); err != nil {
		t.logger.Error("failed to push job alert",
			zap.Int64("chat_id", chatID),
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return fmt.Errorf("send job alert: %w", err)
	}

	return nil
}

func InlineJobKeyboard(jobURL string) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}

	btnOpen := menu.URL("🔗 View job", jobURL)

	menu.Inline(
		menu.Row(btnOpen),
	)

	return menu
}

func JobURL(baseURL, jobID string) string {
	return fmt.Sprintf("%s/dashboard/jobs/%s", strings.TrimRight(baseURL, "/"), jobID)
}
