// Package telegram pushes price-drop alerts and run summaries to a chat.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/cwhitley/propmail/internal/domain"
	"github.com/cwhitley/propmail/internal/ingest"
)

// Notifier sends messages via Telegram
type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	enabled bool
}

// NewNotifier creates a new Telegram notifier. With no token or disabled
// config it degrades to a no-op.
func NewNotifier(botToken string, chatID int64, enabled bool) (*Notifier, error) {
	if !enabled || botToken == "" {
		return &Notifier{enabled: false}, nil
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &Notifier{
		bot:     bot,
		chatID:  chatID,
		enabled: true,
	}, nil
}

// IsEnabled returns whether the notifier is enabled
func (n *Notifier) IsEnabled() bool {
	return n.enabled
}

// NotifyPriceChange sends an alert for one detected price change
func (n *Notifier) NotifyPriceChange(ctx context.Context, ev ingest.PriceChangeEvent) error {
	if !n.enabled {
		return nil
	}

	emoji := "📉"
	if ev.NewPrice > ev.OldPrice {
		emoji = "📈"
	}

	text := fmt.Sprintf(
		"%s <b>Price change</b>\n\n"+
			"📍 %s\n"+
			"%s, %s\n\n"+
			"<s>$%s</s> → <b>$%s</b>",
		emoji,
		escapeHTML(ev.Street),
		escapeHTML(ev.City), escapeHTML(ev.State),
		formatDollars(ev.OldPrice), formatDollars(ev.NewPrice),
	)

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if ev.URL != "" {
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("🔗 View listing", ev.URL),
			),
		)
		msg.ReplyMarkup = keyboard
	}

	_, err := n.bot.Send(msg)
	return err
}

// NotifyNewListing announces one freshly cataloged listing
func (n *Notifier) NotifyNewListing(ctx context.Context, p domain.Property) error {
	if !n.enabled {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🆕 <b>New listing</b> (%s)\n\n", escapeHTML(string(p.Source))))
	sb.WriteString(fmt.Sprintf("📍 %s\n%s, %s", escapeHTML(p.Street), escapeHTML(p.City), escapeHTML(p.State)))
	sb.WriteString(fmt.Sprintf("\n\n💰 <b>$%s</b>", formatDollars(p.Price)))
	if p.PropertyType == domain.TypeLand {
		if p.LotAcres > 0 {
			sb.WriteString(fmt.Sprintf("\n🌲 %.2f acres", p.LotAcres))
		}
	} else if p.Beds > 0 || p.Sqft > 0 {
		sb.WriteString(fmt.Sprintf("\n🛏 %d bd · 🛁 %.1f ba · %s sqft",
			p.Beds, p.Baths, formatDollars(p.Sqft)))
	}

	msg := tgbotapi.NewMessage(n.chatID, sb.String())
	msg.ParseMode = tgbotapi.ModeHTML

	if p.URL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("🔗 View listing", p.URL),
			),
		)
	}

	_, err := n.bot.Send(msg)
	return err
}

// NotifyRunSummary reports one batch run. Quiet runs (nothing new, nothing
// changed, no errors) are not reported.
func (n *Notifier) NotifyRunSummary(ctx context.Context, res ingest.Result) error {
	if !n.enabled {
		return nil
	}
	if res.Created == 0 && res.Updated == 0 && len(res.Errors) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("🏠 <b>Listing catalog updated</b>\n\n")
	sb.WriteString(fmt.Sprintf("<b>New:</b> %d\n", res.Created))
	sb.WriteString(fmt.Sprintf("<b>Updated:</b> %d\n", res.Updated))
	sb.WriteString(fmt.Sprintf("<b>Price changes:</b> %d\n", len(res.PriceChanges)))
	if len(res.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠️ %d errors, first: %s", len(res.Errors), escapeHTML(res.Errors[0])))
	}

	msg := tgbotapi.NewMessage(n.chatID, sb.String())
	msg.ParseMode = tgbotapi.ModeHTML

	_, err := n.bot.Send(msg)
	return err
}

// NotifyError sends an error notification
func (n *Notifier) NotifyError(ctx context.Context, errMsg string) error {
	if !n.enabled {
		return nil
	}

	text := fmt.Sprintf("⚠️ <b>propmail error</b>\n\n%s", escapeHTML(errMsg))

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	_, err := n.bot.Send(msg)
	return err
}

// formatDollars renders 1234567 as "1,234,567"
func formatDollars(v int64) string {
	s := fmt.Sprintf("%d", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

// escapeHTML escapes HTML special characters for Telegram
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
