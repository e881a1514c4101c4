package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotController answers chat commands about the catalog. It shares the bot
// token with the Notifier but keeps its own long-polling loop.
type BotController struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	enabled bool

	onStatusRequest func(ctx context.Context) string
	onStatsRequest  func(ctx context.Context) string
}

// NewBotController creates a controller for chat commands. Disabled config
// yields a no-op controller.
func NewBotController(botToken string, chatID int64, enabled bool) (*BotController, error) {
	if !enabled || botToken == "" {
		return &BotController{enabled: false}, nil
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &BotController{
		bot:     bot,
		chatID:  chatID,
		enabled: true,
	}, nil
}

// SetCallbacks wires the status and stats providers
func (c *BotController) SetCallbacks(onStatus, onStats func(ctx context.Context) string) {
	c.onStatusRequest = onStatus
	c.onStatsRequest = onStats
}

// StartCommandListener begins answering commands until the context ends
func (c *BotController) StartCommandListener(ctx context.Context) {
	if !c.enabled {
		return
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update := <-updates:
				if update.Message == nil || !update.Message.IsCommand() {
					continue
				}
				// Only the configured chat may query the catalog.
				if update.Message.Chat.ID != c.chatID {
					continue
				}
				c.handleCommand(ctx, update.Message)
			}
		}
	}()
}

func (c *BotController) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	var response string

	switch msg.Command() {
	case "start", "help":
		response = c.helpMessage()
	case "status":
		if c.onStatusRequest != nil {
			response = c.onStatusRequest(ctx)
		} else {
			response = "Status unavailable."
		}
	case "stats":
		if c.onStatsRequest != nil {
			response = c.onStatsRequest(ctx)
		} else {
			response = "Stats unavailable."
		}
	default:
		response = "Unknown command. Use /help for an overview."
	}

	reply := tgbotapi.NewMessage(c.chatID, response)
	reply.ParseMode = tgbotapi.ModeHTML
	c.bot.Send(reply)
}

func (c *BotController) helpMessage() string {
	return `🏠 <b>propmail commands</b>

/status - polling status and catalog size
/stats - catalog breakdown by source
/help - this overview`
}

// IsEnabled returns whether the controller is enabled
func (c *BotController) IsEnabled() bool {
	return c.enabled
}
