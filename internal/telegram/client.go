// Package telegram provides a client for sending review notifications via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/oddsaudit/internal/display"
	"github.com/rewired-gh/oddsaudit/internal/models"
)

// FeaturedFunc returns the currently featured reviews for the /featured command.
type FeaturedFunc func() ([]models.ArchivedReview, error)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	api            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	featured       FeaturedFunc
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		api:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SetFeaturedProvider wires the source used to answer /featured.
func (c *Client) SetFeaturedProvider(fn FeaturedFunc) {
	c.featured = fn
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	var reply tgbotapi.MessageConfig
	switch msg.Command() {
	case "ping":
		reply = tgbotapi.NewMessage(msg.Chat.ID, "Pong")
	case "featured":
		reply = tgbotapi.NewMessage(msg.Chat.ID, c.featuredText())
		reply.ParseMode = "MarkdownV2"
	default:
		return
	}
	c.api.Send(reply) //nolint:errcheck
}

func (c *Client) featuredText() string {
	if c.featured == nil {
		return escapeMarkdownV2("Featured reviews are not available.")
	}
	items, err := c.featured()
	if err != nil {
		return fmt.Sprintf("⚠️ `%s`", escapeMarkdownV2(err.Error()))
	}
	if len(items) == 0 {
		return escapeMarkdownV2("No featured reviews right now.")
	}
	return formatMessage(items)
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.api.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a review cycle error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Review cycle error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Review cycle recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendReviews sends one message listing the given featured reviews.
func (c *Client) SendReviews(items []models.ArchivedReview) error {
	if len(items) == 0 {
		return nil
	}
	return c.sendMarkdownV2(formatMessage(items))
}

var badgeEmoji = map[string]string{
	"purple": "🟣",
	"orange": "🟠",
	"red":    "🔴",
}

// formatMessage formats archived reviews into a Telegram MarkdownV2 message.
func formatMessage(items []models.ArchivedReview) string {
	var b strings.Builder
	b.WriteString("💎 *Value Picks*\n\n")

	if !items[0].ReviewedAt.IsZero() {
		dateStr := escapeMarkdownV2(items[0].ReviewedAt.UTC().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "📅 Reviewed: %s UTC\n\n", dateStr)
	}

	for i, item := range items {
		r := item.Review
		style := display.ForReview(r)
		emoji, ok := badgeEmoji[style.Color]
		if !ok {
			emoji = "⚪"
		}

		fixture := r.MatchID
		if item.HomeTeam != "" || item.AwayTeam != "" {
			fixture = item.HomeTeam + " vs " + item.AwayTeam
		}
		fmt.Fprintf(&b, "%d\\. *%s*\n", i+1, escapeMarkdownV2(fixture))
		fmt.Fprintf(&b, "   %s %s @ %s \\(fair %s, edge %s\\)\n",
			emoji,
			escapeMarkdownV2(r.Tip),
			escapeMarkdownV2(r.Odds),
			escapeMarkdownV2(r.AuditOdds),
			escapeMarkdownV2(fmt.Sprintf("%+.1f%%", r.Edge*100)))
		fmt.Fprintf(&b, "   _%s_\n\n", escapeMarkdownV2(r.Explanation))
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
