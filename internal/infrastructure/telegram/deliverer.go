package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

// Deliverer sends the finished e-book to a Telegram chat as a document.
type Deliverer struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

var _ ports.Deliverer = (*Deliverer)(nil)

// NewDeliverer authenticates the bot token against api.telegram.org.
func NewDeliverer(botToken, chatID string) (*Deliverer, error) {
	return NewDelivererWithEndpoint(botToken, chatID, tgbotapi.APIEndpoint, &http.Client{Timeout: 60 * time.Second})
}

// NewDelivererWithEndpoint allows a custom Bot API endpoint such as a local
// bot server. endpoint is a format string taking the token and the method.
func NewDelivererWithEndpoint(botToken, chatID, endpoint string, client *http.Client) (*Deliverer, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("telegram deliverer misconfigured")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse chat id %q: %w", chatID, err)
	}

	api, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Deliverer{api: api, chatID: id}, nil
}

// Deliver uploads the file at path with the publication title as caption.
func (d *Deliverer) Deliver(ctx context.Context, path string, pub domain.Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(d.chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("%s: %d articles", pub.Title, pub.ArticleCount())

	if _, err := d.api.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}
