package adapter

import "context"

type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	// SendMarkdown sends text with Markdown (v1) parse mode.
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}
