package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/example/mcatbot/internal/ai"
	"github.com/example/mcatbot/internal/auth"
	"github.com/example/mcatbot/internal/catalog"
	"github.com/example/mcatbot/internal/database"
	"github.com/example/mcatbot/internal/importer"
	"github.com/example/mcatbot/internal/logger"
	"github.com/example/mcatbot/internal/progress"
	"github.com/example/mcatbot/internal/quiz"
	"github.com/example/mcatbot/internal/scheduler"
	"github.com/example/mcatbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Deps are the services the bot drives
type Deps struct {
	Catalog    *catalog.Reader
	Auth       *auth.Provider
	Quiz       *quiz.Runner
	Aggregator *progress.Aggregator
	Repos      *database.Repositories
	Importer   *importer.Importer
	Generator  ai.Generator
}

// Bot represents the Telegram bot
type Bot struct {
	api    *tgbotapi.BotAPI
	deps   Deps
	config *Config
	log    *logger.Logger

	reminders *scheduler.Scheduler
	progress  *requestTracker

	mu                 sync.Mutex
	awaitingFileUpload map[int64]bool
}

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// New creates a new bot instance
func New(token string, deps Deps, config *Config, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}
	log.Info("authorized on telegram", "account", api.Self.UserName)

	return &Bot{
		api:                api,
		deps:               deps,
		config:             config,
		log:                log,
		progress:           newRequestTracker(),
		awaitingFileUpload: make(map[int64]bool),
	}, nil
}

// AttachScheduler lets /remind now trigger a manual reminder check
func (b *Bot) AttachScheduler(s *scheduler.Scheduler) {
	b.reminders = s
}

// Start receives updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.HandleCallback(ctx, update.CallbackQuery)
	case update.Message == nil:
	case update.Message.IsCommand():
		b.HandleCommand(ctx, update.Message)
	case update.Message.Document != nil:
		b.handleDocument(ctx, update.Message)
	default:
		b.sendMessage(update.Message.Chat.ID, "Use /books to pick a chapter or /help to see the commands.", nil)
	}
}

// SendReminder implements scheduler.Notifier
func (b *Bot) SendReminder(ctx context.Context, user models.User, weakest *models.ConceptMastery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(user.TelegramID, renderReminder(user, weakest))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "📚 Start practicing", CallbackData: "books"}}})
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send reminder to %d: %w", user.TelegramID, err)
	}
	return nil
}

// currentUser registers the sender on first contact
func (b *Bot) currentUser(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	if from == nil {
		return nil, fmt.Errorf("update has no sender")
	}
	return b.deps.Auth.CurrentUser(ctx, auth.Identity{
		TelegramID: from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
	})
}

func (b *Bot) setAwaitingUpload(chatID int64, awaiting bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if awaiting {
		b.awaitingFileUpload[chatID] = true
	} else {
		delete(b.awaitingFileUpload, chatID)
	}
}

func (b *Bot) isAwaitingUpload(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaitingFileUpload[chatID]
}

// createKeyboard creates an inline keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// MainMenuButtons returns the main menu buttons
func MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "📚 Books", CallbackData: "books"}},
		{{Text: "📈 Progress", CallbackData: "progress"}, {Text: "🧠 Mastery", CallbackData: "mastery"}},
		{{Text: "📊 Statistics", CallbackData: "stats"}},
	}
}

func bookButtons(books []models.Book) [][]MenuButton {
	var rows [][]MenuButton
	for _, book := range books {
		rows = append(rows, []MenuButton{{Text: "📚 " + book.Name, CallbackData: "book:" + book.ID}})
	}
	return append(rows, []MenuButton{{Text: "⬅️ Menu", CallbackData: "menu"}})
}

func chapterButtons(chapters []models.Chapter) [][]MenuButton {
	var rows [][]MenuButton
	for _, ch := range chapters {
		rows = append(rows, []MenuButton{{
			Text:         fmt.Sprintf("%d. %s", ch.ChapterNumber, ch.Title),
			CallbackData: fmt.Sprintf("chapter:%d", ch.ID),
		}})
	}
	return append(rows, []MenuButton{{Text: "⬅️ Books", CallbackData: "books"}})
}

func answerButtons(q models.Question) [][]MenuButton {
	var row []MenuButton
	for i := range q.Options {
		letter := models.OptionLetter(i)
		row = append(row, MenuButton{Text: letter, CallbackData: "answer:" + letter})
	}
	return [][]MenuButton{row, {{Text: "⏹ Stop", CallbackData: "stop"}}}
}

func feedbackButtons(finished bool) [][]MenuButton {
	if finished {
		return [][]MenuButton{{{Text: "📚 Books", CallbackData: "books"}, {Text: "📈 Progress", CallbackData: "progress"}}}
	}
	return [][]MenuButton{{{Text: "➡️ Next", CallbackData: "next"}, {Text: "⏹ Stop", CallbackData: "stop"}}}
}

// parseCallback splits "action:arg" callback data
func parseCallback(data string) (string, string) {
	action, arg, _ := strings.Cut(data, ":")
	return action, arg
}

func (b *Bot) sendMessage(chatID int64, text string, buttons [][]MenuButton) *tgbotapi.Message {
	msg := tgbotapi.NewMessage(chatID, text)
	if buttons != nil {
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Error("failed to send message", "chat_id", chatID, "error", err)
		return nil
	}
	return &sent
}

func (b *Bot) editMessage(chatID int64, messageID int, text string, buttons [][]MenuButton) {
	var edit tgbotapi.EditMessageTextConfig
	if buttons != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, createKeyboard(buttons))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("failed to edit message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}
