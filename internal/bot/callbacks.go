package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/example/mcatbot/internal/quiz"
	"github.com/example/mcatbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleCallback handles callback queries from inline keyboards
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.Warn("failed to answer callback", "error", err)
	}
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	user, err := b.currentUser(ctx, callback.From)
	if err != nil {
		b.log.Error("failed to resolve user", "chat_id", chatID, "error", err)
		return
	}

	action, arg := parseCallback(callback.Data)
	switch action {
	case "menu":
		b.editMessage(chatID, messageID, "Main menu:", MainMenuButtons())
	case "books":
		b.handleBooks(ctx, chatID, messageID)
	case "book":
		b.handleBook(ctx, chatID, messageID, arg)
	case "chapter":
		b.handleChapter(ctx, chatID, messageID, user, arg)
	case "answer":
		b.handleAnswer(ctx, chatID, messageID, user, arg)
	case "next":
		b.handleNext(chatID, messageID, user)
	case "stop":
		b.deps.Quiz.Stop(user.ID)
		b.editMessage(chatID, messageID, "⏹ Quiz stopped.", MainMenuButtons())
	case "progress":
		b.handleProgress(ctx, chatID, messageID, user)
	case "mastery":
		b.handleMastery(ctx, chatID, messageID, user)
	case "stats":
		b.handleStats(ctx, chatID, messageID, user)
	default:
		b.log.Warn("unknown callback", "data", callback.Data)
	}
}

func (b *Bot) handleBook(ctx context.Context, chatID int64, messageID int, bookID string) {
	book, err := b.deps.Catalog.Book(ctx, bookID)
	if err != nil || book == nil {
		b.editMessage(chatID, messageID, "Book not found.", [][]MenuButton{{{Text: "⬅️ Books", CallbackData: "books"}}})
		return
	}
	chapters, err := b.deps.Catalog.ListChaptersForBook(ctx, bookID)
	if err != nil {
		b.log.Error("failed to list chapters", "book_id", bookID, "error", err)
		b.editMessage(chatID, messageID, "⚠️ Couldn't load the chapters.", MainMenuButtons())
		return
	}
	if len(chapters) == 0 {
		b.editMessage(chatID, messageID, fmt.Sprintf("📭 %s has no chapters yet.", book.Name), [][]MenuButton{{{Text: "⬅️ Books", CallbackData: "books"}}})
		return
	}
	b.editMessage(chatID, messageID, fmt.Sprintf("📚 %s\nChoose a chapter:", book.Name), chapterButtons(chapters))
}

func (b *Bot) handleChapter(ctx context.Context, chatID int64, messageID int, user *models.User, arg string) {
	chapterID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.log.Warn("bad chapter callback", "arg", arg)
		return
	}
	step, err := b.deps.Quiz.Start(ctx, user.ID, chapterID)
	if errors.Is(err, quiz.ErrNoQuestions) {
		b.editMessage(chatID, messageID, "📭 This chapter has no questions yet.", [][]MenuButton{{{Text: "⬅️ Books", CallbackData: "books"}}})
		return
	}
	if err != nil {
		b.log.Error("failed to start quiz", "chapter_id", chapterID, "error", err)
		b.editMessage(chatID, messageID, "⚠️ Couldn't start the quiz.", MainMenuButtons())
		return
	}
	b.editMessage(chatID, messageID, renderQuestion(step), answerButtons(step.Question))
}

func (b *Bot) handleAnswer(ctx context.Context, chatID int64, messageID int, user *models.User, choice string) {
	fb, err := b.deps.Quiz.Answer(ctx, user.ID, choice)
	switch {
	case errors.Is(err, quiz.ErrNoSession):
		b.editMessage(chatID, messageID, "This quiz has ended. Pick a chapter to start again.", [][]MenuButton{{{Text: "📚 Books", CallbackData: "books"}}})
		return
	case errors.Is(err, quiz.ErrAlreadyAnswered):
		return
	case err != nil:
		b.log.Error("failed to answer", "user_id", user.ID, "error", err)
		return
	}

	current, cerr := b.deps.Quiz.Current(user.ID)
	text := renderFeedback(fb)
	if cerr == nil {
		text = renderQuestion(current) + "\n" + text
	}
	b.editMessage(chatID, messageID, truncate(text), feedbackButtons(fb.Finished))
}

func (b *Bot) handleNext(chatID int64, messageID int, user *models.User) {
	step, err := b.deps.Quiz.Next(user.ID)
	switch {
	case errors.Is(err, quiz.ErrNoSession):
		b.editMessage(chatID, messageID, "This quiz has ended.", MainMenuButtons())
	case errors.Is(err, quiz.ErrNotAnswered):
		cur, cerr := b.deps.Quiz.Current(user.ID)
		if cerr == nil {
			b.editMessage(chatID, messageID, renderQuestion(cur), answerButtons(cur.Question))
		}
	case err != nil:
		b.log.Error("failed to advance quiz", "user_id", user.ID, "error", err)
	default:
		b.editMessage(chatID, messageID, renderQuestion(step), answerButtons(step.Question))
	}
}
