package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/mcatbot/internal/importer"
	"github.com/example/mcatbot/internal/progress"
	"github.com/example/mcatbot/internal/report"
	"github.com/example/mcatbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `📖 Commands:
/books - browse books and start a chapter quiz
/progress - accuracy per book, chapter and concept
/mastery - concept mastery, best first
/stats - totals and recent quizzes
/export - download your progress as a spreadsheet
/remind on|off|<hour>|now - daily practice reminders
/stop - abandon the current quiz`

const adminHelpText = `

🔧 Admin:
/import - upload a question bank (.xlsx or .csv)
/generate <chapter_id> - add AI generated questions to a chapter`

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	user, err := b.currentUser(ctx, message.From)
	if err != nil {
		b.log.Error("failed to resolve user", "chat_id", chatID, "error", err)
		b.sendMessage(chatID, "⚠️ Something went wrong. Please try again later.", nil)
		return
	}

	switch message.Command() {
	case "start":
		b.handleStart(chatID, user)
	case "help":
		b.handleHelp(chatID, user)
	case "books":
		b.handleBooks(ctx, chatID, 0)
	case "progress":
		b.handleProgress(ctx, chatID, 0, user)
	case "mastery":
		b.handleMastery(ctx, chatID, 0, user)
	case "stats":
		b.handleStats(ctx, chatID, 0, user)
	case "export":
		b.handleExport(ctx, chatID, user)
	case "remind":
		b.handleRemind(ctx, chatID, user, message.CommandArguments())
	case "stop":
		if b.deps.Quiz.Stop(user.ID) {
			b.sendMessage(chatID, "⏹ Quiz stopped.", MainMenuButtons())
		} else {
			b.sendMessage(chatID, "No quiz in progress.", MainMenuButtons())
		}
	case "import":
		if !b.requireAdmin(chatID, message.From.ID) {
			return
		}
		b.setAwaitingUpload(chatID, true)
		b.sendMessage(chatID, "📤 Send the question bank as an .xlsx or .csv file.\n\nColumns: book, chapter #, chapter title, question id, question, options (separated by |), answer, explanation, concepts, difficulty.", nil)
	case "generate":
		if !b.requireAdmin(chatID, message.From.ID) {
			return
		}
		b.handleGenerate(ctx, chatID, message.CommandArguments())
	default:
		b.sendMessage(chatID, "Unknown command. Use /help to see the list of commands.", nil)
	}
}

func (b *Bot) requireAdmin(chatID, telegramID int64) bool {
	if b.deps.Auth.IsAdmin(telegramID) {
		return true
	}
	b.sendMessage(chatID, "⛔ This command is only available to administrators.", nil)
	return false
}

func (b *Bot) handleStart(chatID int64, user *models.User) {
	name := user.FirstName
	if name == "" {
		name = user.Username
	}
	text := fmt.Sprintf("👋 Welcome, %s!\n\nPractice MCAT questions chapter by chapter and track how well you know each concept.", name)
	b.sendMessage(chatID, text, MainMenuButtons())
}

func (b *Bot) handleHelp(chatID int64, user *models.User) {
	text := helpText
	if b.deps.Auth.IsAdmin(user.TelegramID) {
		text += adminHelpText
	}
	b.sendMessage(chatID, text, nil)
}

// reply edits messageID when it is set, otherwise sends a new message
func (b *Bot) reply(chatID int64, messageID int, text string, buttons [][]MenuButton) {
	if messageID != 0 {
		b.editMessage(chatID, messageID, text, buttons)
		return
	}
	b.sendMessage(chatID, text, buttons)
}

func (b *Bot) handleBooks(ctx context.Context, chatID int64, messageID int) {
	books, err := b.deps.Catalog.ListBooks(ctx)
	if err != nil {
		b.log.Error("failed to list books", "error", err)
		b.reply(chatID, messageID, "⚠️ Couldn't load the books. Please try again later.", MainMenuButtons())
		return
	}
	if len(books) == 0 {
		b.reply(chatID, messageID, "📭 No books have been imported yet.", MainMenuButtons())
		return
	}
	b.reply(chatID, messageID, "📚 Choose a book:", bookButtons(books))
}

// handleProgress shows the hierarchical progress tree. A newer request from the same user cancels this one.
func (b *Bot) handleProgress(ctx context.Context, chatID int64, messageID int, user *models.User) {
	reqCtx, release := b.progress.begin(ctx, user.TelegramID)
	defer release()
	reqCtx, cancel := context.WithTimeout(reqCtx, b.config.ProgressTimeout)
	defer cancel()

	if messageID == 0 {
		sent := b.sendMessage(chatID, "⏳ Loading your progress...", nil)
		if sent == nil {
			return
		}
		messageID = sent.MessageID
	} else {
		b.editMessage(chatID, messageID, "⏳ Loading your progress...", nil)
	}

	tree, err := b.deps.Aggregator.HierarchicalProgress(reqCtx, user.ID)
	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() == nil:
		b.editMessage(chatID, messageID, "⏹ Replaced by a newer request.", nil)
	case errors.Is(err, progress.ErrFetch):
		b.editMessage(chatID, messageID, "⚠️ Couldn't load your progress right now. Please try again later.",
			[][]MenuButton{{{Text: "🔄 Retry", CallbackData: "progress"}, {Text: "⬅️ Menu", CallbackData: "menu"}}})
	case err != nil:
		b.log.Error("failed to load progress", "user_id", user.ID, "error", err)
		b.editMessage(chatID, messageID, "⚠️ Couldn't load your progress.", MainMenuButtons())
	default:
		b.editMessage(chatID, messageID, renderTree(tree), MainMenuButtons())
	}
}

func (b *Bot) handleMastery(ctx context.Context, chatID int64, messageID int, user *models.User) {
	rows, err := b.deps.Aggregator.ConceptMastery(ctx, user.ID)
	if err != nil {
		b.reply(chatID, messageID, "⚠️ Couldn't load your concept mastery right now.", MainMenuButtons())
		return
	}
	b.reply(chatID, messageID, renderMastery(rows), MainMenuButtons())
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, messageID int, user *models.User) {
	stats, err := b.deps.Aggregator.Stats(ctx, user.ID)
	if err != nil {
		b.reply(chatID, messageID, "⚠️ Couldn't load your statistics right now.", MainMenuButtons())
		return
	}
	recent, err := b.deps.Repos.QuizResults.GetByUser(ctx, user.ID, b.config.RecentQuizzes)
	if err != nil {
		b.log.Warn("failed to load recent quizzes", "user_id", user.ID, "error", err)
	}
	b.reply(chatID, messageID, renderStats(stats, recent), MainMenuButtons())
}

func (b *Bot) handleExport(ctx context.Context, chatID int64, user *models.User) {
	dash, err := b.deps.Aggregator.Dashboard(ctx, user.ID)
	if err != nil {
		// Dashboard degrades per half; what remains is still worth exporting
		b.log.Warn("partial dashboard for export", "user_id", user.ID, "error", err)
	}
	if dash.Tree.IsEmpty() && dash.Stats.Total == 0 {
		b.sendMessage(chatID, "📭 Nothing to export yet. Answer a few questions first!", nil)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteProgress(&buf, dash.Stats, dash.Tree); err != nil {
		b.log.Error("failed to build progress report", "user_id", user.ID, "error", err)
		b.sendMessage(chatID, "⚠️ Couldn't build the spreadsheet.", nil)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "mcat-progress.xlsx", Bytes: buf.Bytes()})
	doc.Caption = "📈 Your progress"
	if _, err := b.api.Send(doc); err != nil {
		b.log.Error("failed to send progress report", "chat_id", chatID, "error", err)
	}
}

// parseRemindArgs turns "on", "off" or an hour into notification settings
func parseRemindArgs(args string, currentHour int) (bool, int, error) {
	switch arg := strings.ToLower(strings.TrimSpace(args)); arg {
	case "on":
		return true, currentHour, nil
	case "off":
		return false, currentHour, nil
	default:
		hour, err := strconv.Atoi(arg)
		if err != nil || hour < 0 || hour > 23 {
			return false, 0, fmt.Errorf("invalid reminder setting %q", args)
		}
		return true, hour, nil
	}
}

func (b *Bot) handleRemind(ctx context.Context, chatID int64, user *models.User, args string) {
	if strings.TrimSpace(args) == "" {
		status := "off"
		if user.NotificationEnabled {
			status = fmt.Sprintf("on at %02d:00", user.NotificationHour)
		}
		b.sendMessage(chatID, fmt.Sprintf("⏰ Reminders are %s.\nUse /remind on, /remind off or /remind <hour 0-23>.", status), nil)
		return
	}

	if strings.EqualFold(strings.TrimSpace(args), "now") {
		if b.reminders == nil {
			b.sendMessage(chatID, "Reminders are disabled on this server.", nil)
			return
		}
		if err := b.reminders.RunManualCheck(ctx, *user); err != nil {
			b.log.Error("manual reminder failed", "user_id", user.ID, "error", err)
			b.sendMessage(chatID, "⚠️ Couldn't send a reminder.", nil)
		}
		return
	}

	enabled, hour, err := parseRemindArgs(args, user.NotificationHour)
	if err != nil {
		b.sendMessage(chatID, "Usage: /remind on|off|<hour 0-23>|now", nil)
		return
	}
	if err := b.deps.Repos.Users.UpdateNotification(ctx, user.ID, enabled, hour); err != nil {
		b.log.Error("failed to update reminders", "user_id", user.ID, "error", err)
		b.sendMessage(chatID, "⚠️ Couldn't update your reminder settings.", nil)
		return
	}
	b.deps.Auth.Forget(user.TelegramID)

	if enabled {
		b.sendMessage(chatID, fmt.Sprintf("✅ Daily reminders on at %02d:00.", hour), nil)
	} else {
		b.sendMessage(chatID, "🔕 Reminders off.", nil)
	}
}

func (b *Bot) handleGenerate(ctx context.Context, chatID int64, args string) {
	chapterID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		b.sendMessage(chatID, "Usage: /generate <chapter_id>", nil)
		return
	}
	chapter, err := b.deps.Catalog.Chapter(ctx, chapterID)
	if err != nil || chapter == nil {
		b.sendMessage(chatID, fmt.Sprintf("Chapter %d not found.", chapterID), nil)
		return
	}
	book, err := b.deps.Catalog.Book(ctx, chapter.BookID)
	if err != nil || book == nil {
		b.sendMessage(chatID, fmt.Sprintf("Book %q not found.", chapter.BookID), nil)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("⏳ Generating %d questions for %s, chapter %d...", b.config.GenerateCount, book.Name, chapter.ChapterNumber), nil)
	questions, err := b.deps.Generator.GenerateQuestions(ctx, book, chapter, b.config.GenerateCount)
	if err != nil {
		b.log.Error("question generation failed", "chapter_id", chapterID, "error", err)
		b.sendMessage(chatID, "⚠️ Question generation failed: "+err.Error(), nil)
		return
	}
	if err := b.deps.Repos.Questions.UpsertBatch(ctx, questions); err != nil {
		b.log.Error("failed to save generated questions", "chapter_id", chapterID, "error", err)
		b.sendMessage(chatID, "⚠️ Couldn't save the generated questions.", nil)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("✅ Added %d questions to %s.", len(questions), chapter.Title), nil)
}

// handleDocument imports an uploaded question bank for admins who ran /import
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if message.From == nil {
		return
	}
	awaiting := b.isAwaitingUpload(chatID) || strings.HasPrefix(message.Caption, "/import")
	if !awaiting {
		b.sendMessage(chatID, "To import questions, use /import first.", nil)
		return
	}
	if !b.requireAdmin(chatID, message.From.ID) {
		return
	}
	b.setAwaitingUpload(chatID, false)

	doc := message.Document
	format, err := importer.FormatFromName(doc.FileName)
	if err != nil {
		b.sendMessage(chatID, "❌ Only .xlsx and .csv files are supported.", nil)
		return
	}
	if int64(doc.FileSize) > b.config.ImportMaxBytes {
		b.sendMessage(chatID, "❌ The file is too large.", nil)
		return
	}

	b.sendMessage(chatID, "⏳ Importing questions...", nil)
	data, err := b.downloadFile(ctx, doc.FileID)
	if err != nil {
		b.log.Error("failed to download upload", "file", doc.FileName, "error", err)
		b.sendMessage(chatID, "❌ Couldn't download the file.", nil)
		return
	}

	res, err := b.deps.Importer.Import(ctx, bytes.NewReader(data), format, importer.DefaultImportConfig())
	if err != nil {
		b.log.Error("import failed", "file", doc.FileName, "error", err)
		b.sendMessage(chatID, "❌ Import failed: "+err.Error(), nil)
		return
	}
	b.log.Info("question bank imported", "file", doc.FileName, "processed", res.TotalProcessed, "errors", len(res.Errors))
	b.sendMessage(chatID, renderImportResult(res), nil)
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.config.ImportMaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > b.config.ImportMaxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", b.config.ImportMaxBytes)
	}
	return data, nil
}
