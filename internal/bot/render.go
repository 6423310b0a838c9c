package bot

import (
	"fmt"
	"strings"

	"github.com/example/mcatbot/internal/importer"
	"github.com/example/mcatbot/internal/progress"
	"github.com/example/mcatbot/internal/quiz"
	"github.com/example/mcatbot/pkg/models"
)

// Telegram rejects messages above 4096 characters
const maxMessageRunes = 4000

func truncate(text string) string {
	r := []rune(text)
	if len(r) <= maxMessageRunes {
		return text
	}
	return string(r[:maxMessageRunes-1]) + "…"
}

// progressBar draws a ten-step bar for a percentage
func progressBar(percent float64) string {
	filled := int(percent/10 + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

func renderTree(tree progress.Tree) string {
	if tree.IsEmpty() {
		return "📭 No answers yet. Pick a book with /books and start a quiz!"
	}
	var sb strings.Builder
	sb.WriteString("📈 Your progress\n")
	for _, b := range tree.Books {
		fmt.Fprintf(&sb, "\n📚 %s: %d/%d correct (%d%%)\n", b.Name, b.Correct, b.Total, b.Accuracy)
		for _, ch := range b.Chapters {
			fmt.Fprintf(&sb, "  Ch. %d %s: %d/%d (%d%%)\n", ch.ChapterNumber, ch.Title, ch.Correct, ch.Total, ch.Accuracy)
			for _, c := range ch.Concepts {
				fmt.Fprintf(&sb, "     • %s %.0f%%\n", c.Concept, c.MasteryPercentage)
			}
		}
	}
	return truncate(sb.String())
}

func renderStats(stats progress.Stats, recent []models.QuizResult) string {
	var sb strings.Builder
	sb.WriteString("📊 Statistics\n\n")
	fmt.Fprintf(&sb, "Answered: %d\nCorrect: %d\nAccuracy: %d%% %s\n",
		stats.Total, stats.Correct, stats.Accuracy, progressBar(float64(stats.Accuracy)))
	if len(recent) > 0 {
		sb.WriteString("\nRecent quizzes:\n")
		for _, r := range recent {
			fmt.Fprintf(&sb, "• %s: %d/%d in %s\n",
				r.CompletedAt.Format("Jan 2 15:04"), r.CorrectAnswers, r.TotalQuestions, formatDuration(r.Duration))
		}
	}
	return sb.String()
}

func renderMastery(rows []models.ConceptMastery) string {
	if len(rows) == 0 {
		return "🧠 No concepts practiced yet."
	}
	var sb strings.Builder
	sb.WriteString("🧠 Concept mastery\n\n")
	for _, m := range rows {
		fmt.Fprintf(&sb, "%s %s %.0f%% (%d/%d)\n",
			masteryIcon(m.MasteryPercentage), m.Concept, m.MasteryPercentage, m.CorrectAttempts, m.TotalAttempts)
	}
	return truncate(sb.String())
}

func masteryIcon(percent float64) string {
	switch {
	case percent >= 80:
		return "🟢"
	case percent >= 50:
		return "🟡"
	default:
		return "🔴"
	}
}

func renderQuestion(step quiz.Step) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "❓ Question %d/%d\n\n%s\n\n", step.Position, step.Total, step.Question.QuestionText)
	for i, opt := range step.Question.Options {
		fmt.Fprintf(&sb, "%s) %s\n", models.OptionLetter(i), opt)
	}
	return truncate(sb.String())
}

func renderFeedback(fb quiz.Feedback) string {
	var sb strings.Builder
	if fb.Correct {
		sb.WriteString("✅ Correct!")
	} else if fb.CorrectLetter != "" {
		fmt.Fprintf(&sb, "❌ Incorrect. The answer is %s) %s", fb.CorrectLetter, fb.CorrectText)
	} else {
		fmt.Fprintf(&sb, "❌ Incorrect. The answer is %s", fb.CorrectText)
	}
	if fb.Explanation != "" {
		sb.WriteString("\n\n💡 " + fb.Explanation)
	}
	if !fb.Recorded {
		sb.WriteString("\n\n⚠️ This answer could not be saved.")
	}
	if fb.Finished {
		fmt.Fprintf(&sb, "\n\n🏁 Quiz finished: %d/%d correct (%d%%)", fb.Score, fb.Total, progress.Accuracy(fb.Score, fb.Total))
	}
	return truncate(sb.String())
}

func renderReminder(user models.User, weakest *models.ConceptMastery) string {
	name := user.FirstName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("⏰ Hi %s, time for some MCAT practice!", name)
	if weakest != nil {
		text += fmt.Sprintf("\nYour weakest concept is %s (%.0f%%). A short quiz would help.", weakest.Concept, weakest.MasteryPercentage)
	}
	return text
}

func renderImportResult(res *importer.ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Questions processed: %d\n- Created: %d\n- Updated: %d\n- New books: %d\n- New chapters: %d\n",
		res.TotalProcessed, res.Created, res.Updated, res.BooksCreated, res.ChaptersCreated)
	if len(res.Errors) > 0 {
		fmt.Fprintf(&sb, "\n❌ Errors (%d):\n", len(res.Errors))
		for _, e := range res.Errors {
			sb.WriteString("- " + e + "\n")
		}
	}
	return truncate(sb.String())
}

func formatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
}
