package progress

import (
	"math"
	"sort"

	"github.com/example/mcatbot/pkg/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type bookAcc struct {
	book     *models.Book
	total    int
	correct  int
	chapters []*chapterAcc
}

type chapterAcc struct {
	chapter  *models.Chapter
	total    int
	correct  int
	concepts map[string]struct{}
}

// Accuracy returns round(100*correct/total), or 0 when total is 0
func Accuracy(correct, total int) int {
	if total <= 0 {
		return 0
	}
	a := int(math.Round(100 * float64(correct) / float64(total)))
	if a < 0 {
		return 0
	}
	if a > 100 {
		return 100
	}
	return a
}

// Build folds answer events into a Tree. Events whose question, chapter or book
// cannot be resolved are skipped. Duplicate reference rows are last-write-wins.
func Build(
	events []models.UserProgress,
	questions []models.Question,
	chapters []models.Chapter,
	books []models.Book,
	mastery []models.ConceptMastery,
) Tree {
	if len(events) == 0 {
		return EmptyTree()
	}

	questionByID := make(map[string]*models.Question, len(questions))
	for i := range questions {
		questionByID[questions[i].ID] = &questions[i]
	}
	chapterByID := make(map[int64]*models.Chapter, len(chapters))
	for i := range chapters {
		chapterByID[chapters[i].ID] = &chapters[i]
	}
	bookByID := make(map[string]*models.Book, len(books))
	for i := range books {
		bookByID[books[i].ID] = &books[i]
	}
	masteryByConcept := make(map[string]*models.ConceptMastery, len(mastery))
	for i := range mastery {
		masteryByConcept[mastery[i].Concept] = &mastery[i]
	}

	bookAccs := make(map[string]*bookAcc)
	chapterAccs := make(map[int64]*chapterAcc)

	for _, ev := range events {
		q, ok := questionByID[ev.QuestionID]
		if !ok {
			continue
		}
		ch, ok := chapterByID[q.ChapterID]
		if !ok {
			continue
		}
		b, ok := bookByID[ch.BookID]
		if !ok {
			continue
		}

		ba, ok := bookAccs[b.ID]
		if !ok {
			ba = &bookAcc{book: b}
			bookAccs[b.ID] = ba
		}
		ca, ok := chapterAccs[ch.ID]
		if !ok {
			ca = &chapterAcc{chapter: ch, concepts: make(map[string]struct{})}
			chapterAccs[ch.ID] = ca
			ba.chapters = append(ba.chapters, ca)
		}

		ba.total++
		ca.total++
		if ev.Correct {
			ba.correct++
			ca.correct++
		}
		for _, tag := range NormalizeTags(q.ConceptTags) {
			ca.concepts[tag] = struct{}{}
		}
	}

	tree := EmptyTree()
	for _, ba := range bookAccs {
		node := BookNode{
			ID:       ba.book.ID,
			Name:     ba.book.Name,
			Total:    ba.total,
			Correct:  ba.correct,
			Accuracy: Accuracy(ba.correct, ba.total),
			Chapters: make([]ChapterNode, 0, len(ba.chapters)),
		}
		for _, ca := range ba.chapters {
			node.Chapters = append(node.Chapters, ChapterNode{
				ID:            ca.chapter.ID,
				Title:         ca.chapter.Title,
				ChapterNumber: ca.chapter.ChapterNumber,
				Total:         ca.total,
				Correct:       ca.correct,
				Accuracy:      Accuracy(ca.correct, ca.total),
				Concepts:      resolveConcepts(ca.concepts, masteryByConcept),
			})
		}
		sort.Slice(node.Chapters, func(i, j int) bool {
			a, b := node.Chapters[i], node.Chapters[j]
			if a.ChapterNumber != b.ChapterNumber {
				return a.ChapterNumber < b.ChapterNumber
			}
			return a.ID < b.ID
		})
		tree.Books = append(tree.Books, node)
	}

	// Collator keeps internal buffers, so one per call
	col := collate.New(language.English)
	sort.Slice(tree.Books, func(i, j int) bool {
		if c := col.CompareString(tree.Books[i].Name, tree.Books[j].Name); c != 0 {
			return c < 0
		}
		return tree.Books[i].ID < tree.Books[j].ID
	})
	return tree
}

// resolveConcepts maps concept names to mastery rows, best mastered first.
// Names without a mastery row are dropped.
func resolveConcepts(names map[string]struct{}, masteryByConcept map[string]*models.ConceptMastery) []models.ConceptMastery {
	concepts := make([]models.ConceptMastery, 0, len(names))
	for name := range names {
		if m, ok := masteryByConcept[name]; ok {
			concepts = append(concepts, *m)
		}
	}
	sortMastery(concepts)
	return concepts
}

func sortMastery(rows []models.ConceptMastery) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].MasteryPercentage != rows[j].MasteryPercentage {
			return rows[i].MasteryPercentage > rows[j].MasteryPercentage
		}
		return rows[i].Concept < rows[j].Concept
	})
}

// StatsFromEvents counts total and correct answers
func StatsFromEvents(events []models.UserProgress) Stats {
	var s Stats
	for _, ev := range events {
		s.Total++
		if ev.Correct {
			s.Correct++
		}
	}
	s.Accuracy = Accuracy(s.Correct, s.Total)
	return s
}
