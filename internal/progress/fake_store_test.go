package progress

import (
	"context"
	"sync"
	"time"

	"github.com/example/mcatbot/pkg/models"
)

// fakeStore is an in-memory Store and Writer with per-operation failure injection
type fakeStore struct {
	mu sync.Mutex

	events    []models.UserProgress
	questions []models.Question
	chapters  []models.Chapter
	books     []models.Book
	mastery   map[string]*models.ConceptMastery

	fail  map[string]error
	calls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		mastery: make(map[string]*models.ConceptMastery),
		fail:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeStore) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.fail[op]
}

func (f *fakeStore) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) AnswerEvents(ctx context.Context, userID string) ([]models.UserProgress, error) {
	if err := f.enter(ctx, "events"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserProgress
	for _, ev := range f.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeStore) QuestionsByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	if err := f.enter(ctx, "questions"); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Question
	for _, q := range f.questions {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeStore) ChaptersByIDs(ctx context.Context, ids []int64) ([]models.Chapter, error) {
	if err := f.enter(ctx, "chapters"); err != nil {
		return nil, err
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Chapter
	for _, ch := range f.chapters {
		if want[ch.ID] {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeStore) BooksByIDs(ctx context.Context, ids []string) ([]models.Book, error) {
	if err := f.enter(ctx, "books"); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Book
	for _, b := range f.books {
		if want[b.ID] {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ConceptMastery(ctx context.Context, userID string) ([]models.ConceptMastery, error) {
	if err := f.enter(ctx, "mastery"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ConceptMastery
	for _, m := range f.mastery {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertAnswer(ctx context.Context, event *models.UserProgress) error {
	if err := f.enter(ctx, "insert"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStore) IncrementConceptMastery(ctx context.Context, userID, concept string, correct bool, at time.Time) (*models.ConceptMastery, error) {
	if err := f.enter(ctx, "increment"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["increment:"+concept]; err != nil {
		return nil, err
	}
	key := userID + "|" + concept
	m, ok := f.mastery[key]
	if !ok {
		m = &models.ConceptMastery{ID: int64(len(f.mastery) + 1), UserID: userID, Concept: concept}
		f.mastery[key] = m
	}
	m.TotalAttempts++
	if correct {
		m.CorrectAttempts++
	}
	m.MasteryPercentage = models.MasteryPercentage(m.CorrectAttempts, m.TotalAttempts)
	m.LastPracticed = at
	out := *m
	return &out, nil
}

// seedChemistry loads one book with two chapters: questions q1, q2 (chapter 1, "acids")
// and q3 (chapter 2, "bases")
func seedChemistry(f *fakeStore) {
	f.books = []models.Book{{ID: "chem", Name: "Chemistry"}}
	f.chapters = []models.Chapter{
		{ID: 2, BookID: "chem", Title: "Bases", ChapterNumber: 2},
		{ID: 1, BookID: "chem", Title: "Acids", ChapterNumber: 1},
	}
	f.questions = []models.Question{
		{ID: "q1", ChapterID: 1, ConceptTags: models.StringList{"acids"}},
		{ID: "q2", ChapterID: 1, ConceptTags: models.StringList{"acids"}},
		{ID: "q3", ChapterID: 2, ConceptTags: models.StringList{"bases"}},
	}
}
