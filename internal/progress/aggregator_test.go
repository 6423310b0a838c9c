package progress

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/example/mcatbot/pkg/models"
)

func chemistryStore() *fakeStore {
	f := newFakeStore()
	seedChemistry(f)
	f.events = []models.UserProgress{
		{UserID: "u1", QuestionID: "q1", Correct: true},
		{UserID: "u1", QuestionID: "q2", Correct: false},
		{UserID: "u1", QuestionID: "q3", Correct: true},
	}
	f.mastery["u1|acids"] = &models.ConceptMastery{UserID: "u1", Concept: "acids", TotalAttempts: 2, CorrectAttempts: 1, MasteryPercentage: 50}
	f.mastery["u1|bases"] = &models.ConceptMastery{UserID: "u1", Concept: "bases", TotalAttempts: 1, CorrectAttempts: 1, MasteryPercentage: 100}
	return f
}

func TestHierarchicalProgress(t *testing.T) {
	agg := NewAggregator(chemistryStore(), nil)

	tree, err := agg.HierarchicalProgress(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Books) != 1 || tree.Books[0].Accuracy != 67 {
		t.Fatalf("unexpected tree: %+v", tree)
	}

	again, err := agg.HierarchicalProgress(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(tree, again) {
		t.Errorf("repeated aggregation differs")
	}
}

func TestHierarchicalProgressNoEvents(t *testing.T) {
	store := chemistryStore()
	agg := NewAggregator(store, nil)

	tree, err := agg.HierarchicalProgress(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tree.IsEmpty() || tree.Books == nil {
		t.Errorf("expected empty tree, got %+v", tree)
	}
	for _, op := range []string{"questions", "chapters", "books", "mastery"} {
		if n := store.callCount(op); n != 0 {
			t.Errorf("%s read %d times for a user without answers", op, n)
		}
	}
}

func TestHierarchicalProgressFailSoft(t *testing.T) {
	boom := errors.New("store unavailable")
	for _, op := range []string{"events", "questions", "chapters", "books", "mastery"} {
		t.Run(op, func(t *testing.T) {
			store := chemistryStore()
			store.fail[op] = boom
			agg := NewAggregator(store, nil)

			tree, err := agg.HierarchicalProgress(context.Background(), "u1")
			if !errors.Is(err, ErrFetch) || !errors.Is(err, boom) {
				t.Fatalf("expected ErrFetch wrapping the store error, got %v", err)
			}
			if !tree.IsEmpty() || tree.Books == nil {
				t.Errorf("expected empty tree on failure, got %+v", tree)
			}
		})
	}
}

func TestHierarchicalProgressCancelled(t *testing.T) {
	store := chemistryStore()
	agg := NewAggregator(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree, err := agg.HierarchicalProgress(ctx, "u1")
	if !errors.Is(err, ErrFetch) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if !tree.IsEmpty() {
		t.Errorf("expected empty tree, got %+v", tree)
	}
	if n := store.callCount("events"); n != 0 {
		t.Errorf("store was read %d times after cancellation", n)
	}
}

func TestHierarchicalProgressInvalidUser(t *testing.T) {
	store := chemistryStore()
	agg := NewAggregator(store, nil)

	_, err := agg.HierarchicalProgress(context.Background(), "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if n := store.callCount("events"); n != 0 {
		t.Errorf("store was read for an empty user id")
	}
}

func TestStats(t *testing.T) {
	agg := NewAggregator(chemistryStore(), nil)
	stats, err := agg.Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := (Stats{Total: 3, Correct: 2, Accuracy: 67}); stats != want {
		t.Errorf("got %+v, want %+v", stats, want)
	}

	store := chemistryStore()
	store.fail["events"] = errors.New("down")
	stats, err = NewAggregator(store, nil).Stats(context.Background(), "u1")
	if !errors.Is(err, ErrFetch) || stats != (Stats{}) {
		t.Errorf("expected zero stats with ErrFetch, got %+v, %v", stats, err)
	}
}

func TestConceptMasteryOrdering(t *testing.T) {
	store := chemistryStore()
	store.mastery["u1|amines"] = &models.ConceptMastery{UserID: "u1", Concept: "amines", MasteryPercentage: 75}

	rows, err := NewAggregator(store, nil).ConceptMastery(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	for _, r := range rows {
		got = append(got, r.Concept)
	}
	if want := []string{"bases", "amines", "acids"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDashboard(t *testing.T) {
	agg := NewAggregator(chemistryStore(), nil)
	d, err := agg.Dashboard(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Stats.Total != 3 || len(d.Tree.Books) != 1 {
		t.Errorf("unexpected dashboard: %+v", d)
	}

	store := chemistryStore()
	store.fail["books"] = errors.New("down")
	d, err = NewAggregator(store, nil).Dashboard(context.Background(), "u1")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if d.Stats.Total != 3 || !d.Tree.IsEmpty() {
		t.Errorf("stats should survive a tree failure: %+v", d)
	}
}
