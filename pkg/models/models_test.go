package models

import (
	"reflect"
	"testing"
)

func TestQuestionIsCorrect(t *testing.T) {
	q := Question{Options: StringList{"HCl", "NH3", "H2O"}, CorrectAnswer: "A"}
	tests := []struct {
		choice string
		want   bool
	}{
		{"A", true},
		{"a", true},
		{"HCl", true},
		{" hcl ", true},
		{"B", false},
		{"NH3", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.choice, func(t *testing.T) {
			if got := q.IsCorrect(tt.choice); got != tt.want {
				t.Errorf("IsCorrect(%q) = %v, want %v", tt.choice, got, tt.want)
			}
		})
	}
}

func TestQuestionCorrectIndex(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   int
	}{
		{"letter", "C", 2},
		{"lowercase letter", "b", 1},
		{"option text", "NH3", 1},
		{"letter out of range", "E", -1},
		{"unknown text", "NaOH", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Question{Options: StringList{"HCl", "NH3", "H2O"}, CorrectAnswer: tt.answer}
			if got := q.CorrectIndex(); got != tt.want {
				t.Errorf("CorrectIndex() = %d, want %d", got, tt.want)
			}
		})
	}

	noOptions := Question{CorrectAnswer: "7"}
	if !noOptions.IsCorrect("7") {
		t.Error("free-text answer should match literally")
	}
}

func TestOptionLetter(t *testing.T) {
	if OptionLetter(0) != "A" || OptionLetter(25) != "Z" {
		t.Error("unexpected letters")
	}
	if OptionLetter(-1) != "" || OptionLetter(26) != "" {
		t.Error("out of range index should give empty letter")
	}
}

func TestStringListScan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		want    StringList
		wantErr bool
	}{
		{"string", `["acids","bases"]`, StringList{"acids", "bases"}, false},
		{"bytes", []byte(`["x"]`), StringList{"x"}, false},
		{"nil", nil, nil, false},
		{"empty", "", nil, false},
		{"bad json", "acids", nil, true},
		{"bad type", 42, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l StringList
			err := l.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan() error = %v", err)
			}
			if !tt.wantErr && !reflect.DeepEqual(l, tt.want) {
				t.Errorf("Scan() = %v, want %v", l, tt.want)
			}
		})
	}

	v, err := StringList(nil).Value()
	if err != nil || v != "[]" {
		t.Errorf("nil Value() = %v, %v", v, err)
	}
}

func TestMasteryPercentage(t *testing.T) {
	tests := []struct {
		correct, total int
		want           float64
	}{
		{1, 2, 50},
		{0, 0, 0},
		{3, 3, 100},
		{5, 3, 100},
		{-1, 3, 0},
	}
	for _, tt := range tests {
		if got := MasteryPercentage(tt.correct, tt.total); got != tt.want {
			t.Errorf("MasteryPercentage(%d, %d) = %v, want %v", tt.correct, tt.total, got, tt.want)
		}
	}
}
