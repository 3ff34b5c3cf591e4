package features

import (
	"testing"
)

func TestDerive_FamilySize(t *testing.T) {
	testCases := []struct {
		name      string
		sibsp     int
		parch     int
		wantSize  int
		wantAlone bool
	}{
		{"travelling alone", 0, 0, 1, true},
		{"with spouse", 1, 0, 2, false},
		{"with child", 0, 1, 2, false},
		{"large family", 3, 4, 8, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			row := Derive(Passenger{Pclass: 2, SibSp: tc.sibsp, Parch: tc.parch})
			if row.FamilySize != tc.wantSize {
				t.Errorf("expected family size %d, got %d", tc.wantSize, row.FamilySize)
			}
			if row.FamilySize != tc.sibsp+tc.parch+1 {
				t.Errorf("family size %d does not equal sibsp+parch+1", row.FamilySize)
			}
			if row.IsAlone != tc.wantAlone {
				t.Errorf("expected is_alone %v, got %v", tc.wantAlone, row.IsAlone)
			}
		})
	}
}

func TestExtractTitle(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty name", "", "Mr"},
		{"no salutation", "John Smith", "Mr"},
		{"leading title", "Mr. John Smith", "Mr"},
		{"leading mrs", "Mrs. Jane Doe", "Mrs"},
		{"dataset format", "Braund, Mr. Owen Harris", "Mr"},
		{"dataset miss", "Heikkinen, Miss. Laina", "Miss"},
		{"master passes through", "Palsson, Master. Gosta Leonard", "Master"},
		{"doctor bucketed", "Minahan, Dr. William Edward", "Mr"},
		{"reverend bucketed", "Byles, Rev. Thomas Roussel Davids", "Mr"},
		{"captain bucketed", "Crosby, Capt. Edward Gifford", "Mr"},
		{"colonel bucketed", "Simonius-Blumer, Col. Oberst Alfons", "Mr"},
		{"major bucketed", "Peuchen, Major. Arthur Godfrey", "Mr"},
		{"mlle bucketed", "Sagesser, Mlle. Emma", "Miss"},
		{"ms bucketed", "Reynaldo, Ms. Encarnacion", "Miss"},
		{"mme bucketed", "Aubart, Mme. Leontine Pauline", "Mrs"},
		{"rare title kept", "Rothes, the Countess. of (Lucy Noel Martha Dyer-Edwards)", "Countess"},
		{"period without word", "Smith, . John", "Mr"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractTitle(tc.input); got != tc.expected {
				t.Errorf("ExtractTitle(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestNormalizeTitle_Idempotent(t *testing.T) {
	titles := []string{"Mr", "Mrs", "Miss", "Master", "Capt", "Col", "Major", "Dr", "Rev", "Mlle", "Ms", "Mme", "Don", "Jonkheer"}

	for _, title := range titles {
		once := NormalizeTitle(title)
		twice := NormalizeTitle(once)
		if once != twice {
			t.Errorf("NormalizeTitle not idempotent for %q: %q then %q", title, once, twice)
		}
	}
}

func TestDeckOf(t *testing.T) {
	testCases := []struct {
		cabin    string
		expected string
	}{
		{"", "Unknown"},
		{"Unknown", "Unknown"},
		{"B42", "B"},
		{"C23 C25 C27", "C"},
		{"T", "T"},
		{"Ö12", "Ö"},
		{"\xff12", "\uFFFD"},
	}

	for _, tc := range testCases {
		if got := DeckOf(tc.cabin); got != tc.expected {
			t.Errorf("DeckOf(%q) = %q, expected %q", tc.cabin, got, tc.expected)
		}
	}
}

func TestDerive_ThirdClassMale(t *testing.T) {
	row := Derive(Passenger{
		Pclass:   3,
		Sex:      "male",
		Age:      22,
		SibSp:    1,
		Parch:    0,
		Fare:     7.925,
		Embarked: "S",
		Name:     "Mr. John Smith",
	})

	if row.Title != "Mr" {
		t.Errorf("expected title Mr, got %s", row.Title)
	}
	if row.FamilySize != 2 {
		t.Errorf("expected family size 2, got %d", row.FamilySize)
	}
	if row.IsAlone {
		t.Error("expected is_alone to be false")
	}
	if row.Deck != "Unknown" {
		t.Errorf("expected deck Unknown, got %s", row.Deck)
	}
}

func TestDerive_FirstClassFemale(t *testing.T) {
	row := Derive(Passenger{
		Pclass:   1,
		Sex:      "female",
		Age:      29,
		Fare:     211.3375,
		Embarked: "S",
		Cabin:    "B42",
		Name:     "Mrs. Jane Doe",
	})

	if row.Title != "Mrs" {
		t.Errorf("expected title Mrs, got %s", row.Title)
	}
	if row.FamilySize != 1 {
		t.Errorf("expected family size 1, got %d", row.FamilySize)
	}
	if !row.IsAlone {
		t.Error("expected is_alone to be true")
	}
	if row.Deck != "B" {
		t.Errorf("expected deck B, got %s", row.Deck)
	}
	if row.Pclass != 1 || row.Sex != "female" || row.Age != 29 || row.Fare != 211.3375 || row.Embarked != "S" {
		t.Errorf("raw fields not carried over: %+v", row)
	}
}
