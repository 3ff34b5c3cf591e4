// Package features turns raw passenger records into model inputs.
//
// Everything in this package is shared by the training job and the serving
// path: Derive, the categorical encoders and the numeric scaler are fit once
// on the training corpus and then replayed unchanged for every request.
package features

import (
	"regexp"
	"unicode/utf8"
)

// Sentinels used when optional passenger fields are absent.
const (
	UnknownDeck  = "Unknown"
	MissingCabin = "Unknown" // value the training imputer writes into empty cabins
	DefaultTitle = "Mr"
)

// Passenger is a raw record as it arrives from the dataset or an API request.
// Cabin and Name are optional; an empty string means absent.
type Passenger struct {
	Pclass   int     `json:"pclass"`
	Sex      string  `json:"sex"`
	Age      float64 `json:"age"`
	SibSp    int     `json:"sibsp"`
	Parch    int     `json:"parch"`
	Fare     float64 `json:"fare"`
	Embarked string  `json:"embarked"`
	Cabin    string  `json:"cabin,omitempty"`
	Name     string  `json:"name,omitempty"`
}

// Row is the derived feature row for a single passenger.
type Row struct {
	Pclass     int
	Sex        string
	Age        float64
	SibSp      int
	Parch      int
	Fare       float64
	Embarked   string
	Title      string
	FamilySize int
	IsAlone    bool
	Deck       string
}

// titlePattern matches a salutation such as "Mrs." either at the start of the
// name or after whitespace ("Braund, Mr. Owen Harris").
var titlePattern = regexp.MustCompile(`(?:^|\s)([A-Za-z]+)\.`)

var titleBuckets = map[string]string{
	"Capt":  "Mr",
	"Col":   "Mr",
	"Major": "Mr",
	"Dr":    "Mr",
	"Rev":   "Mr",
	"Mlle":  "Miss",
	"Ms":    "Miss",
	"Mme":   "Mrs",
}

// Derive computes the feature row for p. It never fails.
func Derive(p Passenger) Row {
	familySize := p.SibSp + p.Parch + 1

	return Row{
		Pclass:     p.Pclass,
		Sex:        p.Sex,
		Age:        p.Age,
		SibSp:      p.SibSp,
		Parch:      p.Parch,
		Fare:       p.Fare,
		Embarked:   p.Embarked,
		Title:      ExtractTitle(p.Name),
		FamilySize: familySize,
		IsAlone:    familySize == 1,
		Deck:       DeckOf(p.Cabin),
	}
}

// ExtractTitle returns the bucketed salutation found in name, or DefaultTitle.
func ExtractTitle(name string) string {
	if name == "" {
		return DefaultTitle
	}
	m := titlePattern.FindStringSubmatch(name)
	if m == nil {
		return DefaultTitle
	}
	return NormalizeTitle(m[1])
}

// NormalizeTitle folds rare titles into their common bucket. Titles without a
// bucket are returned unchanged, so applying it twice is the same as once.
func NormalizeTitle(title string) string {
	if bucket, ok := titleBuckets[title]; ok {
		return bucket
	}
	return title
}

// DeckOf returns the first character of cabin, or UnknownDeck when the cabin
// is missing or was imputed. Invalid UTF-8 yields utf8.RuneError so the deck
// always survives a JSON round trip.
func DeckOf(cabin string) string {
	if cabin == "" || cabin == MissingCabin {
		return UnknownDeck
	}
	r, _ := utf8.DecodeRuneInString(cabin)
	return string(r)
}
