package training

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `PassengerId,Survived,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked
1,0,3,"Braund, Mr. Owen Harris",male,22,1,0,A/5 21171,7.25,,S
2,1,1,"Cumings, Mrs. John Bradley (Florence Briggs Thayer)",female,38,1,0,PC 17599,71.2833,C85,C
3,1,3,"Heikkinen, Miss. Laina",female,26,0,0,STON/O2. 3101282,7.925,,S
6,0,3,"Moran, Mr. James",male,,0,0,330877,8.4583,,Q
62,1,1,"Icard, Miss. Amelie",female,38,0,0,113572,80,B28,
`

func TestReadCSV(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, records, 5)

	first := records[0]
	assert.Equal(t, 1, first.PassengerID)
	assert.Equal(t, 0, first.Survived)
	assert.Equal(t, 3, first.Pclass)
	assert.Equal(t, "Braund, Mr. Owen Harris", first.Name)
	assert.Equal(t, "male", first.Sex)
	require.NotNil(t, first.Age)
	assert.Equal(t, 22.0, *first.Age)
	require.NotNil(t, first.Fare)
	assert.Equal(t, 7.25, *first.Fare)
	assert.Equal(t, "", first.Cabin)
	assert.Equal(t, "S", first.Embarked)

	assert.Nil(t, records[3].Age, "missing age stays missing")
	assert.Equal(t, "", records[4].Embarked, "missing port stays missing")
	assert.Equal(t, "C85", records[1].Cabin)
}

func TestReadCSV_SkipsMalformedRows(t *testing.T) {
	data := `Survived,Pclass,Sex,Age,SibSp,Parch,Fare,Embarked
1,1,female,30,0,0,50,S
x,1,female,30,0,0,50,S
2,1,female,30,0,0,50,S
0,three,male,30,0,0,50,S
0,3,male,abc,0,0,50,S
0,3,,30,0,0,50,S
0,3,male,40,0,0,8,S
`
	records, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReadCSV_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"empty input", "", ErrEmptyDataset},
		{"header only", "Survived,Pclass,Sex,Age,SibSp,Parch,Fare,Embarked\n", ErrEmptyDataset},
		{"missing column", "Survived,Pclass,Sex\n1,1,female\n", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tc.data))
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
			}
		})
	}
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "data", "titanic.csv")
	require.NoError(t, Download(context.Background(), srv.URL, dest, 5*time.Second))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(data))

	_, err = os.Stat(dest + ".part")
	assert.True(t, os.IsNotExist(err), "temporary download file should be gone")
}

func TestDownload_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "titanic.csv")
	err := Download(context.Background(), srv.URL, dest, 5*time.Second)
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no dataset should be published on failure")
}
