package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"hh:mm:ss", "01:30:00", 90, false},
		{"hh:mm:ss under an hour", "00:45:00", 45, false},
		{"hh:mm", "02:15", 135, false},
		{"single digit hour", "1:00", 60, false},
		{"bare minutes", "45", 45, false},
		{"padded input", "  30 ", 30, false},
		{"zero", "0", 0, true},
		{"zero clock", "00:00:00", 0, true},
		{"negative", "-15", 0, true},
		{"non-zero seconds", "00:45:30", 0, true},
		{"minutes overflow", "01:75", 0, true},
		{"one digit minutes", "01:5", 0, true},
		{"too many parts", "01:00:00:00", 0, true},
		{"words", "1 hour", 0, true},
		{"empty", "", 0, true},
		{"decimal", "1.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedServiceData))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Minutes())
			assert.Equal(t, time.Duration(tt.want)*time.Minute, got.Std())
		})
	}
}

func TestDurationString(t *testing.T) {
	assert.Equal(t, "01:30:00", MustDuration("90").String())
}

func TestDurationJSON(t *testing.T) {
	var s struct {
		D Duration `json:"d"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"d":"00:45:00"}`), &s))
	assert.Equal(t, 45, s.D.Minutes())

	require.NoError(t, json.Unmarshal([]byte(`{"d":30}`), &s))
	assert.Equal(t, 30, s.D.Minutes())

	err := json.Unmarshal([]byte(`{"d":"soon"}`), &s)
	assert.True(t, errors.Is(err, ErrMalformedServiceData))

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":30}`, string(out))
}

func TestNewService(t *testing.T) {
	svc, err := NewService("s1", "Cut", "00:45:00", 40)
	require.NoError(t, err)
	assert.Equal(t, 45, svc.Duration.Minutes())

	_, err = NewService("s2", "Broken", "abc", 10)
	assert.ErrorIs(t, err, ErrMalformedServiceData)
}

func TestTotalDuration(t *testing.T) {
	services := []Service{
		{ID: "a", Duration: MustDuration("45")},
		{ID: "b", Duration: MustDuration("00:30:00")},
	}
	assert.Equal(t, 75*time.Minute, TotalDuration(services))
	assert.Equal(t, time.Duration(0), TotalDuration(nil))
}

func TestFindServices(t *testing.T) {
	catalogue := []Category{
		{ID: "hair", Services: []Service{{ID: "cut"}, {ID: "colour"}}},
		{ID: "nails", Services: []Service{{ID: "mani"}}},
	}

	got, err := FindServices(catalogue, []string{"mani", "cut"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mani", got[0].ID)
	assert.Equal(t, "cut", got[1].ID)

	_, err = FindServices(catalogue, []string{"massage"})
	assert.Error(t, err)
}
