package date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "valid", input: "31-12-2099", want: New(2099, time.December, 31)},
		{name: "leap day", input: "29-02-2024", want: New(2024, time.February, 29)},
		{name: "not a leap year", input: "29-02-2023", wantErr: true},
		{name: "day out of range", input: "32-01-2024", wantErr: true},
		{name: "month out of range", input: "01-13-2024", wantErr: true},
		{name: "single digit day", input: "1-01-2024", wantErr: true},
		{name: "iso format", input: "2024-01-01", wantErr: true},
		{name: "trailing garbage", input: "01-01-2024x", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.input, got.String())
		})
	}
}

func TestDate_Compare(t *testing.T) {
	a := New(2024, time.March, 9)
	b := New(2024, time.March, 10)

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
	assert.True(t, a.Equal(New(2024, time.March, 9)))
}

func TestFromTime_UsesLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	instant := time.Date(2024, time.March, 9, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, New(2024, time.March, 9), FromTime(instant))
	assert.Equal(t, New(2024, time.March, 10), FromTime(instant.In(kolkata)))
}

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Date Date `json:"date"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"date":"05-06-2024"}`), &payload))
	assert.Equal(t, New(2024, time.June, 5), payload.Date)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"05-06-2024"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"date":"2024-06-05"}`), &payload))
	assert.Error(t, json.Unmarshal([]byte(`{"date":20240605}`), &payload))
}

func TestDate_Time(t *testing.T) {
	d := New(2024, time.June, 5)
	assert.Equal(t, time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC), d.Time())
	assert.Equal(t, d, FromTime(d.Time()))
}
