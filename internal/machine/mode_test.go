package machine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	testCases := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "closed", want: Closed},
		{input: "open", want: Open},
		{input: "denied", want: Denied},
		{input: "underage", want: Denied},
		{input: " OPEN ", want: Open},
		{input: "", wantErr: true},
		{input: "ajar", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseMode(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMode_MarshalTextRejectsUnknown(t *testing.T) {
	_, err := Mode(7).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, "mode(7)", Mode(7).String())
}

func TestWindows_For(t *testing.T) {
	w := Windows{Open: time.Minute, Denied: time.Second}
	assert.Equal(t, time.Minute, w.For(Open))
	assert.Equal(t, time.Second, w.For(Denied))
	assert.Zero(t, w.For(Closed))
}

func TestSnapshot_MarshalJSON(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 10, 0, time.UTC)
	entered := at.Add(-10 * time.Second)
	remaining := 20*time.Second + 500*time.Millisecond

	b, err := json.Marshal(Snapshot{Mode: Open, EnteredAt: &entered, Remaining: &remaining, At: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": "open",
		"openedAt": "2025-06-01T12:00:00Z",
		"remainingTime": 20500,
		"timestamp": "2025-06-01T12:00:10Z"
	}`, string(b))

	b, err = json.Marshal(Snapshot{Mode: Closed, At: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"closed","openedAt":null,"remainingTime":null,"timestamp":"2025-06-01T12:00:10Z"}`, string(b))
}
