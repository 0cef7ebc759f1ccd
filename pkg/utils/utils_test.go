package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Text  string `validate:"required"`
	Level string `validate:"omitempty,oneof=id text"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sample
		wantErr string
	}{
		{name: "valid", input: sample{Text: "a"}},
		{name: "missing text", input: sample{}, wantErr: "text is required"},
		{name: "bad enum", input: sample{Text: "a", Level: "x"}, wantErr: "level is invalid"},
		{name: "both", input: sample{Level: "x"}, wantErr: "text is required; level is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestTimeHelpers(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "20240309_140507", FileStamp(ts))

	_, err := time.Parse(time.RFC3339, NowRFC3339())
	assert.NoError(t, err)
}
