package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type award struct {
	UserID     int64  `json:"user_id" validate:"required,gt=0"`
	Amount     int    `json:"amount" validate:"gt=0"`
	SourceType string `json:"source_type" validate:"required,source_type"`
	Scope      string `json:"scope" validate:"omitempty,leaderboard_scope"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(&award{UserID: 1, Amount: 20, SourceType: "EVENT", Scope: "university"}))

	err := ValidateStruct(&award{UserID: 0, Amount: -1, SourceType: "BADGE", Scope: "planet"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, map[string]string{
		"user_id":     "required",
		"amount":      "gt",
		"source_type": "source_type",
		"scope":       "leaderboard_scope",
	}, fields)
	assert.Contains(t, err.Error(), "field 'amount' failed validation: gt")
}

func TestValidateStruct_NonStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(nil))
	assert.Error(t, ValidateStruct(42))
	var p *award
	assert.Error(t, ValidateStruct(p))
}
