package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triphub/internal/services"
)

func TestValidateAwardRequest(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	err = v.ValidateStruct(&services.AwardActionRequest{
		UserID:     1,
		ActionType: "review_created",
	})
	assert.NoError(t, err)
}

func TestValidateAwardRequestMissingFields(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	err = v.ValidateStruct(&services.AwardActionRequest{})
	require.Error(t, err)

	serviceErr := services.GetServiceError(err)
	assert.Equal(t, "VALIDATION_ERROR", serviceErr.Type)
	assert.Contains(t, serviceErr.Details, "userid")
	assert.Contains(t, serviceErr.Details, "actiontype")
}

func TestActionTypeRule(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	type payload struct {
		ActionType string `validate:"required,action_type"`
	}

	assert.NoError(t, v.ValidateStruct(&payload{ActionType: "vote_received"}))
	assert.Error(t, v.ValidateStruct(&payload{ActionType: "teleported"}))
}
