package validator

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/nulzo/chat-registry/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentialURI struct {
	Name string `uri:"name" binding:"required,secret_name"`
}

func TestParseValidationError_ChatRequest(t *testing.T) {
	InitValidator()

	req := api.ChatRequest{
		Model:    "qwen-qwq",
		Messages: []api.ChatMessage{{Role: "robot"}},
	}
	err := binding.Validator.ValidateStruct(&req)
	require.Error(t, err)

	errs := ParseValidationError(err)
	assert.Equal(t, "must be one of [user, assistant, system]", errs["messages[0].role"])
}

func TestParseValidationError_RequiredUsesJSONName(t *testing.T) {
	InitValidator()

	err := binding.Validator.ValidateStruct(&api.ChatRequest{})
	require.Error(t, err)

	errs := ParseValidationError(err)
	assert.Contains(t, errs, "messages")
	assert.NotContains(t, errs, "model")
}

func TestSecretNameRule(t *testing.T) {
	InitValidator()

	assert.NoError(t, binding.Validator.ValidateStruct(&credentialURI{Name: "GROQ_API_KEY"}))

	err := binding.Validator.ValidateStruct(&credentialURI{Name: "theme"})
	require.Error(t, err)
	assert.Equal(t, "name must contain API_KEY", ParseValidationError(err)["name"])
}

func TestParseValidationError_NonValidationError(t *testing.T) {
	errs := ParseValidationError(errors.New("unexpected EOF"))
	assert.Equal(t, map[string]string{"body": "Invalid request body format. Please fix your payload."}, errs)
}
