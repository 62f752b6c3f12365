package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"Secret123!", true},
		{"p4ss-word", true},
		{"한글비번1!a", true},
		{"short1!", false},    // under 8 chars
		{"NoDigits!", false},  // missing digit
		{"nodigit123", false}, // missing special
		{"12345678!", false},  // missing letter
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidPassword(tt.password))
		})
	}
}

func TestToDetailsFieldNames(t *testing.T) {
	Init()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	// gin's validator instance resolves rules from the binding tag
	type payload struct {
		Email           string `json:"email" binding:"required,email"`
		Name            string `form:"name" binding:"required,notblank"`
		NewPassword     string `form:"newPassword" binding:"required,pwd"`
		ConfirmPassword string `form:"confirmPassword" binding:"eqfield=NewPassword"`
	}
	err := v.Struct(payload{Email: "nope", Name: "  \t ", NewPassword: "Secret123!", ConfirmPassword: "Other123!"})
	require.Error(t, err)

	details := ToDetails(err)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must not be blank", details["name"])
	assert.Equal(t, "must match NewPassword", details["confirmPassword"])
}

func TestToDetailsNilError(t *testing.T) {
	assert.Nil(t, ToDetails(nil))
}

func TestToDetailsFallback(t *testing.T) {
	details := ToDetails(assert.AnError)
	assert.Equal(t, map[string]string{"payload": "invalid payload"}, details)
}
