package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolms/backend/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError(t *testing.T) {
	type enrollRequest struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required,tenant_code"`
	}

	SetupValidator()

	router := gin.New()
	router.POST("/enroll", func(c *gin.Context) {
		var req enrollRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	t.Run("reports each failing field by its json name", func(t *testing.T) {
		body := strings.NewReader(`{"email": "not-an-email", "code": "bad code!"}`)
		req := httptest.NewRequest(http.MethodPost, "/enroll", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.ValidationErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 2)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "Invalid email format", fields["email"])
		assert.Contains(t, fields["code"], "letters, digits")
	})

	t.Run("passes valid input through", func(t *testing.T) {
		body := strings.NewReader(`{"email": "teacher@greenhill.edu", "code": "GREENHILL"}`)
		req := httptest.NewRequest(http.MethodPost, "/enroll", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("includes the request id when present", func(t *testing.T) {
		body := strings.NewReader(`{}`)
		req := httptest.NewRequest(http.MethodPost, "/enroll", body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var resp dto.ValidationErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "req-42", resp.Error.RequestID)
	})
}

func TestValidationMessage(t *testing.T) {
	type ruleStruct struct {
		Required string   `json:"required_field" binding:"required"`
		Email    string   `json:"email_field" binding:"omitempty,email"`
		Choice   string   `json:"choice_field" binding:"omitempty,oneof=a b"`
		Short    string   `json:"short_field" binding:"omitempty,min=3"`
		Items    []string `json:"items_field" binding:"omitempty,max=2"`
		ID       string   `json:"id_field" binding:"omitempty,uuid"`
	}

	SetupValidator()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	err := v.Struct(ruleStruct{
		Email:  "nope",
		Choice: "c",
		Short:  "ab",
		Items:  []string{"1", "2", "3"},
		ID:     "not-a-uuid",
	})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)

	messages := map[string]string{}
	for _, e := range validationErrors {
		messages[e.Field()] = validationMessage(e)
	}
	assert.Equal(t, "This field is required", messages["required_field"])
	assert.Equal(t, "Invalid email format", messages["email_field"])
	assert.Equal(t, "Must be one of: a b", messages["choice_field"])
	assert.Equal(t, "Must be at least 3 characters", messages["short_field"])
	assert.Equal(t, "Must have at most 2 items", messages["items_field"])
	assert.Equal(t, "Invalid UUID format", messages["id_field"])
}

func TestTenantCodeRule(t *testing.T) {
	type codeStruct struct {
		Code string `json:"code" binding:"required,tenant_code"`
	}

	SetupValidator()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	assert.NoError(t, v.Struct(codeStruct{Code: "GREENHILL"}))
	assert.NoError(t, v.Struct(codeStruct{Code: "green-hill_01"}))
	assert.Error(t, v.Struct(codeStruct{Code: "green hill"}))
	assert.Error(t, v.Struct(codeStruct{Code: "school!"}))
	assert.Error(t, v.Struct(codeStruct{Code: strings.Repeat("A", 51)}))
}
