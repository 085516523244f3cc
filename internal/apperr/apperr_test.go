package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{name: "validation", err: Validation("Passwords do not match!"), code: CodeValidation},
		{name: "unauthorized", err: Unauthorized("Invalid Login. Please Try Again"), code: CodeUnauthorized},
		{name: "invalid cookie", err: InvalidCookie(), code: CodeInvalidCookie},
		{name: "already registered", err: AlreadyRegistered(), code: CodeAlreadyRegistered},
		{name: "plain error", err: errors.New("redis down"), code: ""},
		{name: "nil", err: nil, code: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	err := Validation("User %s already exists! Please choose a different username", "bob")
	assert.Equal(t, "User bob already exists! Please choose a different username", Message(err))
	assert.True(t, Is(err, CodeValidation))
	assert.False(t, Is(err, CodeForbidden))
}

func TestCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("confirm: %w", AlreadyRegistered())
	assert.Equal(t, CodeAlreadyRegistered, Code(err))
}
