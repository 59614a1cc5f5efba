package models_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/cavsgen/internal/models"
)

func TestGenerateError(t *testing.T) {
	tests := []struct {
		name string
		err  *models.GenerateError
		want string
	}{
		{
			name: "with input",
			err: &models.GenerateError{
				Code:  models.ErrCodeParse,
				Phase: "parse",
				Input: "SHA1ShortMsg.rsp",
				Err:   errors.New("block 3: bad length"),
			},
			want: "generate parse [PARSE_ERROR]: SHA1ShortMsg.rsp: block 3: bad length",
		},
		{
			name: "without input",
			err: &models.GenerateError{
				Code:  models.ErrCodeRender,
				Phase: "render",
				Err:   errors.New("template failed"),
			},
			want: "generate render [RENDER_ERROR]: template failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestGenerateErrorUnwrap(t *testing.T) {
	err := &models.GenerateError{
		Code:  models.ErrCodeInput,
		Phase: "read",
		Input: "missing.rsp",
		Err:   models.ErrInputNotFound,
	}

	assert.ErrorIs(t, err, models.ErrInputNotFound)
}

func TestHTTPError(t *testing.T) {
	err := &models.HTTPError{URL: "https://example.test/a.rsp", StatusCode: 404}
	assert.Equal(t, "HTTP 404 from https://example.test/a.rsp", err.Error())
	assert.True(t, err.IsNotFound())

	err = &models.HTTPError{URL: "u", StatusCode: 403, Body: "forbidden"}
	assert.Equal(t, "HTTP 403 from u: forbidden", err.Error())
	assert.False(t, err.IsNotFound())
}
