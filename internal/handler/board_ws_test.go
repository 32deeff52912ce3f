package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"collab-backend/internal/service"
)

func TestErrorCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("%w: room key is required", service.ErrValidation), CodeValidation},
		{fmt.Errorf("%w: project 9", service.ErrNotFound), CodeNotFound},
		{fmt.Errorf("%w: other tenant", service.ErrForbidden), CodeForbidden},
		{errors.New("connection reset"), CodeStorage},
	}

	for _, tc := range cases {
		require.Equal(t, tc.code, errorCode(tc.err), "error %v", tc.err)
	}
}
