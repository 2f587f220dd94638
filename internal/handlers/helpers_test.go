package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"helpfinder/internal/services"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrTaskNotFound, http.StatusNotFound},
		{services.ErrNotTaskOwner, http.StatusForbidden},
		{services.ErrTaskNotOpen, http.StatusBadRequest},
		{services.ErrTaskQuota, http.StatusTooManyRequests},
		{services.ErrEmailTaken, http.StatusConflict},
		{services.ErrBadCredentials, http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestNormalizeLinkCode(t *testing.T) {
	code, ok := normalizeLinkCode(` "0123456789ABCDEF" `)
	assert.True(t, ok)
	assert.Equal(t, "0123456789abcdef", code)

	_, ok = normalizeLinkCode("0123")
	assert.False(t, ok)

	_, ok = normalizeLinkCode("")
	assert.False(t, ok)
}
