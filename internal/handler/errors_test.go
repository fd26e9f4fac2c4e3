package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentflow/leasesign/internal/service"
	"github.com/rentflow/leasesign/pkg/response"
)

func TestHandleServiceError_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound, response.ErrCodeNotFound},
		// Unknown tokens collapse to NOT_FOUND; probing learns nothing more
		{"token not found", service.ErrTokenNotFound, http.StatusNotFound, response.ErrCodeNotFound},
		{"token expired", service.ErrTokenExpired, http.StatusGone, response.ErrCodeTokenExpired},
		{"already signed", service.ErrAlreadySigned, http.StatusConflict, response.ErrCodeAlreadySigned},
		{"already countersigned", service.ErrAlreadyCountersigned, http.StatusConflict, response.ErrCodeAlreadyCountersigned},
		{"not signable", service.ErrDocumentNotSignable, http.StatusUnprocessableEntity, response.ErrCodeDocumentNotSignable},
		{"invalid lifecycle", service.ErrInvalidLifecycleState, http.StatusUnprocessableEntity, response.ErrCodeInvalidLifecycleState},
		{"unexpected", errors.New("connection refused"), http.StatusInternalServerError, response.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			handleServiceError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestClientInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/sign/abc", nil)
	c.Request.Header.Set("User-Agent", "portal-web/2.1")
	c.Request.RemoteAddr = "203.0.113.7:51234"

	info := clientInfo(c)
	assert.Equal(t, "portal-web/2.1", info.UserAgent)
	assert.Equal(t, "203.0.113.7", info.IPAddress)
}
