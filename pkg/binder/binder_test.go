package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-assist/rafiki/pkg/binder"
)

type codeRequest struct {
	FlowID     string `path:"flowID" json:"-"`
	Code       string `json:"code"`
	SkipBackup bool   `json:"skip_backup"`
}

func TestJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		contentType string
		wantErr     error
		want        codeRequest
	}{
		{
			name:        "valid body",
			body:        `{"code":"287082","skip_backup":true}`,
			contentType: "application/json",
			want:        codeRequest{Code: "287082", SkipBackup: true},
		},
		{
			name:        "charset parameter",
			body:        `{"code":"123456"}`,
			contentType: "application/json; charset=utf-8",
			want:        codeRequest{Code: "123456"},
		},
		{
			name:    "empty body is skipped",
			body:    "",
			wantErr: binder.ErrBinderNotApplicable,
		},
		{
			name:        "whitespace body is skipped",
			body:        "  \n",
			contentType: "application/json",
			wantErr:     binder.ErrBinderNotApplicable,
		},
		{
			name:    "missing content type",
			body:    `{"code":"123456"}`,
			wantErr: binder.ErrMissingContentType,
		},
		{
			name:        "wrong content type",
			body:        `code=123456`,
			contentType: "application/x-www-form-urlencoded",
			wantErr:     binder.ErrUnsupportedMediaType,
		},
		{
			name:        "unknown field",
			body:        `{"code":"123456","admin":true}`,
			contentType: "application/json",
			wantErr:     binder.ErrFailedToParseJSON,
		},
		{
			name:        "trailing data",
			body:        `{"code":"123456"}{"code":"654321"}`,
			contentType: "application/json",
			wantErr:     binder.ErrFailedToParseJSON,
		},
		{
			name:        "wrong type",
			body:        `{"code":123456}`,
			contentType: "application/json",
			wantErr:     binder.ErrFailedToParseJSON,
		},
		{
			name:        "too large",
			body:        `{"code":"` + strings.Repeat("1", binder.DefaultMaxJSONSize) + `"}`,
			contentType: "application/json",
			wantErr:     binder.ErrBodyTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}

			var got codeRequest
			err := binder.JSON()(r, &got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPath(t *testing.T) {
	t.Parallel()

	params := map[string]string{"flowID": "f-1"}
	extract := func(_ *http.Request, key string) string { return params[key] }
	r := httptest.NewRequest(http.MethodPost, "/setup/f-1/verify", nil)

	t.Run("binds tagged string fields", func(t *testing.T) {
		t.Parallel()
		var got codeRequest
		require.NoError(t, binder.Path(extract)(r, &got))
		assert.Equal(t, "f-1", got.FlowID)
		assert.Empty(t, got.Code)
	})

	t.Run("rejects non struct target", func(t *testing.T) {
		t.Parallel()
		var s string
		assert.ErrorIs(t, binder.Path(extract)(r, &s), binder.ErrInvalidPath)
	})

	t.Run("rejects non string field", func(t *testing.T) {
		t.Parallel()
		var got struct {
			ID int `path:"flowID"`
		}
		assert.ErrorIs(t, binder.Path(extract)(r, &got), binder.ErrInvalidPath)
	})

	t.Run("nil extractor", func(t *testing.T) {
		t.Parallel()
		var got codeRequest
		assert.ErrorIs(t, binder.Path(nil)(r, &got), binder.ErrInvalidPath)
	})
}
