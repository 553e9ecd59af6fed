package binder_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub/pkg/binder"
)

type payload struct {
	Name string `json:"name"`
	Note string `json:"note"`
}

func TestBind(t *testing.T) {
	t.Parallel()

	t.Run("trims strings and drops empty keys", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"  Bob  ","note":""}`))

		var p payload
		require.NoError(t, binder.Bind(r, &p))
		assert.Equal(t, "Bob", p.Name)
		assert.Empty(t, p.Note)
	})

	t.Run("empty body decodes to zero value", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/", strings.NewReader(""))

		var p payload
		require.NoError(t, binder.Bind(r, &p))
		assert.Equal(t, payload{}, p)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/", strings.NewReader(`{bad`))

		var p payload
		assert.ErrorIs(t, binder.Bind(r, &p), binder.ErrInvalidBody)
	})

	t.Run("sanitizes nested documents", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"profile":{"bio":"  hi  "}}`))

		var p struct {
			Profile struct {
				Bio string `json:"bio"`
			} `json:"profile"`
		}
		require.NoError(t, binder.Bind(r, &p))
		assert.Equal(t, "hi", p.Profile.Bio)
	})
}
