package ginmw_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/builder"
	ginmw "github.com/reoring/dynaskema/middleware/gin"
)

func TestValidateJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := builder.MakeFromBytes([]byte(`{"title":"Ping","properties":{"n":{"type":"integer"}},"required":["n"]}`), builder.Options{})
	if err != nil {
		t.Fatal(err)
	}
	r := gin.New()
	r.POST("/ping", ginmw.ValidateJSON(m, dynaskema.ParseOpt{}), func(c *gin.Context) {
		rec, ok := ginmw.GetRecord(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		n, _ := rec.Int("n")
		c.JSON(http.StatusOK, gin.H{"n": n + 1})
	})

	cases := []struct {
		body string
		code int
		want string
	}{
		{`{"n":1}`, http.StatusOK, `{"n":2}`},
		{`{"n":1.5}`, http.StatusBadRequest, "invalid_type"},
		{`{}`, http.StatusBadRequest, "required"},
		{`{"n":1,"n":2}`, http.StatusBadRequest, "duplicate_key"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/ping", strings.NewReader(tc.body))
		r.ServeHTTP(w, req)
		if w.Code != tc.code || !strings.Contains(w.Body.String(), tc.want) {
			t.Fatalf("%s: %d %s", tc.body, w.Code, w.Body.String())
		}
	}
}
