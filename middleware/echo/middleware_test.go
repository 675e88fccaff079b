package echomw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/reoring/jsonskema"
)

func TestValidateJSON_Echo(t *testing.T) {
	v := jsonskema.MustCompile(map[string]any{"type": "object", "required": []any{"id"}})
	e := echo.New()
	e.POST("/", func(c echo.Context) error {
		inst, ok := GetInstance(c)
		if !ok {
			t.Errorf("instance missing from context")
		}
		return c.JSON(http.StatusOK, inst)
	}, ValidateJSON(v, jsonskema.DecodeOpt{}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":1}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":1,"id":2}`)))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "duplicate_key") {
		t.Fatalf("expected 400 with duplicate_key, got %d: %s", rec.Code, rec.Body)
	}
}
