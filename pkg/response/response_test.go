package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func run(method string, h func(c *gin.Context)) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", nil)
	h(c)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var r Response
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return r
}

func TestHandleMapsOutcomes(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{types.OutcomeNotFound, http.StatusNotFound, "NOT_FOUND"},
		{types.OutcomeItemNotFound, http.StatusNotFound, "ITEM_NOT_FOUND"},
		{types.OutcomeOwnListing, http.StatusConflict, "OWN_LISTING"},
		{types.OutcomeInsufficientFund, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{fmt.Errorf("wrapped: %w", types.OutcomeNoPlayersOnline), http.StatusUnprocessableEntity, "NO_PLAYERS_ONLINE"},
		{gorm.ErrRecordNotFound, http.StatusNotFound, ErrCodeNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		w := run(http.MethodGet, func(c *gin.Context) { Handle(c, nil, tt.err) })
		if w.Code != tt.status {
			t.Errorf("%v: status %d, want %d", tt.err, w.Code, tt.status)
			continue
		}
		if r := decode(t, w); r.Success || r.Error == nil || r.Error.Code != tt.code {
			t.Errorf("%v: body %+v", tt.err, r)
		}
	}
}

func TestOutcomeCarriesData(t *testing.T) {
	w := run(http.MethodPost, func(c *gin.Context) {
		Outcome(c, map[string]int{"amount": 3}, types.OutcomeCooldown)
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status %d", w.Code)
	}
	r := decode(t, w)
	if r.Data == nil || r.Error.Code != "COOLDOWN" {
		t.Fatalf("body %+v", r)
	}

	w = run(http.MethodPost, func(c *gin.Context) { Outcome(c, "ok", types.OutcomeSuccess) })
	if w.Code != http.StatusCreated || !decode(t, w).Success {
		t.Fatalf("success status %d", w.Code)
	}
}
