package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reliefmesh/reliefmesh/internal/logging"
	"github.com/reliefmesh/reliefmesh/pkg/models"
)

type fakeInitiator struct {
	id  string
	err error

	gotRegion string
	gotEvent  string
}

func (f *fakeInitiator) Initiate(_ context.Context, regionName, eventName string) (string, error) {
	f.gotRegion = regionName
	f.gotEvent = eventName
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) StatusResponse {
	t.Helper()
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestIntakeHandler(t *testing.T) {
	t.Run("success returns request id", func(t *testing.T) {
		e := echo.New()
		init := &fakeInitiator{id: "R1"}
		NewIntakeHandler(init, logging.NewNop()).Register(e)

		rec := postJSON(e, "/", `{"region_name":"Cebu Province, Philippines","event_name":"Typhoon Kalmaegi"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeStatus(t, rec)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "R1", resp.RequestID)
		assert.Equal(t, "Cebu Province, Philippines", init.gotRegion)
	})

	t.Run("validation failure maps to 400", func(t *testing.T) {
		e := echo.New()
		init := &fakeInitiator{err: models.Validationf("too long")}
		NewIntakeHandler(init, logging.NewNop()).Register(e)

		rec := postJSON(e, "/", `{"region_name":"x","event_name":"y"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeStatus(t, rec)
		assert.Equal(t, "error", resp.Status)
		assert.Empty(t, resp.RequestID)
	})

	t.Run("downstream failure maps to 500 without internal detail", func(t *testing.T) {
		e := echo.New()
		init := &fakeInitiator{err: errors.New("pgx: connection refused")}
		NewIntakeHandler(init, logging.NewNop()).Register(e)

		rec := postJSON(e, "/", `{"region_name":"x","event_name":"y"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeStatus(t, rec)
		assert.Equal(t, "error", resp.Status)
		assert.NotContains(t, resp.Message, "pgx")
	})

	t.Run("non-JSON body maps to 400", func(t *testing.T) {
		e := echo.New()
		NewIntakeHandler(&fakeInitiator{id: "R1"}, logging.NewNop()).Register(e)

		rec := postJSON(e, "/", `not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func pushBody(t *testing.T, payload string) string {
	t.Helper()
	env := map[string]any{
		"message": map[string]any{
			"data":      base64.StdEncoding.EncodeToString([]byte(payload)),
			"messageId": "m1",
		},
		"subscription": "topic-damage-analysis-trigger",
	}
	body, err := json.Marshal(env)
	require.NoError(t, err)
	return string(body)
}

func TestPushHandler(t *testing.T) {
	t.Run("well-formed envelope runs the stage", func(t *testing.T) {
		e := echo.New()
		var gotID string
		run := func(_ context.Context, id string) error { gotID = id; return nil }
		NewPushHandler("analysis", run, logging.NewNop()).Register(e)

		rec := postJSON(e, "/", pushBody(t, `{"request_id":"R1"}`))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "R1", gotID)
		assert.Equal(t, "success", decodeStatus(t, rec).Status)
	})

	t.Run("stage failure still acknowledges with 200", func(t *testing.T) {
		e := echo.New()
		run := func(_ context.Context, _ string) error { return errors.New("synthesis failed") }
		NewPushHandler("analysis", run, logging.NewNop()).Register(e)

		rec := postJSON(e, "/", pushBody(t, `{"request_id":"R1"}`))
		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeStatus(t, rec)
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "R1", resp.RequestID)
	})

	t.Run("missing message yields 400 so the bus redelivers", func(t *testing.T) {
		e := echo.New()
		ran := false
		run := func(_ context.Context, _ string) error { ran = true; return nil }
		NewPushHandler("analysis", run, logging.NewNop()).Register(e)

		rec := postJSON(e, "/", `{"not_a_message": true}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, ran)
	})

	t.Run("invalid base64 yields 400", func(t *testing.T) {
		e := echo.New()
		NewPushHandler("analysis", func(_ context.Context, _ string) error { return nil }, logging.NewNop()).Register(e)

		rec := postJSON(e, "/", `{"message":{"data":"%%%not-base64%%%"}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("payload without request_id yields 400", func(t *testing.T) {
		e := echo.New()
		NewPushHandler("analysis", func(_ context.Context, _ string) error { return nil }, logging.NewNop()).Register(e)

		rec := postJSON(e, "/", pushBody(t, `{"something_else":"x"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("keepalive without data yields 204", func(t *testing.T) {
		e := echo.New()
		ran := false
		run := func(_ context.Context, _ string) error { ran = true; return nil }
		NewPushHandler("analysis", run, logging.NewNop()).Register(e)

		rec := postJSON(e, "/", `{"message":{}}`)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, ran)
	})
}
