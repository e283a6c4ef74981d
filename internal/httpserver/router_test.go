package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type stubProxy struct {
	resp  events.APIGatewayProxyResponse
	err   error
	event events.APIGatewayProxyRequest
	calls int
}

func (s *stubProxy) Handle(_ context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	s.event = req
	s.calls++
	return s.resp, s.err
}

func newTestRouter(p ProxyHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(p, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRouter_ForwardsRequest(t *testing.T) {
	p := &stubProxy{resp: events.APIGatewayProxyResponse{
		StatusCode: http.StatusCreated,
		Headers:    map[string]string{"Content-Type": "application/json", "Access-Control-Allow-Origin": "*"},
		Body:       `{"ok":true}`,
	}}
	r := newTestRouter(p)

	req := httptest.NewRequest(http.MethodPost, "/api/denuncias?src=form", strings.NewReader(`{"description":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "198.51.100.9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"ok":true}`, w.Body.String())
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	require.Equal(t, http.MethodPost, p.event.HTTPMethod)
	require.Equal(t, "/api/denuncias", p.event.Path)
	require.Equal(t, `{"description":"x"}`, p.event.Body)
	require.Equal(t, "form", p.event.QueryStringParameters["src"])
	require.Equal(t, "198.51.100.9", p.event.Headers["X-Forwarded-For"])
	require.Empty(t, p.event.Headers["X-Real-Ip"])
}

func TestRouter_SetsRealIPWhenMissing(t *testing.T) {
	p := &stubProxy{resp: events.APIGatewayProxyResponse{StatusCode: http.StatusOK}}
	r := newTestRouter(p)

	req := httptest.NewRequest(http.MethodOptions, "/api/chatbot", nil)
	req.RemoteAddr = "192.0.2.44:51234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "192.0.2.44", p.event.Headers["X-Real-Ip"])
}

func TestRouter_HandlerError(t *testing.T) {
	p := &stubProxy{err: errors.New("boom")}
	r := newTestRouter(p)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/news", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Erro interno do servidor")
}

func TestRouter_Ping(t *testing.T) {
	p := &stubProxy{}
	r := newTestRouter(p)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Zero(t, p.calls)
}
