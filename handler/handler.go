package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/oklog/ulid/v2"

	"sentinela-gateway/internal/domain"
	"sentinela-gateway/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	unknownClient     = "unknown"

	chatInternalError      = "Erro interno do servidor"
	complaintInternalError = "Erro interno do servidor. Tente novamente."
	newsInternalError      = "Erro ao buscar notícias"
)

type ChatUseCase interface {
	Send(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type ComplaintUseCase interface {
	Submit(ctx context.Context, in usecase.ComplaintInput) (usecase.ComplaintReceipt, error)
}

type NewsUseCase interface {
	Latest(ctx context.Context) (usecase.NewsDigest, error)
}

type Handler struct {
	chat       ChatUseCase
	complaints ComplaintUseCase
	news       NewsUseCase
	logger     *slog.Logger
	routes     map[string]route
}

type route struct {
	methods string
	serve   func(ctx context.Context, req events.APIGatewayProxyRequest, rc requestContext) events.APIGatewayProxyResponse
	verb    string
}

type requestContext struct {
	correlationID string
	methods       string
	logger        *slog.Logger
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
	Timestamp      string `json:"timestamp"`
}

type complaintResponse struct {
	OK       bool   `json:"ok"`
	ID       string `json:"id"`
	Protocol string `json:"protocol"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error    string `json:"error"`
	Fallback string `json:"fallback,omitempty"`
}

type newsErrorResponse struct {
	Error     string            `json:"error"`
	Items     []domain.NewsItem `json:"items"`
	Timestamp string            `json:"timestamp"`
}

func NewHandler(chat ChatUseCase, complaints ComplaintUseCase, news NewsUseCase, logger *slog.Logger) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if complaints == nil {
		return nil, errors.New("handler: complaint use case must not be nil")
	}
	if news == nil {
		return nil, errors.New("handler: news use case must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{chat: chat, complaints: complaints, news: news, logger: logger}
	h.routes = map[string]route{
		"/api/chatbot":   {verb: http.MethodPost, methods: "POST, OPTIONS", serve: h.handleChat},
		"/api/denuncias": {verb: http.MethodPost, methods: "POST, OPTIONS", serve: h.handleComplaint},
		"/api/news":      {verb: http.MethodGet, methods: "GET, OPTIONS", serve: h.handleNews},
	}
	return h, nil
}

// Handle routes an API Gateway proxy event. Errors are always rendered as
// JSON responses; the returned error is reserved for the Lambda runtime.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	rc := requestContext{correlationID: correlationID(req)}
	rc.logger = h.logger.With("correlationId", rc.correlationID)

	path := strings.TrimRight(req.Path, "/")
	r, ok := h.routes[path]
	if !ok {
		rc.methods = "POST, OPTIONS"
		return jsonResponse(http.StatusNotFound, errorResponse{Error: "Rota não encontrada"}, rc), nil
	}
	rc.methods = r.methods

	switch strings.ToUpper(req.HTTPMethod) {
	case http.MethodOptions:
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: baseHeaders(rc)}, nil
	case r.verb:
		return r.serve(ctx, req, rc), nil
	default:
		resp := jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "Método não permitido"}, rc)
		resp.Headers["Allow"] = r.methods
		return resp, nil
	}
}

func (h *Handler) handleChat(ctx context.Context, req events.APIGatewayProxyRequest, rc requestContext) events.APIGatewayProxyResponse {
	fields := decodeFields(req, rc.logger)
	in := usecase.ChatInput{
		ClientID:       clientID(req),
		Message:        stringField(fields, "message"),
		ConversationID: stringField(fields, "conversationId"),
	}
	out, err := h.chat.Send(ctx, in)
	if err != nil {
		status, ue := classify(err)
		logFailure(ctx, rc.logger, "chat request failed", status, err)
		if status >= http.StatusInternalServerError {
			return jsonResponse(status, errorResponse{Error: chatInternalError, Fallback: usecase.Fallback}, rc)
		}
		return jsonResponse(status, errorResponse{Error: ue.Message}, rc)
	}
	rc.logger.InfoContext(ctx, "chat request served", "conversationId", out.ConversationID)
	return jsonResponse(http.StatusOK, chatResponse{
		Response:       out.Response,
		ConversationID: out.ConversationID,
		Timestamp:      out.Timestamp,
	}, rc)
}

func (h *Handler) handleComplaint(ctx context.Context, req events.APIGatewayProxyRequest, rc requestContext) events.APIGatewayProxyResponse {
	fields := decodeFields(req, rc.logger)
	in := usecase.ComplaintInput{
		ClientID:    clientID(req),
		Description: stringField(fields, "description"),
		Subject:     stringField(fields, "subject"),
		Email:       stringField(fields, "email"),
		Phone:       stringField(fields, "phone"),
		Area:        stringField(fields, "area"),
	}
	receipt, err := h.complaints.Submit(ctx, in)
	if err != nil {
		status, ue := classify(err)
		logFailure(ctx, rc.logger, "complaint request failed", status, err)
		if status >= http.StatusInternalServerError {
			return jsonResponse(status, errorResponse{Error: complaintInternalError}, rc)
		}
		return jsonResponse(status, errorResponse{Error: ue.Message}, rc)
	}
	return jsonResponse(http.StatusCreated, complaintResponse{
		OK:       true,
		ID:       receipt.ID,
		Protocol: receipt.Protocol,
		Message:  usecase.ComplaintAccepted,
	}, rc)
}

func (h *Handler) handleNews(ctx context.Context, _ events.APIGatewayProxyRequest, rc requestContext) events.APIGatewayProxyResponse {
	digest, err := h.news.Latest(ctx)
	if err != nil {
		logFailure(ctx, rc.logger, "news request failed", http.StatusInternalServerError, err)
		return jsonResponse(http.StatusInternalServerError, newsErrorResponse{
			Error:     newsInternalError,
			Items:     []domain.NewsItem{},
			Timestamp: time.Now().UTC().Format(domain.TimeLayout),
		}, rc)
	}
	resp := jsonResponse(http.StatusOK, digest, rc)
	resp.Headers["Cache-Control"] = "public, max-age=600"
	return resp
}

// classify maps an error to its HTTP status. Anything that is not a
// *usecase.Error is an internal failure.
func classify(err error) (int, *usecase.Error) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError, &usecase.Error{Code: usecase.ErrorInternal, Err: err}
	}
	switch ue.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, ue
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, ue
	default:
		return http.StatusInternalServerError, ue
	}
}

func logFailure(ctx context.Context, logger *slog.Logger, msg string, status int, err error) {
	attrs := []any{"status", status, "error", err}
	var ue *usecase.Error
	if errors.As(err, &ue) {
		attrs = append(attrs, "code", ue.Code, "reason", ue.Reason)
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	logger.InfoContext(ctx, msg, attrs...)
}

// decodeFields reads the JSON object body. Anything unreadable is treated as
// an empty object so that validation reports the missing fields.
func decodeFields(req events.APIGatewayProxyRequest, logger *slog.Logger) map[string]any {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			logger.Info("undecodable base64 body", "error", err)
			return map[string]any{}
		}
		body = decoded
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return map[string]any{}
	}
	return fields
}

// stringField returns the named field when it is a JSON string.
func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func clientID(req events.APIGatewayProxyRequest) string {
	if fwd := header(req, "X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(header(req, "X-Real-Ip")); xri != "" {
		return xri
	}
	return unknownClient
}

func correlationID(req events.APIGatewayProxyRequest) string {
	if id := strings.TrimSpace(header(req, correlationHeader)); id != "" {
		return id
	}
	return ulid.Make().String()
}

// header looks a name up case-insensitively in both header maps.
func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, vs := range req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

func baseHeaders(rc requestContext) map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": rc.methods,
		"Access-Control-Allow-Headers": "Content-Type",
		correlationHeader:              rc.correlationID,
	}
}

func jsonResponse(status int, v any, rc requestContext) events.APIGatewayProxyResponse {
	headers := baseHeaders(rc)
	headers["Content-Type"] = "application/json; charset=utf-8"
	body, err := json.Marshal(v)
	if err != nil {
		rc.logger.Error("encode response", "error", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"` + chatInternalError + `"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(body)}
}
