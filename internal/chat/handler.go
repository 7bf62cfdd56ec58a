// handler.go
//
// HTTP handlers for conversations, messages, and user settings. All
// routes sit behind auth.RequireAuth, so every request carries a
// resolved Identity; ownership is still enforced per-query in the store.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/contently-ai/contently/internal/auth"
	"github.com/contently-ai/contently/internal/content"
	"github.com/contently-ai/contently/internal/llm"
	"github.com/contently-ai/contently/internal/store"
)

// Store is the persistence surface the chat handlers need.
// *store.PostgresStore satisfies it; tests swap in testutil.MockStore.
type Store interface {
	CreateConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID, title, platform, model string) (*store.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*store.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]store.Conversation, error)
	UpdateConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID, upd store.ConversationUpdate) (*store.Conversation, error)
	TouchConversation(ctx context.Context, id uuid.UUID) error
	DeleteConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	AppendMessage(ctx context.Context, id uuid.UUID, conversationID uuid.UUID, role, content string, thinking *string, metadata map[string]any) (*store.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]store.Message, error)
	GetOrCreateSettings(ctx context.Context, userID uuid.UUID) (*store.UserSettings, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, upd store.SettingsUpdate) (*store.UserSettings, error)
}

// ContentGenerator produces assistant replies for a conversation's history.
type ContentGenerator interface {
	Generate(ctx context.Context, model, platform string, history []store.Message) (*Generation, error)
}

// ChatHandler serves the conversation, message, and settings endpoints.
type ChatHandler struct {
	CS  Store
	Gen ContentGenerator
}

// --- wire shapes ---

type conversationOut struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"userId"`
	Title          string    `json:"title"`
	TargetPlatform string    `json:"targetPlatform"`
	Model          string    `json:"llmModel"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toConversationOut(c *store.Conversation) conversationOut {
	return conversationOut{
		ID:             c.ID,
		UserID:         c.UserID,
		Title:          c.Title,
		TargetPlatform: c.TargetPlatform,
		Model:          c.Model,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

type messageOut struct {
	ID             uuid.UUID      `json:"id"`
	ConversationID uuid.UUID      `json:"conversationId"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	Thinking       *string        `json:"thinkingContent,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

func toMessageOut(m *store.Message) messageOut {
	return messageOut{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		Thinking:       m.Thinking,
		Metadata:       m.Metadata,
		CreatedAt:      m.CreatedAt,
	}
}

func toMessageOuts(msgs []store.Message) []messageOut {
	out := make([]messageOut, len(msgs))
	for i := range msgs {
		out[i] = toMessageOut(&msgs[i])
	}
	return out
}

type settingsOut struct {
	UserID          uuid.UUID `json:"userId"`
	DefaultModel    string    `json:"defaultLlmModel"`
	DefaultPlatform string    `json:"defaultPlatform"`
	Theme           string    `json:"theme"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toSettingsOut(s *store.UserSettings) settingsOut {
	return settingsOut{
		UserID:          s.UserID,
		DefaultModel:    s.DefaultModel,
		DefaultPlatform: s.DefaultPlatform,
		Theme:           s.Theme,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// conversationFromRequest resolves the {id} URL param against the
// authenticated user. Malformed IDs and foreign conversations both come
// back as pgx.ErrNoRows so callers answer 404 either way.
func (h *ChatHandler) conversationFromRequest(r *http.Request, userID uuid.UUID) (*store.Conversation, error) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		return nil, pgx.ErrNoRows
	}
	return h.CS.GetConversation(r.Context(), id, userID)
}

// --- conversations ---

// ListConversations returns the user's conversations, most recently
// updated first.
// GET /api/conversations
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.Unauthorized(w, r, "unauthorized")
		return
	}

	convs, err := h.CS.ListConversations(r.Context(), ident.UserID)
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	out := make([]conversationOut, len(convs))
	for i := range convs {
		out[i] = toConversationOut(&convs[i])
	}
	auth.WriteJSON(w, r, http.StatusOK, map[string]any{"conversations": out})
}

// CreateConversation starts a new conversation. Platform and model are
// optional and fall back to the defaults.
// POST /api/conversations
func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.Unauthorized(w, r, "unauthorized")
		return
	}

	var req struct {
		Title          string `json:"title"`
		TargetPlatform string `json:"targetPlatform"`
		Model          string `json:"llmModel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.BadRequest(w, r, "invalid request body")
		return
	}
	if req.Title == "" {
		auth.BadRequest(w, r, "Title is required to create a new conversation")
		return
	}
	if req.TargetPlatform == "" {
		req.TargetPlatform = llm.DefaultPlatform
	}
	if req.Model == "" {
		req.Model = llm.DefaultModel
	}
	if !llm.ValidPlatform(req.TargetPlatform) {
		auth.BadRequest(w, r, "Invalid target platform")
		return
	}
	if !llm.ValidModel(req.Model) {
		auth.BadRequest(w, r, "Invalid llm model")
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	conv, err := h.CS.CreateConversation(r.Context(), id, ident.UserID, req.Title, req.TargetPlatform, req.Model)
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	logInfo(r, "conversation created", "conversation_id", conv.ID, "platform", conv.TargetPlatform)
	auth.WriteJSON(w, r, http.StatusCreated, map[string]any{"conversation": toConversationOut(conv)})
}

// GetConversation returns one conversation with its full message history.
// GET /api/conversations/{id}
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.Unauthorized(w, r, "unauthorized")
		return
	}

	conv, err := h.conversationFromRequest(r, ident.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		auth.NotFound(w, "Conversation not found")
		return
	}
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	msgs, err := h.CS.ListMessages(r.Context(), conv.ID)
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	auth.WriteJSON(w, r, http.StatusOK, map[string]any{
		"conversation": toConversationOut(conv),
		"messages":     toMessageOuts(msgs),
	})
}

// UpdateConversation applies a partial update to title, platform, or model.
// PUT /api/conversations/{id}
func (h *ChatHandler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.Unauthorized(w, r, "unauthorized")
		return
	}

	var req struct {
		Title          *string `json:"title"`
		TargetPlatform *string `json:"targetPlatform"`
		Model          *string `json:"llmModel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.BadRequest(w, r, "invalid request body")
		return
	}
	if req.TargetPlatform != nil && !llm.ValidPlatform(*req.TargetPlatform) {
		auth.BadRequest(w, r, "Invalid target platform")
		return
	}
	if req.Model != nil && !llm.ValidModel(*req.Model) {
		auth.BadRequest(w, r, "Invalid llm model")
		return
	}

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		auth.NotFound(w, "Conversation not found or unauthorized")
		return
	}
	conv, err := h.CS.UpdateConversation(r.Context(), id, ident.UserID, store.ConversationUpdate{
		Title:          req.Title,
		TargetPlatform: req.TargetPlatform,
		Model:          req.Model,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		auth.NotFound(w, "Conversation not found or unauthorized")
		return
	}
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	auth.WriteJSON(w, r, http.StatusOK, map[string]any{"conversation": toConversationOut(conv)})
}

// DeleteConversation removes a conversation and its messages.
// DELETE /api/conversations/{id}
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.Unauthorized(w, r, "unauthorized")
		return
	}

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		auth.NotFound(w, "Conversation not found or unauthorized")
		return
	}
	err = h.CS.DeleteConversation(r.Context(), id, ident.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		auth.NotFound(w, "Conversation not found or unauthorized")
		return
	}
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	logInfo(r, "conversation deleted", "conversation_id", id)
	auth.OK(w, "Conversation deleted successfully")
}

// --- messages ---

// ListMessages returns a conversation's messages in chronological order.
// GET /api/conversations/{id}/messages
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.Unauthorized(w, r, "unauthorized")
		return
	}

	conv, err := h.conversationFromRequest(r, ident.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		auth.NotFound(w, "Conversation not found")
		return
	}
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	msgs, err := h.CS.ListMessages(r.Context(), conv.ID)
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	auth.WriteJSON(w, r, http.StatusOK, map[string]any{"messages": toMessageOuts(msgs)})
}

// CreateMessage appends a message to a conversation. A user message also
// triggers generation of an assistant reply; if generation fails the user
// message is kept and the response says so instead of failing the request.
// POST /api/conversations/{id}/messages
func (h *ChatHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.Unauthorized(w, r, "unauthorized")
		return
	}

	conv, err := h.conversationFromRequest(r, ident.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		auth.NotFound(w, "Conversation not found")
		return
	}
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	var req struct {
		Content  string `json:"content"`
		Role     string `json:"role"`
		Model    string `json:"model"`
		Platform string `json:"platform"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.BadRequest(w, r, "invalid request body")
		return
	}
	if req.Content == "" || req.Role == "" {
		auth.BadRequest(w, r, "Content and role are required")
		return
	}
	switch req.Role {
	case "user", "assistant", "system":
	default:
		auth.BadRequest(w, r, "Invalid role")
		return
	}
	// Per-request overrides, else the conversation's own settings.
	if req.Model == "" {
		req.Model = conv.Model
	}
	if req.Platform == "" {
		req.Platform = conv.TargetPlatform
	}
	if !llm.ValidModel(req.Model) {
		auth.BadRequest(w, r, "Invalid llm model")
		return
	}
	if !llm.ValidPlatform(req.Platform) {
		auth.BadRequest(w, r, "Invalid target platform")
		return
	}

	msgID, err := uuid.NewV7()
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	userMsg, err := h.CS.AppendMessage(r.Context(), msgID, conv.ID, req.Role, req.Content, nil, map[string]any{
		"platform":       req.Platform,
		"model":          req.Model,
		"characterCount": utf8.RuneCountInString(req.Content),
	})
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	if err := h.CS.TouchConversation(r.Context(), conv.ID); err != nil {
		logWarn(r, "failed to bump conversation", "conversation_id", conv.ID, "err", err)
	}

	if req.Role != "user" {
		auth.WriteJSON(w, r, http.StatusCreated, map[string]any{"userMessage": toMessageOut(userMsg)})
		return
	}

	history, err := h.CS.ListMessages(r.Context(), conv.ID)
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	gen, err := h.Gen.Generate(r.Context(), req.Model, req.Platform, history)
	if err != nil {
		// The user's message is already persisted; surface the failure
		// in-band so the client can offer a retry.
		logError(r, "generation failed", "conversation_id", conv.ID, "model", req.Model, "err", err)
		auth.WriteJSON(w, r, http.StatusCreated, map[string]any{
			"userMessage": toMessageOut(userMsg),
			"aiMessage":   nil,
			"error":       "Failed to generate AI response",
		})
		return
	}

	// Analytics are snapshotted into the message metadata so history
	// fetches can surface them for past turns.
	analytics := content.Analyze(gen.Content, req.Platform)

	aiMsgID, err := uuid.NewV7()
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	aiMsg, err := h.CS.AppendMessage(r.Context(), aiMsgID, conv.ID, "assistant", gen.Content, gen.Thinking, map[string]any{
		"platform":          req.Platform,
		"model":             req.Model,
		"characterCount":    analytics.CharacterCount,
		"hashtags":          analytics.Hashtags,
		"emojis":            analytics.Emojis,
		"optimizationScore": analytics.OptimizationScore,
	})
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	if err := h.CS.TouchConversation(r.Context(), conv.ID); err != nil {
		logWarn(r, "failed to bump conversation", "conversation_id", conv.ID, "err", err)
	}

	logInfo(r, "assistant reply generated",
		"conversation_id", conv.ID,
		"model", req.Model,
		"platform", req.Platform,
		"score", analytics.OptimizationScore)

	auth.WriteJSON(w, r, http.StatusCreated, map[string]any{
		"userMessage": toMessageOut(userMsg),
		"aiMessage":   toMessageOut(aiMsg),
		"analytics":   analytics,
	})
}

// --- settings ---

// GetSettings returns the user's settings, creating defaults on first read.
// GET /api/user/settings
func (h *ChatHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.Unauthorized(w, r, "unauthorized")
		return
	}

	settings, err := h.CS.GetOrCreateSettings(r.Context(), ident.UserID)
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	auth.WriteJSON(w, r, http.StatusOK, map[string]any{"settings": toSettingsOut(settings)})
}

// UpdateSettings applies a partial settings update, creating the row if
// the user has none yet.
// PUT /api/user/settings
func (h *ChatHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		auth.Unauthorized(w, r, "unauthorized")
		return
	}

	var req struct {
		DefaultModel    *string `json:"defaultLlmModel"`
		DefaultPlatform *string `json:"defaultPlatform"`
		Theme           *string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.BadRequest(w, r, "invalid request body")
		return
	}
	if req.DefaultModel != nil && !llm.ValidModel(*req.DefaultModel) {
		auth.BadRequest(w, r, "Invalid llm model")
		return
	}
	if req.DefaultPlatform != nil && !llm.ValidPlatform(*req.DefaultPlatform) {
		auth.BadRequest(w, r, "Invalid target platform")
		return
	}
	if req.Theme != nil && *req.Theme != "light" && *req.Theme != "dark" {
		auth.BadRequest(w, r, "Invalid theme")
		return
	}

	settings, err := h.CS.UpdateSettings(r.Context(), ident.UserID, store.SettingsUpdate{
		DefaultModel:    req.DefaultModel,
		DefaultPlatform: req.DefaultPlatform,
		Theme:           req.Theme,
	})
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	auth.WriteJSON(w, r, http.StatusOK, map[string]any{"settings": toSettingsOut(settings)})
}
