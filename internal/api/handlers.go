package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dhabedank/fin-advisor/internal/auth"
	"github.com/dhabedank/fin-advisor/internal/chat"
	"github.com/dhabedank/fin-advisor/internal/llm"
	"github.com/dhabedank/fin-advisor/internal/recommend"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var reg auth.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.cfg.Auth.Register(r.Context(), reg)
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, auth.ErrUserExists):
		writeError(w, http.StatusBadRequest, "Username already registered")
	case err != nil:
		h.log.Error("failed to register user", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
	default:
		writeJSON(w, http.StatusCreated, user)
	}
}

// token accepts OAuth2 password-style form fields or a JSON body.
func (h *handlers) token(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		creds.Username = r.PostFormValue("username")
		creds.Password = r.PostFormValue("password")
	}

	token, err := h.cfg.Auth.Login(r.Context(), creds.Username, creds.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUserDisabled):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
	case err != nil:
		h.log.Error("failed to log in", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
	default:
		writeJSON(w, http.StatusOK, token)
	}
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	h.cfg.Auth.Logout(auth.BearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) chatMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	h.handleChat(w, r, user.UserID)
}

func (h *handlers) simpleChat(w http.ResponseWriter, r *http.Request) {
	h.handleChat(w, r, GuestUserID)
}

// handleChat always answers 200 with a reply once the input is readable.
func (h *handlers) handleChat(w http.ResponseWriter, r *http.Request, userID string) {
	log := h.log.With("user_id", userID)

	message, image, err := h.readChatInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.cfg.Chat.ProcessMessage(r.Context(), userID, message, image)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is required")
	case err != nil:
		log.Error("chat processing failed", "error", err)
		writeJSON(w, http.StatusOK, chat.Reply{Response: chat.ErrorReply, Recommendations: []recommend.Recommendation{}})
	default:
		writeJSON(w, http.StatusOK, reply)
	}
}

// readChatInput reads the message and optional image from a multipart form,
// a urlencoded form or a JSON body. An unreadable image is dropped.
func (h *handlers) readChatInput(w http.ResponseWriter, r *http.Request) (string, *llm.Image, error) {
	if isJSON(r) {
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, h.cfg.MaxUploadBytes)).Decode(&body); err != nil {
			return "", nil, errors.New("invalid JSON body")
		}
		return body.Message, nil, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return "", nil, errors.New("invalid form body")
		}
		return r.PostFormValue("message"), nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("invalid multipart body: %w", err)
	}
	message := r.FormValue("message")

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return message, nil, nil
	}
	if err != nil {
		h.log.Warn("failed to read uploaded image, continuing without it", "error", err)
		return message, nil, nil
	}
	defer file.Close()

	image, err := readImage(file)
	if err != nil {
		h.log.Warn("ignoring uploaded image", "error", err)
		return message, nil, nil
	}
	return message, image, nil
}

func readImage(r io.Reader) (*llm.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("image is empty")
	}
	mediaType := http.DetectContentType(data)
	switch mediaType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return nil, fmt.Errorf("unsupported image type %q", mediaType)
	}
	return &llm.Image{MediaType: mediaType, Data: base64.StdEncoding.EncodeToString(data)}, nil
}

func (h *handlers) chatHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := h.cfg.Chat.History(r.Context(), user.UserID, limit)
	if err != nil {
		h.log.Error("failed to load chat history", "user_id", user.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load chat history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": turns})
}

func (h *handlers) recommendations(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	risk := ""
	if h.cfg.Profiles != nil {
		if tol := h.cfg.Profiles.Investments(user.UserID).RiskTolerance; tol != nil {
			risk = *tol
		}
	}
	recs := h.cfg.Catalog.Recommend(r.URL.Query().Get("q"), risk, recommend.DefaultLimit)
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (h *handlers) profileContext(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":     user.UserID,
		"meta_prompt": h.cfg.Prompts.Generate(r.Context(), user.UserID),
	})
}

func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return strings.EqualFold(mediaType, "application/json")
}
