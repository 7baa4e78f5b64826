// Package api exposes the catalog service over HTTP: anonymous search and
// proxy streaming, plus a password-gated admin session for publishing.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
)

const sessionTTL = 12 * time.Hour

// Handler handles the catalog HTTP endpoints
type Handler struct {
	service        bookshelf.Service
	tokenAuth      *jwtauth.JWTAuth
	adminPassword  string
	maxUploadBytes int64
}

// Config options for the handler
type Config struct {
	AdminPassword  string
	SessionSecret  string
	MaxUploadBytes int64
}

// NewHandler creates a new catalog handler
func NewHandler(service bookshelf.Service, config Config) (*Handler, error) {
	if config.AdminPassword == "" {
		return nil, errors.New("admin password is required")
	}
	if config.SessionSecret == "" {
		return nil, errors.New("session secret is required")
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 300 << 20
	}

	return &Handler{
		service:        service,
		tokenAuth:      jwtauth.New("HS256", []byte(config.SessionSecret), nil),
		adminPassword:  config.AdminPassword,
		maxUploadBytes: config.MaxUploadBytes,
	}, nil
}

// Routes returns the router for the catalog endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(h.tokenAuth))

	r.Get("/", h.Listing)
	r.Post("/admin", h.Login)
	r.Get("/logout", h.Logout)
	r.Post("/upload", h.Upload)
	r.Get("/download/{category}/{fileName}", h.Download)
	r.Get("/view/{category}/{fileName}", h.View)
	r.Get("/uploads/{category}/{coverFileName}", h.Cover)

	return r
}

// BookView is one catalog entry in the listing response.
type BookView struct {
	FileName    string `json:"file_name"`
	DirectURL   string `json:"direct_url"`
	DetailsURL  string `json:"details_url,omitempty"`
	EmbedHTML   string `json:"embed_html,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
	ViewURL     string `json:"view_url"`
	DownloadURL string `json:"download_url"`
}

// CategoryListing groups the listing response per category.
type CategoryListing struct {
	Category bookshelf.Category `json:"category"`
	Books    []BookView         `json:"books"`
}

// ListingResponse is the response of the search endpoint.
type ListingResponse struct {
	Query      string            `json:"query,omitempty"`
	IsAdmin    bool              `json:"is_admin"`
	Categories []CategoryListing `json:"categories"`
}

// UploadResponse reports a successful publish.
type UploadResponse struct {
	Status string                `json:"status"`
	Book   *bookshelf.BookRecord `json:"book"`
}

// ErrorResponse is the structured error body.
type ErrorResponse struct {
	Error         string `json:"error"`
	ProviderError string `json:"provider_error,omitempty"`
}

// Listing serves the grouped catalog, filtered by the q query parameter.
func (h *Handler) Listing(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	grouped := h.service.SearchAll(query)

	resp := ListingResponse{
		Query:      query,
		IsAdmin:    h.isPrivileged(r),
		Categories: make([]CategoryListing, 0, len(grouped)),
	}
	for _, category := range h.service.Categories() {
		listing := CategoryListing{Category: category, Books: make([]BookView, 0, len(grouped[category]))}
		for _, book := range grouped[category] {
			listing.Books = append(listing.Books, bookView(category, book))
		}
		resp.Categories = append(resp.Categories, listing)
	}

	render.JSON(w, r, resp)
}

func bookView(category bookshelf.Category, book bookshelf.BookRecord) BookView {
	view := BookView{
		FileName:    book.FileName,
		DirectURL:   book.Locator.DirectURL,
		DetailsURL:  book.Locator.DetailsURL,
		EmbedHTML:   book.Locator.EmbedHTML,
		ViewURL:     fmt.Sprintf("/view/%s/%s", category, url.PathEscape(book.FileName)),
		DownloadURL: fmt.Sprintf("/download/%s/%s", category, url.PathEscape(book.FileName)),
	}
	if book.CoverImageName != "" {
		view.CoverURL = fmt.Sprintf("/uploads/%s/%s", category, url.PathEscape(book.CoverImageName))
	}
	return view
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login marks the caller privileged when the supplied password matches the
// configured admin secret. Accepts a form field or a JSON body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	password := r.PostFormValue("password")
	if password == "" && r.Header.Get("Content-Type") == "application/json" {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Error("Fail to decode login request", "err", err)
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "bad request"})
			return
		}
		password = req.Password
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(h.adminPassword)) != 1 {
		slog.Warn("Admin login rejected", "remote", r.RemoteAddr)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "incorrect password"})
		return
	}

	claims := map[string]interface{}{"admin": true}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, sessionTTL)
	_, tokenString, err := h.tokenAuth.Encode(claims)
	if err != nil {
		slog.Error("Fail to encode session token", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "internal error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	render.JSON(w, r, map[string]string{"status": "logged in as admin"})
}

// Logout clears the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	render.JSON(w, r, map[string]string{"status": "logged out"})
}

// Upload publishes a book from a multipart form: required "book" file,
// optional "cover" file, required "category" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	// Files above the memory threshold spill to disk, so large uploads are
	// never held in memory whole.
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		slog.Error("Fail to parse upload form", "err", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "malformed or oversized upload"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	book, bookHeader, err := r.FormFile("book")
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "book file is required"})
		return
	}
	defer book.Close()

	req := bookshelf.PublishRequest{
		Category:     bookshelf.Category(r.FormValue("category")),
		FileName:     bookHeader.Filename,
		Document:     book,
		IsPrivileged: h.isPrivileged(r),
	}

	cover, coverHeader, err := r.FormFile("cover")
	switch {
	case err == nil:
		defer cover.Close()
		req.Cover = cover
		req.CoverFileName = coverHeader.Filename
	case errors.Is(err, http.ErrMissingFile):
		// no cover supplied
	default:
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "malformed cover upload"})
		return
	}

	record, err := h.service.Publish(r.Context(), req)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	slog.Info("Book published", "category", req.Category, "file", record.FileName)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{Status: "book uploaded successfully", Book: record})
}

// Download proxy-streams a book with attachment disposition.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, bookshelf.DispositionAttachment)
}

// View proxy-streams a book with inline disposition.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, bookshelf.DispositionInline)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, mode bookshelf.Disposition) {
	category := bookshelf.Category(pathParam(r, "category"))
	fileName := pathParam(r, "fileName")

	dl, err := h.service.Retrieve(r.Context(), category, fileName, mode)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=\"%s\"", dl.Disposition, dl.FileName))
	if dl.Size >= 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", dl.Size))
	}

	if _, err := io.Copy(w, dl.Body); err != nil {
		// Headers are gone; all we can do is log the broken relay.
		slog.Error("Fail to relay book stream", "category", category, "file", fileName, "err", err)
	}
}

// Cover streams a locally stored cover image.
func (h *Handler) Cover(w http.ResponseWriter, r *http.Request) {
	category := bookshelf.Category(pathParam(r, "category"))
	fileName := pathParam(r, "coverFileName")

	dl, err := h.service.OpenCover(r.Context(), category, fileName)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.ContentType)
	if dl.Size >= 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", dl.Size))
	}

	if _, err := io.Copy(w, dl.Body); err != nil {
		slog.Error("Fail to relay cover stream", "category", category, "file", fileName, "err", err)
	}
}

func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var publishErr *bookshelf.PublishError
	var retrieveErr *bookshelf.RetrieveError

	switch {
	case errors.Is(err, bookshelf.ErrUnauthorized):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "admin session required"})
	case errors.Is(err, bookshelf.ErrInvalidCategory), errors.Is(err, bookshelf.ErrInvalidDocumentType):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
	case errors.Is(err, bookshelf.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
	case errors.As(err, &publishErr):
		slog.Error("Publish failed", "category", publishErr.Category, "file", publishErr.FileName, "err", err)
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, ErrorResponse{Error: "upload to remote store failed", ProviderError: publishErr.ProviderBody})
	case errors.As(err, &retrieveErr):
		slog.Error("Retrieve failed", "url", retrieveErr.URL, "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "remote store unavailable"})
	case errors.Is(err, bookshelf.ErrLocatorMissing):
		slog.Error("Record without direct link", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "file link missing in record"})
	default:
		slog.Error("Request failed", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "internal error"})
	}
}

// isPrivileged reports whether the request carries a valid admin session
// token. Verification errors simply mean anonymous.
func (h *Handler) isPrivileged(r *http.Request) bool {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return false
	}
	admin, _ := claims["admin"].(bool)
	return admin
}

// pathParam returns the decoded URL parameter; chi leaves escaped segments
// escaped when the raw path contains them.
func pathParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}
