// Package httphandler is the HTTP driving adapter serving the web API.
package httphandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewboard/internal/application"
	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

const fileDiffCommentsPath = "/api/review-requests/{review_request_id}/diffs/{diff_revision}/files/{filediff_id}/diff-comments/{$}"

// Handler is the HTTP driving adapter that serves the web API.
type Handler struct {
	comments *application.CommentService
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(comments *application.CommentService, logger *slog.Logger) *Handler {
	return &Handler{
		comments: comments,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request ID, logging, metrics, recovery and authentication middleware.
func NewServeMux(h *Handler, auth *application.AuthService, metrics *Metrics, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	for _, prefix := range []string{"", "/s/{local_site}"} {
		mux.HandleFunc("GET "+prefix+fileDiffCommentsPath, h.ListFileDiffComments)
		mux.HandleFunc(prefix+fileDiffCommentsPath, h.MethodNotAllowed)
	}
	mux.HandleFunc("GET /api/health", h.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	// Recovery innermost so panics are caught before metrics and logging.
	// Metrics sits outside auth so rejected logins are counted; the routed
	// pattern is carried back out by routeCapture.
	wrapped := routeCapture(recoveryMiddleware(logger, mux))
	wrapped = authMiddleware(auth, logger, wrapped)
	wrapped = metricsMiddleware(metrics, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// ListFileDiffComments returns the comments on one file diff of one diff
// revision that the requesting user may see.
func (h *Handler) ListFileDiffComments(w http.ResponseWriter, r *http.Request) {
	rrID, errRR := strconv.ParseInt(r.PathValue("review_request_id"), 10, 64)
	revision, errRev := strconv.Atoi(r.PathValue("diff_revision"))
	fileDiffID, errFD := strconv.ParseInt(r.PathValue("filediff_id"), 10, 64)
	if errRR != nil || errRev != nil || errFD != nil {
		writeServiceError(w, h.logger, application.ErrDoesNotExist)
		return
	}

	query := r.URL.Query()
	fields := map[string][]string{}
	line := intFilter(query, "line", fields)
	interdiff := intFilter(query, "interdiff-revision", fields)
	if len(fields) > 0 {
		writeInvalidForm(w, fields)
		return
	}

	force, _ := model.ParseTextType(query.Get("force-text-type"))

	page, err := h.comments.ListFileDiffComments(r.Context(), application.FileDiffCommentsRequest{
		LocalSite:         r.PathValue("local_site"),
		ReviewRequestID:   rrID,
		DiffRevision:      revision,
		FileDiffID:        fileDiffID,
		Viewer:            viewerFrom(r.Context()),
		Line:              line,
		InterdiffRevision: interdiff,
		Start:             intParam(query, "start"),
		MaxResults:        intParam(query, "max-results"),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	root := apiRoot(r)
	items := make([]DiffCommentResponse, 0, len(page.Comments))
	for _, c := range page.Comments {
		items = append(items, toDiffCommentResponse(c, page.ReviewRequest, page.FileDiff, revision, root, force))
	}

	contentType := jsonContentType
	if strings.Contains(r.Header.Get("Accept"), FileDiffCommentsMimetype) {
		contentType = FileDiffCommentsMimetype
	}

	writeJSONAs(w, http.StatusOK, contentType, DiffCommentListResponse{
		Stat:         "ok",
		DiffComments: items,
		TotalResults: page.Total,
		Links:        listLinks(r, page.Start, page.MaxResults, page.Total),
	})
}

// MethodNotAllowed rejects every method but GET on read-only resources.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Stat: "ok",
		Time: time.Now().UTC().Format(time.RFC3339),
	})
}

// intFilter parses an optional integer query parameter, recording a field
// error when it is present but not an integer.
func intFilter(query url.Values, name string, fields map[string][]string) *int {
	raw := query.Get(name)
	if raw == "" {
		return nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		fields[name] = append(fields[name], fmt.Sprintf("%q is not a valid integer", raw))
		return nil
	}
	return &v
}

// intParam parses a pagination parameter, treating bad values as unset.
func intParam(query url.Values, name string) int {
	v, err := strconv.Atoi(query.Get(name))
	if err != nil {
		return 0
	}
	return v
}

// apiRoot returns the absolute API root for the request, including the local
// site prefix.
func apiRoot(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	root := scheme + "://" + r.Host
	if site := r.PathValue("local_site"); site != "" {
		root += "/s/" + url.PathEscape(site)
	}
	return root + "/api"
}

// listLinks builds self/next/prev links for a paginated list.
func listLinks(r *http.Request, start, maxResults, total int) map[string]Link {
	base := *r.URL
	base.Scheme = "http"
	if r.TLS != nil {
		base.Scheme = "https"
	}
	base.Host = r.Host

	pageURL := func(pageStart int) string {
		u := base
		q := u.Query()
		q.Set("start", strconv.Itoa(pageStart))
		q.Set("max-results", strconv.Itoa(maxResults))
		u.RawQuery = q.Encode()
		return u.String()
	}

	links := map[string]Link{
		"self": {Method: http.MethodGet, Href: base.String()},
	}
	// Compared by subtraction so a huge start cannot overflow.
	if start < total-maxResults {
		links["next"] = Link{Method: http.MethodGet, Href: pageURL(start + maxResults)}
	}
	if start > 0 {
		links["prev"] = Link{Method: http.MethodGet, Href: pageURL(max(start-maxResults, 0))}
	}

	return links
}
