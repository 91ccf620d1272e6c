package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ericfisherdev/reviewboard/internal/application"
	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/richtext"
)

// Resource mimetypes advertised for file diff comments.
const (
	FileDiffCommentsMimetype = "application/vnd.reviewboard.org.file-diff-comments+json"
	FileDiffCommentMimetype  = "application/vnd.reviewboard.org.file-diff-comment+json"
)

// API error codes carried in the "err" object of failed responses.
const (
	codeDoesNotExist     = 100
	codePermissionDenied = 101
	codeNotLoggedIn      = 103
	codeLoginFailed      = 104
	codeInvalidFormData  = 105
)

const jsonContentType = "application/json; charset=utf-8"

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	writeJSONAs(w, status, jsonContentType, v)
}

// writeJSONAs is writeJSON with an explicit Content-Type.
func writeJSONAs(w http.ResponseWriter, status int, contentType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", jsonContentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"stat":"fail","err":{"msg":"internal server error"}}`))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a failed-response envelope.
func writeError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, errorResponse{
		Stat: "fail",
		Err:  apiError{Code: code, Msg: message},
	})
}

// writeInvalidForm reports per-field validation errors.
func writeInvalidForm(w http.ResponseWriter, fields map[string][]string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Stat:   "fail",
		Err:    apiError{Code: codeInvalidFormData, Msg: "One or more fields had errors"},
		Fields: fields,
	})
}

// writeServiceError maps application errors onto API errors. Anything
// unrecognized is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, application.ErrDoesNotExist):
		writeError(w, http.StatusNotFound, codeDoesNotExist, "Object does not exist")
	case errors.Is(err, application.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, codePermissionDenied, "You don't have permission for this")
	case errors.Is(err, application.ErrNotLoggedIn):
		w.Header().Set("WWW-Authenticate", `Basic realm="Web API"`)
		writeError(w, http.StatusUnauthorized, codeNotLoggedIn, "You are not logged in")
	case errors.Is(err, application.ErrLoginFailed):
		w.Header().Set("WWW-Authenticate", `Basic realm="Web API"`)
		writeError(w, http.StatusUnauthorized, codeLoginFailed, "The username or password was not correct")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, 0, "internal server error")
	}
}

// errorResponse is the standard failed-response body.
type errorResponse struct {
	Stat   string              `json:"stat"`
	Err    apiError            `json:"err"`
	Fields map[string][]string `json:"fields,omitempty"`
}

type apiError struct {
	Code int    `json:"code,omitempty"`
	Msg  string `json:"msg"`
}

// Link is a hyperlink to a related resource.
type Link struct {
	Method string `json:"method"`
	Href   string `json:"href"`
	Title  string `json:"title,omitempty"`
}

// DiffCommentResponse is the JSON representation of a single diff comment.
type DiffCommentResponse struct {
	ID          int64           `json:"id"`
	FirstLine   int             `json:"first_line"`
	NumLines    int             `json:"num_lines"`
	Text        string          `json:"text"`
	TextType    string          `json:"text_type"`
	IssueOpened bool            `json:"issue_opened"`
	IssueStatus string          `json:"issue_status"`
	Public      bool            `json:"public"`
	Timestamp   string          `json:"timestamp"`
	ExtraData   map[string]any  `json:"extra_data"`
	Links       map[string]Link `json:"links"`
}

// DiffCommentListResponse is one page of diff comments.
type DiffCommentListResponse struct {
	Stat         string                `json:"stat"`
	DiffComments []DiffCommentResponse `json:"diff_comments"`
	TotalResults int                   `json:"total_results"`
	Links        map[string]Link       `json:"links"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Stat string `json:"stat"`
	Time string `json:"time"`
}

// toDiffCommentResponse converts a domain DiffComment to its JSON representation.
// root is the API root of the serving site, e.g. "http://host/s/team/api".
func toDiffCommentResponse(c model.DiffComment, rr model.ReviewRequest, fd model.FileDiff, revision int, root string, force model.TextType) DiffCommentResponse {
	text, textType := richtext.Normalize(c.Text, c.RichText, force)
	rrURL := fmt.Sprintf("%s/review-requests/%d", root, rr.DisplayID())
	reviewURL := fmt.Sprintf("%s/reviews/%d/", rrURL, c.ReviewID)

	links := map[string]Link{
		"self":     {Method: http.MethodGet, Href: fmt.Sprintf("%sdiff-comments/%d/", reviewURL, c.ID)},
		"user":     {Method: http.MethodGet, Href: fmt.Sprintf("%s/users/%s/", root, url.PathEscape(c.Username)), Title: c.Username},
		"review":   {Method: http.MethodGet, Href: reviewURL},
		"filediff": {Method: http.MethodGet, Href: fmt.Sprintf("%s/diffs/%d/files/%d/", rrURL, revision, fd.ID), Title: fileDiffTitle(fd)},
	}
	if c.InterFileDiffID != nil {
		links["interfilediff"] = Link{
			Method: http.MethodGet,
			Href:   fmt.Sprintf("%s/diffs/%d/files/%d/", rrURL, c.InterdiffRevision, *c.InterFileDiffID),
		}
	}

	return DiffCommentResponse{
		ID:          c.ID,
		FirstLine:   c.FirstLine,
		NumLines:    c.NumLines,
		Text:        text,
		TextType:    string(textType),
		IssueOpened: c.IssueOpened,
		IssueStatus: string(c.IssueStatus),
		Public:      c.ReviewPublic,
		Timestamp:   c.Timestamp.UTC().Format(time.RFC3339),
		ExtraData:   map[string]any{},
		Links:       links,
	}
}

func fileDiffTitle(fd model.FileDiff) string {
	return fmt.Sprintf("%s (%s) -> %s (%s)", fd.SourceFile, fd.SourceRevision, fd.DestFile, fd.DestDetail)
}
