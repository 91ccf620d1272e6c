package model

// ReviewRequestStatus represents the lifecycle state of a review request.
type ReviewRequestStatus string

const (
	ReviewRequestPending   ReviewRequestStatus = "pending"
	ReviewRequestSubmitted ReviewRequestStatus = "submitted"
	ReviewRequestDiscarded ReviewRequestStatus = "discarded"
)

// FileDiffStatus describes what happened to a file in a diff revision.
type FileDiffStatus string

const (
	FileDiffModified FileDiffStatus = "modified"
	FileDiffAdded    FileDiffStatus = "added"
	FileDiffDeleted  FileDiffStatus = "deleted"
	FileDiffMoved    FileDiffStatus = "moved"
)

// IssueStatus tracks an issue raised by a comment. Empty when no issue was opened.
type IssueStatus string

const (
	IssueStatusNone     IssueStatus = ""
	IssueStatusOpen     IssueStatus = "open"
	IssueStatusResolved IssueStatus = "resolved"
	IssueStatusDropped  IssueStatus = "dropped"
)

// TextType is the markup a piece of text is expressed in.
type TextType string

const (
	TextTypePlain    TextType = "plain"
	TextTypeMarkdown TextType = "markdown"
	TextTypeHTML     TextType = "html"
)

// ParseTextType returns the TextType named by s and whether it is known.
func ParseTextType(s string) (TextType, bool) {
	switch TextType(s) {
	case TextTypePlain, TextTypeMarkdown, TextTypeHTML:
		return TextType(s), true
	}
	return "", false
}
