package model

import "time"

// DiffComment is a comment on a range of lines of a file diff. When
// InterFileDiffID is set, the comment was made while viewing the interdiff
// between the file diff and that later file diff.
type DiffComment struct {
	ID              int64
	ReviewID        int64
	FileDiffID      int64
	InterFileDiffID *int64
	FirstLine       int
	NumLines        int
	Text            string
	RichText        bool
	IssueOpened     bool
	IssueStatus     IssueStatus
	ExternalID      string
	Timestamp       time.Time

	// Read-side fields populated by list queries, not persisted on the comment row.
	Username          string
	ReviewPublic      bool
	InterdiffRevision int
}

// TextType returns the markup the stored text is written in.
func (c DiffComment) TextType() TextType {
	if c.RichText {
		return TextTypeMarkdown
	}
	return TextTypePlain
}
