package model

// LocalSite partitions review requests into an isolated namespace served under
// /s/<name>/. Non-public sites are visible to members only.
type LocalSite struct {
	ID     int64
	Name   string
	Public bool
}
