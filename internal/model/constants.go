package model

// MemberStatus organization membership state
type MemberStatus string

const (
	MemberStatusPending MemberStatus = "PENDING"
	MemberStatusActive  MemberStatus = "ACTIVE"
	MemberStatusLeft    MemberStatus = "LEFT"
)

func (s MemberStatus) String() string {
	return string(s)
}

// Defaults served to first-open clients before anything is persisted.
const (
	DefaultBoardTitle  = "Whiteboard"
	EmptyElements      = "[]"
	EmptyViewState     = "{}"
	EmptyEmbeddedFiles = "{}"
)
