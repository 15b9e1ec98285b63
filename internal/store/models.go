package store

import "time"

type Account struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Sharing preference applied when an account adds a new record to a Person.
const (
	SharingAskEveryTime = "ASK_EVERY_TIME"
	SharingAlwaysShare  = "ALWAYS_SHARE"
)

type Person struct {
	ID                string
	OwnerAccountID    string
	LinkedAccountID   *string
	Name              string
	Relation          string
	Email             string
	Phone             string
	DateOfBirth       *time.Time
	Gender            string
	Birthday          string
	AvatarColor       string
	Theme             string
	SharingPreference string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProfileSnapshot is the immutable copy of a Person's display fields taken at
// collaboration-request creation time, shown to the recipient before any read
// grant exists. Stored as JSONB on the request row.
type ProfileSnapshot struct {
	Name        string     `json:"name"`
	Relation    string     `json:"relation,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	Birthday    string     `json:"birthday,omitempty"`
	AvatarColor string     `json:"avatarColor,omitempty"`
	Theme       string     `json:"theme,omitempty"`
}

const (
	RequestPending  = "PENDING"
	RequestAccepted = "ACCEPTED"
	RequestDeclined = "DECLINED"
)

type CollaborationRequest struct {
	ID                 string
	PersonID           string
	RequesterAccountID string
	TargetAccountID    *string
	TargetEmail        string
	InviteToken        string
	Snapshot           ProfileSnapshot
	Status             string
	MergedIntoPersonID *string
	CreatedAt          time.Time
	ResolvedAt         *time.Time
}

// ProfileLink marks two Person rows (owned by different accounts) as the same
// logical person. Undirected in meaning, stored directed; readers check both
// orderings. Soft-deleted only.
type ProfileLink struct {
	ID                     string
	ProfileAID             string
	ProfileBID             string
	AccountAID             string
	AccountBID             string
	IsActive               bool
	CollaborationRequestID *string
	CreatedAt              time.Time
	RevokedAt              *time.Time
}

// PersonShare grants one account read/contribute access to one Person.
// AccountID may be unset when the grant was made to an email that has not
// matched an account yet. Revocation is a soft delete: item shares keyed to a
// revoked share keep resolving for the grantee, new grants do not.
type PersonShare struct {
	ID           string
	PersonID     string
	AccountID    *string
	AccountEmail string
	CreatedAt    time.Time
	RevokedAt    *time.Time
}

const (
	RecordTask    = "TODO"
	RecordHealth  = "HEALTH"
	RecordNote    = "NOTE"
	RecordFinance = "FINANCE"
)

type ItemShare struct {
	ID                 string
	RecordType         string
	RecordID           string
	PersonShareID      string
	CreatedByAccountID string
	CreatedAt          time.Time
}

type Task struct {
	ID                 string
	PersonID           string
	Title              string
	Notes              string
	Done               bool
	DueDate            *time.Time
	CreatedByAccountID string
	SharedFromName     string
	SharedFromEmail    string
	CreatedAt          time.Time
}

type HealthEntry struct {
	ID                 string
	PersonID           string
	Title              string
	Kind               string
	Value              string
	Unit               string
	RecordedAt         *time.Time
	CreatedByAccountID string
	SharedFromName     string
	SharedFromEmail    string
	CreatedAt          time.Time
}

type Note struct {
	ID                 string
	PersonID           string
	Title              string
	Body               string
	Pinned             bool
	CreatedByAccountID string
	SharedFromName     string
	SharedFromEmail    string
	CreatedAt          time.Time
}

type FinancialEntry struct {
	ID                 string
	PersonID           string
	Title              string
	AmountCents        int64
	Currency           string
	Category           string
	OccurredAt         *time.Time
	CreatedByAccountID string
	SharedFromName     string
	SharedFromEmail    string
	CreatedAt          time.Time
}
