package provider

import (
	"strconv"
	"time"
)

// ChangeRequest represents a pull request, merge request or change set.
type ChangeRequest struct {
	ID           int
	Title        string
	Description  string
	SourceBranch string
	TargetBranch string
	State        string // open, closed, merged
	Author       string
	AuthorEmail  string
	URL          string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Data returns the enrichment keys for the change request. Empty values are
// omitted.
func (cr *ChangeRequest) Data() map[string]string {
	data := make(map[string]string)
	put := func(k, v string) {
		if v != "" {
			data[k] = v
		}
	}
	put(KeyPRBranch, cr.SourceBranch)
	put(KeyTargetBranch, cr.TargetBranch)
	put(KeyPRURL, cr.URL)
	put(KeyPRAuthor, cr.Author)
	put(KeyPRAuthorEmail, cr.AuthorEmail)
	put(KeyPRTitle, cr.Title)
	put(KeyPRDescription, cr.Description)
	return data
}

// ParseID parses a numeric change request identifier.
func ParseID(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, &InvalidIDError{ID: id}
	}
	return n, nil
}

// InvalidIDError is returned for identifiers that are not change request
// numbers.
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return "invalid change request id " + strconv.Quote(e.ID)
}

// Sort orders and directions accepted by ListOpenChangeRequests.
const (
	SortCreated = "created"
	SortUpdated = "updated"
	Ascending   = "asc"
	Descending  = "desc"
)

// APITimeout bounds every request to a hosting provider's API.
const APITimeout = 60 * time.Second
