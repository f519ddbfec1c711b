package databases

import (
	"regexp"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Paginate normalises a 1-based page and a limit, clamping the limit to
// maxLimit and defaulting both when unset.
func Paginate(page, limit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page <= 0 {
		page = 1
	}
	return page, limit
}

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// PageOptions returns find options selecting the given 1-based page
func PageOptions(page, limit int) *options.FindOptions {
	return newMongoPaginate(limit, page).getPaginatedOpts()
}

// DuplicateKeyError describes which unique field collided
type DuplicateKeyError struct {
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	return "duplicate value for " + e.Field + ": " + e.Value
}

var dupKeyPattern = regexp.MustCompile(`dup key: \{\s*"?([\w.]+)"?\s*:\s*"?(.*?)"?\s*\}`)

// AsDuplicateKey reports whether err is a mongo E11000 error and extracts the
// colliding field and value from the server message.
func AsDuplicateKey(err error) (*DuplicateKeyError, bool) {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return nil, false
	}
	d := &DuplicateKeyError{Field: "unknown"}
	if m := dupKeyPattern.FindStringSubmatch(err.Error()); m != nil {
		d.Field, d.Value = m[1], m[2]
	}
	return d, true
}
