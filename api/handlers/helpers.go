package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/form/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chakshi/chakshi-api/api"
	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/databases"
	"github.com/chakshi/chakshi-api/models"
)

var formDecoder = form.NewDecoder()

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// parseObjectID validates a 24 hex id taken from the route and writes a 400
// naming the parameter when it is malformed
func parseObjectID(w http.ResponseWriter, name, value string) (primitive.ObjectID, bool) {
	if !objectIDPattern.MatchString(value) {
		config.ErrorStatus(fmt.Sprintf("invalid %s format", name), http.StatusBadRequest, w, nil)
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		config.ErrorStatus(fmt.Sprintf("invalid %s format", name), http.StatusBadRequest, w, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return false
	}
	return true
}

func decodeQuery(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := formDecoder.Decode(v, r.URL.Query()); err != nil {
		config.ErrorStatus("invalid query parameters", http.StatusBadRequest, w, err)
		return false
	}
	return true
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseDate accepts RFC3339 timestamps and plain calendar dates
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func now() primitive.DateTime {
	return primitive.NewDateTimeFromTime(time.Now())
}

// missingFields lists the names whose values are blank
func missingFields(fields map[string]string) []string {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func requireFields(w http.ResponseWriter, fields map[string]string) bool {
	if missing := missingFields(fields); len(missing) > 0 {
		config.ErrorStatus("missing required fields: "+strings.Join(missing, ", "), http.StatusBadRequest, w, nil)
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// findParentCase loads the case a sub-resource is attached to. It writes
// 404 when the case does not exist.
func findParentCase(w http.ResponseWriter, r *http.Request, db databases.CaseDatabase, caseID primitive.ObjectID) (*models.Case, bool) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := db.FindOne(ctx, bson.M{"_id": caseID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("case not found", http.StatusNotFound, w, nil)
			return nil, false
		}
		config.ErrorStatus("failed to find case", http.StatusInternalServerError, w, err)
		return nil, false
	}
	return c, true
}

// writeFindError maps a FindOne failure onto 404 or 500
func writeFindError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus(what+" not found", http.StatusNotFound, w, nil)
		return
	}
	config.ErrorStatus("failed to find "+what, http.StatusInternalServerError, w, err)
}

// writeWriteError reports duplicate keys as a 400 naming the field
func writeWriteError(w http.ResponseWriter, verb, what string, err error) {
	if d, ok := databases.AsDuplicateKey(err); ok {
		config.ErrorCode(http.StatusBadRequest, w, models.ErrorDetail{
			Code:    models.ErrCodeDuplicateKey,
			Message: fmt.Sprintf("a %s with this %s already exists", what, d.Field),
			Field:   d.Field,
			Value:   d.Value,
		})
		return
	}
	config.ErrorStatus("failed to "+verb+" "+what, http.StatusInternalServerError, w, err)
}

func principalName(r *http.Request) string {
	if p, ok := api.PrincipalFromContext(r.Context()); ok {
		return p.Name
	}
	return ""
}

func principalID(r *http.Request) string {
	if p, ok := api.PrincipalFromContext(r.Context()); ok {
		return p.ID
	}
	return ""
}
