package databases

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the API relies on. The unique case
// number index is what turns a second case with the same number into a
// duplicate key error.
func EnsureIndexes(ctx context.Context, db DatabaseHelper) error {
	indexes := map[string][]mongo.IndexModel{
		caseName: {
			{Keys: bson.D{{Key: "caseNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "archived", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "hearings.date", Value: 1}}},
		},
		timelineName: {{Keys: bson.D{{Key: "caseId", Value: 1}, {Key: "createdAt", Value: 1}}}},
		paymentName: {
			{Keys: bson.D{{Key: "caseId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "orderId", Value: 1}}},
			// one row per gateway payment; manual rows carry no transaction id
			{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"transactionId": bson.M{"$type": "string", "$gt": ""}})},
		},
		noteName:     {{Keys: bson.D{{Key: "caseId", Value: 1}, {Key: "pinned", Value: -1}, {Key: "createdAt", Value: -1}}}},
		documentName: {{Keys: bson.D{{Key: "caseId", Value: 1}}}, {Keys: bson.D{{Key: "caseNumber", Value: 1}}}},
		partyName:    {{Keys: bson.D{{Key: "name", Value: 1}}}},
	}
	for _, coll := range []string{caseName, timelineName, paymentName, noteName, documentName, partyName} {
		if err := db.Collection(coll).CreateIndexes(ctx, indexes[coll]); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
