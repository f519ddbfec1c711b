package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chakshi/chakshi-api/databases"
	"github.com/chakshi/chakshi-api/databases/mocks"
)

func TestEnsureIndexes(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	created := map[string][]mongo.IndexModel{}
	for _, name := range []string{"cases", "timelines", "payments", "notes", "documents", "parties"} {
		name := name
		coll := &mocks.CollectionHelper{}
		coll.On("CreateIndexes", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { created[name] = args.Get(1).([]mongo.IndexModel) }).
			Return(nil)
		dbHelper.On("Collection", name).Return(coll)
	}

	require.NoError(t, databases.EnsureIndexes(context.Background(), dbHelper))

	var caseNumber, transactionID *mongo.IndexModel
	for i, idx := range created["cases"] {
		if idx.Keys.(bson.D)[0].Key == "caseNumber" {
			caseNumber = &created["cases"][i]
		}
	}
	for i, idx := range created["payments"] {
		if idx.Keys.(bson.D)[0].Key == "transactionId" {
			transactionID = &created["payments"][i]
		}
	}
	require.NotNil(t, caseNumber)
	assert.True(t, *caseNumber.Options.Unique)

	require.NotNil(t, transactionID)
	assert.True(t, *transactionID.Options.Unique)
	assert.Equal(t, bson.M{"transactionId": bson.M{"$type": "string", "$gt": ""}}, transactionID.Options.PartialFilterExpression)
}

func TestEnsureIndexesReturnsCollectionError(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	coll := &mocks.CollectionHelper{}
	coll.On("CreateIndexes", mock.Anything, mock.Anything).Return(errors.New("not authorized"))
	dbHelper.On("Collection", "cases").Return(coll)

	err := databases.EnsureIndexes(context.Background(), dbHelper)
	assert.EqualError(t, err, "create indexes on cases: not authorized")
}
