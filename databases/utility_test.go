package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chakshi/chakshi-api/databases"
	"github.com/chakshi/chakshi-api/databases/mocks"
)

func TestAsDuplicateKeyExtractsFieldAndValue(t *testing.T) {
	err := mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: chakshi.cases index: caseNumber_1 dup key: { caseNumber: "CIV/2025/099" }`,
	}}}

	dup, ok := databases.AsDuplicateKey(err)

	assert.True(t, ok)
	assert.Equal(t, "caseNumber", dup.Field)
	assert.Equal(t, "CIV/2025/099", dup.Value)
}

func TestAsDuplicateKeyIgnoresOtherErrors(t *testing.T) {
	_, ok := databases.AsDuplicateKey(errors.New("boom"))
	assert.False(t, ok)

	_, ok = databases.AsDuplicateKey(nil)
	assert.False(t, ok)
}

func TestPaginate(t *testing.T) {
	page, limit := databases.Paginate(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	page, limit = databases.Paginate(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)

	opts := databases.PageOptions(3, 10)
	assert.Equal(t, int64(10), *opts.Limit)
	assert.Equal(t, int64(20), *opts.Skip)
}

func TestEnsureIndexesCreatesAll(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("CreateIndexes", context.Background(), mock.Anything).Return(nil)
	dbHelper.On("Collection", mock.Anything).Return(collectionHelper)

	assert.NoError(t, databases.EnsureIndexes(context.Background(), dbHelper))
	collectionHelper.AssertNumberOfCalls(t, "CreateIndexes", 6)
}

func TestEnsureIndexesStopsOnError(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("CreateIndexes", context.Background(), mock.Anything).Return(errors.New("mocked-error"))
	dbHelper.On("Collection", "cases").Return(collectionHelper)

	err := databases.EnsureIndexes(context.Background(), dbHelper)
	assert.EqualError(t, err, "create indexes on cases: mocked-error")
}
