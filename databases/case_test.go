package databases_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/databases"
	"github.com/chakshi/chakshi-api/databases/mocks"
	"github.com/chakshi/chakshi-api/models"
)

func TestNewCaseDatabase(t *testing.T) {
	_ = os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	_ = os.Setenv("DB_NAME", "test")
	conf, err := config.New()
	require.NoError(t, err)

	dbClient, err := databases.NewClient(conf)
	assert.NoError(t, err)

	db := databases.NewDatabase(conf, dbClient)

	caseDB := databases.NewCaseDatabase(db)

	assert.NotEmpty(t, caseDB)
}

func TestCaseDatabase_FindOne(t *testing.T) {

	// define variables for interfaces
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperErr databases.SingleResultHelper
	var srHelperCorrect databases.SingleResultHelper

	// set interfaces implementation to mocked structures
	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperErr = &mocks.SingleResultHelper{}
	srHelperCorrect = &mocks.SingleResultHelper{}

	srHelperErr.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(errors.New("mocked-error"))

	srHelperCorrect.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Case)
		(*arg).CaseNumber = "CIV/2025/099"
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": true}).
		Return(srHelperErr)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"error": false}).
		Return(srHelperCorrect)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "cases").Return(collectionHelper)

	caseDB := databases.NewCaseDatabase(dbHelper)

	legalCase, err := caseDB.FindOne(context.Background(), bson.M{"error": true})

	assert.Empty(t, legalCase)
	assert.EqualError(t, err, "mocked-error")

	legalCase, err = caseDB.FindOne(context.Background(), bson.M{"error": false})

	assert.Equal(t, &models.Case{CaseNumber: "CIV/2025/099"}, legalCase)
	assert.NoError(t, err)
}

func TestCaseDatabase_Find(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	crHelperErr := &mocks.CursorHelper{}
	crHelperCorrect := &mocks.CursorHelper{}

	crHelperErr.On("Decode", mock.Anything).Return(errors.New("mocked-error"))
	crHelperCorrect.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Case)
		*arg = []models.Case{{CaseNumber: "A/1"}}
	})

	collectionHelper.On("Find", context.Background(), bson.M{"error": true}).Return(crHelperErr, nil)
	collectionHelper.On("Find", context.Background(), bson.M{"error": false}).Return(crHelperCorrect, nil)
	collectionHelper.On("Find", context.Background(), bson.M{"broken": true}).Return(nil, errors.New("find failed"))
	dbHelper.On("Collection", "cases").Return(collectionHelper)

	caseDB := databases.NewCaseDatabase(dbHelper)

	cases, err := caseDB.Find(context.Background(), bson.M{"error": true})
	assert.Empty(t, cases)
	assert.EqualError(t, err, "mocked-error")

	cases, err = caseDB.Find(context.Background(), bson.M{"broken": true})
	assert.Empty(t, cases)
	assert.EqualError(t, err, "find failed")

	cases, err = caseDB.Find(context.Background(), bson.M{"error": false})
	assert.NoError(t, err)
	assert.Equal(t, []models.Case{{CaseNumber: "A/1"}}, cases)
}

func TestCaseDatabase_UpdateOneReturnsMatchedCount(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	filter := bson.M{"_id": "x", "caseHistory._id": "y"}
	update := bson.M{"$set": bson.M{"caseHistory.$.completed": true}}
	collectionHelper.On("UpdateOne", context.Background(), filter, update).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 0}, nil)
	collectionHelper.On("UpdateOne", context.Background(), bson.M{"error": true}, update).
		Return(nil, errors.New("mocked-error"))
	dbHelper.On("Collection", "cases").Return(collectionHelper)

	caseDB := databases.NewCaseDatabase(dbHelper)

	matched, err := caseDB.UpdateOne(context.Background(), filter, update)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), matched)

	matched, err = caseDB.UpdateOne(context.Background(), bson.M{"error": true}, update)
	assert.EqualError(t, err, "mocked-error")
	assert.Zero(t, matched)
}
