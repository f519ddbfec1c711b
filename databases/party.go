package databases

// go generate: mockery --name PartyDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chakshi/chakshi-api/models"
)

const partyName = "parties"

// PartyDatabase contains the methods to use with the party database
type PartyDatabase interface {
	FindOne(context.Context, interface{}) (*models.Party, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Party, error)
	InsertOne(context.Context, interface{}) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}) (int64, error)
	DeleteOne(context.Context, interface{}) (int64, error)
	CountDocuments(context.Context, interface{}) (int64, error)
}

type partyDatabase struct {
	db DatabaseHelper
}

// NewPartyDatabase initializes a new instance of party database with the provided db connection
func NewPartyDatabase(db DatabaseHelper) PartyDatabase {
	return &partyDatabase{
		db: db,
	}
}

func (c *partyDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Party, error) {
	party := &models.Party{}
	err := c.db.Collection(partyName).FindOne(ctx, filter).Decode(&party)
	if err != nil {
		return nil, err
	}
	return party, nil
}

func (c *partyDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Party, error) {
	var parties []models.Party
	cr, err := c.db.Collection(partyName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&parties)
	if err != nil {
		return nil, err
	}
	return parties, nil
}

func (c *partyDatabase) InsertOne(ctx context.Context, document interface{}) (InsertOneResultHelper, error) {
	return c.db.Collection(partyName).InsertOne(ctx, document)
}

func (c *partyDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := c.db.Collection(partyName).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (c *partyDatabase) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(partyName).DeleteOne(ctx, filter)
}

func (c *partyDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(partyName).CountDocuments(ctx, filter)
}
