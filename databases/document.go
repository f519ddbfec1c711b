package databases

// go generate: mockery --name DocumentDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chakshi/chakshi-api/models"
)

const documentName = "documents"

// DocumentDatabase contains the methods to use with the document database
type DocumentDatabase interface {
	FindOne(context.Context, interface{}) (*models.Document, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Document, error)
	InsertOne(context.Context, interface{}) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}) (int64, error)
	DeleteOne(context.Context, interface{}) (int64, error)
	CountDocuments(context.Context, interface{}) (int64, error)
}

type documentDatabase struct {
	db DatabaseHelper
}

// NewDocumentDatabase initializes a new instance of document database with the provided db connection
func NewDocumentDatabase(db DatabaseHelper) DocumentDatabase {
	return &documentDatabase{
		db: db,
	}
}

func (c *documentDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Document, error) {
	document := &models.Document{}
	err := c.db.Collection(documentName).FindOne(ctx, filter).Decode(&document)
	if err != nil {
		return nil, err
	}
	return document, nil
}

func (c *documentDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Document, error) {
	var documents []models.Document
	cr, err := c.db.Collection(documentName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&documents)
	if err != nil {
		return nil, err
	}
	return documents, nil
}

func (c *documentDatabase) InsertOne(ctx context.Context, document interface{}) (InsertOneResultHelper, error) {
	return c.db.Collection(documentName).InsertOne(ctx, document)
}

func (c *documentDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := c.db.Collection(documentName).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (c *documentDatabase) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(documentName).DeleteOne(ctx, filter)
}

func (c *documentDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(documentName).CountDocuments(ctx, filter)
}
