package databases

// go generate: mockery --name NoteDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chakshi/chakshi-api/models"
)

const noteName = "notes"

// NoteDatabase contains the methods to use with the note database
type NoteDatabase interface {
	FindOne(context.Context, interface{}) (*models.Note, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Note, error)
	InsertOne(context.Context, interface{}) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}) (int64, error)
	DeleteOne(context.Context, interface{}) (int64, error)
}

type noteDatabase struct {
	db DatabaseHelper
}

// NewNoteDatabase initializes a new instance of note database with the provided db connection
func NewNoteDatabase(db DatabaseHelper) NoteDatabase {
	return &noteDatabase{
		db: db,
	}
}

func (c *noteDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Note, error) {
	note := &models.Note{}
	err := c.db.Collection(noteName).FindOne(ctx, filter).Decode(&note)
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (c *noteDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Note, error) {
	var notes []models.Note
	cr, err := c.db.Collection(noteName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&notes)
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *noteDatabase) InsertOne(ctx context.Context, document interface{}) (InsertOneResultHelper, error) {
	return c.db.Collection(noteName).InsertOne(ctx, document)
}

func (c *noteDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := c.db.Collection(noteName).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (c *noteDatabase) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(noteName).DeleteOne(ctx, filter)
}
