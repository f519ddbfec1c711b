package databases

// go generate: mockery --name TimelineDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chakshi/chakshi-api/models"
)

const timelineName = "timelines"

// TimelineDatabase contains the methods to use with the timeline database
type TimelineDatabase interface {
	FindOne(context.Context, interface{}) (*models.TimelineEntry, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.TimelineEntry, error)
	InsertOne(context.Context, interface{}) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}) (int64, error)
	DeleteOne(context.Context, interface{}) (int64, error)
}

type timelineDatabase struct {
	db DatabaseHelper
}

// NewTimelineDatabase initializes a new instance of timeline database with the provided db connection
func NewTimelineDatabase(db DatabaseHelper) TimelineDatabase {
	return &timelineDatabase{
		db: db,
	}
}

func (c *timelineDatabase) FindOne(ctx context.Context, filter interface{}) (*models.TimelineEntry, error) {
	entry := &models.TimelineEntry{}
	err := c.db.Collection(timelineName).FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (c *timelineDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.TimelineEntry, error) {
	var entries []models.TimelineEntry
	cr, err := c.db.Collection(timelineName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *timelineDatabase) InsertOne(ctx context.Context, document interface{}) (InsertOneResultHelper, error) {
	return c.db.Collection(timelineName).InsertOne(ctx, document)
}

func (c *timelineDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := c.db.Collection(timelineName).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (c *timelineDatabase) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(timelineName).DeleteOne(ctx, filter)
}
