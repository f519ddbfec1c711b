package databases

// go generate: mockery --name PaymentDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chakshi/chakshi-api/models"
)

const paymentName = "payments"

// PaymentDatabase contains the methods to use with the payment database
type PaymentDatabase interface {
	FindOne(context.Context, interface{}) (*models.Payment, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Payment, error)
	InsertOne(context.Context, interface{}) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}) (int64, error)
	UpdateMany(context.Context, interface{}, interface{}) (int64, error)
	DeleteOne(context.Context, interface{}) (int64, error)
	TotalsByStatus(context.Context, interface{}) ([]models.StatusTotal, error)
}

type paymentDatabase struct {
	db DatabaseHelper
}

// NewPaymentDatabase initializes a new instance of payment database with the provided db connection
func NewPaymentDatabase(db DatabaseHelper) PaymentDatabase {
	return &paymentDatabase{
		db: db,
	}
}

func (c *paymentDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Payment, error) {
	payment := &models.Payment{}
	err := c.db.Collection(paymentName).FindOne(ctx, filter).Decode(&payment)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (c *paymentDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Payment, error) {
	var payments []models.Payment
	cr, err := c.db.Collection(paymentName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&payments)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (c *paymentDatabase) InsertOne(ctx context.Context, document interface{}) (InsertOneResultHelper, error) {
	return c.db.Collection(paymentName).InsertOne(ctx, document)
}

func (c *paymentDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := c.db.Collection(paymentName).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (c *paymentDatabase) UpdateMany(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	res, err := c.db.Collection(paymentName).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (c *paymentDatabase) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(paymentName).DeleteOne(ctx, filter)
}

// TotalsByStatus groups the payments matching filter by status and sums
// their amounts
func (c *paymentDatabase) TotalsByStatus(ctx context.Context, filter interface{}) ([]models.StatusTotal, error) {
	pipeline := bson.A{
		bson.M{"$match": filter},
		bson.M{"$group": bson.M{
			"_id":    "$status",
			"amount": bson.M{"$sum": "$amount"},
			"count":  bson.M{"$sum": 1},
		}},
		bson.M{"$sort": bson.M{"_id": 1}},
	}
	cr, err := c.db.Collection(paymentName).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var totals []models.StatusTotal
	if err := cr.Decode(&totals); err != nil {
		return nil, err
	}
	return totals, nil
}
