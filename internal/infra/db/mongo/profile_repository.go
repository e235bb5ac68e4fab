package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainprofiles "staybook/internal/domain/profiles"
)

type ProfileRepository struct {
	col *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{col: db.Collection("host_profiles")}
}

func (r *ProfileRepository) ByUser(ctx context.Context, userID string) (*domainprofiles.HostProfile, error) {
	var doc profileDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainprofiles.ErrProfileNotFound
		}
		return nil, err
	}
	return &domainprofiles.HostProfile{
		UserID: doc.UserID,
		Bank: domainprofiles.BankDetails{
			BankName:      doc.Bank.BankName,
			AccountNumber: doc.Bank.AccountNumber,
			AccountHolder: doc.Bank.AccountHolder,
			Branch:        doc.Bank.Branch,
		},
		CreatedAt: timestampToTime(doc.CreatedAt),
		UpdatedAt: timestampToTime(doc.UpdatedAt),
	}, nil
}

func (r *ProfileRepository) Save(ctx context.Context, p *domainprofiles.HostProfile) error {
	doc := profileDocument{
		UserID: p.UserID,
		Bank: bankDocument{
			BankName:      p.Bank.BankName,
			AccountNumber: p.Bank.AccountNumber,
			AccountHolder: p.Bank.AccountHolder,
			Branch:        p.Bank.Branch,
		},
		CreatedAt: timeToTimestamp(p.CreatedAt),
		UpdatedAt: timeToTimestamp(p.UpdatedAt),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.UserID}, doc, options.Replace().SetUpsert(true))
	return err
}

type profileDocument struct {
	UserID    string       `bson:"_id"`
	Bank      bankDocument `bson:"bank"`
	CreatedAt int64        `bson:"created_at"`
	UpdatedAt int64        `bson:"updated_at"`
}

type bankDocument struct {
	BankName      string `bson:"bank_name"`
	AccountNumber string `bson:"account_number"`
	AccountHolder string `bson:"account_holder"`
	Branch        string `bson:"branch"`
}
