// Package mongostore persists two-factor records in MongoDB, one document
// per user keyed by the user ID.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

// DefaultCollection holds the two-factor documents.
const DefaultCollection = "two_factor"

// Store implements twofactor.Store on a MongoDB collection.
type Store struct {
	coll *mongo.Collection
}

// New returns a Store on collection name of db. An empty name uses
// DefaultCollection.
func New(db *mongo.Database, name string) *Store {
	if name == "" {
		name = DefaultCollection
	}
	return &Store{coll: db.Collection(name)}
}

var _ twofactor.Store = (*Store)(nil)

func unavailable(err error) error {
	return errors.Join(twofactor.ErrStorageUnavailable, err)
}

func (s *Store) Get(ctx context.Context, userID string) (*twofactor.Record, error) {
	var rec twofactor.Record
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, twofactor.ErrRecordNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return &rec, nil
}

// Enable upserts the document only while it is not enabled. When an enabled
// document exists the filter misses and the upsert collides on _id.
func (s *Store) Enable(ctx context.Context, rec *twofactor.Record) error {
	codes := rec.BackupCodes
	if codes == nil {
		codes = []twofactor.BackupCode{}
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": rec.UserID, "totpEnabled": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{
			"totpSecret":       rec.Secret,
			"totpEnabled":      true,
			"totpAlgorithm":    rec.Algorithm,
			"totpDigits":       rec.Digits,
			"totpPeriod":       rec.Period,
			"backupCodeHashes": codes,
			"lastUsedStep":     rec.LastUsedStep,
			"enabledAt":        rec.EnabledAt,
			"updatedAt":        rec.UpdatedAt,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return twofactor.ErrAlreadyEnabled
	}
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Disable(ctx context.Context, userID string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$set": bson.M{
				"totpSecret":       "",
				"totpEnabled":      false,
				"backupCodeHashes": []twofactor.BackupCode{},
				"updatedAt":        time.Now(),
			},
			"$unset": bson.M{"enabledAt": ""},
		},
	)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) ReplaceBackupCodes(ctx context.Context, userID string, codes []twofactor.BackupCode) error {
	if codes == nil {
		codes = []twofactor.BackupCode{}
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": userID, "totpEnabled": true},
		bson.M{"$set": bson.M{"backupCodeHashes": codes, "updatedAt": time.Now()}},
	)
	if err != nil {
		return unavailable(err)
	}
	if res.MatchedCount == 0 {
		return twofactor.ErrNotEnabled
	}
	return nil
}

// MarkBackupCodeUsed matches the unused entry with $elemMatch and flips it
// through the positional operator, so only one concurrent caller can win.
func (s *Store) MarkBackupCodeUsed(ctx context.Context, userID, codeID string, at time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{
			"_id":              userID,
			"totpEnabled":      true,
			"backupCodeHashes": bson.M{"$elemMatch": bson.M{"id": codeID, "used": false}},
		},
		bson.M{"$set": bson.M{
			"backupCodeHashes.$.used":   true,
			"backupCodeHashes.$.usedAt": at,
			"updatedAt":                 at,
		}},
	)
	if err != nil {
		return false, unavailable(err)
	}
	return res.ModifiedCount == 1, nil
}

func (s *Store) AdvanceStep(ctx context.Context, userID string, step int64) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": userID, "totpEnabled": true, "lastUsedStep": bson.M{"$lt": step}},
		bson.M{"$set": bson.M{"lastUsedStep": step}},
	)
	if err != nil {
		return false, unavailable(err)
	}
	return res.ModifiedCount == 1, nil
}
