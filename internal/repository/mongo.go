package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/numeshj/saranya-class/internal/model"
)

// Mongo is the document adapter. A user and its role assignments live in a
// single document; token records get their own collections.
type Mongo struct {
	users   *mongo.Collection
	refresh *mongo.Collection
	resets  *mongo.Collection
}

func NewMongo(client *mongo.Client, database string) *Mongo {
	db := client.Database(database)
	return &Mongo{
		users:   db.Collection("users"),
		refresh: db.Collection("refresh_tokens"),
		resets:  db.Collection("password_reset_tokens"),
	}
}

// EnsureIndexes creates the unique and lookup indexes the adapter relies
// on. Email uniqueness in particular is enforced here, not in code.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.refresh.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tokenHash", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.resets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tokenHash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type userDoc struct {
	ID                  string     `bson:"_id"`
	Email               string     `bson:"email"`
	PasswordHash        string     `bson:"passwordHash"`
	FirstName           string     `bson:"firstName"`
	LastName            string     `bson:"lastName"`
	Roles               []string   `bson:"roles"`
	Active              bool       `bson:"isActive"`
	LastLoginAt         *time.Time `bson:"lastLoginAt,omitempty"`
	PasswordChangedAt   *time.Time `bson:"passwordChangedAt,omitempty"`
	RefreshTokenVersion int        `bson:"refreshTokenVersion"`
	TwoFactorSecret     *string    `bson:"twoFactorSecret,omitempty"`
	CreatedAt           time.Time  `bson:"createdAt"`
	UpdatedAt           time.Time  `bson:"updatedAt"`
}

func (d userDoc) toModel() model.User {
	return model.User{
		ID:                  d.ID,
		Email:               d.Email,
		PasswordHash:        d.PasswordHash,
		FirstName:           d.FirstName,
		LastName:            d.LastName,
		Roles:               d.Roles,
		Active:              d.Active,
		LastLoginAt:         d.LastLoginAt,
		PasswordChangedAt:   d.PasswordChangedAt,
		RefreshTokenVersion: d.RefreshTokenVersion,
		TwoFactorSecret:     d.TwoFactorSecret,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

type refreshDoc struct {
	ID         string     `bson:"_id"`
	UserID     string     `bson:"userId"`
	TokenHash  string     `bson:"tokenHash"`
	UserAgent  *string    `bson:"userAgent,omitempty"`
	IPAddress  *string    `bson:"ip,omitempty"`
	CreatedAt  time.Time  `bson:"createdAt"`
	ExpiresAt  time.Time  `bson:"expiresAt"`
	RevokedAt  *time.Time `bson:"revokedAt,omitempty"`
	ReplacedBy *string    `bson:"replacedBy,omitempty"`
}

func (d refreshDoc) toModel() model.RefreshToken {
	return model.RefreshToken{
		ID:         d.ID,
		UserID:     d.UserID,
		TokenHash:  d.TokenHash,
		UserAgent:  d.UserAgent,
		IPAddress:  d.IPAddress,
		CreatedAt:  d.CreatedAt,
		ExpiresAt:  d.ExpiresAt,
		RevokedAt:  d.RevokedAt,
		ReplacedBy: d.ReplacedBy,
	}
}

type resetDoc struct {
	ID        string     `bson:"_id"`
	UserID    string     `bson:"userId"`
	TokenHash string     `bson:"tokenHash"`
	CreatedAt time.Time  `bson:"createdAt"`
	ExpiresAt time.Time  `bson:"expiresAt"`
	UsedAt    *time.Time `bson:"usedAt,omitempty"`
}

func (s *Mongo) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	return doc.toModel(), nil
}

func (s *Mongo) FindUserByID(ctx context.Context, id string) (model.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	return doc.toModel(), nil
}

func (s *Mongo) CreateUser(ctx context.Context, user NewUser) (model.User, error) {
	now := time.Now().UTC()
	doc := userDoc{
		ID:           uuid.NewString(),
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Roles:        append([]string{}, user.Roles...),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, err
	}
	return doc.toModel(), nil
}

func (s *Mongo) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	result, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"lastLoginAt": at, "updatedAt": at},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error {
	result, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"passwordHash": passwordHash, "passwordChangedAt": at, "updatedAt": at},
		"$inc": bson.M{"refreshTokenVersion": 1},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) SetTwoFactorSecret(ctx context.Context, userID, secret string) error {
	result, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"twoFactorSecret": secret, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) CreateRefreshToken(ctx context.Context, token model.RefreshToken) error {
	doc := refreshDoc{
		ID:         token.ID,
		UserID:     token.UserID,
		TokenHash:  token.TokenHash,
		UserAgent:  token.UserAgent,
		IPAddress:  token.IPAddress,
		CreatedAt:  token.CreatedAt,
		ExpiresAt:  token.ExpiresAt,
		RevokedAt:  token.RevokedAt,
		ReplacedBy: token.ReplacedBy,
	}
	_, err := s.refresh.InsertOne(ctx, doc)
	return err
}

func (s *Mongo) FindActiveRefreshToken(ctx context.Context, userID, tokenHash string) (model.RefreshToken, error) {
	var doc refreshDoc
	err := s.refresh.FindOne(ctx, bson.M{
		"userId":    userID,
		"tokenHash": tokenHash,
		"revokedAt": nil,
		"expiresAt": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.RefreshToken{}, ErrNotFound
		}
		return model.RefreshToken{}, err
	}
	return doc.toModel(), nil
}

func (s *Mongo) RevokeRefreshToken(ctx context.Context, id string, at time.Time) error {
	result, err := s.refresh.UpdateOne(ctx, bson.M{"_id": id, "revokedAt": nil}, bson.M{
		"$set": bson.M{"revokedAt": at},
	})
	if err != nil {
		return err
	}
	if result.ModifiedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) LinkReplacement(ctx context.Context, id, replacementID string) error {
	_, err := s.refresh.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"replacedBy": replacementID},
	})
	return err
}

func (s *Mongo) RevokeRefreshTokenByHash(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := s.refresh.UpdateOne(ctx, bson.M{"tokenHash": tokenHash, "revokedAt": nil}, bson.M{
		"$set": bson.M{"revokedAt": at},
	})
	return err
}

func (s *Mongo) CreatePasswordResetToken(ctx context.Context, token model.PasswordResetToken) error {
	doc := resetDoc{
		ID:        token.ID,
		UserID:    token.UserID,
		TokenHash: token.TokenHash,
		CreatedAt: token.CreatedAt,
		ExpiresAt: token.ExpiresAt,
		UsedAt:    token.UsedAt,
	}
	_, err := s.resets.InsertOne(ctx, doc)
	return err
}

func (s *Mongo) ConsumePasswordResetToken(ctx context.Context, tokenHash string, at time.Time) (string, error) {
	var doc resetDoc
	err := s.resets.FindOneAndUpdate(ctx, bson.M{
		"tokenHash": tokenHash,
		"usedAt":    nil,
		"expiresAt": bson.M{"$gt": at},
	}, bson.M{
		"$set": bson.M{"usedAt": at},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrNotFound
		}
		return "", err
	}
	return doc.UserID, nil
}
