package repositories

import (
	"context"
	"errors"
	"time"

	"lifeline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxContactsPerUser = 20

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrTooManyContacts = errors.New("emergency contact limit reached")
)

type ContactRepository struct {
	collection *mongo.Collection
}

func NewContactRepository(db *mongo.Database) *ContactRepository {
	return &ContactRepository{
		collection: db.Collection("emergency_contacts"),
	}
}

func (cr *ContactRepository) Create(ctx context.Context, contact *models.EmergencyContact) error {
	count, err := cr.collection.CountDocuments(ctx, bson.M{"userId": contact.UserID})
	if err != nil {
		return err
	}
	if count >= maxContactsPerUser {
		return ErrTooManyContacts
	}

	contact.ID = primitive.NewObjectID()
	contact.CreatedAt = time.Now()

	_, err = cr.collection.InsertOne(ctx, contact)
	return err
}

// ListByUser returns a user's contacts, oldest first
func (cr *ContactRepository) ListByUser(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := cr.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	contacts := []models.EmergencyContact{}
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (cr *ContactRepository) Delete(ctx context.Context, userID, contactID string) error {
	objectID, err := primitive.ObjectIDFromHex(contactID)
	if err != nil {
		return ErrContactNotFound
	}

	result, err := cr.collection.DeleteOne(ctx, bson.M{"_id": objectID, "userId": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrContactNotFound
	}
	return nil
}

// ForUser returns the directory view the notification fan-out reads
func (cr *ContactRepository) ForUser(userID string) *UserContacts {
	return &UserContacts{repo: cr, userID: userID}
}

// UserContacts is one user's contact list
type UserContacts struct {
	repo   *ContactRepository
	userID string
}

func (uc *UserContacts) ListContacts(ctx context.Context) ([]models.EmergencyContact, error) {
	return uc.repo.ListByUser(ctx, uc.userID)
}
