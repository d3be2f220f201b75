package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hrplatform/go-notification-engine/internal/domain"
	"github.com/hrplatform/go-notification-engine/internal/shared/mongodb"
)

const (
	usersCollection     = "users"
	employeesCollection = "employees"
)

// DirectoryRepository reads the employee/user directory collections owned by
// the wider HR platform. The engine only ever reads them.
type DirectoryRepository struct {
	client *mongodb.MongoClient
}

// NewDirectoryRepository creates a new repository
func NewDirectoryRepository(client *mongodb.MongoClient) *DirectoryRepository {
	return &DirectoryRepository{client: client}
}

// FindActiveUsers returns every active user account
func (r *DirectoryRepository) FindActiveUsers(ctx context.Context) ([]domain.User, error) {
	cursor, err := r.client.Collection(usersCollection).Find(ctx, bson.M{"isActive": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []domain.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FindActiveEmployeesByDepartment returns the active employees of a department
func (r *DirectoryRepository) FindActiveEmployeesByDepartment(ctx context.Context, departmentID string) ([]domain.Employee, error) {
	filter := bson.M{"departmentId": departmentID, "isActive": true}

	cursor, err := r.client.Collection(employeesCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var employees []domain.Employee
	if err = cursor.All(ctx, &employees); err != nil {
		return nil, err
	}
	return employees, nil
}

// FindUsersByRole returns active users holding any of the given roles
func (r *DirectoryRepository) FindUsersByRole(ctx context.Context, roles []string) ([]domain.User, error) {
	filter := bson.M{"isActive": true, "role": bson.M{"$in": roles}}

	cursor, err := r.client.Collection(usersCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []domain.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FindUserAccountForEmployee returns the user account linked to an employee,
// or nil when the employee has none.
func (r *DirectoryRepository) FindUserAccountForEmployee(ctx context.Context, employeeID string) (*domain.User, error) {
	objectID, err := primitive.ObjectIDFromHex(employeeID)
	if err != nil {
		return nil, err
	}

	var employee domain.Employee
	err = r.client.Collection(employeesCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&employee)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	if employee.UserID == nil {
		return nil, nil
	}

	var user domain.User
	err = r.client.Collection(usersCollection).FindOne(ctx, bson.M{"_id": *employee.UserID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindUsersByIDs returns the users for the given hex IDs. Unknown and
// malformed IDs are skipped, not errors: explicit user targeting may carry
// stale entries.
func (r *DirectoryRepository) FindUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objectIDs = append(objectIDs, objectID)
	}
	if len(objectIDs) == 0 {
		return nil, nil
	}

	cursor, err := r.client.Collection(usersCollection).Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []domain.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
