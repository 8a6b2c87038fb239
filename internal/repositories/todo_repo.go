package repositories

import (
	"todoapp/internal/models"
)

// TodoRepository defines the interface for todo data access.
// Mutations run inside a single transaction per call; failures after
// the transaction opens roll everything back, so a caller never sees
// a partially applied write.
type TodoRepository interface {
	GetAllByUser(userID uint) ([]models.Todo, error)
	Create(userID uint, input *models.TodoInput) (*models.Todo, error)
	Update(userID, todoID uint, input *models.TodoInput) (*models.Todo, error)
	Delete(userID, todoID uint) error
}
