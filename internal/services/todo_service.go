package services

import (
	"log"
	"time"

	"todoapp/internal/models"
	"todoapp/internal/repositories"
	"todoapp/pkg/rabbitmq"

	"github.com/google/uuid"
)

// TodoService handles business logic related to todos: defaults,
// delegation to the repository and best-effort event publication.
type TodoService struct {
	todoRepo repositories.TodoRepository
	mqClient *rabbitmq.Client // RabbitMQ client, may be nil
}

// NewTodoService creates a new TodoService.
func NewTodoService(todoRepo repositories.TodoRepository, mqClient *rabbitmq.Client) *TodoService {
	return &TodoService{
		todoRepo: todoRepo,
		mqClient: mqClient,
	}
}

// ListTodos retrieves all todos owned by the user, newest update first.
func (s *TodoService) ListTodos(userID uint) ([]models.Todo, error) {
	return s.todoRepo.GetAllByUser(userID)
}

// CreateTodo creates a new todo for the user. Status and priority fall
// back to their defaults when omitted.
func (s *TodoService) CreateTodo(userID uint, input *models.TodoInput) (*models.Todo, error) {
	applyDefaults(input)
	todo, err := s.todoRepo.Create(userID, input)
	if err != nil {
		return nil, err
	}
	s.publishEvent(rabbitmq.TodoCreated, todo.ID, userID)
	return todo, nil
}

// UpdateTodo fully replaces the mutable fields of an owned todo.
func (s *TodoService) UpdateTodo(userID, todoID uint, input *models.TodoInput) (*models.Todo, error) {
	applyDefaults(input)
	todo, err := s.todoRepo.Update(userID, todoID, input)
	if err != nil {
		return nil, err
	}
	s.publishEvent(rabbitmq.TodoUpdated, todo.ID, userID)
	return todo, nil
}

// DeleteTodo removes an owned todo.
func (s *TodoService) DeleteTodo(userID, todoID uint) error {
	if err := s.todoRepo.Delete(userID, todoID); err != nil {
		return err
	}
	s.publishEvent(rabbitmq.TodoDeleted, todoID, userID)
	return nil
}

// applyDefaults fills in the status and priority defaults the API
// promises for omitted fields.
func applyDefaults(input *models.TodoInput) {
	if input.Status == "" {
		input.Status = models.StatusNotStarted
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
}

// publishEvent publishes a todo lifecycle event after a successful
// write. Publication is best-effort: a nil client skips it and a
// publish failure is only logged, never surfaced to the caller.
func (s *TodoService) publishEvent(eventType string, todoID, userID uint) {
	if s.mqClient == nil {
		log.Println("RabbitMQ client is not initialized. Skipping message publication.")
		return
	}

	event := rabbitmq.Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		TodoID:     todoID,
		UserID:     userID,
		OccurredAt: time.Now(),
	}
	if err := s.mqClient.PublishTodoEvent(event); err != nil {
		log.Printf("Warning: Failed to publish %s event for todo %d: %v", eventType, todoID, err)
	} else {
		log.Printf("Successfully published %s event for todo %d", eventType, todoID)
	}
}
