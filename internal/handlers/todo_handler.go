package handlers

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"todoapp/internal/models"
	"todoapp/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// httpURLPattern matches the URL shape the API accepts.
var httpURLPattern = regexp.MustCompile(`^https?://.+`)

// validHTTPURL is the custom validator rule behind the "httpurl" tag.
func validHTTPURL(fl validator.FieldLevel) bool {
	return httpURLPattern.MatchString(fl.Field().String())
}

// TodoHandler handles HTTP requests for todos.
type TodoHandler struct {
	todoService *services.TodoService
	validate    *validator.Validate
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(todoService *services.TodoService) *TodoHandler {
	validate := validator.New()
	// Registration only fails for an empty tag or nil func.
	if err := validate.RegisterValidation("httpurl", validHTTPURL); err != nil {
		log.Printf("Failed to register httpurl validation: %v", err)
	}
	return &TodoHandler{
		todoService: todoService,
		validate:    validate,
	}
}

// RegisterRoutes registers the todo routes with the Fiber app. All of
// them sit behind the auth middleware.
func (h *TodoHandler) RegisterRoutes(router fiber.Router) {
	todoRoutes := router.Group("/todos")
	todoRoutes.Get("/", h.HandleListTodos)
	todoRoutes.Post("/", h.HandleCreateTodo)
	todoRoutes.Put("/:id", h.HandleUpdateTodo)
	todoRoutes.Delete("/:id", h.HandleDeleteTodo)
}

// HandleListTodos retrieves all todos owned by the authenticated user.
func (h *TodoHandler) HandleListTodos(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	todos, err := h.todoService.ListTodos(userID)
	if err != nil {
		log.Printf("Error listing todos for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not retrieve todos",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"todos":   todos,
	})
}

// HandleCreateTodo creates a new todo for the authenticated user.
func (h *TodoHandler) HandleCreateTodo(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	input, respErr := h.parseAndValidateInput(c)
	if input == nil {
		return respErr
	}

	todo, err := h.todoService.CreateTodo(userID, input)
	if err != nil {
		log.Printf("Error creating todo for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not create todo",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"todo":    todo,
	})
}

// HandleUpdateTodo fully replaces an owned todo.
func (h *TodoHandler) HandleUpdateTodo(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	todoID, err := c.ParamsInt("id")
	if err != nil || todoID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid todo ID",
		})
	}

	input, respErr := h.parseAndValidateInput(c)
	if input == nil {
		return respErr
	}

	todo, err := h.todoService.UpdateTodo(userID, uint(todoID), input)
	if err != nil {
		log.Printf("Error updating todo %d for user %d: %v", todoID, userID, err)
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Todo not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not update todo",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"todo":    todo,
	})
}

// HandleDeleteTodo deletes an owned todo.
func (h *TodoHandler) HandleDeleteTodo(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	todoID, err := c.ParamsInt("id")
	if err != nil || todoID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid todo ID",
		})
	}

	if err := h.todoService.DeleteTodo(userID, uint(todoID)); err != nil {
		log.Printf("Error deleting todo %d for user %d: %v", todoID, userID, err)
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Todo not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not delete todo",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Todo deleted",
	})
}

// parseAndValidateInput binds the request body to a TodoInput and runs
// the validator over it. On failure it writes the 400 response and
// returns a nil input. Validation runs before any transaction opens.
func (h *TodoHandler) parseAndValidateInput(c *fiber.Ctx) (*models.TodoInput, error) {
	var input models.TodoInput
	if err := c.BodyParser(&input); err != nil {
		log.Printf("Error parsing todo request body: %v", err)
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Title, URL and at least one tag are required; URL must start with http:// or https://",
			"errors":  errorMessages,
		})
	}

	return &input, nil
}
