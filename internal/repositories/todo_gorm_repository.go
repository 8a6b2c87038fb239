package repositories

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todoapp/internal/models"
)

// dateLayout is the date-only format stored in registered_date and
// updated_date.
const dateLayout = "2006-01-02"

// GORMTodoRepository is a GORM implementation of TodoRepository.
// It owns the transactional envelope around todo writes and the tag
// upsert performed inside it.
type GORMTodoRepository struct {
	db *gorm.DB
}

// NewGORMTodoRepository creates a new instance of GORMTodoRepository.
func NewGORMTodoRepository(db *gorm.DB) *GORMTodoRepository {
	return &GORMTodoRepository{
		db: db,
	}
}

// NormalizeTagNames trims every name, drops empty results and
// collapses duplicates, preserving first appearance. Case is kept as
// entered, so "Work" and "work" are distinct tags.
func NormalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	return normalized
}

// GetAllByUser retrieves all todos for a user, newest update first
// (updated_date DESC, id DESC as the tie-break), with their tag names
// resolved through a single join query over the whole result set.
func (r *GORMTodoRepository) GetAllByUser(userID uint) ([]models.Todo, error) {
	var todos []models.Todo
	if err := r.db.Where("user_id = ?", userID).
		Order("updated_date DESC").Order("id DESC").
		Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("failed to list todos for user %d: %w", userID, err)
	}
	if len(todos) == 0 {
		return []models.Todo{}, nil
	}

	todoIDs := make([]uint, len(todos))
	for i := range todos {
		todoIDs[i] = todos[i].ID
	}

	var links []struct {
		TodoID uint
		Name   string
	}
	if err := r.db.Model(&models.Tag{}).
		Select("todo_tags.todo_id AS todo_id, tags.name AS name").
		Joins("INNER JOIN todo_tags ON todo_tags.tag_id = tags.id").
		Where("todo_tags.todo_id IN ?", todoIDs).
		Order("todo_tags.tag_id").
		Scan(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tags for user %d: %w", userID, err)
	}

	namesByTodo := make(map[uint][]string, len(todos))
	for _, link := range links {
		namesByTodo[link.TodoID] = append(namesByTodo[link.TodoID], link.Name)
	}
	for i := range todos {
		if names, ok := namesByTodo[todos[i].ID]; ok {
			todos[i].Tags = names
		} else {
			todos[i].Tags = []string{}
		}
	}
	return todos, nil
}

// Create inserts a new todo with registered_date = updated_date =
// today, links its tags and reads the composed result back, all
// inside one transaction.
func (r *GORMTodoRepository) Create(userID uint, input *models.TodoInput) (*models.Todo, error) {
	today := time.Now().Format(dateLayout)
	var created *models.Todo
	err := r.db.Transaction(func(tx *gorm.DB) error {
		todo := models.Todo{
			UserID:         userID,
			Title:          input.Title,
			URL:            input.URL,
			Status:         input.Status,
			RegisteredDate: today,
			UpdatedDate:    today,
			Priority:       input.Priority,
			Memo:           input.Memo,
		}
		if err := tx.Create(&todo).Error; err != nil {
			return fmt.Errorf("failed to create todo: %w", err)
		}
		// No prior links exist on the create path, so skip the unlink.
		if err := r.upsertTags(tx, todo.ID, input.Tags, false); err != nil {
			return err
		}
		var err error
		created, err = r.readBack(tx, todo.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces the mutable columns of an owned todo, moves
// updated_date to today and relinks its tags as a pure replace.
// registered_date is never touched. Returns a not-found error without
// opening a transaction when the todo does not exist or belongs to
// another user.
func (r *GORMTodoRepository) Update(userID, todoID uint, input *models.TodoInput) (*models.Todo, error) {
	if err := r.ensureOwned(todoID, userID); err != nil {
		return nil, err
	}
	today := time.Now().Format(dateLayout)
	var updated *models.Todo
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Todo{}).
			Where("id = ? AND user_id = ?", todoID, userID).
			Updates(map[string]interface{}{
				"title":        input.Title,
				"url":          input.URL,
				"status":       input.Status,
				"updated_date": today,
				"priority":     input.Priority,
				"memo":         input.Memo,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update todo %d: %w", todoID, res.Error)
		}
		if res.RowsAffected == 0 {
			// The row can vanish between the ownership probe and the
			// transaction; Updates doesn't error on zero rows, so we
			// check RowsAffected.
			return fmt.Errorf("todo with ID %d not found", todoID)
		}
		if err := r.upsertTags(tx, todoID, input.Tags, true); err != nil {
			return err
		}
		var err error
		updated, err = r.readBack(tx, todoID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an owned todo. The todo_tags rows go with it via the
// schema's ON DELETE CASCADE, so a single statement suffices; tag rows
// themselves are retained even when orphaned.
func (r *GORMTodoRepository) Delete(userID, todoID uint) error {
	if err := r.ensureOwned(todoID, userID); err != nil {
		return err
	}
	if err := r.db.Delete(&models.Todo{}, "id = ? AND user_id = ?", todoID, userID).Error; err != nil {
		return fmt.Errorf("failed to delete todo %d: %w", todoID, err)
	}
	return nil
}

// ensureOwned checks that the todo exists and belongs to the user.
// Runs outside any transaction; update and delete call it before
// opening theirs.
func (r *GORMTodoRepository) ensureOwned(todoID, userID uint) error {
	var todo models.Todo
	if err := r.db.Select("id").First(&todo, "id = ? AND user_id = ?", todoID, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("todo with ID %d not found", todoID)
		}
		return fmt.Errorf("failed to check ownership of todo %d: %w", todoID, err)
	}
	return nil
}

// upsertTags resolves each normalized tag name to an id, creating
// missing tags with an insert-if-absent on the unique name column, and
// links the todo to exactly that id set. When relink is true the
// existing links are removed first, making the linkage a pure replace.
// Any failure aborts; the enclosing transaction rolls back.
func (r *GORMTodoRepository) upsertTags(tx *gorm.DB, todoID uint, names []string, relink bool) error {
	if relink {
		if err := tx.Where("todo_id = ?", todoID).Delete(&models.TodoTag{}).Error; err != nil {
			return fmt.Errorf("failed to unlink tags for todo %d: %w", todoID, err)
		}
	}
	for _, name := range NormalizeTagNames(names) {
		tag := models.Tag{Name: name}
		// DoNothing on the unique name keeps concurrent writers from
		// ever producing duplicate tag rows for the same name.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&tag).Error; err != nil {
			return fmt.Errorf("failed to upsert tag %q: %w", name, err)
		}
		if tag.ID == 0 {
			// The insert was a no-op: the name already existed.
			if err := tx.First(&tag, "name = ?", name).Error; err != nil {
				return fmt.Errorf("failed to resolve tag %q: %w", name, err)
			}
		}
		if err := tx.Create(&models.TodoTag{TodoID: todoID, TagID: tag.ID}).Error; err != nil {
			return fmt.Errorf("failed to link tag %q to todo %d: %w", name, todoID, err)
		}
	}
	return nil
}

// readBack fetches the todo row plus its resolved tag names inside
// the caller's transaction.
func (r *GORMTodoRepository) readBack(tx *gorm.DB, todoID uint) (*models.Todo, error) {
	var todo models.Todo
	if err := tx.First(&todo, "id = ?", todoID).Error; err != nil {
		return nil, fmt.Errorf("failed to read back todo %d: %w", todoID, err)
	}
	names := []string{}
	if err := tx.Model(&models.Tag{}).
		Joins("INNER JOIN todo_tags ON todo_tags.tag_id = tags.id").
		Where("todo_tags.todo_id = ?", todoID).
		Order("todo_tags.tag_id").
		Pluck("tags.name", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to read back tags for todo %d: %w", todoID, err)
	}
	todo.Tags = names
	return &todo, nil
}
