package store

import (
	"database/sql"
	"errors"
	"time"
)

// Model is a registered target-model joint graph, stored as its raw
// JSON spec.
type Model struct {
	Name      string
	Spec      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ModelRepository provides CRUD operations for registered hand models.
type ModelRepository struct {
	db *sql.DB
}

// Models returns the model repository for this store.
func (s *Store) Models() *ModelRepository {
	return &ModelRepository{db: s.db}
}

// Save inserts or updates a model spec.
func (r *ModelRepository) Save(name, spec string) error {
	_, err := r.db.Exec(
		`INSERT INTO models (name, spec) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET spec = excluded.spec, updated_at = CURRENT_TIMESTAMP`,
		name, spec,
	)
	return err
}

// GetByName retrieves a model by its name.
func (r *ModelRepository) GetByName(name string) (*Model, error) {
	m := &Model{}
	err := r.db.QueryRow(
		`SELECT name, spec, created_at, updated_at FROM models WHERE name = ?`,
		name,
	).Scan(&m.Name, &m.Spec, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// List retrieves all registered models.
func (r *ModelRepository) List() ([]*Model, error) {
	rows, err := r.db.Query(
		`SELECT name, spec, created_at, updated_at FROM models ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []*Model
	for rows.Next() {
		m := &Model{}
		if err := rows.Scan(&m.Name, &m.Spec, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// Delete removes a model by name.
func (r *ModelRepository) Delete(name string) error {
	result, err := r.db.Exec(`DELETE FROM models WHERE name = ?`, name)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
