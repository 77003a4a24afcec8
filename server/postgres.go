package server

import (
	"context"
	"database/sql"
	"errors"

	"github.com/existflow/ironnote/internal/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresRepository stores everything in PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository connects to dbURL and runs migrations
func NewPostgresRepository(dbURL string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	r := &PostgresRepository{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// validID rejects ids Postgres cannot cast to UUID, so they read as missing
// rather than as a query error
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// notFound maps sql.ErrNoRows to ErrNotFound
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// affected turns a zero-row UPDATE or DELETE into ErrNotFound
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Users

func (r *PostgresRepository) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		u.Username, u.Email, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
		return model.User{}, ErrConflict
	}
	return u, err
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, notFound(err)
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (model.User, error) {
	if !validID(id) {
		return model.User{}, ErrNotFound
	}
	var u model.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, notFound(err)
}

// Sessions

func (r *PostgresRepository) CreateSession(ctx context.Context, s model.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, token, expires_at)
		VALUES ($1, $2, $3)`,
		s.UserID, s.Token, s.ExpiresAt,
	)
	return err
}

func (r *PostgresRepository) GetSession(ctx context.Context, token string) (model.Session, error) {
	var s model.Session
	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = $1`,
		token,
	).Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	return s, notFound(err)
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// Projects

func (r *PostgresRepository) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	if !validID(userID) {
		return []model.Project{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color, description, created_by, created_at
		FROM projects WHERE created_by = $1
		ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Color, &p.Description, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *PostgresRepository) GetProject(ctx context.Context, id string) (model.Project, error) {
	if !validID(id) {
		return model.Project{}, ErrNotFound
	}
	var p model.Project
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, color, description, created_by, created_at FROM projects WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Color, &p.Description, &p.CreatedBy, &p.CreatedAt)
	return p, notFound(err)
}

func (r *PostgresRepository) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO projects (created_by, name, color, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		p.CreatedBy, p.Name, p.Color, p.Description,
	).Scan(&p.ID, &p.CreatedAt)
	return p, err
}

func (r *PostgresRepository) UpdateProject(ctx context.Context, p model.Project) error {
	if !validID(p.ID) {
		return ErrNotFound
	}
	return affected(r.db.ExecContext(ctx, `
		UPDATE projects SET name = $2, color = $3, description = $4 WHERE id = $1`,
		p.ID, p.Name, p.Color, p.Description,
	))
}

func (r *PostgresRepository) DeleteProject(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return affected(r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id))
}

// Sections

func (r *PostgresRepository) ListSections(ctx context.Context, projectID string) ([]model.Section, error) {
	if !validID(projectID) {
		return []model.Section{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, title, text, color, created_at
		FROM sections WHERE project_id = $1
		ORDER BY created_at, id`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := []model.Section{}
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Title, &s.Text, &s.Color, &s.CreatedAt); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (r *PostgresRepository) GetSection(ctx context.Context, id string) (model.Section, error) {
	if !validID(id) {
		return model.Section{}, ErrNotFound
	}
	var s model.Section
	err := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, text, color, created_at FROM sections WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.ProjectID, &s.Title, &s.Text, &s.Color, &s.CreatedAt)
	return s, notFound(err)
}

func (r *PostgresRepository) CreateSection(ctx context.Context, s model.Section) (model.Section, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sections (project_id, title, text, color)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		s.ProjectID, s.Title, s.Text, s.Color,
	).Scan(&s.ID, &s.CreatedAt)
	return s, err
}

func (r *PostgresRepository) UpdateSection(ctx context.Context, s model.Section) error {
	if !validID(s.ID) {
		return ErrNotFound
	}
	return affected(r.db.ExecContext(ctx, `
		UPDATE sections SET title = $2, text = $3, color = $4 WHERE id = $1`,
		s.ID, s.Title, s.Text, s.Color,
	))
}

func (r *PostgresRepository) DeleteSection(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return affected(r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id))
}

// Notes

func (r *PostgresRepository) ListNotes(ctx context.Context, sectionID string) ([]model.Note, error) {
	if !validID(sectionID) {
		return []model.Note{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, section_id, title FROM notes WHERE section_id = $1
		ORDER BY created_at, id`,
		sectionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.SectionID, &n.Title); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *PostgresRepository) GetNote(ctx context.Context, id string) (model.Note, error) {
	if !validID(id) {
		return model.Note{}, ErrNotFound
	}
	var n model.Note
	err := r.db.QueryRowContext(ctx, `
		SELECT id, section_id, title FROM notes WHERE id = $1`,
		id,
	).Scan(&n.ID, &n.SectionID, &n.Title)
	return n, notFound(err)
}

func (r *PostgresRepository) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	n.Todos = nil
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notes (section_id, title) VALUES ($1, $2)
		RETURNING id`,
		n.SectionID, n.Title,
	).Scan(&n.ID)
	return n, err
}

func (r *PostgresRepository) UpdateNote(ctx context.Context, n model.Note) error {
	if !validID(n.ID) {
		return ErrNotFound
	}
	return affected(r.db.ExecContext(ctx, `UPDATE notes SET title = $2 WHERE id = $1`, n.ID, n.Title))
}

func (r *PostgresRepository) DeleteNote(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return affected(r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id))
}

// Todos

func (r *PostgresRepository) ListTodos(ctx context.Context, noteID string) ([]model.Todo, error) {
	if !validID(noteID) {
		return []model.Todo{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, note_id, content, is_completed FROM todos WHERE note_id = $1
		ORDER BY created_at, id`,
		noteID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		var t model.Todo
		if err := rows.Scan(&t.ID, &t.NoteID, &t.Content, &t.IsCompleted); err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

func (r *PostgresRepository) GetTodo(ctx context.Context, id string) (model.Todo, error) {
	if !validID(id) {
		return model.Todo{}, ErrNotFound
	}
	var t model.Todo
	err := r.db.QueryRowContext(ctx, `
		SELECT id, note_id, content, is_completed FROM todos WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.NoteID, &t.Content, &t.IsCompleted)
	return t, notFound(err)
}

func (r *PostgresRepository) CreateTodo(ctx context.Context, t model.Todo) (model.Todo, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO todos (note_id, content, is_completed) VALUES ($1, $2, $3)
		RETURNING id`,
		t.NoteID, t.Content, t.IsCompleted,
	).Scan(&t.ID)
	return t, err
}

func (r *PostgresRepository) UpdateTodo(ctx context.Context, t model.Todo) error {
	if !validID(t.ID) {
		return ErrNotFound
	}
	return affected(r.db.ExecContext(ctx, `
		UPDATE todos SET content = $2, is_completed = $3 WHERE id = $1`,
		t.ID, t.Content, t.IsCompleted,
	))
}

func (r *PostgresRepository) DeleteTodo(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return affected(r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id))
}
