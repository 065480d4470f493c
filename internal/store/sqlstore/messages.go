package sqlstore

import (
	"context"

	"github.com/shaibs3/geoadmin/internal/model"
	"github.com/shaibs3/geoadmin/internal/query"
)

// CreateMessage stores a contact message and returns its id
func (s *Store) CreateMessage(ctx context.Context, msg model.Message) (int64, error) {
	var id int64
	err := s.write(ctx, "create_message", func() error {
		return s.db.QueryRowContext(ctx, s.rebind(`
			INSERT INTO messages (name, email, body, submitted_at)
			VALUES (?, ?, ?, ?) RETURNING id`),
			msg.Name, msg.Email, msg.Body, msg.SubmittedAt.UTC()).
			Scan(&id)
	})
	return id, err
}

// ListMessages returns the messages visible to viewer, newest first
func (s *Store) ListMessages(ctx context.Context, viewer model.Principal) ([]model.Message, error) {
	sqlText, args := query.Inbox(viewer).Build(s.format)

	var msgs []model.Message
	err := s.read(ctx, "list_messages", func() error {
		rows, err := s.db.QueryContext(ctx, sqlText, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		msgs = []model.Message{}
		for rows.Next() {
			var m model.Message
			if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Body, &m.SubmittedAt); err != nil {
				return err
			}
			msgs = append(msgs, m)
		}
		return rows.Err()
	})
	return msgs, err
}
