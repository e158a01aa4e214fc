package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
)

var ErrMessageNotFound = errors.New("whatsapp message not found")

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageFailed    MessageStatus = "failed"
)

// Message is one logged WhatsApp exchange, kept for conversation audit
// and delivery-status lookups.
type Message struct {
	ID                uuid.UUID
	ClinicID          *uuid.UUID
	Phone             string
	Direction         Direction
	MessageType       string
	Content           string
	Status            MessageStatus
	ExternalMessageID *string
	ErrorMessage      *string
	SentAt            *time.Time
	CreatedAt         time.Time
}

// Store logs every inbound and outbound message.
type Store interface {
	Log(ctx context.Context, m *Message) error
	StatusByExternalID(ctx context.Context, externalID string) (MessageStatus, error)
	ListByPhone(ctx context.Context, phone string, limit int) ([]Message, error)
}

type PgStore struct {
	pool appointment.PgxPool
}

func NewPgStore(pool appointment.PgxPool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Log(ctx context.Context, m *Message) error {
	id := m.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO whatsapp_messages (id, clinic_id, phone, direction, message_type, content,
			status, external_message_id, error_message, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	`, id, m.ClinicID, m.Phone, m.Direction, m.MessageType, m.Content,
		m.Status, m.ExternalMessageID, m.ErrorMessage, m.SentAt)
	if err != nil {
		return fmt.Errorf("log whatsapp message: %w", err)
	}
	return nil
}

func (s *PgStore) StatusByExternalID(ctx context.Context, externalID string) (MessageStatus, error) {
	var status MessageStatus
	err := s.pool.QueryRow(ctx, `
		SELECT status
		FROM whatsapp_messages
		WHERE external_message_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, externalID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMessageNotFound
		}
		return "", err
	}
	return status, nil
}

func (s *PgStore) ListByPhone(ctx context.Context, phone string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, clinic_id, phone, direction, message_type, content,
			status, external_message_id, error_message, sent_at, created_at
		FROM whatsapp_messages
		WHERE phone = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, phone, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		var m Message
		err := rows.Scan(
			&m.ID, &m.ClinicID, &m.Phone, &m.Direction, &m.MessageType, &m.Content,
			&m.Status, &m.ExternalMessageID, &m.ErrorMessage, &m.SentAt, &m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
