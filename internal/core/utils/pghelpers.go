package utils

import (
	"time"

	"github.com/google/uuid"
	// Ensure this import path matches the pgx version you are using (e.g., v5)
	"github.com/jackc/pgx/v5/pgtype"
)

// ToString converts a domain's primitive string to a pgtype.Text.
// An empty string is considered invalid (NULL).
func ToString(s string) pgtype.Text {
	return pgtype.Text{
		String: s,
		Valid:  s != "",
	}
}

// FromString converts a pgtype.Text to a domain's primitive string.
// A NULL value is converted to an empty string ("").
func FromString(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// ToNullString converts a handler's *string (pointer) to a pgtype.Text.
// A nil pointer is considered invalid (NULL).
func ToNullString(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{
		String: *s,
		Valid:  true,
	}
}

// ToUUID converts a uuid.UUID to a pgtype.UUID.
func ToUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// ToNullUUID converts a *uuid.UUID to a pgtype.UUID, mapping nil to NULL.
func ToNullUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

// FromUUID converts a pgtype.UUID to a uuid.UUID; NULL becomes uuid.Nil.
func FromUUID(u pgtype.UUID) uuid.UUID {
	if !u.Valid {
		return uuid.Nil
	}
	return u.Bytes
}

// FromNullUUID converts a pgtype.UUID to a *uuid.UUID; NULL becomes nil.
func FromNullUUID(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

// ToNullTime converts a *time.Time to a pgtype.Timestamptz.
func ToNullTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// FromNullTime converts a pgtype.Timestamptz to a *time.Time.
func FromNullTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}

// ToNullInt4 converts a *int to a pgtype.Int4.
func ToNullInt4(v *int) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(*v), Valid: true}
}

// FromNullInt4 converts a pgtype.Int4 to a *int.
func FromNullInt4(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	value := int(v.Int32)
	return &value
}

// ToNullInt8 converts a *int64 to a pgtype.Int8.
func ToNullInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

// FromNullInt8 converts a pgtype.Int8 to a *int64.
func FromNullInt8(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}

// ToNullBool converts a *bool to a pgtype.Bool.
func ToNullBool(v *bool) pgtype.Bool {
	if v == nil {
		return pgtype.Bool{Valid: false}
	}
	return pgtype.Bool{Bool: *v, Valid: true}
}

// FromNullBool converts a pgtype.Bool to a *bool.
func FromNullBool(v pgtype.Bool) *bool {
	if !v.Valid {
		return nil
	}
	value := v.Bool
	return &value
}
