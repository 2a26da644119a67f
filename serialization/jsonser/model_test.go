package jsonser

import (
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/gokiota/serialization"
)

type user struct {
	id             *uuid.UUID
	displayName    *string
	age            *int32
	active         *bool
	score          *float64
	createdAt      *time.Time
	tags           []string
	manager        *user
	additionalData map[string]any
}

func newUser(serialization.ParseNode) (serialization.Parsable, error) {
	return &user{}, nil
}

func (u *user) GetAdditionalData() map[string]any      { return u.additionalData }
func (u *user) SetAdditionalData(value map[string]any) { u.additionalData = value }

func (u *user) GetFieldDeserializers() map[string]func(serialization.ParseNode) error {
	return map[string]func(serialization.ParseNode) error{
		"id": func(n serialization.ParseNode) error {
			return serialization.SetValue(n.GetUUIDValue, func(v *uuid.UUID) { u.id = v })
		},
		"displayName": func(n serialization.ParseNode) error {
			return serialization.SetValue(n.GetStringValue, func(v *string) { u.displayName = v })
		},
		"age": func(n serialization.ParseNode) error {
			return serialization.SetValue(n.GetInt32Value, func(v *int32) { u.age = v })
		},
		"active": func(n serialization.ParseNode) error {
			return serialization.SetValue(n.GetBoolValue, func(v *bool) { u.active = v })
		},
		"score": func(n serialization.ParseNode) error {
			return serialization.SetValue(n.GetFloat64Value, func(v *float64) { u.score = v })
		},
		"createdAt": func(n serialization.ParseNode) error {
			return serialization.SetValue(n.GetTimeValue, func(v *time.Time) { u.createdAt = v })
		},
		"tags": func(n serialization.ParseNode) error {
			values, err := serialization.CollectValues(n.GetCollectionOfPrimitiveValues(serialization.KindString))
			if err != nil {
				return err
			}
			u.tags = make([]string, 0, len(values))
			for _, v := range values {
				u.tags = append(u.tags, v.(string))
			}
			return nil
		},
		"manager": func(n serialization.ParseNode) error {
			return serialization.SetObjectValue(n, newUser, func(v *user) { u.manager = v })
		},
	}
}

func (u *user) Serialize(w serialization.SerializationWriter) error {
	if err := w.WriteUUIDValue("id", u.id); err != nil {
		return err
	}
	if err := w.WriteStringValue("displayName", u.displayName); err != nil {
		return err
	}
	if err := w.WriteInt32Value("age", u.age); err != nil {
		return err
	}
	if err := w.WriteBoolValue("active", u.active); err != nil {
		return err
	}
	if err := w.WriteFloat64Value("score", u.score); err != nil {
		return err
	}
	if err := w.WriteTimeValue("createdAt", u.createdAt); err != nil {
		return err
	}
	if err := w.WriteCollectionOfStringValues("tags", u.tags); err != nil {
		return err
	}
	if u.manager != nil {
		if err := w.WriteObjectValue("manager", u.manager); err != nil {
			return err
		}
	}
	return w.WriteAdditionalData(u.additionalData)
}

func ptr[T any](v T) *T { return &v }
