package models

import (
	"encoding/json"
	"time"
)

// Custom field value types.
const (
	FieldTypeText     = "text"
	FieldTypeNumber   = "number"
	FieldTypeCheckbox = "checkbox"
	FieldTypeMultiple = "multiple"
)

// CustomField defines a typed key attachable to agents, sites or clients.
// Model names which entity the field belongs to ("agent", "site", "client").
type CustomField struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	Model           string `gorm:"size:8;index;not null"`
	Name            string `gorm:"size:64;not null"`
	Type            string `gorm:"size:16;default:text"`
	DefaultString   string `gorm:"type:text"`
	DefaultBool     bool   `gorm:"default:false"`
	DefaultMultiple string `gorm:"type:json"`
	CreatedAt       time.Time
}

// DefaultValue returns the field's default as the resolver sees it:
// a string, bool or []string depending on the field type.
func (f *CustomField) DefaultValue() any {
	switch f.Type {
	case FieldTypeCheckbox:
		return f.DefaultBool
	case FieldTypeMultiple:
		return decodeMultiple(f.DefaultMultiple)
	default:
		return f.DefaultString
	}
}

// AgentCustomField stores a per-agent value for a CustomField.
type AgentCustomField struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	AgentID       uint   `gorm:"index;not null"`
	FieldID       uint   `gorm:"index;not null"`
	StringValue   string `gorm:"type:text"`
	BoolValue     bool   `gorm:"default:false"`
	MultipleValue string `gorm:"type:json"`
	UpdatedAt     time.Time

	Field CustomField `gorm:"foreignKey:FieldID"`
}

// SiteCustomField stores a per-site value for a CustomField.
type SiteCustomField struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	SiteID        uint   `gorm:"index;not null"`
	FieldID       uint   `gorm:"index;not null"`
	StringValue   string `gorm:"type:text"`
	BoolValue     bool   `gorm:"default:false"`
	MultipleValue string `gorm:"type:json"`
	UpdatedAt     time.Time

	Field CustomField `gorm:"foreignKey:FieldID"`
}

// ClientCustomField stores a per-client value for a CustomField.
type ClientCustomField struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	ClientID      uint   `gorm:"index;not null"`
	FieldID       uint   `gorm:"index;not null"`
	StringValue   string `gorm:"type:text"`
	BoolValue     bool   `gorm:"default:false"`
	MultipleValue string `gorm:"type:json"`
	UpdatedAt     time.Time

	Field CustomField `gorm:"foreignKey:FieldID"`
}

// FieldValue is implemented by the three custom-field value rows so the
// scripting resolver can read them uniformly.
type FieldValue interface {
	Value(fieldType string) any
}

func (v AgentCustomField) Value(fieldType string) any {
	return fieldValue(fieldType, v.StringValue, v.BoolValue, v.MultipleValue)
}

func (v SiteCustomField) Value(fieldType string) any {
	return fieldValue(fieldType, v.StringValue, v.BoolValue, v.MultipleValue)
}

func (v ClientCustomField) Value(fieldType string) any {
	return fieldValue(fieldType, v.StringValue, v.BoolValue, v.MultipleValue)
}

func fieldValue(fieldType, s string, b bool, multiple string) any {
	switch fieldType {
	case FieldTypeCheckbox:
		return b
	case FieldTypeMultiple:
		return decodeMultiple(multiple)
	default:
		return s
	}
}

func decodeMultiple(raw string) []string {
	if raw == "" {
		return nil
	}
	var vals []string
	if err := json.Unmarshal([]byte(raw), &vals); err != nil {
		return nil
	}
	return vals
}

// EncodeMultiple renders a list value for storage in a json column.
func EncodeMultiple(vals []string) string {
	if vals == nil {
		return ""
	}
	data, err := json.Marshal(vals)
	if err != nil {
		return ""
	}
	return string(data)
}
