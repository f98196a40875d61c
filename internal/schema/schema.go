// Package schema описывает сущности каталога и применяет миграции к PostgreSQL.
package schema

// FieldType — тип колонки в терминах хранилища.
type FieldType string

const (
	TypeBigInt    FieldType = "bigint"
	TypeInteger   FieldType = "integer"
	TypeVarchar   FieldType = "varchar"
	TypeBoolean   FieldType = "boolean"
	TypeTimestamp FieldType = "timestamptz"
	TypeUUID      FieldType = "uuid"
)

// Field описывает одну колонку и её ограничения.
// MaxLength имеет смысл только для TypeVarchar, 0 — без ограничения.
type Field struct {
	Name       string
	Type       FieldType
	PrimaryKey bool
	Nullable   bool
	Unique     bool
	MaxLength  int
}

// Entity — таблица и её колонки в порядке объявления.
type Entity struct {
	Name   string
	Fields []Field
}

// Field ищет колонку по имени.
func (e Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// UniqueFields возвращает колонки с ограничением уникальности (первичный ключ не входит).
func (e Entity) UniqueFields() []Field {
	var out []Field
	for _, f := range e.Fields {
		if f.Unique && !f.PrimaryKey {
			out = append(out, f)
		}
	}
	return out
}

// Descriptor — полное описание схемы. Version совпадает с номером последней миграции.
type Descriptor struct {
	Version  uint
	Entities []Entity
}

// Entity ищет сущность по имени таблицы.
func (d Descriptor) Entity(name string) (Entity, bool) {
	for _, e := range d.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

// Define возвращает описание схемы, которое реализуют миграции из migrations/.
func Define() Descriptor {
	return Descriptor{
		Version: 3,
		Entities: []Entity{
			{
				Name: "books",
				Fields: []Field{
					{Name: "id", Type: TypeBigInt, PrimaryKey: true, Unique: true},
					{Name: "title", Type: TypeVarchar, MaxLength: 255},
					{Name: "author", Type: TypeVarchar, MaxLength: 255},
					{Name: "isbn", Type: TypeVarchar, MaxLength: 32},
					{Name: "published_year", Type: TypeInteger},
					{Name: "available", Type: TypeBoolean},
					{Name: "created_at", Type: TypeTimestamp},
				},
			},
			{
				Name: "users",
				Fields: []Field{
					{Name: "id", Type: TypeBigInt, PrimaryKey: true, Unique: true},
					{Name: "first_name", Type: TypeVarchar, MaxLength: 50},
					{Name: "last_name", Type: TypeVarchar, MaxLength: 50},
					{Name: "email", Type: TypeVarchar, MaxLength: 255, Unique: true},
					{Name: "password_hash", Type: TypeVarchar, MaxLength: 255},
					{Name: "created_at", Type: TypeTimestamp},
				},
			},
			{
				Name: "audit_log",
				Fields: []Field{
					{Name: "id", Type: TypeBigInt, PrimaryKey: true, Unique: true},
					{Name: "event_id", Type: TypeUUID, Unique: true},
					{Name: "event_type", Type: TypeVarchar, MaxLength: 64},
					{Name: "entity", Type: TypeVarchar, MaxLength: 32},
					{Name: "entity_id", Type: TypeBigInt},
					{Name: "occurred_at", Type: TypeTimestamp},
					{Name: "recorded_at", Type: TypeTimestamp},
				},
			},
		},
	}
}

// UniqueConstraintName — имя ограничения уникальности, которое дают ему миграции.
func UniqueConstraintName(table, field string) string {
	return table + "_" + field + "_key"
}
