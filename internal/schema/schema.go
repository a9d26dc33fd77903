// Package schema implements typed schema registration, data validation, and
// structured-field storage/search.
package schema

import (
	"fmt"
	"regexp"
	"context"

	"github.com/fenwick-labs/memoria/internal/storage"
	"github.com/fenwick-labs/memoria/internal/types"
)

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{1,128}$`)

// Service manages schema registration and validation over a Storage
// backend.
type Service struct {
	store storage.Storage
}

func New(store storage.Storage) *Service {
	return &Service{store: store}
}

// Register validates s's name and field list and persists it, rejecting a
// duplicate (namespace,name).
func (s *Service) Register(ctx context.Context, schema types.MemorySchema) error {
	if !nameRe.MatchString(schema.Name) {
		return types.Validationf("schema name %q must match %s", schema.Name, nameRe.String())
	}
	seen := map[string]bool{}
	for _, f := range schema.Fields {
		if seen[f.Name] {
			return types.Validationf("duplicate field name %q", f.Name)
		}
		seen[f.Name] = true
		if !types.ValidFieldType(f.Type) {
			return types.Validationf("invalid field type %q for field %q", f.Type, f.Name)
		}
	}

	existing, err := s.store.GetSchema(ctx, schema.Namespace, schema.Name)
	if err != nil {
		return types.Storagef(err, "get schema")
	}
	if existing != nil {
		return types.Conflictf("schema %s/%s already exists", schema.Namespace, schema.Name)
	}

	if schema.Version == 0 {
		schema.Version = 1
	}
	if err := s.store.PutSchema(ctx, &schema); err != nil {
		return types.Storagef(err, "put schema")
	}
	return nil
}

// Get fetches a registered schema, NotFound if absent.
func (s *Service) Get(ctx context.Context, namespace, name string) (*types.MemorySchema, error) {
	schema, err := s.store.GetSchema(ctx, namespace, name)
	if err != nil {
		return nil, types.Storagef(err, "get schema")
	}
	if schema == nil {
		return nil, types.NotFoundf("schema %s/%s not found", namespace, name)
	}
	return schema, nil
}

// List returns every schema registered in namespace.
func (s *Service) List(ctx context.Context, namespace string) ([]*types.MemorySchema, error) {
	schemas, err := s.store.ListSchemas(ctx, namespace)
	if err != nil {
		return nil, types.Storagef(err, "list schemas")
	}
	return schemas, nil
}

// Delete removes a registered schema.
func (s *Service) Delete(ctx context.Context, namespace, name string) error {
	if err := s.store.DeleteSchema(ctx, namespace, name); err != nil {
		return types.Storagef(err, "delete schema")
	}
	return nil
}

// Validate enforces required fields, type matching, and per-field
// validation rules (min/max, pattern, enum) against data, returning every
// violation found rather than stopping at the first.
func Validate(schema *types.MemorySchema, data map[string]any) (bool, []types.FieldError) {
	var errs []types.FieldError
	fieldsByName := make(map[string]types.SchemaField, len(schema.Fields))
	for _, f := range schema.Fields {
		fieldsByName[f.Name] = f
	}

	for _, f := range schema.Fields {
		v, present := data[f.Name]
		if !present {
			if f.Required {
				errs = append(errs, types.FieldError{Field: f.Name, Message: "required field missing"})
			}
			continue
		}
		if err := validateType(f, v); err != nil {
			errs = append(errs, types.FieldError{Field: f.Name, Message: err.Error()})
			continue
		}
		if f.Validation != nil {
			errs = append(errs, validateConstraints(f, v)...)
		}
	}
	return len(errs) == 0, errs
}

func validateType(f types.SchemaField, v any) error {
	switch f.Type {
	case types.FieldString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string")
		}
	case types.FieldNumber:
		switch v.(type) {
		case float64, float32, int, int64:
		default:
			return fmt.Errorf("expected number")
		}
	case types.FieldBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected boolean")
		}
	case types.FieldDatetime:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected datetime string (RFC3339)")
		}
	case types.FieldArray:
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("expected array")
		}
	case types.FieldObject:
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("expected object")
		}
	}
	return nil
}

func validateConstraints(f types.SchemaField, v any) []types.FieldError {
	var errs []types.FieldError
	val := f.Validation

	switch n := asFloat(v); {
	case f.Type == types.FieldNumber && val.Min != nil && n < *val.Min:
		errs = append(errs, types.FieldError{Field: f.Name, Message: fmt.Sprintf("value %v is below min %v", n, *val.Min)})
	case f.Type == types.FieldNumber && val.Max != nil && n > *val.Max:
		errs = append(errs, types.FieldError{Field: f.Name, Message: fmt.Sprintf("value %v exceeds max %v", n, *val.Max)})
	}

	if f.Type == types.FieldString {
		str, _ := v.(string)
		if val.Min != nil && float64(len(str)) < *val.Min {
			errs = append(errs, types.FieldError{Field: f.Name, Message: "string shorter than min length"})
		}
		if val.Max != nil && float64(len(str)) > *val.Max {
			errs = append(errs, types.FieldError{Field: f.Name, Message: "string longer than max length"})
		}
		if val.Pattern != "" {
			re, err := regexp.Compile(val.Pattern)
			if err != nil || !re.MatchString(str) {
				errs = append(errs, types.FieldError{Field: f.Name, Message: "does not match pattern"})
			}
		}
		if len(val.Enum) > 0 && !contains(val.Enum, str) {
			errs = append(errs, types.FieldError{Field: f.Name, Message: "not one of the allowed enum values"})
		}
	}
	return errs
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
