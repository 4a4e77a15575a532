package query

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Condition represents a WHERE clause condition.
// Implementations must generate SQL fragments and parameter maps
// using named parameters (@paramName), which both Spanner and SQLite accept,
// and a MongoDB filter document for the same predicate.
//
// The interface is sealed: only conditions built by this package's
// constructors can be rendered, so every backend sees the same operator set.
type Condition interface {
	// SQL returns the SQL fragment and parameter map for this condition.
	// paramIndex is used to generate unique parameter names (@p0, @p1, etc.)
	SQL(paramIndex int) (string, map[string]interface{})

	filter() bson.D
}

// BSON renders a condition as a MongoDB filter document.
// A nil condition matches every document.
func BSON(c Condition) bson.D {
	if c == nil {
		return bson.D{}
	}
	return c.filter()
}

// compareCondition implements binary comparisons (field <op> value).
type compareCondition struct {
	field string
	op    string
	value interface{}
}

// Eq creates a WHERE condition for equality comparison.
// Example: Eq("status", "active") generates "status = @p0"
func Eq(field string, value interface{}) Condition {
	return &compareCondition{field: field, op: "=", value: value}
}

// Neq creates a WHERE condition for inequality comparison.
// Example: Neq("status", "active") generates "status != @p0"
// SQL inequality is never true for NULL columns; use Differs when NULLs must match.
func Neq(field string, value interface{}) Condition {
	return &compareCondition{field: field, op: "!=", value: value}
}

// Gt creates a WHERE condition for "greater than" comparison.
func Gt(field string, value interface{}) Condition {
	return &compareCondition{field: field, op: ">", value: value}
}

// Lt creates a WHERE condition for "less than" comparison.
func Lt(field string, value interface{}) Condition {
	return &compareCondition{field: field, op: "<", value: value}
}

// SQL generates the SQL fragment for the comparison.
func (c *compareCondition) SQL(paramIndex int) (string, map[string]interface{}) {
	paramName := fmt.Sprintf("p%d", paramIndex)
	sql := fmt.Sprintf("%s %s @%s", c.field, c.op, paramName)
	params := map[string]interface{}{
		paramName: c.value,
	}
	return sql, params
}

func (c *compareCondition) filter() bson.D {
	return bson.D{{Key: c.field, Value: bson.D{{Key: mongoOp(c.op), Value: c.value}}}}
}

func mongoOp(op string) string {
	switch op {
	case "!=":
		return "$ne"
	case ">":
		return "$gt"
	case "<":
		return "$lt"
	default:
		return "$eq"
	}
}

// differsCondition is a NULL-safe inequality: it matches rows whose stored
// value is NULL or not equal to the given value.
type differsCondition struct {
	field string
	value interface{}
}

// Differs creates a NULL-safe inequality condition.
// Example: Differs("status", "active") generates "(status IS NULL OR status != @p0)"
// and Differs("status", nil) generates "status IS NOT NULL".
func Differs(field string, value interface{}) Condition {
	if value == nil {
		return IsNotNull(field)
	}
	return &differsCondition{field: field, value: value}
}

// SQL generates the SQL fragment for the NULL-safe inequality.
func (c *differsCondition) SQL(paramIndex int) (string, map[string]interface{}) {
	paramName := fmt.Sprintf("p%d", paramIndex)
	sql := fmt.Sprintf("(%s IS NULL OR %s != @%s)", c.field, c.field, paramName)
	return sql, map[string]interface{}{paramName: c.value}
}

// MongoDB $ne already matches documents where the field is missing or null.
func (c *differsCondition) filter() bson.D {
	return bson.D{{Key: c.field, Value: bson.D{{Key: "$ne", Value: c.value}}}}
}

// IsNull creates a WHERE condition for NULL checks.
// Example: IsNull("discount_percent") generates "discount_percent IS NULL"
func IsNull(field string) Condition {
	return &isNullCondition{field: field}
}

// isNullCondition implements IS NULL comparison.
type isNullCondition struct {
	field string
}

// SQL generates the SQL fragment for IS NULL comparison.
func (c *isNullCondition) SQL(paramIndex int) (string, map[string]interface{}) {
	sql := fmt.Sprintf("%s IS NULL", c.field)
	return sql, map[string]interface{}{}
}

func (c *isNullCondition) filter() bson.D {
	return bson.D{{Key: c.field, Value: nil}}
}

// IsNotNull creates a WHERE condition for NOT NULL checks.
// Example: IsNotNull("discount_percent") generates "discount_percent IS NOT NULL"
func IsNotNull(field string) Condition {
	return &isNotNullCondition{field: field}
}

// isNotNullCondition implements IS NOT NULL comparison.
type isNotNullCondition struct {
	field string
}

// SQL generates the SQL fragment for IS NOT NULL comparison.
func (c *isNotNullCondition) SQL(paramIndex int) (string, map[string]interface{}) {
	sql := fmt.Sprintf("%s IS NOT NULL", c.field)
	return sql, map[string]interface{}{}
}

func (c *isNotNullCondition) filter() bson.D {
	return bson.D{{Key: c.field, Value: bson.D{{Key: "$ne", Value: nil}}}}
}

// groupCondition joins child conditions with AND or OR.
type groupCondition struct {
	op         string
	conditions []Condition
}

// And combines conditions with logical AND. Nil conditions are dropped.
// An empty And matches everything.
func And(conditions ...Condition) Condition {
	return group("AND", conditions)
}

// Or combines conditions with logical OR. Nil conditions are dropped.
// An empty Or matches nothing.
func Or(conditions ...Condition) Condition {
	return group("OR", conditions)
}

func group(op string, conditions []Condition) Condition {
	kept := make([]Condition, 0, len(conditions))
	for _, c := range conditions {
		if c != nil {
			kept = append(kept, c)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return &groupCondition{op: op, conditions: kept}
}

// SQL generates the parenthesised SQL fragment for the group.
// Parameter indexes continue across children so names stay unique.
func (c *groupCondition) SQL(paramIndex int) (string, map[string]interface{}) {
	params := map[string]interface{}{}
	if len(c.conditions) == 0 {
		if c.op == "AND" {
			return "TRUE", params
		}
		return "FALSE", params
	}

	parts := make([]string, 0, len(c.conditions))
	for _, child := range c.conditions {
		fragment, childParams := child.SQL(paramIndex)
		parts = append(parts, fragment)
		for k, v := range childParams {
			params[k] = v
		}
		paramIndex += len(childParams)
	}
	return "(" + strings.Join(parts, " "+c.op+" ") + ")", params
}

func (c *groupCondition) filter() bson.D {
	if len(c.conditions) == 0 {
		if c.op == "AND" {
			return bson.D{}
		}
		return bson.D{{Key: "$expr", Value: false}}
	}

	children := make(bson.A, 0, len(c.conditions))
	for _, child := range c.conditions {
		children = append(children, child.filter())
	}
	key := "$and"
	if c.op == "OR" {
		key = "$or"
	}
	return bson.D{{Key: key, Value: children}}
}
