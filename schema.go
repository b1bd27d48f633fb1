package treecalc

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaURL is the resource name of the persisted tree schema.
const schemaURL = "schema://treecalc.json"

// treeSchema describes persisted trees and profiles.
const treeSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"$ref": "#/$defs/node",
	"$defs": {
		"node": {
			"oneOf": [
				{"type": "number"},
				{"type": "string"},
				{"type": "array", "items": {"$ref": "#/$defs/node"}},
				{"$ref": "#/$defs/identifier"},
				{"$ref": "#/$defs/binary"},
				{"$ref": "#/$defs/unary"},
				{"$ref": "#/$defs/call"},
				{"$ref": "#/$defs/calculus"},
				{"$ref": "#/$defs/range"}
			]
		},
		"name": {"type": "string", "minLength": 1},
		"identifier": {
			"type": "object",
			"required": ["type", "name"],
			"properties": {
				"type": {"const": "identifier"},
				"name": {"$ref": "#/$defs/name"}
			},
			"additionalProperties": false
		},
		"binary": {
			"type": "object",
			"required": ["type", "op", "left", "right"],
			"properties": {
				"type": {"const": "binary"},
				"op": {"$ref": "#/$defs/name"},
				"left": {"$ref": "#/$defs/node"},
				"right": {"$ref": "#/$defs/node"}
			},
			"additionalProperties": false
		},
		"unary": {
			"type": "object",
			"required": ["type", "op", "operand"],
			"properties": {
				"type": {"const": "unary"},
				"op": {"$ref": "#/$defs/name"},
				"postfix": {"type": "boolean"},
				"operand": {"$ref": "#/$defs/node"}
			},
			"additionalProperties": false
		},
		"call": {
			"type": "object",
			"required": ["type", "name", "param"],
			"properties": {
				"type": {"const": "call"},
				"name": {"$ref": "#/$defs/name"},
				"param": {"$ref": "#/$defs/node"}
			},
			"additionalProperties": false
		},
		"calculus": {
			"type": "object",
			"required": ["type", "name", "op", "param"],
			"properties": {
				"type": {"const": "calculus"},
				"name": {"$ref": "#/$defs/name"},
				"op": {"$ref": "#/$defs/name"},
				"param": {"$ref": "#/$defs/node"}
			},
			"additionalProperties": false
		},
		"range": {
			"type": "object",
			"required": ["type", "var", "lo", "target"],
			"properties": {
				"type": {"const": "range"},
				"var": {"$ref": "#/$defs/name"},
				"consumer": {"$ref": "#/$defs/name"},
				"point": {"type": "boolean"},
				"lo": {"$ref": "#/$defs/node"},
				"hi": {"$ref": "#/$defs/node"},
				"delta": {"$ref": "#/$defs/node"},
				"lower": {"enum": ["<", "<="]},
				"upper": {"$ref": "#/$defs/name"},
				"target": {"$ref": "#/$defs/node"}
			},
			"if": {"required": ["point"], "properties": {"point": {"const": true}}},
			"else": {"required": ["hi", "delta", "lower", "upper"]},
			"additionalProperties": false
		},
		"import": {
			"type": "object",
			"required": ["kind"],
			"properties": {
				"kind": {"enum": ["variable", "function", "consumer", "operator"]},
				"value": {"type": "string"}
			},
			"additionalProperties": false
		},
		"profile": {
			"type": "object",
			"required": ["type", "name", "params", "body"],
			"properties": {
				"type": {"const": "profile"},
				"name": {"$ref": "#/$defs/name"},
				"params": {"type": "array", "items": {"$ref": "#/$defs/name"}, "uniqueItems": true},
				"description": {"type": "string"},
				"imports": {"type": "object", "additionalProperties": {"$ref": "#/$defs/import"}},
				"body": {"$ref": "#/$defs/node"}
			},
			"additionalProperties": false
		}
	}
}`

var (
	schemaOnce    sync.Once
	exprSchema    *jsonschema.Schema
	profileSchema *jsonschema.Schema
	schemaErr     error
)

// schemas compiles the persisted tree schemas on first use.
func schemas() (expr, profile *jsonschema.Schema, err error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(treeSchema)); err != nil {
			schemaErr = errors.Wrap(err, "adding tree schema")
			return
		}
		if exprSchema, schemaErr = c.Compile(schemaURL); schemaErr != nil {
			schemaErr = errors.Wrap(schemaErr, "compiling tree schema")
			return
		}
		if profileSchema, schemaErr = c.Compile(schemaURL + "#/$defs/profile"); schemaErr != nil {
			schemaErr = errors.Wrap(schemaErr, "compiling profile schema")
		}
	})
	return exprSchema, profileSchema, schemaErr
}
