package jsonschema

import _ "embed"

// TasksURL is the resource name the tasks schema is registered under.
const TasksURL = "taskflow://tasks.schema.json"

// Tasks describes the JSON array written by the file store.
//
//go:embed tasks.schema.json
var Tasks string
