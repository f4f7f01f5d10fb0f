package nl2sql

import "fmt"

// TableName is the only table the model is told about.
const TableName = "data"

// SystemPrompt is sent in the system role alongside every prompt.
const SystemPrompt = "You are an AI assistant."

const promptTemplate = `
You are an AI assistant that converts natural language to SQL queries.

Here is the database schema:
Table: %s
Columns:
%s

Generate a SQL query for the following request:
"%s"

Only provide the SQL query.
`

// BuildPrompt interpolates the schema description and the raw request into
// the fixed instruction template. The request is not escaped.
func BuildPrompt(request, schema string) string {
	return fmt.Sprintf(promptTemplate, TableName, schema, request)
}
