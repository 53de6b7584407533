package models

// JSONB is a free-form JSON object persisted in a jsonb column or embedded
// in an event payload.
type JSONB map[string]interface{}
