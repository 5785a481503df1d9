package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/model"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateIndexName validates an index name parameter
func ValidateIndexName(indexName string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if indexName == "" {
		result.AddError("indexName", "Index name is required")
		return result
	}

	if strings.TrimSpace(indexName) != indexName {
		result.AddError("indexName", "Index name cannot have leading or trailing whitespace")
		return result
	}

	return result
}

// ValidateDocumentID validates a document ref: the decimal form of a
// document id.
func ValidateDocumentID(documentID string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if documentID == "" {
		result.AddError("ref", "Document ref is required")
		return result
	}

	if _, err := strconv.ParseUint(documentID, 10, 32); err != nil {
		result.AddError("ref", "Document ref must be a non-negative integer, got '"+documentID+"'")
	}

	return result
}

// ValidateIndexSettings applies defaults to settings and validates them.
func ValidateIndexSettings(settings *config.IndexSettings) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if settings == nil {
		result.AddError("settings", "Index settings are required")
		return result
	}

	if settings.Name == "" {
		result.AddError("name", "Index name is required")
	}

	settings.ApplyDefaults()

	for _, conflict := range settings.Validate() {
		result.AddError("settings", conflict)
	}

	return result
}

// ValidateDocuments validates the documents an index is built from.
func ValidateDocuments(docs []model.Document) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(docs) == 0 {
		result.AddError("documents", "No documents provided")
		return result
	}

	seen := make(map[uint32]int, len(docs))
	for i, doc := range docs {
		if first, dup := seen[doc.ID]; dup {
			result.AddError(fmt.Sprintf("documents[%d].id", i),
				fmt.Sprintf("Document id %d is already used by documents[%d]", doc.ID, first))
			continue
		}
		seen[doc.ID] = i

		if strings.TrimSpace(doc.Title+doc.Body+doc.Breadcrumbs) == "" {
			result.AddError(fmt.Sprintf("documents[%d]", i), "Document must have a title, body or breadcrumbs")
		}
	}

	return result
}

// ValidatePagination validates pagination parameters
func ValidatePagination(page, pageSize int) (int, int, *ValidationResult) {
	result := &ValidationResult{Valid: true}

	// Set defaults
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	// Validate limits
	if pageSize > 100 {
		pageSize = 100 // Maximum page size
	}

	return page, pageSize, result
}

// ValidateRenameRequest validates a rename index request. Renaming to the
// current name is reported by the engine.
func ValidateRenameRequest(oldName, newName string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if oldName == "" {
		result.AddError("oldName", "Current index name is required")
	}

	if newName == "" {
		result.AddError("new_name", "New name is required and cannot be empty")
	}

	if strings.TrimSpace(newName) != newName {
		result.AddError("new_name", "New name cannot have leading or trailing whitespace")
	}

	return result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}

// ValidateJSONBinding validates JSON binding and returns a standardized error
func ValidateJSONBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindJSON(target); err != nil {
		result.AddError("request_body", "Invalid request body: "+err.Error())
	}

	return result
}
