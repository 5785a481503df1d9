package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetDocumentsHandler lists the documents of an index in id order.
// Query: page (default 1), page_size (default 10, at most 100).
func (api *API) GetDocumentsHandler(c *gin.Context) {
	accessor, _, ok := api.getIndex(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	page, pageSize, result := ValidatePagination(page, pageSize)
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	docs := accessor.Index().Documents.Ordered()
	total := len(docs)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs[start:end],
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetDocumentHandler returns the document stored under a ref.
func (api *API) GetDocumentHandler(c *gin.Context) {
	accessor, indexName, ok := api.getIndex(c)
	if !ok {
		return
	}

	ref := c.Param("ref")
	if result := ValidateDocumentID(ref); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	doc, err := accessor.Document(ref)
	if err != nil {
		api.sendEngineError(c, "get document", indexName, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}
