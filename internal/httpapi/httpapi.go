// Package httpapi exposes the analysis over HTTP: the full validate
// pipeline, three diagnostic endpoints that each run a single pipeline
// stage in isolation (subset check, schema-to-grammar,
// stylesheet-to-MTT), and a health check.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/midbel/xsltproof/internal/lintsubset"
	"github.com/midbel/xsltproof/internal/logging"
	"github.com/midbel/xsltproof/internal/pipeline"
	"github.com/midbel/xsltproof/internal/transducer"
	"github.com/midbel/xsltproof/internal/treegrammar"
	"github.com/midbel/xsltproof/xml"
)

// Handler bundles the dependencies the route handlers need: currently
// just a logger, since every analysis is a pure function of its request
// body and carries no other state between requests.
type Handler struct {
	log *logging.Logger
}

// NewHandler builds a Handler. log may be nil.
func NewHandler(log *logging.Logger) *Handler {
	return &Handler{log: log}
}

// NewRouter wires the five endpoints onto a gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.POST("/validate", h.Validate)
		api.POST("/check-subset", h.CheckSubset)
		api.POST("/parse-xsd", h.ParseXSD)
		api.POST("/convert-to-mtt", h.ConvertToMTT)
	}
	return r
}

func (h *Handler) logf(msg string, keysAndValues ...interface{}) {
	if h.log != nil {
		h.log.Info(msg, keysAndValues...)
	}
}

// Health reports liveness, mirroring app.py's /health route.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "xsltproof analysis API",
	})
}

type validateRequest struct {
	SourceSchema string `json:"source_schema"`
	TargetSchema string `json:"target_schema"`
	Stylesheet   string `json:"stylesheet"`
}

// Validate runs the full A-through-E pipeline over the request body.
func (h *Handler) Validate(c *gin.Context) {
	requestID := uuid.NewString()

	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "invalid request body: " + err.Error()})
		return
	}
	if req.SourceSchema == "" || req.TargetSchema == "" || req.Stylesheet == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": "missing required fields: source_schema, target_schema, stylesheet",
		})
		return
	}

	h.logf("running validation pipeline", "request_id", requestID)
	log := h.log
	if log != nil {
		log = log.With("request_id", requestID)
	}
	resp := pipeline.Run(c.Request.Context(), pipeline.Request{
		SourceSchema: req.SourceSchema,
		TargetSchema: req.TargetSchema,
		Stylesheet:   req.Stylesheet,
	}, log)
	c.JSON(http.StatusOK, resp)
}

type xsltRequest struct {
	Stylesheet string `json:"stylesheet"`
}

// CheckSubset runs component A alone.
func (h *Handler) CheckSubset(c *gin.Context) {
	var req xsltRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Stylesheet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing required field: stylesheet"})
		return
	}

	doc, err := xml.ParseString(req.Stylesheet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	result := lintsubset.Lint(doc)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"valid":    result.Valid(),
		"errors":   result.Errors(),
		"warnings": result.Warnings(),
	})
}

type schemaRequest struct {
	Schema string `json:"schema"`
}

// ParseXSD runs component B alone.
func (h *Handler) ParseXSD(c *gin.Context) {
	var req schemaRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Schema == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing required field: schema"})
		return
	}

	doc, err := xml.ParseString(req.Schema)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	grammar, trace, err := treegrammar.Build(doc)
	if err != nil || trace.HasErrors() {
		msg := "schema could not be converted to a tree grammar"
		if err != nil {
			msg = err.Error()
		} else if errs := trace.Errors(); len(errs) > 0 {
			msg = errs[0].String()
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "grammar": grammar})
}

// ConvertToMTT runs component C alone.
func (h *Handler) ConvertToMTT(c *gin.Context) {
	var req xsltRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Stylesheet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing required field: stylesheet"})
		return
	}

	doc, err := xml.ParseString(req.Stylesheet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	mtt, trace, err := transducer.Build(doc)
	if err != nil || trace.HasErrors() {
		msg := "stylesheet could not be converted to a transducer"
		if err != nil {
			msg = err.Error()
		} else if errs := trace.Errors(); len(errs) > 0 {
			msg = errs[0].String()
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "mtt": mtt})
}
