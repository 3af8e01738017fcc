package echomw

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/middleware"
	"github.com/reoring/dynaskema/registry"
)

// ValidateJSON parses request JSON via schema s, stores the Record in context on success,
// or returns 400 with Issues when validation fails.
func ValidateJSON(s dynaskema.Schema[*dynaskema.Record], opt dynaskema.ParseOpt) echo.MiddlewareFunc {
	if middleware.IsZeroOpt(opt) {
		opt = middleware.DefaultParseOpt()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rec, err := dynaskema.ParseJSONReader(c.Request().Context(), s, c.Request().Body, opt)
			if err != nil {
				return badRequest(c, err)
			}
			ctx := middleware.ContextWithRecord(c.Request().Context(), rec)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// GetRecord fetches the validated Record from echo.Context.
func GetRecord(c echo.Context) (*dynaskema.Record, bool) {
	return middleware.RecordFromContext(c.Request().Context())
}

// Mount registers schema management routes on g:
//
//	PUT  /schemas                 register a JSON or YAML schema document
//	POST /schemas/:name/validate  validate a JSON body against a registered model
//	GET  /schemas                 list registered model names
func Mount(g *echo.Group, reg *registry.Registry) {
	g.PUT("/schemas", func(c echo.Context) error {
		limit := middleware.DefaultParseOpt().MaxBytes
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, limit+1))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
		}
		if int64(len(body)) > limit {
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]any{"error": "schema document exceeds " + strconv.FormatInt(limit, 10) + " bytes"})
		}
		m, err := reg.Register(body)
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		}
		return c.JSON(http.StatusCreated, map[string]any{"model": m.Name(), "fields": m.FieldNames()})
	})
	g.GET("/schemas", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"models": reg.Names()})
	})
	g.POST("/schemas/:name/validate", func(c echo.Context) error {
		m, ok := reg.Get(c.Param("name"))
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]any{"error": registry.ErrNotFound.Error()})
		}
		rec, err := dynaskema.ParseJSONReader[*dynaskema.Record](c.Request().Context(), m, c.Request().Body, middleware.DefaultParseOpt())
		if err != nil {
			return badRequest(c, err)
		}
		out, err := m.EncodeJSON(c.Request().Context(), rec, dynaskema.EncodeCanonical)
		if err != nil {
			return badRequest(c, err)
		}
		return c.JSONBlob(http.StatusOK, out)
	})
}

func badRequest(c echo.Context, err error) error {
	if iss, ok := dynaskema.AsIssues(err); ok {
		return c.JSON(http.StatusBadRequest, middleware.ErrorPayload(iss))
	}
	return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
}
