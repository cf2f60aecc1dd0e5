package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	er "github.com/mcorbin/corbierror"
)

// ExecuteOperation runs one named analytics operation. The request body
// is the argument mapping; an empty body means no arguments.
func (b *Builder) ExecuteOperation(ec echo.Context) error {
	name := ec.Param("name")
	if name == "" {
		return er.New("missing operation name", er.BadRequest, true)
	}
	args := map[string]any{}
	if ec.Request().ContentLength > 0 {
		if err := ec.Bind(&args); err != nil {
			return err
		}
	}
	envelope, err := b.dispatcher.Execute(ec.Request().Context(), name, args)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, envelope)
}

// ListOperations returns the registered operations with their parameter
// schemas, for tool discovery by the orchestrator.
func (b *Builder) ListOperations(ec echo.Context) error {
	return ec.JSON(http.StatusOK, map[string]any{
		"operations": b.dispatcher.Schemas(),
	})
}
