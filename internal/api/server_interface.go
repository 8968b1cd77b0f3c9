package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// Types, the server interface and its chi wiring follow the layout
// oapi-codegen produces for api/openapi.yaml.

// CountFormat selects how a count is rendered.
type CountFormat string

const (
	CountFormatRaw     CountFormat = "raw"
	CountFormatCompact CountFormat = "compact"
)

func (f CountFormat) Valid() bool {
	switch f {
	case CountFormatRaw, CountFormatCompact:
		return true
	default:
		return false
	}
}

// VisitorCount is the response body of both visitor-count operations.
type VisitorCount struct {
	Count uint64 `json:"count"`

	// Display is set only when format=compact was requested.
	Display *string `json:"display,omitempty"`
}

type Error struct {
	Message string `json:"message"`
}

// GetVisitorCountParams defines parameters for GetVisitorCount.
type GetVisitorCountParams struct {
	Format *CountFormat `form:"format,omitempty" json:"format,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Read the current visitor count
	// (GET /api/visitor-count)
	GetVisitorCount(w http.ResponseWriter, r *http.Request, params GetVisitorCountParams)
	// Record a visit and return the new count
	// (POST /api/visitor-count)
	IncrementVisitorCount(w http.ResponseWriter, r *http.Request)
}

// Unimplemented answers every operation with 501.
type Unimplemented struct{}

func (_ Unimplemented) GetVisitorCount(w http.ResponseWriter, r *http.Request, params GetVisitorCountParams) {
	w.WriteHeader(http.StatusNotImplemented)
}

func (_ Unimplemented) IncrementVisitorCount(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotImplemented)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

// GetVisitorCount operation middleware
func (siw *ServerInterfaceWrapper) GetVisitorCount(w http.ResponseWriter, r *http.Request) {
	var err error

	var params GetVisitorCountParams

	err = runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &params.Format)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "format", Err: err})
		return
	}
	if params.Format != nil && !params.Format.Valid() {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{
			ParamName: "format",
			Err:       fmt.Errorf("unsupported value %q", *params.Format),
		})
		return
	}

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetVisitorCount(w, r, params)
	}))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

// IncrementVisitorCount operation middleware
func (siw *ServerInterfaceWrapper) IncrementVisitorCount(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.IncrementVisitorCount(w, r)
	}))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler creates http.Handler with routing matching OpenAPI spec.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/visitor-count", wrapper.GetVisitorCount)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/api/visitor-count", wrapper.IncrementVisitorCount)
	})

	return r
}
