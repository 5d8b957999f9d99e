package httpmiddleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// RouteFinder returns the route template that serves r, like
// "/api/cart/items/{lineId}".
type RouteFinder func(r *http.Request) (string, bool)

// MakeRouteFinder returns a RouteFinder backed by router's matcher.
func MakeRouteFinder(router *mux.Router) RouteFinder {
	return func(r *http.Request) (string, bool) {
		var match mux.RouteMatch
		if !router.Match(r, &match) || match.Route == nil || match.MatchErr != nil {
			return "", false
		}
		tpl, err := match.Route.GetPathTemplate()
		if err != nil {
			return "", false
		}
		return tpl, true
	}
}

// Telemetry provides the OpenTelemetry providers for instrumentation.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Instrument traces and measures every request with otelhttp. Spans are
// named after the matched route.
func Instrument(serviceName string, find RouteFinder, m Telemetry) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if route, ok := find(r); ok {
					return r.Method + " " + route
				}
				return r.Method
			}),
		)
	}
}

// Labeler adds the matched route to otelhttp metrics. It must run inside
// Instrument.
func Labeler(find RouteFinder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if route, ok := find(r); ok {
				labeler, _ := otelhttp.LabelerFromContext(r.Context())
				labeler.Add(attribute.String("http.route", route))
			}
			next.ServeHTTP(w, r)
		})
	}
}
