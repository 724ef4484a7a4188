package gateway

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Upstreams struct {
	Order     string
	Wallet    string
	Warehouse string
}

// NewRouter builds the single public entrypoint: it proxies each resource to
// the service that owns it and never touches the body.
func NewRouter(upstreams Upstreams, logger *zap.Logger) (http.Handler, error) {
	orderURL, err := url.Parse(upstreams.Order)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order service URL (%s): %w", upstreams.Order, err)
	}
	walletURL, err := url.Parse(upstreams.Wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet service URL (%s): %w", upstreams.Wallet, err)
	}
	warehouseURL, err := url.Parse(upstreams.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("failed to parse warehouse service URL (%s): %w", upstreams.Warehouse, err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	orderProxy := newProxy(orderURL, logger)
	walletProxy := newProxy(walletURL, logger)
	warehouseProxy := newProxy(warehouseURL, logger)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orderProxy.ServeHTTP)
		r.Get("/{orderID}", orderProxy.ServeHTTP)
		r.Delete("/{orderID}", orderProxy.ServeHTTP)
		r.Get("/buyer/{buyer}", orderProxy.ServeHTTP)
	})

	r.Route("/wallets", func(r chi.Router) {
		r.Post("/", walletProxy.ServeHTTP)
		r.Get("/{username}", walletProxy.ServeHTTP)
		r.Post("/{username}/top-up", walletProxy.ServeHTTP)
	})

	r.Route("/availability", func(r chi.Router) {
		r.Post("/", warehouseProxy.ServeHTTP)
		r.Get("/{productID}", warehouseProxy.ServeHTTP)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r, nil
}

func newProxy(target *url.URL, logger *zap.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)

	proxy.Director = func(req *http.Request) {
		req.URL.Host = target.Host
		req.URL.Scheme = target.Scheme
		req.RequestURI = req.URL.RequestURI()

		if clientIP, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
			if prior, ok := req.Header["X-Forwarded-For"]; ok {
				clientIP = strings.Join(prior, ", ") + ", " + clientIP
			}
			req.Header.Set("X-Forwarded-For", clientIP)
		}
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("Proxy error",
			zap.String("path", r.URL.Path),
			zap.String("target", target.String()),
			zap.Error(err))

		if os.IsTimeout(err) {
			renderJSONError(w, "Gateway Timeout", http.StatusGatewayTimeout)
		} else if _, ok := err.(net.Error); ok {
			renderJSONError(w, "Service Unavailable", http.StatusServiceUnavailable)
		} else {
			renderJSONError(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}

	return proxy
}

func renderJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"error": "%s", "code": %d}`, message, statusCode)
}
