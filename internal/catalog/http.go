package catalog

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ProductManager/internal/events"
	"ProductManager/pkg/kit"
)

type Server struct {
	Store *Store
	Log   *zap.Logger

	// Events receives inbound metrics requests posted over HTTP.
	Events events.Broadcaster
	// Stream serves GET /events; the route is absent when nil.
	Stream http.Handler
	// Guard wraps the mutating routes, typically a bearer token check.
	Guard func(http.Handler) http.Handler
	// AddLimiter rate-limits POST /products per client IP.
	AddLimiter *kit.IPRateLimiter
}

type addResponse struct {
	Product Product     `json:"product"`
	Form    ProductForm `json:"form"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			if s.Log != nil {
				s.Log.Warn("readyz failed", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.list)
		r.Get("/metrics", s.metrics)
		r.Get("/export.csv", s.exportCSV)
		r.Get("/{id}", s.get)

		r.Group(func(r chi.Router) {
			if s.Guard != nil {
				r.Use(s.Guard)
			}
			r.With(s.AddLimiter.Middleware).Post("/", s.add)
			r.Patch("/{id}", s.update)
			r.Delete("/{id}", s.remove)
			r.Post("/{id}/toggle", s.toggle)
		})
	})

	if s.Stream != nil {
		r.Get("/events", s.Stream.ServeHTTP)
	}
	r.Post("/events/request-metrics", s.requestMetrics)

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Store.Products())
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok := s.Store.Get(id)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Store.GetMetrics())
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	if err := WriteCSV(w, s.Store.Products()); err != nil && s.Log != nil {
		s.Log.Error("csv export failed", zap.Error(err))
	}
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad request", map[string]any{"reason": err.Error()})
		return
	}

	in, err := form.Parse()
	if err != nil {
		var fe *FormError
		if errors.As(err, &fe) {
			kit.WriteError(w, r, http.StatusUnprocessableEntity, fe.Message, fe)
			return
		}
		kit.WriteError(w, r, http.StatusBadRequest, "bad request", nil)
		return
	}

	// The mutation is already applied in memory; storage must not be cut
	// short by the client going away.
	p := s.Store.AddProduct(context.WithoutCancel(r.Context()), in)
	kit.WriteJSON(w, http.StatusCreated, addResponse{Product: p, Form: EmptyForm()})
}

func readForm(w http.ResponseWriter, r *http.Request) (ProductForm, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/x-www-form-urlencoded" {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := r.ParseForm(); err != nil {
			return ProductForm{}, err
		}
		return FormFromURLValues(r.PostForm), nil
	}

	var values map[string]any
	if err := kit.DecodeJSON(w, r, &values, false); err != nil {
		return ProductForm{}, err
	}
	return FormFromValues(values), nil
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var fields map[string]any
	if err := kit.DecodeJSON(w, r, &fields, false); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	patch, err := DecodePatch(fields)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid update", map[string]any{"reason": err.Error()})
		return
	}

	p, ok := s.Store.UpdateProduct(context.WithoutCancel(r.Context()), id, patch)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, ok := s.Store.RemoveProduct(context.WithoutCancel(r.Context()), id); !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok := s.Store.ToggleProductStatus(context.WithoutCancel(r.Context()), id)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) requestMetrics(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		kit.WriteError(w, r, http.StatusServiceUnavailable, "events unavailable", nil)
		return
	}
	s.Events.Emit(events.RequestMetrics, nil)
	w.WriteHeader(http.StatusAccepted)
}
