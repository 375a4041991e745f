package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/infer"
	"inferd/pkg/types"
)

// Service defines the methods required by the HTTP API layer. The
// registry implements it.
type Service interface {
	Lookup(model string, version int64) (*infer.Servable, error)
	List() []types.ModelConfig
	Status() types.StatusResponse
	Ready() bool
}

// inferRequestHeaderName carries the JSON request header of a
// streaming inference call; its body is the raw multiplexed buffer.
const inferRequestHeaderName = "X-Infer-Request"

// segmentBytes is the read granularity for streaming request bodies.
// Bodies larger than one segment reach the provider as several ranges,
// the same way a segmenting transport would deliver them.
const segmentBytes = 64 << 10

// maxBodyBytes controls the maximum allowed request body size.
var maxBodyBytes int64 = 64 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 64 << 20
		return
	}
	maxBodyBytes = n
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.List()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Post("/models/{model}/infer", func(w http.ResponseWriter, r *http.Request) {
		handleStreamInfer(svc, w, r)
	})

	r.Post("/models/{model}/infer/json", func(w http.ResponseWriter, r *http.Request) {
		handleEmbeddedInfer(svc, w, r)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// handleStreamInfer serves the raw streaming transport: request header
// JSON in the X-Infer-Request HTTP header, input bytes in the body.
// The response body is the provider's outbound buffer: one JSON header
// line followed by the concatenated raw output bytes.
func handleStreamInfer(svc Service, w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	version := parseVersion(r.URL.Query().Get("version"))

	headerJSON := r.Header.Get(inferRequestHeaderName)
	if headerJSON == "" {
		writeJSONError(w, http.StatusBadRequest, inferRequestHeaderName+" header is required")
		return
	}
	var header types.InferRequestHeader
	if err := json.Unmarshal([]byte(headerJSON), &header); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request header JSON")
		return
	}

	s, err := svc.Lookup(model, version)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	segments, err := readSegments(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	request, err := infer.NewStreamRequestProvider(s, model, version, &header, segments)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	var outbound bytes.Buffer
	response := infer.NewStreamResponseProvider(&header, &outbound)

	if err := runInfer(s, request, response, r); err != nil {
		if infer.IsTooBusy(err) {
			incrementBackpressure(model)
		}
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(outbound.Bytes())
}

// handleEmbeddedInfer serves the embedded-message transport: the whole
// request is one JSON message, and the whole response leaves as one.
func handleEmbeddedInfer(svc Service, w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.InferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Model = model

	s, err := svc.Lookup(model, req.Version)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	request, err := infer.NewEmbeddedRequestProvider(s, &req)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	resp := &types.InferResponse{Model: model}
	response := infer.NewEmbeddedResponseProvider(&req.Meta, resp)

	if err := runInfer(s, request, response, r); err != nil {
		if infer.IsTooBusy(err) {
			incrementBackpressure(model)
		}
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// runInfer drives one request synchronously through the servable and
// logs its outcome.
func runInfer(s *infer.Servable, request infer.RequestProvider, response infer.ResponseProvider, r *http.Request) error {
	stats := infer.NewStats(-1)
	start := time.Now()
	var result error
	s.Run(stats, request, response, func(err error) { result = err })
	if defaultLogLevel >= LevelInfo && zlog != nil {
		z := zlog.Info().
			Str("model", request.ModelName()).
			Int("batch", request.RequestHeader().BatchSize).
			Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Err(result).Msg("infer")
	}
	return result
}

// readSegments drains body into fixed-size segments.
func readSegments(body io.Reader) ([][]byte, error) {
	var segments [][]byte
	for {
		buf := make([]byte, segmentBytes)
		n, err := io.ReadFull(body, buf)
		if n > 0 {
			segments = append(segments, buf[:n])
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return segments, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func parseVersion(s string) int64 {
	if s == "" {
		return -1
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return v
}
