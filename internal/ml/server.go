package ml

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"titanic-survival/internal/features"
)

// PredictRequest is the /predict body. Pointer fields distinguish an absent
// value from a zero one.
type PredictRequest struct {
	Pclass   *int     `json:"pclass"`
	Sex      *string  `json:"sex"`
	Age      *float64 `json:"age"`
	SibSp    *int     `json:"sibsp"`
	Parch    *int     `json:"parch"`
	Fare     *float64 `json:"fare"`
	Embarked *string  `json:"embarked"`
	Cabin    *string  `json:"cabin,omitempty"`
	Name     *string  `json:"name,omitempty"`
}

// Bind validates the decoded request for render.Bind.
func (req *PredictRequest) Bind(*http.Request) error {
	var problems []string
	missing := func(field string) { problems = append(problems, field+" is required") }

	switch {
	case req.Pclass == nil:
		missing("pclass")
	case *req.Pclass < 1 || *req.Pclass > 3:
		problems = append(problems, "pclass must be 1, 2 or 3")
	}
	if req.Sex == nil || strings.TrimSpace(*req.Sex) == "" {
		missing("sex")
	}
	switch {
	case req.Age == nil:
		missing("age")
	case *req.Age < 0 || *req.Age > 100:
		problems = append(problems, "age must be between 0 and 100")
	}
	switch {
	case req.SibSp == nil:
		missing("sibsp")
	case *req.SibSp < 0:
		problems = append(problems, "sibsp must not be negative")
	}
	switch {
	case req.Parch == nil:
		missing("parch")
	case *req.Parch < 0:
		problems = append(problems, "parch must not be negative")
	}
	switch {
	case req.Fare == nil:
		missing("fare")
	case *req.Fare < 0:
		problems = append(problems, "fare must not be negative")
	}
	if req.Embarked == nil || strings.TrimSpace(*req.Embarked) == "" {
		missing("embarked")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Passenger converts a validated request.
func (req *PredictRequest) Passenger() features.Passenger {
	p := features.Passenger{
		Pclass:   *req.Pclass,
		Sex:      *req.Sex,
		Age:      *req.Age,
		SibSp:    *req.SibSp,
		Parch:    *req.Parch,
		Fare:     *req.Fare,
		Embarked: *req.Embarked,
	}
	if req.Cabin != nil {
		p.Cabin = *req.Cabin
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	return p
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// PredictionEvent is one served prediction, as recorded and broadcast.
type PredictionEvent struct {
	ID        string             `json:"id"`
	RequestID string             `json:"request_id"`
	Timestamp time.Time          `json:"timestamp"`
	Passenger features.Passenger `json:"passenger"`
	Result    Prediction         `json:"result"`
	LatencyMS float64            `json:"latency_ms"`
}

// PredictionRecorder persists served predictions.
type PredictionRecorder interface {
	RecordPrediction(PredictionEvent) error
}

// PredictionPublisher fans served predictions out to live subscribers.
type PredictionPublisher interface {
	Publish(PredictionEvent)
}

// ServerOptions wires optional collaborators into the API.
type ServerOptions struct {
	Port           int
	RequestTimeout time.Duration
	CORSOrigins    []string
	Recorder       PredictionRecorder
	Publisher      PredictionPublisher
	MetricsHandler http.Handler
	FeedHandler    http.Handler
}

// ModelServer provides HTTP API for model predictions
type ModelServer struct {
	predictor *Predictor
	opts      ServerOptions
	router    chi.Router
	server    *http.Server
}

// NewModelServer creates a new HTTP server for model serving
func NewModelServer(predictor *Predictor, opts ServerOptions) *ModelServer {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	ms := &ModelServer{predictor: predictor, opts: opts}
	ms.router = ms.routes()
	ms.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      ms.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: opts.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return ms
}

func (ms *ModelServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: ms.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	if ms.opts.FeedHandler != nil {
		r.Get("/ws/predictions", ms.opts.FeedHandler.ServeHTTP)
	}
	if ms.opts.MetricsHandler != nil {
		r.Get("/metrics", ms.opts.MetricsHandler.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(ms.opts.RequestTimeout))
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/", ms.handleRoot)
		r.Get("/health", ms.handleHealth)
		r.Get("/model-info", ms.handleModelInfo)
		r.Post("/predict", ms.handlePredict)
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (ms *ModelServer) Handler() http.Handler {
	return ms.router
}

// Start begins serving HTTP requests
func (ms *ModelServer) Start() error {
	log.Info().Str("addr", ms.server.Addr).Msg("starting model server")
	if err := ms.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (ms *ModelServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

func (ms *ModelServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"message":      "Titanic Survival Prediction API",
		"model_loaded": ms.predictor.Available(),
		"endpoints":    []string{"/health", "/predict", "/model-info", "/metrics", "/ws/predictions"},
	})
}

func (ms *ModelServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := ms.predictor.Health()
	if !health.ModelLoaded {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, health)
}

func (ms *ModelServer) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, ms.predictor.Info())
}

func (ms *ModelServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !ms.predictor.Available() {
		writeError(w, r, http.StatusServiceUnavailable, "model not loaded", "")
		return
	}

	var req PredictRequest
	if err := render.Bind(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid request", err.Error())
		return
	}

	passenger := req.Passenger()
	result, err := ms.predictor.Predict(passenger)
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			writeError(w, r, http.StatusServiceUnavailable, "model not loaded", "")
			return
		}
		log.Error().Err(err).Msg("prediction failed")
		writeError(w, r, http.StatusInternalServerError, "prediction failed", err.Error())
		return
	}

	requestID := middleware.GetReqID(r.Context())
	event := PredictionEvent{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Passenger: passenger,
		Result:    result,
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	if ms.opts.Recorder != nil {
		if err := ms.opts.Recorder.RecordPrediction(event); err != nil {
			log.Warn().Err(err).Str("prediction_id", event.ID).Msg("Failed to record prediction")
		}
	}
	if ms.opts.Publisher != nil {
		ms.opts.Publisher.Publish(event)
	}

	render.JSON(w, r, result)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg, detail string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg, Detail: detail})
}

// requestLogger logs one line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
