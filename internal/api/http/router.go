package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/examhall/internal/attempt"
	"github.com/mind-engage/examhall/internal/auth"
	"github.com/mind-engage/examhall/internal/authoring"
	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/platform/logger"
	"github.com/mind-engage/examhall/internal/rbac"
	"github.com/mind-engage/examhall/internal/review"
	"github.com/mind-engage/examhall/internal/storage"
)

// Deps is everything the router needs. Blobs may be nil, which disables
// attachments and /uploads.
type Deps struct {
	Log         *logger.Logger
	Store       exam.Store
	Tokens      *auth.AuthService
	Credentials *auth.Credentials
	Authoring   *authoring.Service
	Attempts    *attempt.Service
	Reviews     *review.Service
	Blobs       storage.BlobStore

	CORSOrigins    []string
	AuthRatePerMin int
	MaxUploadBytes int64
	ServeUploads   bool
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	if d.Blobs != nil && d.ServeUploads {
		r.Route("/uploads", func(ur chi.Router) {
			MountUploads(ur, d.Blobs, log)
		})
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(30 * time.Second))

		api.Group(func(pub chi.Router) {
			pub.Use(RateLimit(d.AuthRatePerMin))
			pub.Post("/auth/register", RegisterHandler(d.Credentials, log))
			pub.Post("/auth/login", LoginHandler(d.Credentials, log))
		})

		api.Group(func(ar chi.Router) {
			ar.Use(auth.JWTMiddleware(d.Tokens, d.Store))

			// anonymous callers may read exams; answer keys are owner-only
			ar.Get("/exams/code/{code}", GetExamByCodeHandler(d.Authoring, log))
			ar.Get("/exams/{id}", GetExamHandler(d.Authoring, log))
			ar.Get("/exams/{id}/questions", ListQuestionsHandler(d.Authoring, log))

			ar.Group(func(pr chi.Router) {
				pr.Use(rbac.RequireCaller)

				pr.Get("/user", CurrentUserHandler(d.Store, log))
				pr.Get("/user/submissions", MySubmissionsHandler(d.Attempts, log))

				pr.Post("/exams", CreateExamHandler(d.Authoring, log))
				pr.Get("/exams", ListMyExamsHandler(d.Authoring, log))
				pr.Put("/exams/{id}", UpdateExamHandler(d.Authoring, log))
				pr.Delete("/exams/{id}", DeleteExamHandler(d.Authoring, log))
				pr.Post("/exams/{id}/attachment", UploadAttachmentHandler(d.Authoring, maxUpload, log))

				pr.Post("/exams/{id}/questions", AddQuestionHandler(d.Authoring, log))
				pr.Put("/questions/{id}", UpdateQuestionHandler(d.Authoring, log))
				pr.Delete("/questions/{id}", DeleteQuestionHandler(d.Authoring, log))

				pr.Post("/exams/{id}/submissions", StartSubmissionHandler(d.Attempts, log))
				pr.Get("/exams/{id}/submissions", ListExamSubmissionsHandler(d.Attempts, log))
				pr.Get("/submissions/{id}", GetSubmissionHandler(d.Attempts, log))
				pr.Post("/submissions/{id}/complete", CompleteSubmissionHandler(d.Attempts, log))
				pr.Post("/submissions/{id}/answers", SubmitAnswerHandler(d.Attempts, log))
				pr.Get("/submissions/{id}/answers", ListAnswersHandler(d.Attempts, log))

				pr.Post("/answers/{id}/review-request", RequestReviewHandler(d.Reviews, log))
				pr.Post("/answers/{id}/review", ReviewAnswerHandler(d.Reviews, log))
				pr.Get("/answers/{id}/review-requests", ListReviewRequestsHandler(d.Reviews, log))
				pr.Post("/review-requests/{id}/reject", RejectReviewHandler(d.Reviews, log))
			})
		})
	})
	return r
}
