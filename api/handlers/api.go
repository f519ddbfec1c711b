package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chakshi/chakshi-api/api"
	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/databases"
	"github.com/chakshi/chakshi-api/models"
	"github.com/chakshi/chakshi-api/payments"
	"github.com/chakshi/chakshi-api/storage"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	Hub      *NotificationHub
	Store    storage.FileStore
	Payments payments.Gateway
	Calendar CalendarService

	dbHelper databases.DatabaseHelper
	client   databases.ClientHelper
	auth     *api.Auth
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	if a.auth == nil {
		a.auth = api.NewAuth(context.Background(), a.Config.JWTSecret)
	}
	if a.Hub == nil {
		a.Hub = NewNotificationHub()
	}

	caseDB := databases.NewCaseDatabase(a.dbHelper)
	paymentDB := databases.NewPaymentDatabase(a.dbHelper)
	documentDB := databases.NewDocumentDatabase(a.dbHelper)
	partyDB := databases.NewPartyDatabase(a.dbHelper)

	c := Case{DB: caseDB}
	t := Timeline{DB: databases.NewTimelineDatabase(a.dbHelper), CaseDB: caseDB}
	p := Payment{DB: paymentDB, CaseDB: caseDB}
	n := Note{DB: databases.NewNoteDatabase(a.dbHelper), CaseDB: caseDB}
	cc := ClerkCase{DB: caseDB, Notifier: a.Hub}
	d := Document{DB: documentDB, CaseDB: caseDB, PartyDB: partyDB, Store: a.Store, MaxBytes: a.Config.MaxUploadBytes()}
	party := Party{DB: partyDB, CaseDB: caseDB, Store: a.Store, MaxBytes: a.Config.MaxUploadBytes()}
	g := Gateway{Provider: a.Payments, PaymentDB: paymentDB, CaseDB: caseDB}
	cal := Calendar{Service: a.Calendar}
	dash := Dashboard{CaseDB: caseDB, DocumentDB: documentDB, PartyDB: partyDB, PaymentDB: paymentDB}

	timeout := api.TimeoutMiddleware(time.Duration(a.Config.RequestTimeoutSec) * time.Second)

	r := mux.NewRouter()
	r.Use(api.LoggingMiddleware, api.RecoverMiddleware(a.Config.IsDevelopment()))

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// signed by the gateway, not by a user token
	r.Handle("/api/payment/webhook", timeout(http.HandlerFunc(g.WebhookHandler))).Methods("POST")

	// long lived, so outside the request timeout
	r.Handle("/api/notifications/ws", api.QueryTokenMiddleware(a.auth.Middleware(http.HandlerFunc(a.Hub.HandleWebSocket)))).Methods("GET")

	if strings.EqualFold(a.Config.StorageBackend, "disk") || a.Config.StorageBackend == "" {
		r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.Config.UploadDir)))).Methods("GET")
	}

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(timeout, a.auth.Middleware)

	apiRouter.HandleFunc("/cases", c.CreateCaseHandler).Methods("POST")
	apiRouter.HandleFunc("/cases", c.ListCasesHandler).Methods("GET")
	apiRouter.HandleFunc("/cases/number", c.CaseByNumberHandler).Methods("GET")
	apiRouter.HandleFunc("/cases/{caseId}", c.CaseByIDHandler).Methods("GET")
	apiRouter.HandleFunc("/cases/{caseId}", c.UpdateCaseHandler).Methods("PUT")
	apiRouter.HandleFunc("/cases/{caseId}/archive", c.ArchiveCaseHandler).Methods("PATCH")

	apiRouter.HandleFunc("/casedetails/{caseId}/timeline", t.TimelineHandler).Methods("GET")
	apiRouter.HandleFunc("/casedetails/{caseId}/timeline", t.CreateTimelineHandler).Methods("POST")
	apiRouter.HandleFunc("/casedetails/{caseId}/timeline/{entryId}", t.UpdateTimelineHandler).Methods("PUT")
	apiRouter.HandleFunc("/casedetails/{caseId}/timeline/{entryId}/status", t.UpdateTimelineStatusHandler).Methods("PATCH")
	apiRouter.HandleFunc("/casedetails/{caseId}/timeline/{entryId}", t.DeleteTimelineHandler).Methods("DELETE")

	apiRouter.HandleFunc("/casedetails/{caseId}/payments", p.PaymentsHandler).Methods("GET")
	apiRouter.HandleFunc("/casedetails/{caseId}/payments", p.CreatePaymentHandler).Methods("POST")
	apiRouter.HandleFunc("/casedetails/{caseId}/payments/stats", p.PaymentStatsHandler).Methods("GET")
	apiRouter.HandleFunc("/casedetails/{caseId}/payments/{paymentId}/status", p.UpdatePaymentStatusHandler).Methods("PATCH")
	apiRouter.HandleFunc("/casedetails/{caseId}/payments/{paymentId}", p.DeletePaymentHandler).Methods("DELETE")

	apiRouter.HandleFunc("/casedetails/{caseId}/notes", n.NotesHandler).Methods("GET")
	apiRouter.HandleFunc("/casedetails/{caseId}/notes", n.CreateNoteHandler).Methods("POST")
	apiRouter.HandleFunc("/casedetails/{caseId}/notes/{noteId}", n.UpdateNoteHandler).Methods("PUT")
	apiRouter.HandleFunc("/casedetails/{caseId}/notes/{noteId}/pin", n.TogglePinHandler).Methods("PATCH")
	apiRouter.HandleFunc("/casedetails/{caseId}/notes/{noteId}", n.DeleteNoteHandler).Methods("DELETE")

	apiRouter.HandleFunc("/clerkcasedetails/hearings/upcoming", cc.UpcomingHearingsHandler).Methods("GET")
	apiRouter.HandleFunc("/clerkcasedetails/{caseId}", cc.ClerkCaseHandler).Methods("GET")
	apiRouter.HandleFunc("/clerkcasedetails/{caseId}/history", cc.CaseHistoryHandler).Methods("GET")
	apiRouter.HandleFunc("/clerkcasedetails/{caseId}/history", cc.AddCaseHistoryHandler).Methods("POST")
	apiRouter.HandleFunc("/clerkcasedetails/{caseId}/history/{entryId}/complete", cc.CompleteCaseHistoryHandler).Methods("PATCH")
	apiRouter.HandleFunc("/clerkcasedetails/{caseId}/history/{entryId}/remarks", cc.AddCaseHistoryRemarkHandler).Methods("POST")
	apiRouter.HandleFunc("/clerkcasedetails/{caseId}/hearings", cc.HearingsHandler).Methods("GET")
	apiRouter.HandleFunc("/clerkcasedetails/{caseId}/hearings", cc.AddHearingHandler).Methods("POST")
	apiRouter.HandleFunc("/clerkcasedetails/{caseId}/hearings/{hearingId}", cc.UpdateHearingHandler).Methods("PUT")
	apiRouter.HandleFunc("/clerkcasedetails/{caseId}/hearings/{hearingId}", cc.DeleteHearingHandler).Methods("DELETE")
	apiRouter.HandleFunc("/clerkcasedetails/{caseId}/hearings/{hearingId}/remarks", cc.AddHearingRemarkHandler).Methods("POST")

	apiRouter.HandleFunc("/documents", d.UploadDocumentHandler).Methods("POST")
	apiRouter.HandleFunc("/documents", d.DocumentsHandler).Methods("GET")
	apiRouter.HandleFunc("/documents/{documentId}", d.DocumentByIDHandler).Methods("GET")
	apiRouter.HandleFunc("/documents/{documentId}/status", d.UpdateDocumentStatusHandler).Methods("PATCH")
	apiRouter.HandleFunc("/documents/{documentId}", d.DeleteDocumentHandler).Methods("DELETE")

	apiRouter.HandleFunc("/clerk-parties", party.CreatePartyHandler).Methods("POST")
	apiRouter.HandleFunc("/clerk-parties", party.PartiesHandler).Methods("GET")
	apiRouter.HandleFunc("/clerk-parties/{partyId}", party.PartyByIDHandler).Methods("GET")
	apiRouter.HandleFunc("/clerk-parties/{partyId}", party.UpdatePartyHandler).Methods("PUT")
	apiRouter.HandleFunc("/clerk-parties/{partyId}", party.DeletePartyHandler).Methods("DELETE")
	apiRouter.HandleFunc("/clerk-parties/{partyId}/id-proofs", party.UploadIDProofHandler).Methods("POST")
	apiRouter.HandleFunc("/clerk-parties/{partyId}/payments", party.AddPartyPaymentHandler).Methods("POST")
	apiRouter.HandleFunc("/clerk-parties/{partyId}/communications", party.AddCommunicationHandler).Methods("POST")
	apiRouter.HandleFunc("/clerk-parties/{partyId}/cases", party.LinkCaseHandler).Methods("POST")

	apiRouter.HandleFunc("/payment/create-order", g.CreateOrderHandler).Methods("POST")
	apiRouter.HandleFunc("/payment/verify-payment", g.VerifyPaymentHandler).Methods("POST")

	apiRouter.HandleFunc("/calendar/auth-url", cal.AuthURLHandler).Methods("GET")
	apiRouter.HandleFunc("/calendar/token", cal.TokenHandler).Methods("POST")
	apiRouter.HandleFunc("/calendar/calendars", cal.CalendarsHandler).Methods("GET")
	apiRouter.HandleFunc("/calendar/events", cal.EventsHandler).Methods("GET")
	apiRouter.HandleFunc("/calendar/events", cal.CreateEventHandler).Methods("POST")
	apiRouter.HandleFunc("/calendar/events/{eventId}", cal.UpdateEventHandler).Methods("PATCH", "PUT")
	apiRouter.HandleFunc("/calendar/events/{eventId}", cal.DeleteEventHandler).Methods("DELETE")

	apiRouter.HandleFunc("/dashboard/stats", dash.StatsHandler).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database, set up the
// optional integrations and create a router
func (a *App) Initialize(ctx context.Context) error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With("error", err).Error("failed to create new client")
		return err
	}

	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With("error", err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("chakshi-api has connected to the database")

	if err := databases.EnsureIndexes(connectCtx, a.dbHelper); err != nil {
		zap.S().With("error", err).Warn("failed to ensure indexes")
	}

	// optional integrations are disabled, never fatal, when misconfigured
	if a.Store, err = storage.New(ctx, &a.Config); err != nil {
		zap.S().With("error", err).Warn("file storage is disabled")
	}
	if a.Payments, err = payments.New(&a.Config); err != nil {
		zap.S().With("error", err).Warn("payment gateway is disabled")
	} else if a.Payments == nil {
		zap.S().Info("payment gateway is not configured")
	}
	if a.Calendar = NewGoogleCalendar(&a.Config); a.Calendar == nil {
		zap.S().Info("google calendar is not configured")
	}

	a.auth = api.NewAuth(ctx, a.Config.JWTSecret)
	a.Hub = NewNotificationHub()

	// initialize api router
	a.initializeRoutes()
	return nil
}

// DB exposes the database for the scheduler and CLI commands
func (a *App) DB() databases.DatabaseHelper {
	return a.dbHelper
}

// Close disconnects from the database
func (a *App) Close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	return a.client.Disconnect(ctx)
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	config.WriteSuccess(w, http.StatusOK, models.HealthCheckResponse{Alive: true}, "")
}
