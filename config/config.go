package config

import (
	"encoding/json"
	"net/http"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/chakshi/chakshi-api/models"
)

// Config holds the project config values
type Config struct {
	URL               string `envconfig:"DB_URI" default:"mongodb://127.0.0.1:27017"`
	DatabaseName      string `envconfig:"DB_NAME" default:"chakshi"`
	BaseURL           string `envconfig:"BASE_URL"`
	Port              string `envconfig:"PORT" default:"8080"`
	Environment       string `envconfig:"ENVIRONMENT" default:"development"`
	JWTSecret         string `envconfig:"JWT_SECRET"`
	RequestTimeoutSec int    `envconfig:"REQUEST_TIMEOUT_SEC" default:"30"`

	// Uploads
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"disk"`
	UploadDir      string `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxUploadMB    int64  `envconfig:"MAX_UPLOAD_MB" default:"10"`
	CloudinaryURL  string `envconfig:"CLOUDINARY_URL"`
	CloudinaryDir  string `envconfig:"CLOUDINARY_FOLDER" default:"chakshi"`
	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3PublicURL    string `envconfig:"S3_PUBLIC_URL"`
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"chakshi"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL"`

	// Payment gateway, disabled unless its keys are set
	PaymentProvider       string `envconfig:"PAYMENT_PROVIDER" default:"razorpay"`
	RazorpayKeyID         string `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `envconfig:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string `envconfig:"RAZORPAY_WEBHOOK_SECRET"`
	StripeSecretKey       string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret   string `envconfig:"STRIPE_WEBHOOK_SECRET"`

	// Google Calendar, disabled unless the client id is set
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `envconfig:"GOOGLE_REDIRECT_URL"`

	// Hearing reminders, disabled unless the SendGrid key is set
	SendGridAPIKey    string `envconfig:"SENDGRID_API_KEY"`
	ReminderFromEmail string `envconfig:"REMINDER_FROM_EMAIL" default:"no-reply@chakshi.app"`
	ReminderCron      string `envconfig:"REMINDER_CRON" default:"0 7 * * *"`
}

// New sets up all config related services
func New() (*Config, error) {
	c := new(Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, err
	}

	//setup zap logger and replace default logger
	logger, err := setLogger(c.Environment)
	if err != nil {
		return nil, err
	}
	_ = zap.ReplaceGlobals(logger)

	return c, nil
}

// IsDevelopment reports whether stack traces may be exposed in responses
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// MaxUploadBytes is the upload size limit in bytes
func (c Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return c.MaxUploadMB << 20
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	resp := models.Response{Success: false, Message: message}
	if err != nil {
		zap.S().With("error", err).Error(message)
		resp.Error = err.Error()
	} else {
		zap.S().Warn(message)
	}
	writeJSON(w, httpStatusCode, resp)
}

// ErrorCode writes a failure whose error field carries a machine readable code
func ErrorCode(httpStatusCode int, w http.ResponseWriter, detail models.ErrorDetail) {
	zap.S().Warnw(detail.Message, "code", detail.Code)
	writeJSON(w, httpStatusCode, models.Response{Success: false, Message: detail.Message, Error: detail})
}

// WriteSuccess writes a successful envelope with the given data
func WriteSuccess(w http.ResponseWriter, httpStatusCode int, data interface{}, message string) {
	writeJSON(w, httpStatusCode, models.Response{Success: true, Data: data, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	b, err := json.Marshal(body)
	if err != nil {
		zap.S().With("error", err).Error("failed to marshal response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"failed to marshal response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
