package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jypelle/busboard/apimodel"
	"github.com/jypelle/busboard/internal/srv/config"
	"github.com/jypelle/busboard/internal/srv/event"
	"github.com/jypelle/busboard/internal/tool"
	"github.com/sirupsen/logrus"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"time"
)

const apiEventTimeout = 5 * time.Second

type StatusSource interface {
	Last() (apimodel.Status, bool)
}

type Api struct {
	eventChannel chan event.ApiEvent

	router    *mux.Router
	apiRouter *mux.Router
	server    *http.Server

	param     config.ApiParam
	configDir string
	status    StatusSource
}

func NewApi(param config.ApiParam, configDir string, status StatusSource) *Api {
	api := Api{
		param:        param,
		configDir:    configDir,
		status:       status,
		eventChannel: make(chan event.ApiEvent),
	}

	api.router = mux.NewRouter().StrictSlash(false)

	// API Routes
	api.apiRouter = api.router.PathPrefix("/api").Subrouter()
	api.apiRouter.NotFoundHandler = http.HandlerFunc(ErrorNotFoundAction)
	api.apiRouter.MethodNotAllowedHandler = http.HandlerFunc(ErrorMethodNotAllowedAction)

	// Auth middleware
	api.apiRouter.Use(
		func(handler http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer func() {
					if rec := recover(); rec != nil {
						logrus.Warningf("recovered from panic : [%v] - stack trace : \n [%s]", rec, debug.Stack())
						GlobalErrorAction(w, fmt.Sprintf("%v", rec), http.StatusInternalServerError)
					}
				}()

				// Check API Key
				if param.ApiKey == "" || r.Header.Get("x-api-key") != param.ApiKey {
					ErrorStatusAction(w, r, http.StatusForbidden)
					return
				}

				logrus.Debugf("PATH: %s %s", r.Host, r.URL.Path)

				handler.ServeHTTP(w, r)
			})
		})

	api.apiRouter.HandleFunc("/is_alive",
		func(w http.ResponseWriter, r *http.Request) {
			ErrorStatusAction(w, r, http.StatusOK)
		}).Methods("GET")
	api.apiRouter.HandleFunc("/status",
		func(w http.ResponseWriter, r *http.Request) {
			status, ok := api.status.Last()
			if !ok {
				ErrorStatusAction(w, r, http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(status)
		}).Methods("GET")
	api.apiRouter.HandleFunc("/mode/{mode}",
		func(w http.ResponseWriter, r *http.Request) {
			modeToken, ok := apimodel.ParseModeToken(mux.Vars(r)["mode"])
			if !ok {
				apimodel.UnknownModeErrorMessage.SendError(w)
				return
			}
			api.sendEvent(w, r, event.ApiEventModeData{ModeToken: modeToken})
		}).Methods("POST")
	api.apiRouter.HandleFunc("/refresh",
		func(w http.ResponseWriter, r *http.Request) {
			api.sendEvent(w, r, event.ApiEventRefreshData{})
		}).Methods("POST")

	// Tell the browser that it's OK for JS to communicate with the server
	headersOk := handlers.AllowedHeaders([]string{"x-api-key", "Content-Type"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})

	api.server = &http.Server{
		Addr:         ":" + strconv.FormatInt(param.SslPort, 10),
		Handler:      handlers.CompressHandler(handlers.CORS(originsOk, headersOk, methodsOk)(api.router)),
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 240,
	}

	return &api
}

// sendEvent hands the request to the coordinator and waits for its verdict
func (d *Api) sendEvent(w http.ResponseWriter, r *http.Request, data interface{}) {
	ctx, cancel := context.WithTimeout(r.Context(), apiEventTimeout)
	defer cancel()

	result := make(chan error, 1)
	select {
	case d.eventChannel <- event.ApiEvent{Result: result, Data: data}:
	case <-ctx.Done():
		ErrorStatusAction(w, r, http.StatusServiceUnavailable)
		return
	}

	select {
	case err := <-result:
		if err == nil {
			ErrorStatusAction(w, r, http.StatusOK)
		} else {
			GlobalErrorAction(w, err.Error(), http.StatusForbidden)
		}
	case <-ctx.Done():
		ErrorStatusAction(w, r, http.StatusServiceUnavailable)
	}
}

func (d *Api) Start() error {
	logrus.Infof("Start api device")

	generated, err := tool.EnsureTlsCertificate(
		tool.CertificateRequest{Organization: "busboard", CommonName: "Busboard Server"},
		d.selfSignedKeyFilename(),
		d.selfSignedCertFilename(),
	)
	if err != nil {
		return fmt.Errorf("unable to prepare cert and key files: %w", err)
	}
	if generated {
		logrus.Info("Self-signed cert and key files generated")
	}

	// Launch https server
	go func() {
		err := d.server.ListenAndServeTLS(d.selfSignedCertFilename(), d.selfSignedKeyFilename())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Error(err)
		}
	}()
	return nil
}

func (d *Api) StopSendingEvent() {
	logrus.Infof("Stop api device")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.server.Shutdown(ctx)
}

func (d *Api) EventChannel() chan event.ApiEvent {
	return d.eventChannel
}

func (d *Api) Handler() http.Handler {
	return d.server.Handler
}

func (d *Api) selfSignedKeyFilename() string {
	return filepath.Join(d.configDir, "key.pem")
}

func (d *Api) selfSignedCertFilename() string {
	return filepath.Join(d.configDir, "cert.pem")
}

func ErrorNotFoundAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusNotFound)
}

func ErrorMethodNotAllowedAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusMethodNotAllowed)
}

func ErrorStatusAction(w http.ResponseWriter, r *http.Request, status int) {
	GlobalErrorAction(w, "", status)
}

func GlobalErrorAction(w http.ResponseWriter, message string, status int) {
	apimodel.ErrorMessage{ErrStatusCode: status, ErrMessage: message}.SendError(w)
}
