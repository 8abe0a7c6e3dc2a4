// Dev-mode HTTP frontend for FSStore, routed with gorilla/mux the way the
// wider example corpus wires its own node check-in API: named path
// variables decoded with mux.Vars, one handler method per route, structured
// request logging via logrus.
package artifact

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	pathGet  = "/artifacts/{artifactID}"
	pathPost = "/artifacts/{tenantID}/{siteID}/{artifactType}"
)

// httpError carries the status code a handler wants written, so a shared
// error path doesn't have to thread *http.Request/ResponseWriter through
// every helper function.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

// NewHTTPHandler builds a dev-mode router in front of store: GET verifies a
// signed URL and streams the artifact, POST stores a new one and returns
// its Metadata as JSON.
func NewHTTPHandler(store *FSStore) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(pathGet, getHandler(store)).Methods("GET")
	r.HandleFunc(pathPost, postHandler(store)).Methods("POST")
	return r
}

func getHandler(store *FSStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logRequest(r)
		vars := mux.Vars(r)
		artifactID := vars["artifactID"]
		tenantID := r.URL.Query().Get("tenant")
		expiryStr := r.URL.Query().Get("expires")
		sig := r.URL.Query().Get("sig")

		expiry, err := strconv.ParseInt(expiryStr, 10, 64)
		if err != nil {
			http.Error(w, "bad expires parameter", http.StatusBadRequest)
			return
		}
		if !store.Verify(artifactID, tenantID, expiry, sig) {
			http.Error(w, "invalid or expired signature", http.StatusForbidden)
			return
		}

		content, err := store.Get(artifactID, tenantID)
		if err != nil {
			http.Error(w, "error reading artifact", http.StatusInternalServerError)
			return
		}
		if content == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(content)
	}
}

func postHandler(store *FSStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logRequest(r)
		vars := mux.Vars(r)

		content, err := io.ReadAll(r.Body)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, "error reading body", http.StatusBadRequest)
			return
		}

		meta, err := store.Store(vars["tenantID"], vars["siteID"], vars["artifactType"], content, StoreOptions{
			RunID:         r.Header.Get("X-Run-Id"),
			PlanVersionID: r.Header.Get("X-Plan-Version-Id"),
		})
		if err != nil {
			http.Error(w, "error storing artifact", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"artifact_id":"` + meta.ArtifactID + `","content_hash":"` + meta.ContentHash + `"}`))
	}
}

func logRequest(r *http.Request) {
	vars := mux.Vars(r)
	logrus.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"method": r.Method,
		"vars":   vars,
	}).Info("artifact store request")
}
