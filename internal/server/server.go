// Package server exposes diagram documents over HTTP for browser-hosted
// diagram engines.
//
// The browser side owns the canvas widget; this server owns canonical state.
// An engine adapter pulls `GET .../state` on every render (canonical arrays
// plus the push-suppression flag) and posts its incremental change
// descriptors, selection events, inspector edits, and settings toggles back.
// One synchronizer session is kept per open document; access to it is
// serialized here at the boundary, since the synchronizer itself is
// single-threaded by design.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/kheller/diagrid/pkg/diagram"
	apperrors "github.com/kheller/diagrid/pkg/errors"
	"github.com/kheller/diagrid/pkg/observability"
	"github.com/kheller/diagrid/pkg/state"
	"github.com/kheller/diagrid/pkg/store"
)

// Server hosts diagram documents and their editing sessions.
type Server struct {
	store  store.Store
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session pairs a synchronizer with the lock that serializes access to it.
type session struct {
	mu   sync.Mutex
	sync *state.Synchronizer
}

// New creates a server over the given document store.
func New(st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:    st,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Route("/api/documents", func(r chi.Router) {
		r.Get("/", s.handleListDocuments)
		r.Post("/", s.handleCreateDocument)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Get("/state", s.handleGetState)
			r.Post("/change", s.handlePostChange)
			r.Post("/selection", s.handlePostSelection)
			r.Post("/edit", s.handlePostEdit)
			r.Post("/metadata", s.handlePostMetadata)
		})
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
	})
}

// getSession returns the open session for a document, loading it from the
// store on first access. The map lock is not held across the store read, so
// a slow backend stalls only requests for the document being loaded; two
// concurrent first accesses race to insert and the loser's session is
// discarded.
func (s *Server) getSession(r *http.Request, id string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	start := time.Now()
	doc, err := s.store.Get(r.Context(), id)
	observability.Store().OnLoad(r.Context(), id, time.Since(start), err)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "load document %s", id)
	}
	if doc == nil {
		return nil, apperrors.New(apperrors.ErrCodeDocumentNotFound, "document %s not found", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess = &session{sync: state.New(doc.Diagram)}
	s.sessions[id] = sess
	return sess, nil
}

// persist flushes a session's canonical state back into the store.
func (s *Server) persist(r *http.Request, id string, sess *session) error {
	doc, err := s.store.Get(r.Context(), id)
	if err != nil || doc == nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "reload document %s", id)
	}
	doc.Diagram = sess.sync.Snapshot()
	doc.Touch()
	start := time.Now()
	err = s.store.Put(r.Context(), doc)
	observability.Store().OnSave(r.Context(), id, time.Since(start), err)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "persist document %s", id)
	}
	return nil
}

// =============================================================================
// JSON plumbing
// =============================================================================

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrCodeDocumentNotFound, apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidFormat,
		apperrors.ErrCodeInvalidField, apperrors.ErrCodeInvalidKey:
		status = http.StatusBadRequest
	case apperrors.ErrCodeNoSelection, apperrors.ErrCodeInconsistentIndex:
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}

	var body errorBody
	body.Error.Code = string(code)
	body.Error.Message = apperrors.UserMessage(err)
	writeJSON(w, status, body)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode request body")
	}
	return nil
}

// =============================================================================
// Document handlers
// =============================================================================

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, err, "list documents"))
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string           `json:"name"`
		Diagram *diagram.Diagram `json:"diagram"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	d := diagram.Sample()
	if req.Diagram != nil {
		if err := req.Diagram.Validate(); err != nil {
			s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid diagram"))
			return
		}
		d = *req.Diagram
	}

	doc := store.NewDocument(req.Name, d)
	if err := s.store.Put(r.Context(), doc); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, err, "store document"))
		return
	}

	s.logger.Info("document created", "id", doc.ID, "name", doc.Name)
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, err, "load document"))
		return
	}
	if doc == nil {
		s.writeError(w, apperrors.New(apperrors.ErrCodeDocumentNotFound, "document %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.Delete(r.Context(), id)
	observability.Store().OnDelete(r.Context(), id, err)
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, err, "delete document"))
		return
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Reconciliation handlers
// =============================================================================

// stateBody is what a browser engine adapter consumes on every render.
type stateBody struct {
	Nodes             []diagram.Node `json:"nodes"`
	Links             []diagram.Link `json:"links"`
	Metadata          diagram.Attrs  `json:"modelData,omitempty"`
	SkipsEngineUpdate bool           `json:"skipsEngineUpdate"`
	SelectedKey       *int           `json:"selectedKey,omitempty"`
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.getSession(r, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	snap := sess.sync.Snapshot()
	body := stateBody{
		Nodes:             snap.Nodes,
		Links:             snap.Links,
		Metadata:          snap.Metadata,
		SkipsEngineUpdate: sess.sync.SkipNextPush(),
	}
	if sel := sess.sync.Selected(); sel != nil {
		key := sel.PartKey()
		body.SelectedKey = &key
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePostChange(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.getSession(r, id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var c diagram.ChangeSet
	if err := decodeBody(r, &c); err != nil {
		s.writeError(w, err)
		return
	}

	sess.mu.Lock()
	start := time.Now()
	sess.sync.ApplyChange(c)
	observability.Sync().OnChangeApplied(r.Context(), id, c.PartCount(), time.Since(start))
	err = s.persist(r, id, sess)
	sess.mu.Unlock()

	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePostSelection(w http.ResponseWriter, r *http.Request) {
	sess, err := s.getSession(r, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req struct {
		Key *int `json:"key"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	id := chi.URLParam(r, "id")
	if req.Key == nil {
		sess.sync.ClearSelection()
		observability.Sync().OnSelectionChanged(r.Context(), id, nil)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !sess.sync.SelectKey(*req.Key) {
		s.writeError(w, apperrors.New(apperrors.ErrCodeNotFound, "key %d not in diagram", *req.Key))
		return
	}
	observability.Sync().OnSelectionChanged(r.Context(), id, req.Key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePostEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.getSession(r, id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req struct {
		Field  string `json:"field"`
		Value  string `json:"value"`
		Commit bool   `json:"commit"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	err = sess.sync.EditSelectedField(req.Field, req.Value, req.Commit)
	if req.Commit {
		observability.Sync().OnFieldCommitted(r.Context(), id, req.Field, err)
	}
	if err != nil {
		s.writeError(w, mapStateError(err, req.Field))
		return
	}

	if req.Commit {
		if err := s.persist(r, id, sess); err != nil {
			s.writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePostMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.getSession(r, id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req struct {
		Field string `json:"field"`
		Value any    `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Field == "" {
		s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidField, "field must not be empty"))
		return
	}

	sess.mu.Lock()
	sess.sync.SetMetadataField(req.Field, req.Value)
	err = s.persist(r, id, sess)
	sess.mu.Unlock()

	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mapStateError translates synchronizer sentinels into coded API errors.
func mapStateError(err error, field string) error {
	switch {
	case errors.Is(err, state.ErrNoSelection):
		return apperrors.Wrap(apperrors.ErrCodeNoSelection, err, "nothing selected")
	case errors.Is(err, state.ErrImmutableField):
		return apperrors.Wrap(apperrors.ErrCodeInvalidField, err, "field %q is read-only", field)
	case errors.Is(err, state.ErrInconsistentIndex):
		return apperrors.Wrap(apperrors.ErrCodeInconsistentIndex, err, "selection desynchronized from diagram")
	default:
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "edit failed")
	}
}
