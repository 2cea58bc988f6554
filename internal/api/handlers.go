package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"recurse.com/niceties/internal/auth"
	"recurse.com/niceties/internal/core"
	"recurse.com/niceties/internal/directory"
	"recurse.com/niceties/internal/store"
)

type APIHandler struct {
	dbStore   *store.SQLiteStore
	people    *core.PeopleService
	cohorts   *core.CohortService
	niceties  *core.NicetyService
	settings  *core.SettingsService
	directory directory.Client
}

func NewAPIHandler(db *store.SQLiteStore, people *core.PeopleService, cohorts *core.CohortService, niceties *core.NicetyService, settings *core.SettingsService, dir directory.Client) *APIHandler {
	return &APIHandler{
		dbStore:   db,
		people:    people,
		cohorts:   cohorts,
		niceties:  niceties,
		settings:  settings,
		directory: dir,
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		personID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.dbStore.GetUser(personID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for person %d: %v", personID, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}

		if user == nil {
			// First sight of this person: provision a user row with
			// the faculty flag from the directory record.
			person, err := h.directory.GetPerson(r.Context(), personID)
			if err != nil {
				log.Printf("Error resolving person %d during provisioning: %v", personID, err)
				http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
				return
			}
			user, err = h.dbStore.CreateUser(personID, person.IsFaculty)
			if err != nil {
				log.Printf("Error provisioning user %d: %v", personID, err)
				http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
				return
			}
		}

		ctx := context.WithValue(r.Context(), "user", user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) *store.User {
	return r.Context().Value("user").(*store.User)
}

// forbidden writes the uniform 403 body used by every privileged
// endpoint.
func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"forbidden"}`))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *APIHandler) SelfHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	person, err := h.directory.GetPerson(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error fetching self info for %d: %v", user.ID, err)
		http.Error(w, "Failed to fetch self info", http.StatusInternalServerError)
		return
	}
	writeJSON(w, person)
}

func (h *APIHandler) LoadNicetiesHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	pending, err := h.niceties.LoadPending(user.ID)
	if err != nil {
		log.Printf("Error loading pending niceties for %d: %v", user.ID, err)
		http.Error(w, "Failed to load niceties", http.StatusInternalServerError)
		return
	}
	writeJSON(w, pending)
}

func (h *APIHandler) ShowNicetiesHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	revealed, err := h.niceties.ShowRevealable(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error showing niceties for %d: %v", user.ID, err)
		http.Error(w, "Failed to show niceties", http.StatusInternalServerError)
		return
	}
	writeJSON(w, revealed)
}

type PostNicetiesRequest struct {
	Niceties []core.NicetySubmission `json:"niceties"`
}

func (h *APIHandler) PostNicetiesHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req PostNicetiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.niceties.Save(user, req.Niceties); err != nil {
		log.Printf("Error saving niceties for %d: %v", user.ID, err)
		http.Error(w, "Failed to save niceties", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "OK"})
}

func (h *APIHandler) FacultyHandler(w http.ResponseWriter, r *http.Request) {
	faculty, err := h.cohorts.CurrentFaculty(r.Context())
	if err != nil {
		log.Printf("Error fetching current faculty: %v", err)
		http.Error(w, "Failed to fetch faculty", http.StatusInternalServerError)
		return
	}
	writeJSON(w, faculty)
}

func (h *APIHandler) DisplayPeopleHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	users, err := h.cohorts.CurrentUsers(r.Context())
	if err != nil {
		log.Printf("Error fetching current users: %v", err)
		http.Error(w, "Failed to fetch current users", http.StatusInternalServerError)
		return
	}
	if len(users) == 0 {
		writeJSON(w, map[string]string{"status": "closed"})
		return
	}

	partition, err := h.cohorts.PartitionUsers(users)
	if err != nil {
		if errors.Is(err, core.ErrInsufficientData) {
			// Not enough distinct retreat end dates to form cohort
			// boundaries; nothing to display yet.
			writeJSON(w, map[string]string{"status": "closed"})
			return
		}
		log.Printf("Error partitioning current users: %v", err)
		http.Error(w, "Failed to partition users", http.StatusInternalServerError)
		return
	}

	display, err := h.cohorts.DisplayFor(r.Context(), user, partition)
	if err != nil {
		log.Printf("Error building display for %d: %v", user.ID, err)
		http.Error(w, "Failed to build display", http.StatusInternalServerError)
		return
	}
	writeJSON(w, display)
}

func (h *APIHandler) PersonHandler(w http.ResponseWriter, r *http.Request) {
	personID, err := strconv.ParseInt(chi.URLParam(r, "personID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid person id", http.StatusBadRequest)
		return
	}

	person, err := h.people.GetPerson(r.Context(), personID)
	if err != nil {
		log.Printf("Error fetching person %d: %v", personID, err)
		http.Error(w, "Failed to fetch person", http.StatusInternalServerError)
		return
	}
	writeJSON(w, person)
}

func (h *APIHandler) AllNicetiesHandler(w http.ResponseWriter, r *http.Request) {
	if !currentUser(r).Admin {
		forbidden(w)
		return
	}

	groups, err := h.niceties.AllGroupedByTarget(r.Context())
	if err != nil {
		log.Printf("Error fetching all niceties: %v", err)
		http.Error(w, "Failed to fetch niceties", http.StatusInternalServerError)
		return
	}
	writeJSON(w, groups)
}

type OverwriteNicetyRequest struct {
	AuthorID int64  `json:"author_id"`
	TargetID int64  `json:"target_id"`
	Text     string `json:"text"`
}

func (h *APIHandler) OverwriteNicetyHandler(w http.ResponseWriter, r *http.Request) {
	if !currentUser(r).Admin {
		forbidden(w)
		return
	}

	var req OverwriteNicetyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.niceties.Overwrite(req.AuthorID, req.TargetID, req.Text); err != nil {
		log.Printf("Error overwriting nicety %d -> %d: %v", req.AuthorID, req.TargetID, err)
		http.Error(w, "Failed to overwrite nicety", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "OK"})
}

func (h *APIHandler) GetSiteSettingsHandler(w http.ResponseWriter, r *http.Request) {
	if !currentUser(r).Faculty {
		forbidden(w)
		return
	}

	settings, err := h.settings.All()
	if err != nil {
		log.Printf("Error fetching site settings: %v", err)
		http.Error(w, "Failed to fetch settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, settings)
}

type SetSettingRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (h *APIHandler) SetSiteSettingsHandler(w http.ResponseWriter, r *http.Request) {
	if !currentUser(r).Faculty {
		forbidden(w)
		return
	}

	var req SetSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := h.settings.Set(req.Key, string(req.Value))
	if err != nil {
		if errors.Is(err, core.ErrUnknownSetting) {
			http.Error(w, "Unknown setting key", http.StatusNotFound)
			return
		}
		if errors.Is(err, core.ErrBadSettingValue) {
			http.Error(w, "Bad setting value", http.StatusBadRequest)
			return
		}
		log.Printf("Error setting %s: %v", req.Key, err)
		http.Error(w, "Failed to save setting", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "OK"})
}
